package rng

// MT19937_32 is the classical 32-bit Mersenne Twister (Matsumoto & Nishimura
// 1998). It exists alongside the 64-bit MT19937 so that the reference
// sequence published by the original authors (default seed 5489) can be
// reproduced exactly for deterministic, reproducible runs.
type MT19937_32 struct {
	state [624]uint32
	index int
}

const (
	mt32N         = 624
	mt32M         = 397
	mt32MatrixA   = 0x9908B0DF
	mt32UpperMask = 0x80000000
	mt32LowerMask = 0x7FFFFFFF
)

// NewMT19937_32 constructs a generator seeded from a single 32-bit integer.
// The canonical default seed is 5489.
func NewMT19937_32(seed uint32) *MT19937_32 {
	m := &MT19937_32{}
	m.Seed(seed)
	return m
}

// Seed resets the generator state with Knuth's LCG expansion.
func (m *MT19937_32) Seed(seed uint32) {
	m.state[0] = seed
	for i := 1; i < mt32N; i++ {
		prev := m.state[i-1]
		m.state[i] = 1812433253*(prev^(prev>>30)) + uint32(i)
	}
	m.index = mt32N
}

// SeedArray resets the generator state from an array of seeds using the
// two-phase mixing procedure of Matsumoto & Nishimura §4.
func (m *MT19937_32) SeedArray(seeds []uint32) {
	m.Seed(19650218)

	i, j := 1, 0
	k := mt32N
	if len(seeds) > k {
		k = len(seeds)
	}
	for ; k > 0; k-- {
		prev := m.state[i-1]
		m.state[i] = (m.state[i] ^ ((prev ^ (prev >> 30)) * 1664525)) + seeds[j] + uint32(j)
		i++
		j++
		if i >= mt32N {
			m.state[0] = m.state[mt32N-1]
			i = 1
		}
		if j >= len(seeds) {
			j = 0
		}
	}
	for k := mt32N - 1; k > 0; k-- {
		prev := m.state[i-1]
		m.state[i] = (m.state[i] ^ ((prev ^ (prev >> 30)) * 1566083941)) - uint32(i)
		i++
		if i >= mt32N {
			m.state[0] = m.state[mt32N-1]
			i = 1
		}
	}
	m.state[0] = 0x80000000
	m.index = mt32N
}

var mag01_32 = [2]uint32{0, mt32MatrixA}

// Uint32 returns the next raw 32-bit word of the recurrence.
func (m *MT19937_32) Uint32() uint32 {
	if m.index >= mt32N {
		var i int
		for i = 0; i < mt32N-mt32M; i++ {
			x := (m.state[i] & mt32UpperMask) | (m.state[i+1] & mt32LowerMask)
			m.state[i] = m.state[i+mt32M] ^ (x >> 1) ^ mag01_32[x&1]
		}
		for ; i < mt32N-1; i++ {
			x := (m.state[i] & mt32UpperMask) | (m.state[i+1] & mt32LowerMask)
			m.state[i] = m.state[i+(mt32M-mt32N)] ^ (x >> 1) ^ mag01_32[x&1]
		}
		x := (m.state[mt32N-1] & mt32UpperMask) | (m.state[0] & mt32LowerMask)
		m.state[mt32N-1] = m.state[mt32M-1] ^ (x >> 1) ^ mag01_32[x&1]
		m.index = 0
	}

	y := m.state[m.index]
	m.index++

	y ^= y >> 11
	y ^= (y << 7) & 0x9D2C5680
	y ^= (y << 15) & 0xEFC60000
	y ^= y >> 18

	return y
}

// Float64 returns a uniform deviate in [0, 1], dividing the 32-bit word by
// 2^32 - 1.
func (m *MT19937_32) Float64() float64 {
	return float64(m.Uint32()) * (1.0 / 4294967295.0)
}
