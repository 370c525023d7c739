package modelio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rquast/especia/internal/section"
)

// ReadSamples reads a three-column ASCII data file of wavelength, flux
// and flux uncertainty, one sample per line, `%`-comments and blank
// lines ignored. Grounded on Section::get's data-file loop (section.h),
// which reads the same three whitespace-separated columns.
func ReadSamples(r io.Reader) ([]section.Sample, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var samples []section.Sample
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := stripComment(scanner.Text())
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("data file, line %d: want 3 columns (wavelength flux sigma), got %d", lineNo, len(fields))
		}
		lambda, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("data file, line %d: invalid wavelength %q: %w", lineNo, fields[0], err)
		}
		flux, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("data file, line %d: invalid flux %q: %w", lineNo, fields[1], err)
		}
		sigma, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("data file, line %d: invalid sigma %q: %w", lineNo, fields[2], err)
		}
		samples = append(samples, section.Sample{Lambda: lambda, Flux: flux, Sigma: sigma})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("data file contains no samples")
	}
	return samples, nil
}
