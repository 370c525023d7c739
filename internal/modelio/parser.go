// Package modelio parses the free-form model-definition text described
// the model definition grammar: a sequence of `{ … }`-delimited sections,
// each naming a data file, a wavelength window, a Legendre continuum
// order and optional masked intervals, followed by a resolving-power
// parameter specification and one or more absorption-line parameter
// specifications. It is grounded on the original especia core's
// Model<Profile>::get (model.h), reworked from its single-pass
// stream-tokenizing C++ into a line-oriented Go scanner, and on
// Section::get (section.h) for the three-column data file format.
//
// Grammar (each line is one syntactic unit; `%` starts a line comment):
//
//	@kind doppler|voigt|manymultiplet   ; optional, once, before any section
//
//	{ id datafile lo hi order [maskLo maskHi]...
//	value lo up mask [ref]              ; the section's resolving power
//	lineID value lo up mask [ref]        ; first parameter of a line
//	value lo up mask [ref]               ; its remaining parameters, one per line
//	...
//	}
//
// mask is 1/0 or true/false: 1 marks a free parameter, 0 a pinned one.
// ref is an optional identifier linking this parameter to an
// already-declared one: a section's resolving power links by section
// id; a line parameter links by line id, to the same-numbered parameter
// of the named line.
package modelio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rquast/especia/internal/model"
)

// ParamSpec is one `value lo up mask [ref]` specification.
type ParamSpec struct {
	Value, Lower, Upper float64
	Free                bool
	Ref                 string
}

// LineSpec is one named absorption-line profile: an identifier and
// exactly Kind.Arity() parameter specifications.
type LineSpec struct {
	ID     string
	Params []ParamSpec
}

// SectionSpec is one `{ … }` block: its head fields, masked intervals,
// resolving-power specification and its line specifications.
type SectionSpec struct {
	ID         string
	DataFile   string
	Lo, Hi     float64
	Order      int
	Masks      [][2]float64
	Resolution ParamSpec
	Lines      []LineSpec
}

// Document is a fully parsed model definition.
type Document struct {
	Kind     model.LineKind
	Sections []SectionSpec
	Source   string // the literal input text, for the report's <model> block
}

// SyntaxError reports a malformed model definition, with the 1-based
// input line number at which parsing failed.
type SyntaxError struct {
	Line   int
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("model input, line %d: %s", e.Line, e.Reason)
}

// Parse reads a complete model definition from r.
func Parse(r io.Reader) (*Document, error) {
	var raw strings.Builder
	tee := io.TeeReader(r, &raw)

	scanner := bufio.NewScanner(tee)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	doc := &Document{Kind: model.KindDoppler}

	var cur *SectionSpec
	var curLine *LineSpec
	lineNo := 0
	kindSeen := false
	sectionStarted := false

	finishSection := func() error {
		if cur == nil {
			return nil
		}
		if len(cur.Lines) == 0 {
			return &SyntaxError{Line: lineNo, Reason: "section " + cur.ID + " has no absorption-line specifications"}
		}
		if curLine != nil && curLine.ID != "" && len(curLine.Params) != doc.Kind.Arity() {
			return &SyntaxError{Line: lineNo, Reason: "line " + curLine.ID + " has " + strconv.Itoa(len(curLine.Params)) + " parameters, want " + strconv.Itoa(doc.Kind.Arity())}
		}
		doc.Sections = append(doc.Sections, *cur)
		cur = nil
		curLine = nil
		return nil
	}

	for scanner.Scan() {
		lineNo++
		text := stripComment(scanner.Text())
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		switch {
		case fields[0] == "@kind":
			if kindSeen {
				return nil, &SyntaxError{Line: lineNo, Reason: "duplicate @kind directive"}
			}
			if sectionStarted {
				return nil, &SyntaxError{Line: lineNo, Reason: "@kind directive must precede every section"}
			}
			if len(fields) != 2 {
				return nil, &SyntaxError{Line: lineNo, Reason: "@kind requires exactly one argument"}
			}
			kind, err := parseKind(fields[1])
			if err != nil {
				return nil, &SyntaxError{Line: lineNo, Reason: err.Error()}
			}
			doc.Kind = kind
			kindSeen = true

		case fields[0] == "}":
			if cur == nil {
				return nil, &SyntaxError{Line: lineNo, Reason: "unmatched '}'"}
			}
			if err := finishSection(); err != nil {
				return nil, err
			}

		case strings.HasPrefix(fields[0], "{"):
			if cur != nil {
				return nil, &SyntaxError{Line: lineNo, Reason: "nested section (missing '}')"}
			}
			head := fields
			head[0] = strings.TrimPrefix(head[0], "{")
			if head[0] == "" {
				head = head[1:]
			}
			spec, err := parseSectionHead(head)
			if err != nil {
				return nil, &SyntaxError{Line: lineNo, Reason: err.Error()}
			}
			cur = spec
			curLine = nil
			sectionStarted = true

		case cur == nil:
			return nil, &SyntaxError{Line: lineNo, Reason: "text outside of a '{ … }' section: " + text}

		default:
			if isNumeric(fields[0]) {
				spec, err := parseParamSpec(fields)
				if err != nil {
					return nil, &SyntaxError{Line: lineNo, Reason: err.Error()}
				}
				if len(cur.Lines) == 0 && curLine == nil {
					cur.Resolution = spec
					curLine = &LineSpec{ID: "", Params: nil} // sentinel: resolving power consumed
					continue
				}
				if curLine == nil || curLine.ID == "" {
					return nil, &SyntaxError{Line: lineNo, Reason: "parameter specification without a preceding line identifier"}
				}
				curLine.Params = append(curLine.Params, spec)
				if len(curLine.Params) == doc.Kind.Arity() {
					cur.Lines = append(cur.Lines, *curLine)
					curLine = &LineSpec{}
				}
			} else {
				if curLine != nil && curLine.ID != "" && len(curLine.Params) != doc.Kind.Arity() {
					return nil, &SyntaxError{Line: lineNo, Reason: "line " + curLine.ID + " has " + strconv.Itoa(len(curLine.Params)) + " parameters, want " + strconv.Itoa(doc.Kind.Arity())}
				}
				id := fields[0]
				spec, err := parseParamSpec(fields[1:])
				if err != nil {
					return nil, &SyntaxError{Line: lineNo, Reason: err.Error()}
				}
				curLine = &LineSpec{ID: id, Params: []ParamSpec{spec}}
				if len(curLine.Params) == doc.Kind.Arity() {
					cur.Lines = append(cur.Lines, *curLine)
					curLine = &LineSpec{}
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if cur != nil {
		return nil, &SyntaxError{Line: lineNo, Reason: "unterminated section (missing '}')"}
	}
	if len(doc.Sections) == 0 {
		return nil, &SyntaxError{Line: lineNo, Reason: "model defines no sections"}
	}

	doc.Source = raw.String()
	return doc, nil
}

func parseKind(s string) (model.LineKind, error) {
	switch strings.ToLower(s) {
	case "doppler":
		return model.KindDoppler, nil
	case "voigt":
		return model.KindVoigt, nil
	case "manymultiplet", "many-multiplet", "mmp":
		return model.KindManyMultiplet, nil
	default:
		return 0, fmt.Errorf("unknown profile kind: %s", s)
	}
}

func parseSectionHead(fields []string) (*SectionSpec, error) {
	if len(fields) < 5 {
		return nil, fmt.Errorf("section head requires id, data file, lo, hi, order")
	}
	lo, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid lower bound %q: %w", fields[2], err)
	}
	hi, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid upper bound %q: %w", fields[3], err)
	}
	order, err := strconv.Atoi(fields[4])
	if err != nil {
		return nil, fmt.Errorf("invalid Legendre order %q: %w", fields[4], err)
	}

	spec := &SectionSpec{ID: fields[0], DataFile: fields[1], Lo: lo, Hi: hi, Order: order}

	rest := fields[5:]
	if len(rest)%2 != 0 {
		return nil, fmt.Errorf("masked intervals must come in pairs")
	}
	for i := 0; i < len(rest); i += 2 {
		a, err := strconv.ParseFloat(rest[i], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid mask bound %q: %w", rest[i], err)
		}
		b, err := strconv.ParseFloat(rest[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid mask bound %q: %w", rest[i+1], err)
		}
		spec.Masks = append(spec.Masks, [2]float64{a, b})
	}
	return spec, nil
}

func parseParamSpec(fields []string) (ParamSpec, error) {
	if len(fields) != 4 && len(fields) != 5 {
		return ParamSpec{}, fmt.Errorf("parameter specification needs 4 or 5 fields (value lo up mask [ref]), got %d", len(fields))
	}
	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return ParamSpec{}, fmt.Errorf("invalid value %q: %w", fields[0], err)
	}
	lower, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return ParamSpec{}, fmt.Errorf("invalid lower bound %q: %w", fields[1], err)
	}
	upper, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return ParamSpec{}, fmt.Errorf("invalid upper bound %q: %w", fields[2], err)
	}
	free, err := parseMask(fields[3])
	if err != nil {
		return ParamSpec{}, err
	}
	spec := ParamSpec{Value: value, Lower: lower, Upper: upper, Free: free}
	if len(fields) == 5 {
		spec.Ref = fields[4]
	}
	return spec, nil
}

func parseMask(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("invalid mask flag %q: want 0, 1, true or false", s)
	}
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '%'); i >= 0 {
		return line[:i]
	}
	return line
}
