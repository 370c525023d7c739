// Package report renders the result of one optimization run as a single
// self-contained HTML document: the literal model definition and
// optimizer log, each shown verbatim in a <pre> element, and a
// human-readable summary of every section and absorption line. The
// model and log are not embedded as HTML comments, and the section data
// itself is not included.
// Grounded on the original especia core's HTML report (model.h's
// write/report methods), reworked from raw ostream formatting into Go's
// html/template, since this report is a single document assembled once
// per run rather than a server-rendered component tree.
package report

import (
	"fmt"
	"html/template"
	"io"
	"math"

	"github.com/rquast/especia/internal/cmaes"
	"github.com/rquast/especia/internal/model"
	"github.com/rquast/especia/internal/modelio"
)

// Line summarizes one absorption line's optimized physical parameters
// for display, translated from the flattened parameter vector's
// arity-many entries per profile kind (internal/profile).
type Line struct {
	SectionID string
	LineID    string

	RestWavelength      float64
	RestWavelengthError float64

	ObservedWavelength      float64
	ObservedWavelengthError float64

	OscillatorStrength float64

	Redshift      float64
	RedshiftError float64

	RadialVelocityKmS      float64
	RadialVelocityErrorKmS float64

	DopplerWidthKmS      float64
	DopplerWidthErrorKmS float64

	LogColumnDensity      float64
	LogColumnDensityError float64

	HasDeltaAlpha       bool
	DeltaAlphaPpm       float64
	DeltaAlphaErrorPpm  float64
}

// Section summarizes one spectral window's fit quality.
type Section struct {
	ID           string
	Lo, Hi       float64
	Order        int
	Resolution      float64
	ResolutionError float64
	PointCount   int
	Cost         float64
	CostPerPoint float64
}

// Report is the fully assembled document model handed to the HTML
// template.
type Report struct {
	ModelSource string
	OptimizerLog string

	Sections []Section
	Lines    []Line

	Generation uint64
	FinalCost  float64
	Optimized  bool
	Underflow  bool
}

// Build assembles a Report from a parsed document, its layout, the
// model it drove, and the optimizer's terminal result. optimizerLog
// holds whatever a cmaes.WriterTracer wrote during the run.
func Build(doc *modelio.Document, layout *modelio.Layout, m *model.Model, result cmaes.Result, optimizerLog string) Report {
	table := m.Table()

	r := Report{
		ModelSource:  doc.Source,
		OptimizerLog: optimizerLog,
		Generation:   result.Generation,
		FinalCost:    result.Y,
		Optimized:    result.Optimized,
		Underflow:    result.Underflow,
	}

	arity := layout.Kind.Arity()

	for _, sl := range layout.Sections {
		resolution := table.Value(sl.RIndex)
		resolutionErr := table.Uncertainty(sl.RIndex)

		pointCount := sl.Section.ValidDataCount()
		cost := sl.Section.LastCost()
		costPerPoint := 0.0
		if pointCount > 0 {
			costPerPoint = cost / float64(pointCount)
		}

		r.Sections = append(r.Sections, Section{
			ID:              sl.ID,
			Lo:              sl.Lo,
			Hi:              sl.Hi,
			Order:           sl.Order,
			Resolution:      resolution,
			ResolutionError: resolutionErr,
			PointCount:      pointCount,
			Cost:            cost,
			CostPerPoint:    costPerPoint,
		})

		for _, ll := range sl.Lines {
			r.Lines = append(r.Lines, buildLine(table, sl.ID, ll, arity, layout.Kind))
		}
	}

	return r
}

func buildLine(table *model.ParamTable, sectionID string, ll modelio.LineLayout, arity int, kind model.LineKind) Line {
	i := ll.StartIndex

	rest := table.Value(i)
	restErr := table.Uncertainty(i)
	f := table.Value(i + 1)
	z := table.Value(i + 2)
	zErr := table.Uncertainty(i + 2)
	v := table.Value(i + 3)
	vErr := table.Uncertainty(i + 3)
	b := table.Value(i + 4)
	bErr := table.Uncertainty(i + 4)
	logN := table.Value(i + 5)
	logNErr := table.Uncertainty(i + 5)

	observed := rest * (1.0 + z)
	observedErr := math.Hypot(restErr*(1.0+z), rest*zErr)

	line := Line{
		SectionID:              sectionID,
		LineID:                 ll.ID,
		RestWavelength:         rest,
		RestWavelengthError:    restErr,
		ObservedWavelength:     observed,
		ObservedWavelengthError: observedErr,
		OscillatorStrength:     f,
		Redshift:               z,
		RedshiftError:          zErr,
		RadialVelocityKmS:      v,
		RadialVelocityErrorKmS: vErr,
		DopplerWidthKmS:        b,
		DopplerWidthErrorKmS:   bErr,
		LogColumnDensity:       logN,
		LogColumnDensityError:  logNErr,
	}

	if kind == model.KindManyMultiplet && arity >= 8 {
		line.HasDeltaAlpha = true
		line.DeltaAlphaPpm = table.Value(i + 7)
		line.DeltaAlphaErrorPpm = table.Uncertainty(i + 7)
	}

	return line
}

const documentTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>especia optimization report</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 1.5em; }
th, td { border: 1px solid #ccc; padding: 0.3em 0.6em; text-align: right; }
th { background: #eee; }
pre { background: #f7f7f7; padding: 1em; overflow-x: auto; }
.status-ok { color: #060; }
.status-warn { color: #a00; }
</style>
</head>
<body>
<h1>especia optimization report</h1>
<p>
Generation {{.Generation}}, final cost {{printf "%.6g" .FinalCost}} —
{{if .Optimized}}<span class="status-ok">converged</span>{{else if .Underflow}}<span class="status-warn">step-size underflow</span>{{else}}<span class="status-warn">stopped at generation limit</span>{{end}}
</p>

<h2>Sections</h2>
<table>
<tr><th>id</th><th>window</th><th>order</th><th>R</th><th>points</th><th>cost</th><th>cost/point</th></tr>
{{range .Sections}}
<tr>
<td>{{.ID}}</td>
<td>{{printf "%.3f" .Lo}} &ndash; {{printf "%.3f" .Hi}}</td>
<td>{{.Order}}</td>
<td>{{printf "%.0f" .Resolution}} &plusmn; {{printf "%.0f" .ResolutionError}}</td>
<td>{{.PointCount}}</td>
<td>{{printf "%.4f" .Cost}}</td>
<td>{{printf "%.4f" .CostPerPoint}}</td>
</tr>
{{end}}
</table>

<h2>Lines</h2>
<table>
<tr>
<th>section</th><th>line</th>
<th>&lambda;<sub>obs</sub></th><th>&lambda;<sub>rest</sub></th><th>f</th>
<th>z</th><th>v (km/s)</th><th>b (km/s)</th><th>log N</th><th>&Delta;&alpha;/&alpha; (ppm)</th>
</tr>
{{range .Lines}}
<tr>
<td>{{.SectionID}}</td>
<td>{{.LineID}}</td>
<td>{{printf "%.4f" .ObservedWavelength}} &plusmn; {{printf "%.4f" .ObservedWavelengthError}}</td>
<td>{{printf "%.4f" .RestWavelength}} &plusmn; {{printf "%.4f" .RestWavelengthError}}</td>
<td>{{printf "%.4g" .OscillatorStrength}}</td>
<td>{{printf "%.6f" .Redshift}} &plusmn; {{printf "%.6f" .RedshiftError}}</td>
<td>{{printf "%.3f" .RadialVelocityKmS}} &plusmn; {{printf "%.3f" .RadialVelocityErrorKmS}}</td>
<td>{{printf "%.3f" .DopplerWidthKmS}} &plusmn; {{printf "%.3f" .DopplerWidthErrorKmS}}</td>
<td>{{printf "%.4f" .LogColumnDensity}} &plusmn; {{printf "%.4f" .LogColumnDensityError}}</td>
<td>{{if .HasDeltaAlpha}}{{printf "%.2f" .DeltaAlphaPpm}} &plusmn; {{printf "%.2f" .DeltaAlphaErrorPpm}}{{else}}&mdash;{{end}}</td>
</tr>
{{end}}
</table>

<h2>Model</h2>
<pre>{{.ModelSource}}</pre>

<h2>Optimizer log</h2>
<pre>{{.OptimizerLog}}</pre>
</body>
</html>
`

var tmpl = template.Must(template.New("report").Parse(documentTemplate))

// Write renders r as a complete HTML document to w.
func Write(w io.Writer, r Report) error {
	if err := tmpl.Execute(w, r); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	return nil
}
