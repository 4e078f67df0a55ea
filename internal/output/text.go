package output

import (
	"context"
	"fmt"
	"io"

	"github.com/guillermoBallester/querylens/internal/core/domain"
	"github.com/guillermoBallester/querylens/internal/core/port"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

type textWriter struct {
	w     io.Writer
	color bool
	err   error
}

func (tw *textWriter) printf(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.w, format, args...)
}

// c returns code when color output is on, or "" otherwise.
func (tw *textWriter) c(code string) string {
	if !tw.color {
		return ""
	}
	return code
}

// TextSink streams a human-readable report, one case at a time.
type TextSink struct {
	tw    *textWriter
	cases int
}

var _ port.ReportSink = (*TextSink)(nil)

// NewTextSink writes to w. ANSI colors are emitted only when color is set.
func NewTextSink(w io.Writer, color bool) *TextSink {
	return &TextSink{tw: &textWriter{w: w, color: color}}
}

func (s *TextSink) WriteCase(_ context.Context, outcome domain.CaseOutcome) error {
	tw := s.tw
	if s.cases == 0 {
		tw.printf("%s%sQuery Diagnostics%s\n\n", tw.c(colorBold), tw.c(colorCyan), tw.c(colorReset))
	}
	s.cases++

	tw.printf("  %s%s%s\n", tw.c(colorBold), outcome.Name, tw.c(colorReset))

	if outcome.Result == nil {
		tw.printf("  %s%-8s%s %s\n\n", tw.c(colorRed), "ERROR", tw.c(colorReset), outcome.Err)
		return tw.err
	}

	r := outcome.Result
	durColor := colorGreen
	if r.Slow {
		durColor = colorYellow
	}
	tw.printf("  %sDuration:%s %s%dms%s\n", tw.c(colorDim), tw.c(colorReset), tw.c(durColor), r.DurationMS, tw.c(colorReset))
	for _, rec := range r.Recommendations {
		tw.printf("  %s→ %s%s\n", tw.c(colorDim), rec, tw.c(colorReset))
	}
	tw.printf("\n")

	return tw.err
}

func (s *TextSink) WriteIndexes(_ context.Context, indexes []domain.IndexDescriptor) error {
	tw := s.tw
	tw.printf("%s%sIndexes (%d)%s\n\n", tw.c(colorBold), tw.c(colorCyan), len(indexes), tw.c(colorReset))
	if len(indexes) == 0 {
		tw.printf("  %sNo user-defined indexes.%s\n", tw.c(colorDim), tw.c(colorReset))
		return tw.err
	}
	for _, idx := range indexes {
		tw.printf("  %-32s %s%s%s\n", idx.Name, tw.c(colorDim), idx.TableName, tw.c(colorReset))
	}
	return tw.err
}

// Flush reports the first write error, if any.
func (s *TextSink) Flush() error {
	return s.tw.err
}
