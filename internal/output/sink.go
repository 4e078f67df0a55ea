package output

import (
	"fmt"
	"io"

	"github.com/guillermoBallester/querylens/internal/core/port"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewSink picks the renderer for format.
func NewSink(format string, w io.Writer, color bool) (port.ReportSink, error) {
	switch format {
	case FormatText, "":
		return NewTextSink(w, color), nil
	case FormatJSON:
		return NewJSONSink(w), nil
	default:
		return nil, fmt.Errorf("unknown report format %q: must be %q or %q", format, FormatText, FormatJSON)
	}
}
