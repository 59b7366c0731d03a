// Package output prints command results for people or, in JSON mode, for
// scripts.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Aman-CERP/searchbridge/internal/errors"
)

// Writer formats command output.
type Writer struct {
	out  io.Writer
	json bool
}

// New creates a Writer. In JSON mode the status helpers are silent and
// results are written with Encode.
func New(out io.Writer, jsonMode bool) *Writer {
	return &Writer{out: out, json: jsonMode}
}

// JSON reports whether the writer is in JSON mode.
func (w *Writer) JSON() bool { return w.json }

// Encode writes v as indented JSON.
func (w *Writer) Encode(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Status prints a status message with an icon.
func (w *Writer) Status(icon, msg string) {
	if w.json {
		return
	}
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) { w.Status("✅", msg) }

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) { w.Success(fmt.Sprintf(format, args...)) }

// Warning prints a warning message.
func (w *Writer) Warning(msg string) { w.Status("⚠️ ", msg) }

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) { w.Warning(fmt.Sprintf(format, args...)) }

// Code prints an indented block.
func (w *Writer) Code(content string) {
	if w.json {
		return
	}
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Table prints rows in aligned columns under a header.
func (w *Writer) Table(header []string, rows [][]string) {
	tw := tabwriter.NewWriter(w.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		_, _ = fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	_ = tw.Flush()
}

// Error prints err: as a JSON object in JSON mode, otherwise with the
// error's code and suggestion.
func (w *Writer) Error(err error) {
	if err == nil {
		return
	}
	if w.json {
		data, jerr := errors.FormatJSON(err)
		if jerr != nil {
			data = []byte(fmt.Sprintf("{\"error\":%q}", err.Error()))
		}
		_, _ = fmt.Fprintf(w.out, "%s\n", data)
		return
	}
	_, _ = fmt.Fprintf(w.out, "❌ %s", errors.FormatForCLI(err))
}
