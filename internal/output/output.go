package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

type OutputFormat struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Printer writes command output. Data goes to Out and problems to Err.
type Printer struct {
	Out io.Writer
	Err io.Writer
}

// Stdio prints to the process's standard streams.
func Stdio() Printer {
	return Printer{Out: os.Stdout, Err: os.Stderr}
}

func (p Printer) Success(message string, args ...any) {
	fmt.Fprintf(p.Out, "doodlemint: "+message+"\n", args...)
}

func (p Printer) Error(err error) {
	fmt.Fprintf(p.Err, "error: %s\n", err)
}

func (p Printer) Warning(message string, args ...any) {
	fmt.Fprintf(p.Err, "warning: "+message+"\n", args...)
}

func (p Printer) JSON(data any) error {
	return json.NewEncoder(p.Out).Encode(OutputFormat{
		Status: "success",
		Data:   data,
	})
}

func (p Printer) JSONError(err error) error {
	return json.NewEncoder(p.Err).Encode(OutputFormat{
		Status:  "error",
		Message: err.Error(),
	})
}

// Table prints rows with columns padded to the widest cell. The first row is
// usually the header.
func (p Printer) Table(rows [][]string) {
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for _, row := range rows {
		var b strings.Builder
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if i == len(widths)-1 {
				b.WriteString(cell)
				continue
			}
			fmt.Fprintf(&b, "%-*s  ", widths[i], cell)
		}
		fmt.Fprintln(p.Out, strings.TrimRight(b.String(), " "))
	}
}
