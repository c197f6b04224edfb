package output

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
)

// ANSI color codes
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Gray   = "\033[90m"
)

type Formatter struct {
	JSON    bool
	Verbose bool
	Quiet   bool
	NoColor bool
	Writer  io.Writer
	// ErrWriter receives errors and log records in text mode.
	ErrWriter io.Writer
}

func New(jsonOutput, verbose, quiet, noColor bool) *Formatter {
	if os.Getenv("NO_COLOR") != "" {
		noColor = true
	}
	return &Formatter{
		JSON:      jsonOutput,
		Verbose:   verbose,
		Quiet:     quiet,
		NoColor:   noColor,
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
	}
}

// Logger returns a logger writing to ErrWriter. Verbose enables debug
// records, Quiet keeps only errors, and JSON mode logs JSON lines.
func (f *Formatter) Logger() *slog.Logger {
	level := slog.LevelWarn
	switch {
	case f.Quiet:
		level = slog.LevelError
	case f.Verbose:
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if f.JSON {
		return slog.New(slog.NewJSONHandler(f.ErrWriter, opts))
	}
	return slog.New(slog.NewTextHandler(f.ErrWriter, opts))
}

// Color wraps text in ANSI color codes if colors are enabled
func (f *Formatter) Color(color, text string) string {
	if f.NoColor || f.JSON {
		return text
	}
	return color + text + Reset
}

func (f *Formatter) Bold(text string) string {
	return f.Color(Bold, text)
}

func (f *Formatter) SuccessText(text string) string {
	return f.Color(Green, text)
}

func (f *Formatter) ErrorText(text string) string {
	return f.Color(Red, text)
}

func (f *Formatter) WarningText(text string) string {
	return f.Color(Yellow, text)
}

func (f *Formatter) InfoText(text string) string {
	return f.Color(Cyan, text)
}

func (f *Formatter) MutedText(text string) string {
	return f.Color(Gray, text)
}

// YesNo renders a boolean probe result.
func (f *Formatter) YesNo(v bool) string {
	if v {
		return f.SuccessText("yes")
	}
	return f.MutedText("no")
}

func (f *Formatter) Print(v interface{}) error {
	if f.JSON {
		return f.PrintJSON(v)
	}
	fmt.Fprintln(f.Writer, v)
	return nil
}

func (f *Formatter) PrintJSON(v interface{}) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Field is one labelled line of a text report.
type Field struct {
	Label string
	Value string
}

// PrintFields prints aligned "Label: value" lines.
func (f *Formatter) PrintFields(fields ...Field) {
	width := 0
	for _, fl := range fields {
		if len(fl.Label) > width {
			width = len(fl.Label)
		}
	}
	for _, fl := range fields {
		fmt.Fprintf(f.Writer, "%-*s %s\n", width+1, fl.Label+":", fl.Value)
	}
}

func (f *Formatter) PrintSuccess(message string) {
	if f.Quiet {
		return
	}
	if f.JSON {
		f.PrintJSON(JSONResponse{
			Success: true,
			Message: message,
		})
		return
	}
	fmt.Fprintln(f.Writer, f.SuccessText("✓")+" "+message)
}

func (f *Formatter) PrintWarning(message string) {
	if f.Quiet || f.JSON {
		return
	}
	fmt.Fprintln(f.ErrWriter, f.WarningText("!")+" "+message)
}

func (f *Formatter) Verbosef(format string, args ...interface{}) {
	if f.Verbose && !f.Quiet && !f.JSON {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintln(f.ErrWriter, f.MutedText(msg))
	}
}

type TableWriter struct {
	w *tabwriter.Writer
}

func (f *Formatter) NewTable(headers ...string) *TableWriter {
	tw := &TableWriter{
		w: tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0),
	}
	if len(headers) > 0 {
		coloredHeaders := make([]string, len(headers))
		for i, h := range headers {
			coloredHeaders[i] = f.Bold(h)
		}
		fmt.Fprintln(tw.w, strings.Join(coloredHeaders, "\t"))
	}
	return tw
}

func (t *TableWriter) AddRow(values ...string) {
	fmt.Fprintln(t.w, strings.Join(values, "\t"))
}

func (t *TableWriter) Flush() {
	t.w.Flush()
}

// JSONResponse is the envelope every --json command result is wrapped in.
type JSONResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func (f *Formatter) Success(data interface{}) error {
	if f.JSON {
		return f.PrintJSON(JSONResponse{
			Success: true,
			Data:    data,
		})
	}
	return nil
}

// Error reports err in the active mode and returns it unchanged.
func (f *Formatter) Error(err error) error {
	if f.JSON {
		f.PrintJSON(JSONResponse{
			Success: false,
			Error:   err.Error(),
		})
		return err
	}
	fmt.Fprintf(f.ErrWriter, "%s %s\n", f.ErrorText("Error:"), err)
	return err
}
