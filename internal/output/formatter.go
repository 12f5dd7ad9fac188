package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// CommandRecord describes one utterance and what the robot was asked to do
type CommandRecord struct {
	Index      int       `json:"index"`
	Session    string    `json:"session,omitempty"`
	Source     string    `json:"source"`
	Utterance  string    `json:"utterance,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Command    string    `json:"command"`
	Outcome    string    `json:"outcome"`
	Left       int       `json:"left"`
	Right      int       `json:"right"`
	Circle     [8]int    `json:"circle"`
	Direction  string    `json:"direction"`
	Speed      int       `json:"speed"`
	Delivered  bool      `json:"delivered"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Event represents a system event
type Event struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Formatter is the interface for output formatters
type Formatter interface {
	// WriteCommand writes the result of a processed utterance
	WriteCommand(record CommandRecord) error

	// WritePartial writes a partial (in-progress) transcript
	WritePartial(text string) error

	// WriteEvent writes a system event (e.g., VAD state changes)
	WriteEvent(eventType, message string) error

	// Flush ensures all buffered output is written
	Flush() error

	// Close closes the formatter and releases resources
	Close() error
}

// Formats lists the accepted --format values
var Formats = []string{"console", "json", "text"}

// NewFormatter returns the formatter for a format name
func NewFormatter(format string, w io.Writer) (Formatter, error) {
	switch strings.ToLower(format) {
	case "console":
		return NewConsoleFormatter(NewConsoleOutput(ConsoleConfig{ShowTimestamp: true, Writer: w})), nil
	case "json":
		return NewJSONFormatter(w), nil
	case "text":
		return NewPlainTextFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s (valid: %s)", format, strings.Join(Formats, ", "))
	}
}

// JSONFormatter writes one JSON document per line
type JSONFormatter struct {
	encoder *json.Encoder
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(writer io.Writer) *JSONFormatter {
	return &JSONFormatter{encoder: json.NewEncoder(writer)}
}

// WriteCommand writes a command record
func (j *JSONFormatter) WriteCommand(record CommandRecord) error {
	return j.encoder.Encode(struct {
		Type string `json:"type"`
		CommandRecord
	}{Type: "command", CommandRecord: record})
}

// WritePartial writes a partial transcript
func (j *JSONFormatter) WritePartial(text string) error {
	return j.encoder.Encode(struct {
		Type      string    `json:"type"`
		Text      string    `json:"text"`
		Timestamp time.Time `json:"timestamp"`
	}{Type: "partial", Text: text, Timestamp: time.Now()})
}

// WriteEvent writes a system event
func (j *JSONFormatter) WriteEvent(eventType, message string) error {
	return j.encoder.Encode(Event{
		Type:      eventType,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// Flush is a no-op, the encoder writes immediately
func (j *JSONFormatter) Flush() error {
	return nil
}

// Close closes the formatter
func (j *JSONFormatter) Close() error {
	return nil
}

// PlainTextFormatter outputs one line per command
type PlainTextFormatter struct {
	writer io.Writer
}

// NewPlainTextFormatter creates a new plain text formatter
func NewPlainTextFormatter(writer io.Writer) *PlainTextFormatter {
	return &PlainTextFormatter{writer: writer}
}

// WriteCommand writes a command record in plain text
func (p *PlainTextFormatter) WriteCommand(record CommandRecord) error {
	_, err := fmt.Fprintf(p.writer, "[%s] %s\n", record.Timestamp.Format("15:04:05"), Summary(record))
	return err
}

// WritePartial is a no-op for plain text
func (p *PlainTextFormatter) WritePartial(text string) error {
	return nil
}

// WriteEvent writes a system event
func (p *PlainTextFormatter) WriteEvent(eventType, message string) error {
	_, err := fmt.Fprintf(p.writer, "[%s] [%s] %s\n", time.Now().Format("15:04:05"), eventType, message)
	return err
}

// Flush ensures all buffered output is written
func (p *PlainTextFormatter) Flush() error {
	return nil
}

// Close closes the formatter
func (p *PlainTextFormatter) Close() error {
	return nil
}

// ConsoleFormatter renders records for an interactive terminal
type ConsoleFormatter struct {
	console *ConsoleOutput
}

// NewConsoleFormatter creates a formatter on top of a console
func NewConsoleFormatter(console *ConsoleOutput) *ConsoleFormatter {
	return &ConsoleFormatter{console: console}
}

// WriteCommand clears any partial line and prints the record
func (c *ConsoleFormatter) WriteCommand(record CommandRecord) error {
	c.console.Clear()
	return c.console.Write(fmt.Sprintf("[%d] %s", record.Index, Summary(record)))
}

// WritePartial overwrites the current line with the transcript so far
func (c *ConsoleFormatter) WritePartial(text string) error {
	c.console.Clear()
	return c.console.WritePartial("[partial] " + text)
}

// WriteEvent prints an informational line
func (c *ConsoleFormatter) WriteEvent(eventType, message string) error {
	c.console.Clear()
	c.console.Info(fmt.Sprintf("%s: %s", eventType, message))
	return nil
}

// Flush ensures all buffered output is written
func (c *ConsoleFormatter) Flush() error {
	return nil
}

// Close closes the formatter
func (c *ConsoleFormatter) Close() error {
	return nil
}

// Summary renders a record on a single line
func Summary(r CommandRecord) string {
	var b strings.Builder
	if r.Utterance != "" {
		fmt.Fprintf(&b, "%q -> ", r.Utterance)
	}
	b.WriteString(r.Command)

	switch r.Outcome {
	case "unrecognized":
		b.WriteString(" (not a command)")
	case "ineffective":
		b.WriteString(" (ignored, robot is stopped)")
	default:
		fmt.Fprintf(&b, " wheels=(%d, %d) %s at %d", r.Left, r.Right, r.Direction, r.Speed)
	}

	if !r.Delivered {
		b.WriteString(" [not delivered")
		if r.Error != "" {
			b.WriteString(": " + r.Error)
		}
		b.WriteString("]")
	}
	return b.String()
}
