package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ConsoleOutput writes status lines to a terminal
type ConsoleOutput struct {
	mu            sync.Mutex
	writer        io.Writer
	errWriter     io.Writer
	showTimestamp bool
}

// ConsoleConfig configures console output behavior
type ConsoleConfig struct {
	// ShowTimestamp prefixes each line with a timestamp
	ShowTimestamp bool

	// Writer is the output destination (default: os.Stdout)
	Writer io.Writer

	// ErrWriter receives Error messages (default: os.Stderr)
	ErrWriter io.Writer
}

// NewConsoleOutput creates a new console output handler
func NewConsoleOutput(config ConsoleConfig) *ConsoleOutput {
	writer := config.Writer
	if writer == nil {
		writer = os.Stdout
	}
	errWriter := config.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}

	return &ConsoleOutput{
		writer:        writer,
		errWriter:     errWriter,
		showTimestamp: config.ShowTimestamp,
	}
}

// Write writes a line
func (c *ConsoleOutput) Write(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.showTimestamp {
		_, err = fmt.Fprintf(c.writer, "[%s] %s\n", time.Now().Format("15:04:05"), text)
	} else {
		_, err = fmt.Fprintf(c.writer, "%s\n", text)
	}
	return err
}

// WritePartial overwrites the current line
func (c *ConsoleOutput) WritePartial(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.writer, "\r%s", text)
	return err
}

// WriteAudioLevel draws an input level meter on the current line
func (c *ConsoleOutput) WriteAudioLevel(level float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	barLength := int(level * 50)
	barLength = max(0, min(barLength, 50))

	_, err := fmt.Fprintf(c.writer, "\rLevel: [%-50s] %.1f%%", strings.Repeat("=", barLength), level*100)
	return err
}

// Clear clears the current line
func (c *ConsoleOutput) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "\r%80s\r", " ")
}

// Info writes an informational message
func (c *ConsoleOutput) Info(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "[INFO] %s\n", msg)
}

// Error writes an error message
func (c *ConsoleOutput) Error(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.errWriter, "[ERROR] %s\n", msg)
}
