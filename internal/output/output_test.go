package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() CommandRecord {
	return CommandRecord{
		Index:     1,
		Source:    "voice",
		Utterance: "turn right",
		Command:   "right",
		Outcome:   "applied",
		Left:      150,
		Right:     37,
		Circle:    [8]int{150, 150, 150, 150, 0, 0, 0, 0},
		Direction: "forward",
		Speed:     150,
		Delivered: true,
		Timestamp: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name   string
		record func() CommandRecord
		want   string
	}{
		{
			name:   "applied",
			record: sampleRecord,
			want:   `"turn right" -> right wheels=(150, 37) forward at 150`,
		},
		{
			name: "unrecognized",
			record: func() CommandRecord {
				r := sampleRecord()
				r.Utterance, r.Command, r.Outcome = "hello there", "unknown", "unrecognized"
				return r
			},
			want: `"hello there" -> unknown (not a command)`,
		},
		{
			name: "ineffective without utterance",
			record: func() CommandRecord {
				r := sampleRecord()
				r.Utterance, r.Outcome = "", "ineffective"
				return r
			},
			want: `right (ignored, robot is stopped)`,
		},
		{
			name: "not delivered",
			record: func() CommandRecord {
				r := sampleRecord()
				r.Delivered, r.Error = false, "robot not connected"
				return r
			},
			want: `"turn right" -> right wheels=(150, 37) forward at 150 [not delivered: robot not connected]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summary(tt.record()))
		})
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(&buf)

	require.NoError(t, f.WriteCommand(sampleRecord()))
	require.NoError(t, f.WritePartial("turn"))
	require.NoError(t, f.WriteEvent("vad", "speech detected"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var cmd map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &cmd))
	assert.Equal(t, "command", cmd["type"])
	assert.Equal(t, "right", cmd["command"])
	assert.Equal(t, float64(37), cmd["right"])
	assert.Equal(t, "voice", cmd["source"])
	assert.NotContains(t, cmd, "error")

	var partial map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &partial))
	assert.Equal(t, "partial", partial["type"])
	assert.Equal(t, "turn", partial["text"])

	var event Event
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &event))
	assert.Equal(t, "vad", event.Type)
}

func TestPlainTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewPlainTextFormatter(&buf)

	require.NoError(t, f.WriteCommand(sampleRecord()))
	require.NoError(t, f.WritePartial("ignored"))

	assert.Equal(t, "[12:30:00] \"turn right\" -> right wheels=(150, 37) forward at 150\n", buf.String())
}

func TestConsoleFormatter(t *testing.T) {
	var out, errOut bytes.Buffer
	console := NewConsoleOutput(ConsoleConfig{Writer: &out, ErrWriter: &errOut})
	f := NewConsoleFormatter(console)

	require.NoError(t, f.WritePartial("turn"))
	require.NoError(t, f.WriteCommand(sampleRecord()))
	console.Error("capture failed")

	assert.Contains(t, out.String(), "\r[partial] turn")
	assert.Contains(t, out.String(), "[1] \"turn right\" -> right")
	assert.Equal(t, "[ERROR] capture failed\n", errOut.String())
}

func TestNewFormatter(t *testing.T) {
	var buf bytes.Buffer
	for _, format := range Formats {
		f, err := NewFormatter(format, &buf)
		require.NoError(t, err, format)
		assert.NotNil(t, f)
	}

	_, err := NewFormatter("xml", &buf)
	assert.Error(t, err)
}

func TestWriteAudioLevel(t *testing.T) {
	var buf bytes.Buffer
	console := NewConsoleOutput(ConsoleConfig{Writer: &buf})

	require.NoError(t, console.WriteAudioLevel(2))
	assert.Contains(t, buf.String(), strings.Repeat("=", 50)+"]")
}
