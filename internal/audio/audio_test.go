package audio

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tone returns n samples of constant amplitude
func tone(n int, amplitude int16) []byte {
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(amplitude))
	}
	return buf
}

func TestEnergy(t *testing.T) {
	assert.Equal(t, 0.0, Energy(nil))
	assert.Equal(t, 0.0, Energy([]byte{1}))
	assert.Equal(t, 0.0, Energy(tone(480, 0)))
	assert.InDelta(t, 0.5, Energy(tone(480, 16384)), 1e-9)
	assert.InDelta(t, 0.5, Energy(tone(480, -16384)), 1e-9)
}

func TestVAD_StartAndEnd(t *testing.T) {
	vad := NewVAD(VADConfig{EnergyThreshold: 0.1, SpeechFrames: 2, SilenceFrames: 3})
	loud := tone(480, 10000)
	quiet := tone(480, 10)

	speaking, started, ended := vad.ProcessFrame(loud)
	assert.False(t, speaking)
	assert.False(t, started)

	speaking, started, _ = vad.ProcessFrame(loud)
	assert.True(t, speaking)
	assert.True(t, started)

	for i := 0; i < 2; i++ {
		speaking, _, ended = vad.ProcessFrame(quiet)
		assert.True(t, speaking)
		assert.False(t, ended)
	}

	speaking, _, ended = vad.ProcessFrame(quiet)
	assert.False(t, speaking)
	assert.True(t, ended)
	assert.False(t, vad.IsSpeaking())
}

func TestVAD_LoudFrameResetsSilence(t *testing.T) {
	vad := NewVAD(VADConfig{EnergyThreshold: 0.1, SpeechFrames: 1, SilenceFrames: 2})
	loud := tone(480, 10000)
	quiet := tone(480, 0)

	vad.ProcessFrame(loud)
	vad.ProcessFrame(quiet)
	vad.ProcessFrame(loud)
	_, _, ended := vad.ProcessFrame(quiet)
	assert.False(t, ended)

	vad.Reset()
	assert.False(t, vad.IsSpeaking())
}

func TestCaptureConfig_Frames(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 30*time.Millisecond, cfg.FrameDuration())
	assert.Equal(t, 960, cfg.BytesPerFrame())
	assert.Equal(t, 34, cfg.FramesFor(time.Second))
	assert.Equal(t, 3, cfg.FramesFor(90*time.Millisecond))
	assert.Equal(t, 1, cfg.FramesFor(0))
	assert.Equal(t, 1, CaptureConfig{}.FramesFor(time.Second))
}

func TestVADConfigFor(t *testing.T) {
	cfg := VADConfigFor(DefaultConfig(), 0.02, 600*time.Millisecond)

	assert.Equal(t, 0.02, cfg.EnergyThreshold)
	assert.Equal(t, 20, cfg.SilenceFrames)
	assert.Equal(t, 3, cfg.SpeechFrames)
}

func TestConfigForModel(t *testing.T) {
	assert.Equal(t, 50, ConfigForModel("vosk-model-small-en-us-0.15").SampleBufferSize)
	assert.Equal(t, 150, ConfigForModel("vosk-model-en-us-0.22-lgraph").SampleBufferSize)
	assert.Equal(t, 300, ConfigForModel("vosk-model-en-us-0.22").SampleBufferSize)
}

func TestParseDeviceIndex(t *testing.T) {
	index, err := ParseDeviceIndex(DeviceID(3))
	require.NoError(t, err)
	assert.Equal(t, 3, index)

	for _, id := range []string{"", "3", "capture-", "capture-x", "capture--1", "playback-0"} {
		_, err := ParseDeviceIndex(id)
		assert.Error(t, err, id)
	}
}

func TestMatchDevice(t *testing.T) {
	devices := []DeviceInfo{
		{ID: "capture-0", Name: "Monitor of Built-in Audio"},
		{ID: "capture-1", Name: "USB Microphone", IsDefault: true},
		{ID: "capture-2", Name: "Webcam"},
	}

	d, err := MatchDevice(devices, "")
	require.NoError(t, err)
	assert.Equal(t, "capture-1", d.ID)

	d, err = MatchDevice(devices, "capture-2")
	require.NoError(t, err)
	assert.Equal(t, "Webcam", d.Name)

	d, err = MatchDevice(devices, "usb")
	require.NoError(t, err)
	assert.Equal(t, "capture-1", d.ID)

	_, err = MatchDevice(devices, "bluetooth")
	assert.Error(t, err)

	_, err = MatchDevice(nil, "")
	assert.Error(t, err)

	d, err = MatchDevice(devices[:1], "")
	require.NoError(t, err)
	assert.Equal(t, "capture-0", d.ID)
}

func TestPreRoll(t *testing.T) {
	p := NewPreRoll(3)
	assert.Empty(t, p.Drain())

	for i := byte(1); i <= 5; i++ {
		p.Push([]byte{i})
	}
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, [][]byte{{3}, {4}, {5}}, p.Drain())
	assert.Equal(t, 0, p.Len())

	p.Push([]byte{9})
	assert.Equal(t, [][]byte{{9}}, p.Drain())
}

func TestNewMalgoCapturer(t *testing.T) {
	_, err := NewMalgoCapturer(CaptureConfig{DeviceID: "usb mic"})
	assert.Error(t, err)

	c, err := NewMalgoCapturer(CaptureConfig{DeviceID: DeviceID(2)})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().SampleBufferSize, cap(c.samples))
	assert.False(t, c.IsRunning())
	assert.Zero(t, c.Dropped())

	// stopping a capturer that never started is a no-op
	assert.NoError(t, c.Stop())
}
