package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/emmett/voxbot/internal/audio"
	"github.com/emmett/voxbot/internal/config"
	"github.com/emmett/voxbot/internal/models"
	"github.com/emmett/voxbot/internal/output"
	"github.com/emmett/voxbot/internal/pilot"
)

func TestPushToTalk_RecordAndDispatch(t *testing.T) {
	driver := &fakeDriver{}
	formatter := &recordingFormatter{}
	engine := &fakeEngine{finals: map[int]string{2: "[unk] turn right"}}

	var mu sync.Mutex
	var capturers []*fakeCapturer
	ptt := NewPushToTalk(audio.DefaultConfig(), engine, NewDispatcher(driver, formatter, nil), formatter, nil)
	ptt.NewCapturer = func(audio.CaptureConfig) (audio.Capturer, error) {
		mu.Lock()
		defer mu.Unlock()
		c := newFakeCapturer(loud, loud, loud)
		capturers = append(capturers, c)
		return c, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ptt.Run(ctx) }()

	ptt.Toggle(true)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(capturers) == 1 && len(capturers[0].samples) == 0
	}, time.Second, 5*time.Millisecond)

	ptt.Toggle(false)
	require.Eventually(t, func() bool {
		return len(driver.Said()) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"turn right"}, driver.Said())
	assert.Equal(t, 1, capturers[0].Stops())
	assert.Equal(t, 2, engine.Calls(), "transcription stops at the first utterance")
	assert.Contains(t, formatter.Events(), "ptt: recording")
}

func TestPushToTalk_EmptyRecording(t *testing.T) {
	driver := &fakeDriver{}
	formatter := &recordingFormatter{}
	ptt := NewPushToTalk(audio.DefaultConfig(), &fakeEngine{}, NewDispatcher(driver, formatter, nil), formatter, nil)
	ptt.NewCapturer = func(audio.CaptureConfig) (audio.Capturer, error) {
		return newFakeCapturer(), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ptt.Run(ctx) }()

	ptt.Toggle(false) // ignored while idle
	ptt.Toggle(true)
	ptt.Toggle(false)
	require.Eventually(t, func() bool {
		for _, e := range formatter.Events() {
			if e == "ptt: no audio recorded" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, driver.Said())
}

func TestTextInput_Run(t *testing.T) {
	driver := &fakeDriver{}
	formatter := &recordingFormatter{}
	in := NewTextInput(strings.NewReader("forward\n\n   \nturn left please\nstop\n"),
		NewDispatcher(driver, formatter, nil), nil)

	require.NoError(t, in.Run(context.Background()))

	assert.Equal(t, []string{"forward", "turn left please", "stop"}, driver.Said())
	records := formatter.Commands()
	require.Len(t, records, 3)
	assert.Equal(t, "left", records[1].Command)
	assert.Equal(t, 3, records[2].Index)
	assert.Equal(t, SourceText, records[2].Source)
}

func TestTextInput_Cancel(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	in := NewTextInput(r, NewDispatcher(&fakeDriver{}, &recordingFormatter{}, nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("text input did not stop on cancel")
	}
}

func TestNewPilot_DryRun(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Robot.DryRun = true
	cfg.Vocabulary = map[string][]string{"forward": {"onward"}}

	p, err := NewPilot(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	formatter := &recordingFormatter{}
	d := NewDispatcher(p, formatter, nil)
	require.NoError(t, d.Utterance(ctx, SourceText, "onward", 1))
	require.NoError(t, d.Utterance(ctx, SourceText, "faster", 1))

	want := []output.CommandRecord{
		{
			Index:      1,
			Source:     SourceText,
			Utterance:  "onward",
			Confidence: 1,
			Command:    "forward",
			Outcome:    "applied",
			Left:       150,
			Right:      150,
			Circle:     [8]int{150, 150, 0, 0, 0, 0, 150, 150},
			Direction:  "forward",
			Speed:      150,
			Delivered:  true,
		},
		{
			Index:      2,
			Source:     SourceText,
			Utterance:  "faster",
			Confidence: 1,
			Command:    "speed_up",
			Outcome:    "applied",
			Left:       200,
			Right:      200,
			Circle:     [8]int{100, 100, 100, 100, 100, 100, 100, 100},
			Direction:  "forward",
			Speed:      200,
			Delivered:  true,
		},
	}
	ignore := cmpopts.IgnoreFields(output.CommandRecord{}, "Session", "Timestamp")
	if diff := cmp.Diff(want, formatter.Commands(), ignore); diff != "" {
		t.Errorf("command records mismatch (-want +got):\n%s", diff)
	}
	for _, r := range formatter.Commands() {
		assert.Equal(t, d.Session(), r.Session)
	}
}

func TestRunWithPilot(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Robot.DryRun = true
	p, err := NewPilot(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// the pilot keeps serving the loop after ctx is cancelled
	err = RunWithPilot(ctx, p, func(ctx context.Context) error {
		_, err := p.Say(context.Background(), "forward")
		return err
	})
	require.NoError(t, err)

	_, err = p.Say(context.Background(), "stop")
	assert.ErrorIs(t, err, pilot.ErrStopped)
}

func TestRunWithPilot_LoopError(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Robot.DryRun = true
	p, err := NewPilot(cfg, nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = RunWithPilot(context.Background(), p, func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestNewPilot_InvalidMotion(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Robot.DryRun = true
	cfg.Motion.MinSpeed = 500

	_, err := NewPilot(cfg, nil)
	assert.Error(t, err)
}

func testModelManager(t *testing.T, input string) (*ModelManager, *bytes.Buffer) {
	t.Helper()
	store, err := models.NewStore(t.TempDir())
	require.NoError(t, err)
	var out bytes.Buffer
	return NewModelManager(store, strings.NewReader(input), &out), &out
}

func TestModelManager_EnsureModel(t *testing.T) {
	mgr, out := testModelManager(t, "n\n")

	_, err := mgr.EnsureModel(context.Background(), models.DefaultModelName, false)
	assert.Error(t, err)
	assert.Contains(t, out.String(), "voxbot --download-model")

	require.NoError(t, os.MkdirAll(filepath.Join(mgr.Store().Dir, models.DefaultModelName), 0755))
	name, err := mgr.EnsureModel(context.Background(), models.DefaultModelName, false)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultModelName, name)

	_, err = mgr.EnsureModel(context.Background(), "vosk-model-custom", true)
	assert.Error(t, err)
}

func TestModelManager_SelectModel(t *testing.T) {
	mgr, out := testModelManager(t, "")

	name, err := mgr.SelectModel(context.Background(), "", false)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultModelName, name)

	require.NoError(t, mgr.SetDefault("vosk-model-en-us-0.22-lgraph"))
	assert.Contains(t, out.String(), "not yet downloaded")

	name, err = mgr.SelectModel(context.Background(), "", false)
	require.NoError(t, err)
	assert.Equal(t, "vosk-model-en-us-0.22-lgraph", name)

	name, err = mgr.SelectModel(context.Background(), "explicit", false)
	require.NoError(t, err)
	assert.Equal(t, "explicit", name)

	assert.Error(t, mgr.SetDefault("vosk-model-missing"))
}

func TestModelManager_SelectInteractive(t *testing.T) {
	mgr, _ := testModelManager(t, "2\n")
	require.NoError(t, os.MkdirAll(filepath.Join(mgr.Store().Dir, "vosk-model-en-us-0.22-lgraph"), 0755))

	name, err := mgr.SelectInteractive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "vosk-model-en-us-0.22-lgraph", name)

	mgr, _ = testModelManager(t, "9\n")
	_, err = mgr.SelectInteractive(context.Background())
	assert.Error(t, err)
}

func TestModelManager_ListDownloaded(t *testing.T) {
	mgr, out := testModelManager(t, "")
	require.NoError(t, mgr.ListDownloaded())
	assert.Contains(t, out.String(), "No models downloaded yet.")

	out.Reset()
	require.NoError(t, os.MkdirAll(filepath.Join(mgr.Store().Dir, models.DefaultModelName), 0755))
	require.NoError(t, mgr.ListDownloaded())
	assert.Contains(t, out.String(), models.DefaultModelName+" [DEFAULT]")
}

func TestDeviceManager(t *testing.T) {
	var out bytes.Buffer
	dm := NewDeviceManager(&out)
	dm.list = func() ([]audio.DeviceInfo, error) {
		return []audio.DeviceInfo{
			{ID: audio.DeviceID(0), Name: "Built-in Microphone", IsDefault: true},
			{ID: audio.DeviceID(1), Name: "USB Headset"},
		}, nil
	}

	require.NoError(t, dm.ListDevices())
	assert.Contains(t, out.String(), "capture-1: USB Headset")

	device, err := dm.SelectDevice("")
	require.NoError(t, err)
	assert.Equal(t, "capture-0", device.ID)

	device, err = dm.SelectDevice("usb")
	require.NoError(t, err)
	assert.Equal(t, "capture-1", device.ID)

	_, err = dm.SelectDevice("webcam")
	assert.Error(t, err)
}
