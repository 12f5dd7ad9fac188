package audio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
)

// MalgoCapturer captures S16 PCM from a miniaudio device. It serves a single
// Start/Stop cycle; Stop closes both channels.
type MalgoCapturer struct {
	config  CaptureConfig
	samples chan AudioSample
	errors  chan error
	dropped atomic.Uint64

	mu       sync.Mutex
	running  bool
	stopped  chan struct{}
	mctx     *malgo.AllocatedContext
	device   *malgo.Device
	deviceID malgo.DeviceID // referenced by the device config, kept alive here
}

// NewMalgoCapturer validates the configuration; no device is opened until Start
func NewMalgoCapturer(config CaptureConfig) (*MalgoCapturer, error) {
	if config.SampleBufferSize <= 0 {
		config.SampleBufferSize = DefaultConfig().SampleBufferSize
	}
	if config.DeviceID != "" {
		if _, err := ParseDeviceIndex(config.DeviceID); err != nil {
			return nil, err
		}
	}
	return &MalgoCapturer{
		config:  config,
		samples: make(chan AudioSample, config.SampleBufferSize),
		errors:  make(chan error, 10),
		stopped: make(chan struct{}),
	}, nil
}

// Start opens the device and captures until Stop or until ctx is done
func (m *MalgoCapturer) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("capturer is already running")
	}
	if err := m.open(); err != nil {
		m.release()
		return err
	}
	m.running = true

	go func() {
		select {
		case <-ctx.Done():
			_ = m.Stop()
		case <-m.stopped:
		}
	}()
	return nil
}

func (m *MalgoCapturer) open() error {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	m.mctx = mctx

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = m.config.Channels
	deviceConfig.SampleRate = m.config.SampleRate
	deviceConfig.PeriodSizeInFrames = m.config.BufferFrames

	if m.config.DeviceID != "" {
		if err := m.selectDevice(&deviceConfig); err != nil {
			return err
		}
	}

	device, err := malgo.InitDevice(m.mctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: m.onData})
	if err != nil {
		return fmt.Errorf("failed to initialize device: %w", err)
	}
	m.device = device

	if err := device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	return nil
}

// onData runs on the audio thread and must not block
func (m *MalgoCapturer) onData(_, input []byte, frames uint32) {
	// malgo reuses the input buffer
	data := make([]byte, len(input))
	copy(data, input)

	select {
	case m.samples <- AudioSample{Data: data, Timestamp: time.Now(), Frames: frames}:
	default:
		n := m.dropped.Add(1)
		if n == 1 || n%50 == 0 {
			select {
			case m.errors <- fmt.Errorf("sample buffer overflow, %d frames dropped", n):
			default:
			}
		}
	}
}

// Stop stops the device and closes the channels. Calling it again is a no-op.
func (m *MalgoCapturer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false
	close(m.stopped)

	var err error
	if m.device != nil {
		if stopErr := m.device.Stop(); stopErr != nil {
			err = fmt.Errorf("failed to stop device: %w", stopErr)
		}
	}
	m.release()

	// no callback runs once the device is uninitialized
	close(m.samples)
	close(m.errors)
	return err
}

func (m *MalgoCapturer) release() {
	if m.device != nil {
		m.device.Uninit()
		m.device = nil
	}
	if m.mctx != nil {
		_ = m.mctx.Uninit()
		m.mctx.Free()
		m.mctx = nil
	}
}

// Samples returns a channel that receives audio samples
func (m *MalgoCapturer) Samples() <-chan AudioSample {
	return m.samples
}

// Errors returns a channel that receives capture errors
func (m *MalgoCapturer) Errors() <-chan error {
	return m.errors
}

// IsRunning returns true if capture is currently active
func (m *MalgoCapturer) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Dropped returns how many callbacks were lost to a full sample buffer
func (m *MalgoCapturer) Dropped() uint64 {
	return m.dropped.Load()
}

// selectDevice points the device config at the enumerated capture device
func (m *MalgoCapturer) selectDevice(deviceConfig *malgo.DeviceConfig) error {
	index, err := ParseDeviceIndex(m.config.DeviceID)
	if err != nil {
		return err
	}

	infos, err := m.mctx.Devices(malgo.Capture)
	if err != nil {
		return fmt.Errorf("failed to enumerate devices: %w", err)
	}
	if index >= len(infos) {
		return fmt.Errorf("device not found: %s", m.config.DeviceID)
	}

	m.deviceID = infos[index].ID
	deviceConfig.Capture.DeviceID = m.deviceID.Pointer()
	return nil
}
