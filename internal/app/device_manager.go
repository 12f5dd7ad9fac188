package app

import (
	"fmt"
	"io"

	"github.com/emmett/voxbot/internal/audio"
)

// DeviceManager handles audio device selection and listing
type DeviceManager struct {
	out  io.Writer
	list func() ([]audio.DeviceInfo, error)
}

// NewDeviceManager creates a DeviceManager reporting on out
func NewDeviceManager(out io.Writer) *DeviceManager {
	return &DeviceManager{out: out, list: audio.ListDevices}
}

// ListDevices prints all available audio input devices
func (dm *DeviceManager) ListDevices() error {
	devices, err := dm.list()
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	if len(devices) == 0 {
		fmt.Fprintln(dm.out, "No audio capture devices found.")
		return fmt.Errorf("no devices found")
	}

	fmt.Fprintf(dm.out, "Found %d capture device(s):\n\n", len(devices))
	for _, device := range devices {
		fmt.Fprintf(dm.out, "  %s\n", device)
	}

	fmt.Fprintln(dm.out)
	fmt.Fprintln(dm.out, "To use a specific device, run:")
	fmt.Fprintf(dm.out, "  voxbot --device %q\n", devices[0].Name)
	return nil
}

// SelectDevice resolves a device query to a capture-N identifier.
// An empty query picks the system default.
func (dm *DeviceManager) SelectDevice(query string) (*audio.DeviceInfo, error) {
	devices, err := dm.list()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	device, err := audio.MatchDevice(devices, query)
	if err != nil {
		fmt.Fprintln(dm.out, "Available devices:")
		for _, d := range devices {
			fmt.Fprintf(dm.out, "  %s\n", d)
		}
		fmt.Fprintln(dm.out, "Use --list-devices for more details")
		return nil, fmt.Errorf("invalid audio device specified: %w", err)
	}

	fmt.Fprintf(dm.out, "Using device: %s\n", device.Name)
	return device, nil
}
