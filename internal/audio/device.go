package audio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gen2brain/malgo"
)

const deviceIDPrefix = "capture-"

// DeviceInfo contains information about a capture device
type DeviceInfo struct {
	ID        string // capture-N, N being the enumeration index
	Name      string // Human-readable device name
	IsDefault bool   // Whether this is the system default device
}

// String returns a human-readable representation of the device
func (d DeviceInfo) String() string {
	defaultMarker := ""
	if d.IsDefault {
		defaultMarker = " [DEFAULT]"
	}
	return fmt.Sprintf("%s: %s%s", d.ID, d.Name, defaultMarker)
}

// DeviceID formats the identifier of the capture device at index
func DeviceID(index int) string {
	return deviceIDPrefix + strconv.Itoa(index)
}

// ParseDeviceIndex extracts the enumeration index from a capture-N identifier
func ParseDeviceIndex(id string) (int, error) {
	rest, ok := strings.CutPrefix(id, deviceIDPrefix)
	if !ok {
		return 0, fmt.Errorf("invalid device id %q: want %sN", id, deviceIDPrefix)
	}
	index, err := strconv.Atoi(rest)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid device id %q: want %sN", id, deviceIDPrefix)
	}
	return index, nil
}

// ListDevices returns the available capture devices
func ListDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i, info := range infos {
		devices = append(devices, DeviceInfo{
			ID:        DeviceID(i),
			Name:      info.Name(),
			IsDefault: info.IsDefault > 0,
		})
	}
	return devices, nil
}

// MatchDevice picks a device by exact ID or name, then by case-insensitive
// name fragment. An empty query selects the default device, or the first one.
func MatchDevice(devices []DeviceInfo, query string) (*DeviceInfo, error) {
	if len(devices) == 0 {
		return nil, fmt.Errorf("no capture devices found")
	}

	if query == "" {
		for i := range devices {
			if devices[i].IsDefault {
				return &devices[i], nil
			}
		}
		return &devices[0], nil
	}

	for i := range devices {
		if devices[i].ID == query || devices[i].Name == query {
			return &devices[i], nil
		}
	}

	needle := strings.ToLower(query)
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), needle) {
			return &devices[i], nil
		}
	}

	return nil, fmt.Errorf("device not found: %s", query)
}
