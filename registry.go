package termgrid

import (
	"errors"
	"sync"
)

// ErrNoDevice is returned when no device implementation is available.
var ErrNoDevice = errors.New("termgrid: no device available")

// DeviceFactory creates a new device instance.
type DeviceFactory func() Device

// Registered device names.
const (
	// DeviceSoftware is the pure-CPU reference device.
	DeviceSoftware = "software"

	// DeviceGL is the OpenGL device (registered by the glgpu package).
	DeviceGL = "gl"
)

var (
	registryMu sync.RWMutex
	devices    = make(map[string]DeviceFactory)
	// Priority order for default selection (first available wins).
	devicePriority = []string{DeviceGL, DeviceSoftware}
)

func init() {
	RegisterDevice(DeviceSoftware, func() Device {
		return NewSoftwareDevice(SoftwareConfig{})
	})
}

// RegisterDevice registers a device factory with the given name.
// This is typically called from init() functions in device packages.
// An already registered name is replaced.
func RegisterDevice(name string, factory DeviceFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	devices[name] = factory
}

// UnregisterDevice removes a device from the registry. Useful for testing.
func UnregisterDevice(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(devices, name)
}

// AvailableDevices returns the registered device names.
func AvailableDevices() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(devices))
	for name := range devices {
		names = append(names, name)
	}
	return names
}

// NewDevice returns a device instance by name, or nil if the name is not
// registered.
func NewDevice(name string) Device {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := devices[name]
	if !ok {
		return nil
	}
	return factory()
}

// DefaultDevice returns the best available device based on priority
// (gl > software).
func DefaultDevice() (Device, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range devicePriority {
		if factory, ok := devices[name]; ok {
			if d := factory(); d != nil {
				return d, nil
			}
		}
	}
	for _, factory := range devices {
		if d := factory(); d != nil {
			return d, nil
		}
	}
	return nil, ErrNoDevice
}
