package container

import (
	"github.com/nuln/vfc"
	"github.com/nuln/vfc/engine"
	"github.com/nuln/vfc/store/device"
)

// DeviceContainer is a container on a caller-supplied vfc.Device. The
// caller keeps ownership of the device: Close flushes it but never closes
// it. Devices cannot be truncated, so space freed by a smaller directory
// stays allocated at the end of the device.
type DeviceContainer struct {
	*Container
	store *device.Store
}

// NewDevice creates a closed container over dev. dev may be nil and
// supplied later with SetDevice.
func NewDevice(identifier string, dev vfc.Device, opts ...engine.Option) *DeviceContainer {
	store := device.New(dev)
	return &DeviceContainer{
		Container: New(identifier, store, opts...),
		store:     store,
	}
}

// SetDevice replaces the device used for I/O. It fails while the container
// is open.
func (c *DeviceContainer) SetDevice(dev vfc.Device) error {
	if c.IsOpen() {
		return c.record(vfc.ErrAlreadyOpen)
	}
	c.store.Attach(dev)
	return c.record(nil)
}

// Device returns the device used for I/O, or nil.
func (c *DeviceContainer) Device() vfc.Device {
	return c.store.Device()
}

// Compile-time interface check.
var _ Interface = (*DeviceContainer)(nil)
