// Package audio captures microphone PCM with malgo and assembles recordings
// into MP3 artifacts.
package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alkime/journal/pkg/collections"
	"github.com/gen2brain/malgo"
)

// ErrNotAllocated is returned when Start is called before CaptureInto.
var ErrNotAllocated = errors.New("capture device not allocated")

// Device is a malgo-backed capture device. A Device captures into one
// channel per allocation; Dealloc frees it so it can be allocated again.
type Device struct {
	conf DeviceConfig

	mu       sync.Mutex
	mgCtx    *malgo.AllocatedContext
	mgDevice *malgo.Device
}

// NewDevice creates an unallocated capture device.
func NewDevice(conf DeviceConfig) *Device {
	return &Device{conf: conf}
}

// CaptureInto allocates the hardware device. Once started, each callback
// delivers a copy of the captured S16LE bytes into dataC.
func (d *Device) CaptureInto(_ context.Context, dataC chan<- []byte) error {
	if dataC == nil {
		return errors.New("data channel is nil. unable to allocate device")
	}

	if err := d.conf.Validate(); err != nil {
		return fmt.Errorf("invalid device config: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.mgDevice != nil {
		return errors.New("capture device already allocated")
	}

	mgCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	devCnf := malgo.DefaultDeviceConfig(malgo.Capture)
	devCnf.Capture.Format = d.conf.Format
	devCnf.Capture.Channels = uint32(d.conf.Channels)
	devCnf.SampleRate = uint32(d.conf.SampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, samples []byte, _ uint32) {
			// malgo reuses the buffer between callbacks
			dataC <- append([]byte(nil), samples...)
		},
	}

	mgDevice, err := malgo.InitDevice(mgCtx.Context, devCnf, callbacks)
	if err != nil {
		uninitializeContext(mgCtx)
		return fmt.Errorf("failed to initialize malgo device: %w", err)
	}

	d.mgCtx = mgCtx
	d.mgDevice = mgDevice

	return nil
}

// Start begins delivering audio. Starting a started device is a no-op.
func (d *Device) Start(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.mgDevice == nil {
		return ErrNotAllocated
	}

	if d.mgDevice.IsStarted() {
		return nil
	}

	if err := d.mgDevice.Start(); err != nil {
		return fmt.Errorf("failed to start malgo device: %w", err)
	}

	return nil
}

// Stop halts the callbacks. Stopping an unallocated device is a no-op.
func (d *Device) Stop(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.mgDevice == nil || !d.mgDevice.IsStarted() {
		return nil
	}

	if err := d.mgDevice.Stop(); err != nil {
		return fmt.Errorf("failed to stop malgo device: %w", err)
	}

	return nil
}

// Dealloc frees the hardware device and its context.
func (d *Device) Dealloc(_ context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.mgDevice == nil {
		return
	}

	d.mgDevice.Uninit()
	uninitializeContext(d.mgCtx)

	d.mgDevice = nil
	d.mgCtx = nil
}

// Info describes a capture device for listing.
type Info struct {
	Name      string
	IsDefault bool
	Formats   []string
}

// EnumerateDevices lists the host's capture devices.
func EnumerateDevices(_ context.Context) ([]Info, error) {
	devCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer uninitializeContext(devCtx)

	captureDevices, err := devCtx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to get capture devices: %w", err)
	}

	return collections.Apply(captureDevices, toInfo), nil
}

func toInfo(mdi malgo.DeviceInfo) Info {
	formats := make([]string, 0, mdi.FormatCount)
	for i, mf := range mdi.Formats {
		if i >= int(mdi.FormatCount) {
			break
		}

		formats = append(formats, fmt.Sprintf("%d-bit %dch %dHz",
			malgo.SampleSizeInBytes(mf.Format)*8, mf.Channels, mf.SampleRate))
	}

	return Info{
		Name:      mdi.Name(),
		IsDefault: mdi.IsDefault != 0,
		Formats:   formats,
	}
}

func uninitializeContext(deviceCtx *malgo.AllocatedContext) {
	if deviceCtx == nil {
		return
	}

	if err := deviceCtx.Uninit(); err != nil {
		slog.Error("failed to uninitialize malgo context", "error", err)
	}

	deviceCtx.Free()
}
