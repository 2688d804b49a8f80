package audio

import (
	"errors"

	"github.com/gen2brain/malgo"
)

const (
	// DefaultSampleRate is 16kHz, the native rate for Whisper and Deepgram linear16.
	DefaultSampleRate = 16000
	// DefaultChannels is mono.
	DefaultChannels = 1
	// BytesPerSample is the width of one S16LE sample.
	BytesPerSample = 2
)

// DeviceConfig describes how the microphone is opened.
type DeviceConfig struct {
	Format     malgo.FormatType
	Channels   int
	SampleRate int
}

// DefaultDeviceConfig captures 16-bit mono PCM at 16kHz.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		Format:     malgo.FormatS16,
		Channels:   DefaultChannels,
		SampleRate: DefaultSampleRate,
	}
}

// Validate rejects configurations the rest of the pipeline cannot consume.
func (c DeviceConfig) Validate() error {
	if c.Format != malgo.FormatS16 {
		return errors.New("only signed 16-bit capture is supported")
	}

	if c.Channels != 1 {
		return errors.New("only mono (1 channel) is supported")
	}

	if c.SampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}

	return nil
}
