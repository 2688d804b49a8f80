package audio

import "errors"

// DefaultBatchBytes is 4KB = 2048 mono samples = 128ms @ 16kHz.
const DefaultBatchBytes = 4096

// EncoderConfig configures MP3 assembly.
type EncoderConfig struct {
	// SampleRate is the PCM sample rate in Hz.
	SampleRate int

	// Channels is the number of PCM channels. Only mono is accepted; it is
	// widened to stereo for shine-mp3.
	Channels int

	// BatchBytes is how much PCM is handed to the encoder per call.
	BatchBytes int
}

// Validate returns an error if the config is invalid.
func (c EncoderConfig) Validate() error {
	if c.SampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}

	if c.Channels != 1 {
		return errors.New("only mono (1 channel) is supported")
	}

	if c.BatchBytes <= 0 || c.BatchBytes%BytesPerSample != 0 {
		return errors.New("batch size must be a positive whole number of samples")
	}

	return nil
}

// WithDefaults returns a config with default values applied to zero fields.
func (c EncoderConfig) WithDefaults() EncoderConfig {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}

	if c.Channels == 0 {
		c.Channels = DefaultChannels
	}

	if c.BatchBytes == 0 {
		c.BatchBytes = DefaultBatchBytes
	}

	return c
}
