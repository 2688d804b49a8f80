package audio_test

import (
	"testing"
	"time"

	"github.com/alkime/journal/internal/audio"
	"github.com/alkime/journal/internal/journal"
	"github.com/gen2brain/malgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoderConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		config      audio.EncoderConfig
		expectError string
	}{
		{name: "valid", config: audio.EncoderConfig{SampleRate: 16000, Channels: 1, BatchBytes: 4096}},
		{name: "zero sample rate", config: audio.EncoderConfig{Channels: 1, BatchBytes: 4096}, expectError: "sample rate must be positive"},
		{name: "stereo", config: audio.EncoderConfig{SampleRate: 16000, Channels: 2, BatchBytes: 4096}, expectError: "only mono"},
		{name: "odd batch", config: audio.EncoderConfig{SampleRate: 16000, Channels: 1, BatchBytes: 3}, expectError: "batch size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.config.Validate()
			if tt.expectError == "" {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestEncoderConfig_WithDefaults(t *testing.T) {
	t.Parallel()

	assert.Equal(t, audio.EncoderConfig{
		SampleRate: audio.DefaultSampleRate,
		Channels:   audio.DefaultChannels,
		BatchBytes: audio.DefaultBatchBytes,
	}, audio.EncoderConfig{}.WithDefaults())

	assert.Equal(t, 44100, audio.EncoderConfig{SampleRate: 44100}.WithDefaults().SampleRate)
}

func TestNewAssembler_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := audio.NewAssembler(audio.EncoderConfig{Channels: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid encoder config")
}

func pcm(samples int) []byte {
	out := make([]byte, samples*audio.BytesPerSample)
	for i := range out {
		out[i] = byte(i * 7)
	}

	return out
}

func TestAssembler_Assemble(t *testing.T) {
	t.Parallel()

	asm, err := audio.NewAssembler(audio.EncoderConfig{BatchBytes: 512})
	require.NoError(t, err)

	// one second of 16kHz audio split into uneven chunks
	chunks := [][]byte{pcm(3000), pcm(5000), pcm(8000)}

	artifact, err := asm.Assemble(chunks)
	require.NoError(t, err)

	assert.NotEmpty(t, artifact.Data)
	assert.Equal(t, journal.ContentTypeMP3, artifact.ContentType)
	assert.Equal(t, journal.ExtensionMP3, artifact.Extension)
	assert.Equal(t, time.Second, artifact.Duration)
	assert.Len(t, chunks[0], 6000, "chunks are left untouched")
}

func TestAssembler_Empty(t *testing.T) {
	t.Parallel()

	asm, err := audio.NewAssembler(audio.EncoderConfig{})
	require.NoError(t, err)

	artifact, err := asm.Assemble(nil)
	require.NoError(t, err)
	assert.Empty(t, artifact.Data)
	assert.Zero(t, artifact.Duration)
}

func TestAssembler_Duration(t *testing.T) {
	t.Parallel()

	asm, err := audio.NewAssembler(audio.EncoderConfig{SampleRate: 8000})
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, asm.Duration(8000))
	assert.Equal(t, time.Duration(0), asm.Duration(1))
}

func TestDeviceConfig_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, audio.DefaultDeviceConfig().Validate())

	cfg := audio.DefaultDeviceConfig()
	cfg.Format = malgo.FormatF32
	require.Error(t, cfg.Validate())

	cfg = audio.DefaultDeviceConfig()
	cfg.Channels = 2
	require.Error(t, cfg.Validate())
}

func TestDevice_StartBeforeAllocate(t *testing.T) {
	t.Parallel()

	dev := audio.NewDevice(audio.DefaultDeviceConfig())

	require.ErrorIs(t, dev.Start(t.Context()), audio.ErrNotAllocated)
	require.NoError(t, dev.Stop(t.Context()))
	dev.Dealloc(t.Context())
}
