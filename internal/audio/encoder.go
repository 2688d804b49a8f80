package audio

import (
	"bytes"
	"fmt"
	"time"

	"github.com/alkime/journal/internal/journal"
	mp3encoder "github.com/braheezy/shine-mp3/pkg/mp3"
)

// Assembler turns captured PCM chunks into an MP3 artifact.
type Assembler struct {
	config EncoderConfig
}

// NewAssembler validates config and returns an assembler.
func NewAssembler(config EncoderConfig) (*Assembler, error) {
	config = config.WithDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid encoder config: %w", err)
	}

	return &Assembler{config: config}, nil
}

// Duration is the playback length of n bytes of mono S16LE PCM.
func (a *Assembler) Duration(n int) time.Duration {
	samples := n / BytesPerSample

	return time.Duration(samples) * time.Second / time.Duration(a.config.SampleRate)
}

// Assemble encodes the chunks in order. The chunks are not retained.
func (a *Assembler) Assemble(chunks [][]byte) (journal.AudioArtifact, error) {
	var (
		out     bytes.Buffer
		pending []byte
		total   int
	)

	encoder := mp3encoder.NewEncoder(a.config.SampleRate, 2)

	for _, chunk := range chunks {
		total += len(chunk)
		pending = append(pending, chunk...)

		for len(pending) >= a.config.BatchBytes {
			if err := encodeBatch(encoder, &out, pending[:a.config.BatchBytes]); err != nil {
				return journal.AudioArtifact{}, err
			}

			pending = pending[a.config.BatchBytes:]
		}
	}

	if err := encodeBatch(encoder, &out, pending); err != nil {
		return journal.AudioArtifact{}, err
	}

	return journal.AudioArtifact{
		Data:        out.Bytes(),
		ContentType: journal.ContentTypeMP3,
		Extension:   journal.ExtensionMP3,
		Duration:    a.Duration(total),
	}, nil
}

// encodeBatch writes one batch of S16LE PCM as MP3 frames.
func encodeBatch(encoder *mp3encoder.Encoder, out *bytes.Buffer, pcm []byte) error {
	mono := BytesToInt16(pcm)
	if len(mono) == 0 {
		return nil
	}

	// shine-mp3 mis-advances its input for mono, so encode as L=R stereo
	stereo := make([]int16, len(mono)*2)
	for i, sample := range mono {
		stereo[i*2] = sample
		stereo[i*2+1] = sample
	}

	if err := encoder.Write(out, stereo); err != nil {
		return fmt.Errorf("failed to encode audio to MP3: %w", err)
	}

	return nil
}
