package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

// ErrInvalidWAV is returned when a file is not a readable PCM WAV
var ErrInvalidWAV = errors.New("invalid WAV file")

// WAVSource replays a PCM WAV file as a sequence of frames.
// Multichannel files are mixed down to mono and samples are scaled to 16 bits.
type WAVSource struct {
	file        afero.File
	decoder     *wav.Decoder
	buffer      *goaudio.IntBuffer
	channels    int
	bitDepth    int
	sampleRate  int
	frameLength int
	mu          sync.Mutex
}

// OpenWAV opens path on fs for frame-by-frame reading
func OpenWAV(fs afero.Fs, path string, frameLength int) (*WAVSource, error) {
	if frameLength <= 0 {
		return nil, fmt.Errorf("invalid frame length: %d", frameLength)
	}

	file, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		file.Close()
		return nil, fmt.Errorf("%w: %s", ErrInvalidWAV, path)
	}

	format := decoder.Format()
	channels := int(decoder.NumChans)
	if channels <= 0 {
		file.Close()
		return nil, fmt.Errorf("%w: %s has no channels", ErrInvalidWAV, path)
	}

	return &WAVSource{
		file:    file,
		decoder: decoder,
		buffer: &goaudio.IntBuffer{
			Data:   make([]int, frameLength*channels),
			Format: format,
		},
		channels:    channels,
		bitDepth:    int(decoder.BitDepth),
		sampleRate:  int(decoder.SampleRate),
		frameLength: frameLength,
	}, nil
}

// SampleRate returns the sample rate declared in the file header
func (s *WAVSource) SampleRate() int {
	return s.sampleRate
}

// Channels returns the channel count declared in the file header
func (s *WAVSource) Channels() int {
	return s.channels
}

// ReadFrame returns the next frame, or io.EOF once the file is exhausted
func (s *WAVSource) ReadFrame(ctx context.Context) ([]int16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.decoder.PCMBuffer(s.buffer)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode WAV: %w", err)
	}
	// drop a trailing partial sample group
	n -= n % s.channels
	if n == 0 {
		return nil, io.EOF
	}

	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = scaleSample(s.buffer.Data[i], s.bitDepth)
	}

	return downmix(samples, s.channels), nil
}

// Close closes the underlying file
func (s *WAVSource) Close() error {
	return s.file.Close()
}

// scaleSample converts a decoded sample of the given bit depth to 16 bits
func scaleSample(v, bitDepth int) int16 {
	switch bitDepth {
	case 8:
		// 8-bit PCM is unsigned
		return int16((v - 128) << 8)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	default:
		return int16(v)
	}
}
