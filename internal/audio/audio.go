package audio

import "context"

// LatencyMode defines the latency priority
type LatencyMode int

const (
	// LowLatency prioritizes low latency (real-time)
	LowLatency LatencyMode = iota
	// HighStability prioritizes stability (larger buffer)
	HighStability
)

// String returns the config name of the latency mode
func (l LatencyMode) String() string {
	switch l {
	case LowLatency:
		return "low"
	case HighStability:
		return "high"
	default:
		return "unknown"
	}
}

// ParseLatency maps "low" and "high" to a LatencyMode
func ParseLatency(s string) LatencyMode {
	if s == "low" {
		return LowLatency
	}
	return HighStability
}

// Config holds audio configuration
type Config struct {
	DeviceID    int
	SampleRate  int
	Channels    int
	FrameLength int // samples per frame
	Latency     LatencyMode
}

// DefaultConfig returns the default audio configuration
// Sample rate: 16kHz
// Channels: 1 (mono)
// Frame length: 512 samples (32ms)
// Latency: HighStability
func DefaultConfig() Config {
	return Config{
		DeviceID:    -1, // -1 means use default device
		SampleRate:  16000,
		Channels:    1,
		FrameLength: 512,
		Latency:     HighStability,
	}
}

// Source supplies fixed-length frames of mono 16-bit PCM.
// The last frame of a finite source may be shorter than the configured length.
type Source interface {
	// ReadFrame blocks until the next frame is available.
	// Finite sources return io.EOF when exhausted.
	ReadFrame(ctx context.Context) ([]int16, error)

	// Close releases all resources
	Close() error
}

// downmix averages interleaved channels into mono
func downmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}

	mono := make([]int16, len(samples)/channels)
	for i := range mono {
		var sum int
		for c := 0; c < channels; c++ {
			sum += int(samples[i*channels+c])
		}
		mono[i] = int16(sum / channels)
	}
	return mono
}
