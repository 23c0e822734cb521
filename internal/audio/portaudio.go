package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSource reads frames from a microphone with a blocking PortAudio stream
type PortAudioSource struct {
	config Config
	stream *portaudio.Stream
	buffer []int16
	mu     sync.Mutex
	closed bool
}

// NewPortAudioSource initializes PortAudio, opens the configured input device
// and starts the stream.
func NewPortAudioSource(config Config) (*PortAudioSource, error) {
	if config.FrameLength <= 0 {
		return nil, fmt.Errorf("invalid frame length: %d", config.FrameLength)
	}
	if config.Channels <= 0 {
		config.Channels = 1
	}

	// Initialize PortAudio
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	s := &PortAudioSource{
		config: config,
		buffer: make([]int16, config.FrameLength*config.Channels),
	}

	if err := s.open(); err != nil {
		portaudio.Terminate()
		return nil, err
	}

	return s, nil
}

func (s *PortAudioSource) open() error {
	device, err := resolveDevice(s.config.DeviceID)
	if err != nil {
		return err
	}

	// Validate device has input channels
	if device.MaxInputChannels <= 0 {
		return fmt.Errorf("selected device '%s' (ID: %d) has no input channels (output-only device)",
			device.Name, s.config.DeviceID)
	}

	// Set latency
	var latency time.Duration
	switch s.config.Latency {
	case LowLatency:
		latency = device.DefaultLowInputLatency
	default:
		latency = device.DefaultHighInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: s.config.Channels,
			Latency:  latency,
		},
		SampleRate:      float64(s.config.SampleRate),
		FramesPerBuffer: s.config.FrameLength,
	}

	// Passing a buffer instead of a callback selects blocking I/O
	stream, err := portaudio.OpenStream(params, s.buffer)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start stream: %w", err)
	}

	s.stream = stream
	return nil
}

// resolveDevice returns the default input device for -1, otherwise the device at index id
func resolveDevice(id int) (*portaudio.DeviceInfo, error) {
	if id == -1 {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to get default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	if id < 0 || id >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", id)
	}

	return devices[id], nil
}

// ReadFrame blocks until one frame has been captured.
// Input overflow is not an error: the frame is still returned, as the
// samples it holds are valid even though earlier ones were dropped.
func (s *PortAudioSource) ReadFrame(ctx context.Context) ([]int16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("source closed")
	}

	if err := s.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
		return nil, fmt.Errorf("failed to read stream: %w", err)
	}

	frame := make([]int16, len(s.buffer))
	copy(frame, s.buffer)

	return downmix(frame, s.config.Channels), nil
}

// Config returns the configuration the source was opened with
func (s *PortAudioSource) Config() Config {
	return s.config
}

// Close stops the stream and releases PortAudio
func (s *PortAudioSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.stream != nil {
		if err := s.stream.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop stream: %w", err))
		}
		if err := s.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close stream: %w", err))
		}
		s.stream = nil
	}

	// Terminate PortAudio
	if err := portaudio.Terminate(); err != nil {
		errs = append(errs, fmt.Errorf("failed to terminate PortAudio: %w", err))
	}

	return errors.Join(errs...)
}
