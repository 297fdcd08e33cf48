package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Microphone captures fixed-size PCM frames from the default input device.
type Microphone struct {
	stream *portaudio.Stream
	buf    []int16
	frames chan []int16
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// OpenMicrophone starts capturing frameSize samples per channel at format f.
// Frames are delivered on [Microphone.Frames]; frames are dropped when the
// consumer falls behind.
func OpenMicrophone(f Format, frameSize int) (*Microphone, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio: init portaudio: %w", err)
	}

	m := &Microphone{
		buf:    make([]int16, frameSize*f.Channels),
		frames: make(chan []int16, 8),
		done:   make(chan struct{}),
	}
	stream, err := portaudio.OpenDefaultStream(f.Channels, 0, float64(f.SampleRate), frameSize, m.buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("audio: open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("audio: start input stream: %w", err)
	}
	m.stream = stream

	m.wg.Add(1)
	go m.capture()
	return m, nil
}

func (m *Microphone) capture() {
	defer m.wg.Done()
	defer close(m.frames)
	for {
		if err := m.stream.Read(); err != nil {
			select {
			case <-m.done:
				return
			default:
			}
			// Input overflow is recoverable; anything else ends capture.
			if err == portaudio.InputOverflowed {
				continue
			}
			return
		}
		frame := make([]int16, len(m.buf))
		copy(frame, m.buf)
		select {
		case m.frames <- frame:
		case <-m.done:
			return
		default:
		}
	}
}

// Frames returns the captured frames. The channel closes when capture ends.
func (m *Microphone) Frames() <-chan []int16 { return m.frames }

// Close stops capture and releases the device.
func (m *Microphone) Close() error {
	var err error
	m.once.Do(func() {
		close(m.done)
		if stopErr := m.stream.Stop(); stopErr != nil {
			err = stopErr
		}
		m.wg.Wait()
		if closeErr := m.stream.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		portaudio.Terminate()
	})
	return err
}
