package demo

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bogem/id3v2/v2"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"

	"github.com/olivier-w/callbar/internal/audio"
)

// Clip is a short recording the demo agent speaks.
type Clip struct {
	Title  string
	Format audio.Format
	PCM    []int16
}

// Duration returns the playing time of the clip.
func (c *Clip) Duration() time.Duration {
	frames := len(c.PCM) / c.Format.Channels
	return time.Duration(frames) * time.Second / time.Duration(c.Format.SampleRate)
}

// LoadClip decodes a WAV, MP3, FLAC or OGG Vorbis file into 16-bit PCM. The
// title comes from the ID3 tag when there is one and the file name
// otherwise.
func LoadClip(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("demo: open clip: %w", err)
	}
	defer f.Close()

	var clip *Clip
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		clip, err = decodeWAV(f)
	case ".mp3":
		clip, err = decodeMP3(f)
	case ".flac":
		clip, err = decodeFLAC(f)
	case ".ogg":
		clip, err = decodeOGG(f)
	default:
		return nil, fmt.Errorf("demo: unsupported format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("demo: decode %s: %w", filepath.Base(path), err)
	}
	if len(clip.PCM) == 0 {
		return nil, fmt.Errorf("demo: %s has no audio", filepath.Base(path))
	}
	clip.Title = clipTitle(path)
	return clip, nil
}

func clipTitle(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
		if err == nil {
			defer tag.Close()
			if title := strings.TrimSpace(tag.Title()); title != "" {
				return title
			}
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func decodeWAV(r io.ReadSeeker) (*Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	depth := int(dec.BitDepth)
	pcm := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		switch depth {
		case 8:
			// 8-bit WAV is unsigned
			v = (v - 128) << 8
		case 24:
			v >>= 8
		case 32:
			v >>= 16
		}
		pcm[i] = clamp16(v)
	}
	return &Clip{
		Format: audio.Format{SampleRate: int(dec.SampleRate), Channels: int(dec.NumChans)},
		PCM:    pcm,
	}, nil
}

func decodeMP3(r io.Reader) (*Clip, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, err
	}
	// go-mp3 always produces 16-bit LE stereo.
	pcm := make([]int16, len(raw)/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return &Clip{
		Format: audio.Format{SampleRate: dec.SampleRate(), Channels: 2},
		PCM:    pcm,
	}, nil
}

func decodeFLAC(r io.Reader) (*Clip, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	bps := int(info.BitsPerSample)
	pcm := make([]int16, 0, int(info.NSamples)*channels)
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		n := int(frame.Subframes[0].NSamples)
		for i := range n {
			for ch := range channels {
				sample := int(frame.Subframes[ch].Samples[i])
				switch {
				case bps > 16:
					sample >>= bps - 16
				case bps < 16:
					sample <<= 16 - bps
				}
				pcm = append(pcm, clamp16(sample))
			}
		}
	}
	return &Clip{
		Format: audio.Format{SampleRate: int(info.SampleRate), Channels: channels},
		PCM:    pcm,
	}, nil
}

func decodeOGG(r io.Reader) (*Clip, error) {
	reader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, err
	}
	var pcm []int16
	samples := make([]float32, 4096)
	for {
		n, err := reader.Read(samples)
		for _, s := range samples[:n] {
			s = max(-1, min(1, s))
			pcm = append(pcm, int16(s*32767))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return &Clip{
		Format: audio.Format{SampleRate: reader.SampleRate(), Channels: reader.Channels()},
		PCM:    pcm,
	}, nil
}

func clamp16(v int) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// ToneClip synthesises d of a voice-like sound: a buzzy 140 Hz fundamental
// shaped into syllables, at roughly the level of conversational speech.
func ToneClip(d time.Duration) *Clip {
	f := audio.VoiceFormat
	n := int(d.Seconds() * float64(f.SampleRate))
	pcm := make([]int16, n)
	const (
		fundamental = 140.0
		syllables   = 2.0 // per second
		peak        = 0.45
	)
	for i := range pcm {
		t := float64(i) / float64(f.SampleRate)
		var v float64
		for h := 1; h <= 5; h++ {
			v += math.Sin(2*math.Pi*fundamental*float64(h)*t) / float64(h)
		}
		// Syllable envelope with a short gap between each.
		env := math.Max(0, math.Sin(2*math.Pi*syllables*t))
		pcm[i] = int16(v / 2.3 * env * peak * math.MaxInt16)
	}
	return &Clip{Title: "demo agent", Format: f, PCM: pcm}
}
