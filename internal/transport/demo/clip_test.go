package demo

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWAV(t *testing.T, path string, rate, depth int, samples []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, depth, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: depth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
}

func TestLoadClipWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Greeting.wav")
	samples := make([]int, 16000)
	for i := range samples {
		samples[i] = int(10000 * math.Sin(2*math.Pi*220*float64(i)/16000))
	}
	writeWAV(t, path, 16000, 16, samples)

	clip, err := LoadClip(path)
	if err != nil {
		t.Fatalf("LoadClip: %v", err)
	}
	if clip.Title != "Greeting" {
		t.Fatalf("expected title from file name, got %q", clip.Title)
	}
	if clip.Format.SampleRate != 16000 || clip.Format.Channels != 1 {
		t.Fatalf("unexpected format %v", clip.Format)
	}
	if len(clip.PCM) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(clip.PCM))
	}
	if clip.PCM[100] != int16(samples[100]) {
		t.Fatalf("expected sample %d, got %d", samples[100], clip.PCM[100])
	}
	if d := clip.Duration(); d != time.Second {
		t.Fatalf("expected 1s, got %v", d)
	}
}

func TestLoadClipWAV24Bit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep.wav")
	writeWAV(t, path, 8000, 24, []int{0, 1 << 22, -(1 << 22)})

	clip, err := LoadClip(path)
	if err != nil {
		t.Fatalf("LoadClip: %v", err)
	}
	if clip.PCM[1] != 1<<14 || clip.PCM[2] != -(1<<14) {
		t.Fatalf("expected 24-bit samples scaled to 16 bits, got %v", clip.PCM)
	}
}

func TestLoadClipRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voice.aac")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadClip(path); err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
}

func TestLoadClipMissingFile(t *testing.T) {
	if _, err := LoadClip(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestToneClipSoundsLikeSpeech(t *testing.T) {
	clip := ToneClip(time.Second)
	if got := clip.Duration(); got != time.Second {
		t.Fatalf("expected 1s, got %v", got)
	}

	var sum float64
	for _, s := range clip.PCM {
		v := float64(s) / 32768
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(clip.PCM)))
	if rms < 0.03 || rms > 0.3 {
		t.Fatalf("expected a speech-like level, got RMS %f", rms)
	}

	// The gaps between syllables are silent.
	if s := clip.PCM[clip.Format.SampleRate*3/8]; s != 0 {
		t.Fatalf("expected silence between syllables, got %d", s)
	}
}
