package audio

import "fmt"

// Format describes the sample rate and channel count of 16-bit PCM audio.
type Format struct {
	SampleRate int
	Channels   int
}

// VoiceFormat is what the realtime transport delivers: 48 kHz mono Opus
// decoded to 16-bit PCM.
var VoiceFormat = Format{SampleRate: 48000, Channels: 1}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch", f.SampleRate, f.Channels)
}

// Convert converts interleaved PCM from one format to another. Matching
// formats return pcm unchanged. Resampling is linear and happens before the
// channel conversion so stereo sources are not resampled twice.
func Convert(pcm []int16, from, to Format) []int16 {
	if from == to || len(pcm) == 0 || from.Channels < 1 || to.Channels < 1 {
		return pcm
	}
	if from.SampleRate != to.SampleRate && from.SampleRate > 0 && to.SampleRate > 0 {
		pcm = resample(pcm, from.Channels, from.SampleRate, to.SampleRate)
	}
	if from.Channels != to.Channels {
		pcm = remix(pcm, from.Channels, to.Channels)
	}
	return pcm
}

func resample(pcm []int16, channels, fromRate, toRate int) []int16 {
	frames := len(pcm) / channels
	if frames == 0 {
		return nil
	}
	outFrames := frames * toRate / fromRate
	if outFrames < 1 {
		outFrames = 1
	}
	out := make([]int16, outFrames*channels)
	step := float64(fromRate) / float64(toRate)
	for i := range outFrames {
		pos := float64(i) * step
		lo := int(pos)
		if lo >= frames-1 {
			lo = frames - 1
		}
		hi := lo + 1
		if hi >= frames {
			hi = frames - 1
		}
		t := pos - float64(lo)
		for ch := range channels {
			a := float64(pcm[lo*channels+ch])
			b := float64(pcm[hi*channels+ch])
			out[i*channels+ch] = int16(a + (b-a)*t)
		}
	}
	return out
}

// remix mixes every frame down to mono and fans it out to the target channel
// count.
func remix(pcm []int16, from, to int) []int16 {
	frames := len(pcm) / from
	out := make([]int16, frames*to)
	for i := range frames {
		var sum int32
		for ch := range from {
			sum += int32(pcm[i*from+ch])
		}
		mono := int16(sum / int32(from))
		for ch := range to {
			out[i*to+ch] = mono
		}
	}
	return out
}
