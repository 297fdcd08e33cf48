package livekit

import (
	"fmt"
	"time"

	"layeh.com/gopus"

	"github.com/olivier-w/callbar/internal/audio"
)

// Calls carry 48 kHz mono Opus in 20 ms frames.
const (
	opusSampleRate = 48000
	opusChannels   = 1
	frameDuration  = 20 * time.Millisecond
	// frameSize is the number of samples per channel in one 20 ms frame.
	frameSize = opusSampleRate * int(frameDuration/time.Millisecond) / 1000 // 960
	// maxFrameSize fits the longest Opus packet (120 ms).
	maxFrameSize = opusSampleRate * 120 / 1000
	// maxPacketBytes bounds an encoded packet.
	maxPacketBytes = 4000
)

// voiceFormat is the PCM format on both sides of the codec.
var voiceFormat = audio.Format{SampleRate: opusSampleRate, Channels: opusChannels}

// opusDecoder turns the agent's Opus packets into PCM. Each remote track gets
// its own decoder so decoder state follows one packet sequence.
type opusDecoder struct {
	dec *gopus.Decoder
}

func newOpusDecoder() (*opusDecoder, error) {
	dec, err := gopus.NewDecoder(opusSampleRate, opusChannels)
	if err != nil {
		return nil, fmt.Errorf("livekit: create opus decoder: %w", err)
	}
	return &opusDecoder{dec: dec}, nil
}

func (d *opusDecoder) decode(packet []byte) ([]int16, error) {
	pcm, err := d.dec.Decode(packet, maxFrameSize, false)
	if err != nil {
		return nil, fmt.Errorf("livekit: opus decode: %w", err)
	}
	return pcm, nil
}

// opusEncoder compresses microphone frames for the published track.
type opusEncoder struct {
	enc *gopus.Encoder
}

func newOpusEncoder() (*opusEncoder, error) {
	enc, err := gopus.NewEncoder(opusSampleRate, opusChannels, gopus.Voip)
	if err != nil {
		return nil, fmt.Errorf("livekit: create opus encoder: %w", err)
	}
	return &opusEncoder{enc: enc}, nil
}

// encode compresses exactly one frame of frameSize samples.
func (e *opusEncoder) encode(pcm []int16) ([]byte, error) {
	packet, err := e.enc.Encode(pcm, frameSize, maxPacketBytes)
	if err != nil {
		return nil, fmt.Errorf("livekit: opus encode: %w", err)
	}
	return packet, nil
}
