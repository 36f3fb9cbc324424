// Package mockvendor implements a deterministic, network-free vendor used
// for local development and tests: it never dials an external service, and
// round-tripping its own synthesized audio back through its own
// transcription recovers the original text exactly. It is the only vendor
// that implements both core.Synthesizer and core.Transcriber without
// needing any credentials, grounded on the teacher's local, non-network
// ChatLLMProcessor TTS backend shape, minus its chatllm subprocess call.
package mockvendor

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/forkadarshp/metrix/internal/core"
	"github.com/forkadarshp/metrix/internal/timing"
)

const (
	vendorID = "mockvendor"

	sampleRate      = 16000
	bitsPerSample   = 16
	channels        = 1
	secondsPerChar  = 0.06
	minAudioSeconds = 0.2

	chunkIDText = "TXT "
)

// Adapter is the deterministic, network-free reference vendor.
type Adapter struct{}

// New builds an Adapter. There is no configuration: mockvendor never talks
// to a network and never fails on credentials.
func New() *Adapter { return &Adapter{} }

// VendorID implements core.Adapter.
func (a *Adapter) VendorID() string { return vendorID }

// Synthesize implements core.Synthesizer. It generates a valid WAV file
// whose duration is proportional to the input text length and whose samples
// are a deterministic tone seeded by a hash of the text, with the original
// text embedded in a trailing custom chunk so Transcribe can recover it
// exactly.
func (a *Adapter) Synthesize(_ context.Context, req core.SynthesizeRequest) (core.SynthesizeResult, error) {
	clock := timing.Start()

	seconds := math.Max(minAudioSeconds, float64(len(req.Text))*secondsPerChar)
	numSamples := int(seconds * sampleRate)

	pcm := make([]byte, numSamples*2)
	seed := fnvSeed(req.Text)

	for i := 0; i < numSamples; i++ {
		angle := 2 * math.Pi * float64(220+seed%440) * float64(i) / sampleRate
		sample := int16(math.Sin(angle) * 0.2 * math.MaxInt16)
		binary.LittleEndian.PutUint16(pcm[i*2:i*2+2], uint16(sample))
	}

	wav := buildWAV(pcm, sampleRate, bitsPerSample, channels)
	wav = appendTextChunk(wav, req.Text)

	latency := timing.Elapsed(clock)

	return core.SynthesizeResult{
		AudioBytes:  wav,
		ContentType: "audio/wav",
		Latency:     latency,
	}, nil
}

// Transcribe implements core.Transcriber. It recovers the exact original
// text from mockvendor's own trailing text chunk; audio it didn't produce
// yields a VendorError rather than a fabricated guess.
func (a *Adapter) Transcribe(_ context.Context, req core.TranscribeRequest) (core.TranscribeResult, error) {
	clock := timing.Start()

	text, ok := readTextChunk(req.AudioBytes)
	if !ok {
		return core.TranscribeResult{}, &core.VendorError{
			Vendor:     vendorID,
			Capability: core.CapabilityTranscribe,
			Retryable:  false,
			Err:        fmt.Errorf("audio was not produced by mockvendor: no embedded text chunk found"),
		}
	}

	latency := timing.Elapsed(clock)
	confidence := 0.97

	return core.TranscribeResult{
		Transcript: text,
		Confidence: &confidence,
		Latency:    latency,
	}, nil
}

func fnvSeed(text string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))

	return int(h.Sum32())
}

func buildWAV(pcm []byte, sampleRate, bitsPerSample, channels int) []byte {
	byteRate := sampleRate * bitsPerSample / 8 * channels
	blockAlign := bitsPerSample / 8 * channels

	buf := make([]byte, 44+len(pcm))
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+len(pcm)))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bitsPerSample))
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(pcm)))
	copy(buf[44:], pcm)

	return buf
}

// appendTextChunk adds a non-standard RIFF chunk after "data" carrying the
// original input text. Standard WAV parsers (including audioprobe's, which
// returns as soon as it reads "data") ignore trailing chunks they don't
// recognize, so this never perturbs duration probing.
func appendTextChunk(wav []byte, text string) []byte {
	payload := []byte(text)

	chunk := make([]byte, 8+len(payload))
	copy(chunk[0:4], chunkIDText)
	binary.LittleEndian.PutUint32(chunk[4:8], uint32(len(payload)))
	copy(chunk[8:], payload)

	// Patch the RIFF size field to include the trailing chunk.
	riffSize := binary.LittleEndian.Uint32(wav[4:8])
	binary.LittleEndian.PutUint32(wav[4:8], riffSize+uint32(len(chunk)))

	return append(wav, chunk...)
}

func readTextChunk(wav []byte) (string, bool) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return "", false
	}

	offset := 12
	for offset+8 <= len(wav) {
		chunkID := string(wav[offset : offset+4])
		chunkSize := binary.LittleEndian.Uint32(wav[offset+4 : offset+8])
		body := offset + 8

		if body+int(chunkSize) > len(wav) {
			return "", false
		}

		if chunkID == chunkIDText {
			return string(wav[body : body+int(chunkSize)]), true
		}

		offset = body + int(chunkSize)
		if chunkSize%2 == 1 {
			offset++
		}
	}

	return "", false
}
