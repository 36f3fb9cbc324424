// Package audioprobe computes the duration of generated audio per spec.md
// §4.4's priority-ordered strategy: trust the vendor if it told us, else
// parse the container, else fall back to a documented bitrate estimate and
// say so.
package audioprobe

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MaxPlausibleDuration rejects anything a TTS/STT benchmark attempt could
// never legitimately produce.
const MaxPlausibleDuration = 24 * 60 * 60 // seconds

// ErrImplausibleDuration is returned when a computed duration is <= 0 or
// exceeds MaxPlausibleDuration; the caller must treat the duration as absent.
var ErrImplausibleDuration = errors.New("implausible audio duration")

// Result is the outcome of probing an audio blob for its duration.
type Result struct {
	Seconds   float64
	Estimated bool // true only when the size-based fallback strategy was used
}

// containerDurationFn computes the exact duration from a fully parsed
// container, returning ok=false if the blob doesn't look like that format.
type containerDurationFn func(data []byte) (seconds float64, ok bool)

var containerParsers = map[string]containerDurationFn{
	"audio/wav":  wavDuration,
	"audio/x-wav": wavDuration,
	"audio/mpeg": mp3Duration,
	"audio/ogg":  oggDuration,
	"audio/flac": flacDuration,
}

// bitrateAssumptionBitsPerSecond holds the documented fallback bitrate
// assumption per content type, used only when both the vendor-reported
// duration and container parsing are unavailable.
var bitrateAssumptionBitsPerSecond = map[string]float64{
	"audio/wav":   44100 * 16 * 2, // CD-quality PCM: sampleRate * bitDepth * channels
	"audio/x-wav": 44100 * 16 * 2,
	"audio/mpeg":  128000,
	"audio/ogg":   128000,
	"audio/flac":  600000,
}

// Probe implements the three-strategy duration lookup. vendorDuration is the
// (optional) value an adapter measured directly from its own response; data
// and contentType describe the audio blob itself.
func Probe(vendorDuration *float64, data []byte, contentType string) (Result, error) {
	if vendorDuration != nil {
		return accept(*vendorDuration, false)
	}

	if parser, ok := containerParsers[contentType]; ok {
		if seconds, parsed := parser(data); parsed {
			return accept(seconds, false)
		}
	}

	bitsPerSecond, ok := bitrateAssumptionBitsPerSecond[contentType]
	if !ok || bitsPerSecond <= 0 {
		return Result{}, fmt.Errorf("%w: no strategy available for content type %q", ErrImplausibleDuration, contentType)
	}

	estimated := float64(len(data)*8) / bitsPerSecond

	return accept(estimated, true)
}

func accept(seconds float64, estimated bool) (Result, error) {
	if seconds <= 0 || seconds > MaxPlausibleDuration {
		return Result{}, fmt.Errorf("%w: %.3fs", ErrImplausibleDuration, seconds)
	}

	return Result{Seconds: seconds, Estimated: estimated}, nil
}

// wavDuration reads the RIFF/WAVE "fmt " chunk for byte rate and the "data"
// chunk for its size, returning dataSize / byteRate.
func wavDuration(data []byte) (float64, bool) {
	const headerMin = 44
	if len(data) < headerMin || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, false
	}

	var byteRate uint32

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		body := offset + 8

		switch chunkID {
		case "fmt ":
			if body+16 > len(data) {
				return 0, false
			}

			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
		case "data":
			if byteRate == 0 {
				return 0, false
			}

			return float64(chunkSize) / float64(byteRate), true
		}

		offset = body + int(chunkSize)
		if chunkSize%2 == 1 {
			offset++ // chunks are word-aligned
		}
	}

	return 0, false
}

// flacDuration reads the STREAMINFO metadata block (always the first block
// after the "fLaC" marker): sample rate (20 bits) and total samples (36
// bits), yielding totalSamples / sampleRate.
func flacDuration(data []byte) (float64, bool) {
	const (
		markerLen       = 4
		blockHeaderLen  = 4
		streamInfoLen   = 34
		sampleRateShift = 44 // bit offset of the 20-bit sample rate field within STREAMINFO
	)

	if len(data) < markerLen+blockHeaderLen+streamInfoLen || string(data[0:4]) != "fLaC" {
		return 0, false
	}

	blockType := data[4] & 0x7f
	if blockType != 0 {
		return 0, false // STREAMINFO must be first; anything else is malformed for our purposes
	}

	info := data[8 : 8+streamInfoLen]

	// Bytes 10..17 of STREAMINFO hold: 20 bits sample rate, 3 bits
	// (channels-1), 5 bits (bits-per-sample-1), 36 bits total samples.
	bits := new(bitReader).init(info[10:18])

	sampleRate := bits.read(20)
	bits.read(3) // channels - 1
	bits.read(5) // bits per sample - 1
	totalSamples := bits.read(36)

	if sampleRate == 0 {
		return 0, false
	}

	_ = sampleRateShift

	return float64(totalSamples) / float64(sampleRate), true
}

// bitReader reads big-endian bit fields out of a fixed byte slice, used only
// for FLAC's STREAMINFO block which packs fields across byte boundaries.
type bitReader struct {
	buf    []byte
	bitPos int
}

func (b *bitReader) init(buf []byte) *bitReader {
	b.buf = buf
	b.bitPos = 0

	return b
}

func (b *bitReader) read(n int) uint64 {
	var value uint64

	for i := 0; i < n; i++ {
		byteIdx := b.bitPos / 8
		bitIdx := 7 - (b.bitPos % 8)

		if byteIdx >= len(b.buf) {
			b.bitPos++

			continue
		}

		bit := (b.buf[byteIdx] >> bitIdx) & 1
		value = value<<1 | uint64(bit)
		b.bitPos++
	}

	return value
}

// mp3BitrateTableV1L3 is the MPEG-1 Layer III bitrate table in kbps, indexed
// by the 4-bit bitrate field (index 0 and 15 are reserved/free, unsupported).
var mp3BitrateTableV1L3 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}

var mp3SampleRateTableV1 = [4]int{44100, 48000, 32000, 0}

// mp3Duration locates the first valid MPEG frame sync and estimates duration
// from the file size and that frame's bitrate (constant-bitrate assumption;
// MetriX does not special-case VBR Xing headers, so VBR files take the
// size-based fallback error margin documented in SPEC_FULL.md).
func mp3Duration(data []byte) (float64, bool) {
	for i := 0; i+4 <= len(data); i++ {
		if data[i] != 0xFF || data[i+1]&0xE0 != 0xE0 {
			continue
		}

		versionBits := (data[i+1] >> 3) & 0x03
		layerBits := (data[i+1] >> 1) & 0x03

		if versionBits != 0x03 || layerBits != 0x01 { // MPEG-1, Layer III only
			continue
		}

		bitrateIdx := (data[i+2] >> 4) & 0x0F
		sampleRateIdx := (data[i+2] >> 2) & 0x03

		bitrateKbps := mp3BitrateTableV1L3[bitrateIdx]
		sampleRate := mp3SampleRateTableV1[sampleRateIdx]

		if bitrateKbps == 0 || sampleRate == 0 {
			continue
		}

		bitsPerSecond := float64(bitrateKbps * 1000)

		return float64(len(data)*8) / bitsPerSecond, true
	}

	return 0, false
}

// oggDuration walks Ogg pages (each beginning "OggS") to find the last
// page's granule position — for Vorbis/Opus audio this is the sample count
// at that point in the stream — then divides by the sample rate read from
// the first page's identification header.
func oggDuration(data []byte) (float64, bool) {
	sampleRate, ok := oggVorbisSampleRate(data)
	if !ok {
		return 0, false
	}

	lastGranule, found := lastOggGranulePosition(data)
	if !found || lastGranule <= 0 {
		return 0, false
	}

	return float64(lastGranule) / float64(sampleRate), true
}

func oggVorbisSampleRate(data []byte) (int, bool) {
	const pageHeaderLen = 27

	if len(data) < pageHeaderLen+7+4 || string(data[0:4]) != "OggS" {
		return 0, false
	}

	segmentCount := int(data[26])
	segmentTableEnd := pageHeaderLen + segmentCount

	if segmentTableEnd > len(data) {
		return 0, false
	}

	packetStart := segmentTableEnd
	if packetStart+11 > len(data) || data[packetStart] != 0x01 || string(data[packetStart+1:packetStart+7]) != "vorbis" {
		return 0, false
	}

	// Vorbis identification header: packet type(1) + "vorbis"(6) +
	// version(4) + channels(1) + sample_rate(4, little-endian) + ...
	rateOffset := packetStart + 1 + 6 + 4 + 1

	if rateOffset+4 > len(data) {
		return 0, false
	}

	sampleRate := binary.LittleEndian.Uint32(data[rateOffset : rateOffset+4])
	if sampleRate == 0 {
		return 0, false
	}

	return int(sampleRate), true
}

func lastOggGranulePosition(data []byte) (int64, bool) {
	var (
		lastGranule int64
		found       bool
	)

	for i := 0; i+27 <= len(data); i++ {
		if string(data[i:i+4]) != "OggS" {
			continue
		}

		granule := int64(binary.LittleEndian.Uint64(data[i+6 : i+14]))
		if granule >= 0 {
			lastGranule = granule
			found = true
		}

		segmentCount := int(data[i+26])
		pageLen := 27 + segmentCount

		if i+pageLen > len(data) {
			break
		}

		for s := 0; s < segmentCount; s++ {
			pageLen += int(data[i+27+s])
		}

		i += pageLen - 1 // loop's i++ advances past this page
	}

	return lastGranule, found
}
