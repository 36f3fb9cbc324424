package audioprobe_test

import (
	"encoding/binary"
	"testing"

	"github.com/forkadarshp/metrix/internal/audioprobe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildWAV(t *testing.T, sampleRate, bitsPerSample, channels uint32, numSamples int) []byte {
	t.Helper()

	byteRate := sampleRate * bitsPerSample / 8 * channels
	blockAlign := uint16(bitsPerSample / 8 * uint32(channels))
	dataSize := uint32(numSamples) * uint32(blockAlign)

	buf := make([]byte, 44+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], 36+dataSize)
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], sampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], byteRate)
	binary.LittleEndian.PutUint16(buf[32:34], blockAlign)
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bitsPerSample))
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], dataSize)

	return buf
}

func TestProbe_VendorDurationTakesPriority(t *testing.T) {
	t.Parallel()

	vendor := 12.5
	result, err := audioprobe.Probe(&vendor, []byte{0x00}, "audio/mpeg")
	require.NoError(t, err)
	assert.InDelta(t, 12.5, result.Seconds, 1e-9)
	assert.False(t, result.Estimated)
}

func TestProbe_WAVContainerParse(t *testing.T) {
	t.Parallel()

	data := buildWAV(t, 44100, 16, 1, 44100*2) // 2 seconds mono 16-bit PCM

	result, err := audioprobe.Probe(nil, data, "audio/wav")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, result.Seconds, 1e-6)
	assert.False(t, result.Estimated)
}

func TestProbe_FLACContainerParse(t *testing.T) {
	t.Parallel()

	sampleRate := uint32(44100)
	totalSamples := uint64(88200) // 2 seconds

	info := make([]byte, 34)
	// bytes 10..17: 20-bit sample rate, 3-bit channels-1, 5-bit bps-1, 36-bit total samples
	packed := uint64(sampleRate)<<44 | uint64(1)<<41 | uint64(15)<<36 | totalSamples

	var packedBuf [8]byte
	binary.BigEndian.PutUint64(packedBuf[:], packed)
	copy(info[10:18], packedBuf[:])

	data := append([]byte("fLaC"), append([]byte{0x00, 0x00, 0x00, 34}, info...)...)

	result, err := audioprobe.Probe(nil, data, "audio/flac")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, result.Seconds, 1e-6)
}

func TestProbe_SizeBasedFallbackFlagsEstimated(t *testing.T) {
	t.Parallel()

	garbage := make([]byte, 16000) // not a valid mp3 frame sequence

	result, err := audioprobe.Probe(nil, garbage, "audio/mpeg")
	require.NoError(t, err)
	assert.True(t, result.Estimated)
	assert.Positive(t, result.Seconds)
}

func TestProbe_RejectsImplausibleDuration(t *testing.T) {
	t.Parallel()

	zero := 0.0
	_, err := audioprobe.Probe(&zero, nil, "audio/mpeg")
	require.ErrorIs(t, err, audioprobe.ErrImplausibleDuration)

	tooLong := float64(25 * 60 * 60)
	_, err = audioprobe.Probe(&tooLong, nil, "audio/mpeg")
	require.ErrorIs(t, err, audioprobe.ErrImplausibleDuration)
}

func TestProbe_UnknownContentTypeRejected(t *testing.T) {
	t.Parallel()

	_, err := audioprobe.Probe(nil, []byte{0x01, 0x02}, "application/octet-stream")
	require.Error(t, err)
}
