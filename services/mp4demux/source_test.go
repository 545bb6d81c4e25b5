package mp4demux

import (
	"testing"

	mp4 "github.com/abema/go-mp4"
	"github.com/stretchr/testify/require"
)

func TestSamplesInChunk(t *testing.T) {
	entries := []mp4.StscEntry{
		{FirstChunk: 1, SamplesPerChunk: 1},
		{FirstChunk: 4, SamplesPerChunk: 3},
	}

	require.Equal(t, uint32(1), samplesInChunk(entries, 1))
	require.Equal(t, uint32(1), samplesInChunk(entries, 3))
	require.Equal(t, uint32(3), samplesInChunk(entries, 4))
	require.Equal(t, uint32(3), samplesInChunk(entries, 9))
}

func TestBuildPayloadTableWindows(t *testing.T) {
	// three one-second payloads at timescale 1000, one sample per chunk
	track := &trackInfo{
		isTelemetry: true,
		timescale:   1000,
		deltas:      []uint32{1000, 1000, 1000},
		sizes:       []uint32{100, 120, 80},
		chunkOffs:   []uint64{5000, 5100, 5220},
		stsc:        []mp4.StscEntry{{FirstChunk: 1, SamplesPerChunk: 1}},
	}

	src := &Source{path: "test.mp4"}
	require.NoError(t, src.buildPayloadTable(track))
	require.Len(t, src.payloads, 3)

	require.Equal(t, 0.0, src.payloads[0].start)
	require.Equal(t, 1.0, src.payloads[0].finish)
	require.Equal(t, 1.0, src.payloads[1].start)
	require.Equal(t, 2.0, src.payloads[1].finish)
	require.Equal(t, int64(5220), src.payloads[2].offset)
	require.Equal(t, uint32(80), src.payloads[2].size)
}

func TestBuildPayloadTableMultiSampleChunks(t *testing.T) {
	track := &trackInfo{
		isTelemetry: true,
		timescale:   500,
		deltas:      []uint32{500, 500, 500, 500},
		sizes:       []uint32{10, 20, 30, 40},
		chunkOffs:   []uint64{1000, 2000},
		stsc:        []mp4.StscEntry{{FirstChunk: 1, SamplesPerChunk: 2}},
	}

	src := &Source{path: "test.mp4"}
	require.NoError(t, src.buildPayloadTable(track))
	require.Len(t, src.payloads, 4)

	// second sample of the first chunk sits right after the first
	require.Equal(t, int64(1010), src.payloads[1].offset)
	// third sample starts the second chunk
	require.Equal(t, int64(2000), src.payloads[2].offset)
	require.Equal(t, 3.0, src.payloads[3].start)
}

func TestBuildPayloadTableRejectsEmptyTables(t *testing.T) {
	src := &Source{path: "test.mp4"}
	err := src.buildPayloadTable(&trackInfo{timescale: 1000})
	require.ErrorIs(t, err, ErrNoTelemetryTrack)
}
