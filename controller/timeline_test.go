package controller

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTimelineContinuityAcrossFiles(t *testing.T) {
	var tl Timeline

	// file A: payloads end at 12.5s
	tl.ObservePayload(6.0)
	tl.ObservePayload(12.5)
	tl.EndFile()

	// file B starts at playback 0.0 but continues the shared axis
	require.Equal(t, 12.5, tl.Absolute(0.0))
	require.Equal(t, 13.0, tl.Absolute(0.5))
}

func TestTimelineEmptyFileLeavesOffsetUnchanged(t *testing.T) {
	var tl Timeline

	tl.ObservePayload(10.0)
	tl.EndFile()

	// a file with no usable payloads contributes nothing
	tl.EndFile()

	require.Equal(t, 10.0, tl.Absolute(0.0))
}

func TestTimelineAccumulatesManyFiles(t *testing.T) {
	var tl Timeline
	for i := 0; i < 3; i++ {
		tl.ObservePayload(60.0)
		tl.EndFile()
	}
	require.Equal(t, 180.0, tl.Absolute(0.0))
}
