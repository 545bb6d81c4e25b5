package controller

// Timeline carries the cumulative playback offset across payloads and files
// so a recording split over several files yields one contiguous time axis.
// Files are trusted to arrive in chronological order; no reordering or gap
// correction is applied.
type Timeline struct {
	fileStart  float64 // seconds contributed by all prior files
	lastFinish float64 // finish of the current file's last usable payload
}

// Absolute converts an in-payload relative time to the run-wide time axis.
func (t *Timeline) Absolute(rel float64) float64 {
	return t.fileStart + rel
}

// ObservePayload records that a payload with usable data finished at the
// given playback time within the current file.
func (t *Timeline) ObservePayload(finish float64) {
	t.lastFinish = finish
}

// EndFile folds the finished file's extent into the cumulative offset. A
// file that produced no usable payloads leaves the offset unchanged.
func (t *Timeline) EndFile() {
	t.fileStart += t.lastFinish
	t.lastFinish = 0
}
