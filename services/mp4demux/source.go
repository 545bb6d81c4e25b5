// Package mp4demux locates the camera's gpmd metadata track inside an
// MP4/MOV container and serves its payloads together with their playback
// windows. Box walking is delegated to github.com/abema/go-mp4; this package
// only assembles the sample table for the one track it cares about.
package mp4demux

import (
	"errors"
	"fmt"
	"os"

	mp4 "github.com/abema/go-mp4"

	"github.com/Iv4nS/gpstelemetry/models"
	"github.com/Iv4nS/gpstelemetry/utils"
)

var (
	// ErrNoTelemetryTrack reports a container with no gpmd metadata track.
	ErrNoTelemetryTrack = errors.New("mp4demux: no telemetry track")

	// ErrInvalidDuration reports a telemetry track whose reported duration
	// is not positive.
	ErrInvalidDuration = errors.New("mp4demux: empty or invalid telemetry duration")
)

// payloadInfo is one metadata sample: where it sits in the file and the
// playback window it covers, in seconds.
type payloadInfo struct {
	offset int64
	size   uint32
	start  float64
	finish float64
}

// Source is an open container positioned on its telemetry track. Payloads
// are read on demand into a scratch buffer that is reused between calls, so
// a payload's Data is valid only until the next Payload call.
type Source struct {
	path     string
	f        *os.File
	duration float64
	payloads []payloadInfo
	scratch  []byte
}

// trackInfo accumulates the sample-table boxes of one trak while walking.
type trackInfo struct {
	isTelemetry bool
	timescale   uint32
	duration    float64
	deltas      []uint32 // per-sample playback deltas, expanded from stts
	sizes       []uint32
	chunkOffs   []uint64
	stsc        []mp4.StscEntry
}

// Open parses the container's box structure and builds the payload table for
// the first gpmd track. The file stays open for payload reads until Close.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}

	track, err := findTelemetryTrack(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if track == nil {
		f.Close()
		return nil, fmt.Errorf("%w in %s", ErrNoTelemetryTrack, path)
	}

	src := &Source{
		path:     path,
		f:        f,
		duration: track.duration,
	}
	if err := src.buildPayloadTable(track); err != nil {
		f.Close()
		return nil, err
	}

	utils.L().Debug("telemetry track opened   (file=%s, payloads=%d, duration=%.3fs)",
		path, len(src.payloads), src.duration)
	return src, nil
}

// Duration returns the telemetry track's total playback duration in seconds.
func (s *Source) Duration() float64 { return s.duration }

// NumPayloads returns the number of metadata payloads in the track.
func (s *Source) NumPayloads() int { return len(s.payloads) }

// Payload reads payload i from the file. The returned Data aliases the
// source's scratch buffer and is invalidated by the next call.
func (s *Source) Payload(i int) (*models.Payload, error) {
	if i < 0 || i >= len(s.payloads) {
		return nil, fmt.Errorf("payload index %d out of range [0,%d)", i, len(s.payloads))
	}
	info := s.payloads[i]
	if cap(s.scratch) < int(info.size) {
		s.scratch = make([]byte, info.size)
	}
	buf := s.scratch[:info.size]
	if _, err := s.f.ReadAt(buf, info.offset); err != nil {
		return nil, fmt.Errorf("read payload %d: %w", i, err)
	}
	return &models.Payload{
		Start:  info.start,
		Finish: info.finish,
		Data:   buf,
	}, nil
}

// Close releases the underlying file.
func (s *Source) Close() error {
	return s.f.Close()
}

var gpmdEntryType = mp4.StrToBoxType("gpmd")

// findTelemetryTrack walks moov/trak chains and returns the sample-table
// info of the first track whose stsd carries a gpmd entry, or nil.
func findTelemetryTrack(f *os.File) (*trackInfo, error) {
	var cur *trackInfo
	var found *trackInfo

	_, err := mp4.ReadBoxStructure(f, func(h *mp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case mp4.BoxTypeMoov(), mp4.BoxTypeMdia(), mp4.BoxTypeMinf(), mp4.BoxTypeStbl(), mp4.BoxTypeStsd():
			return h.Expand()

		case mp4.BoxTypeTrak():
			t := &trackInfo{}
			cur = t
			if _, err := h.Expand(); err != nil {
				return nil, err
			}
			cur = nil
			if t.isTelemetry && found == nil {
				found = t
			}
			return nil, nil

		case mp4.BoxTypeMdhd():
			if cur == nil {
				return nil, nil
			}
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			mdhd := box.(*mp4.Mdhd)
			cur.timescale = mdhd.Timescale
			if mdhd.Timescale != 0 {
				if mdhd.Version == 1 {
					cur.duration = float64(mdhd.DurationV1) / float64(mdhd.Timescale)
				} else {
					cur.duration = float64(mdhd.DurationV0) / float64(mdhd.Timescale)
				}
			}
			return nil, nil

		case mp4.BoxTypeStts():
			if cur == nil {
				return nil, nil
			}
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			for _, e := range box.(*mp4.Stts).Entries {
				for i := uint32(0); i < e.SampleCount; i++ {
					cur.deltas = append(cur.deltas, e.SampleDelta)
				}
			}
			return nil, nil

		case mp4.BoxTypeStsz():
			if cur == nil {
				return nil, nil
			}
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			stsz := box.(*mp4.Stsz)
			if stsz.SampleSize != 0 {
				for i := uint32(0); i < stsz.SampleCount; i++ {
					cur.sizes = append(cur.sizes, stsz.SampleSize)
				}
			} else {
				cur.sizes = append(cur.sizes, stsz.EntrySize...)
			}
			return nil, nil

		case mp4.BoxTypeStsc():
			if cur == nil {
				return nil, nil
			}
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			cur.stsc = box.(*mp4.Stsc).Entries
			return nil, nil

		case mp4.BoxTypeStco():
			if cur == nil {
				return nil, nil
			}
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			for _, o := range box.(*mp4.Stco).ChunkOffset {
				cur.chunkOffs = append(cur.chunkOffs, uint64(o))
			}
			return nil, nil

		case mp4.BoxTypeCo64():
			if cur == nil {
				return nil, nil
			}
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			cur.chunkOffs = append(cur.chunkOffs, box.(*mp4.Co64).ChunkOffset...)
			return nil, nil

		case gpmdEntryType:
			if cur != nil && len(h.Path) >= 2 && h.Path[len(h.Path)-2] == mp4.BoxTypeStsd() {
				cur.isTelemetry = true
			}
			return nil, nil
		}
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse container: %w", err)
	}
	return found, nil
}

// buildPayloadTable flattens the track's chunk and timing tables into one
// payloadInfo per metadata sample.
func (s *Source) buildPayloadTable(t *trackInfo) error {
	if t.timescale == 0 || len(t.sizes) == 0 || len(t.chunkOffs) == 0 || len(t.stsc) == 0 {
		return fmt.Errorf("%w in %s", ErrNoTelemetryTrack, s.path)
	}

	s.payloads = make([]payloadInfo, 0, len(t.sizes))
	elapsed := uint64(0)
	sample := 0

	for ci := 0; ci < len(t.chunkOffs) && sample < len(t.sizes); ci++ {
		perChunk := samplesInChunk(t.stsc, uint32(ci+1))
		offset := int64(t.chunkOffs[ci])

		for j := uint32(0); j < perChunk && sample < len(t.sizes); j++ {
			size := t.sizes[sample]
			delta := uint64(0)
			if sample < len(t.deltas) {
				delta = uint64(t.deltas[sample])
			}
			s.payloads = append(s.payloads, payloadInfo{
				offset: offset,
				size:   size,
				start:  float64(elapsed) / float64(t.timescale),
				finish: float64(elapsed+delta) / float64(t.timescale),
			})
			offset += int64(size)
			elapsed += delta
			sample++
		}
	}
	return nil
}

// samplesInChunk resolves the stsc run covering 1-based chunk number n.
func samplesInChunk(entries []mp4.StscEntry, n uint32) uint32 {
	per := uint32(1)
	for _, e := range entries {
		if e.FirstChunk > n {
			break
		}
		per = e.SamplesPerChunk
	}
	return per
}
