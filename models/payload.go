package models

// Payload is one time-bounded chunk of the metadata track: its decoded byte
// buffer plus the playback window it covers. Start and Finish are seconds
// relative to the beginning of the file, Finish > Start for usable payloads.
// A payload lives only for the iteration that consumes its records.
type Payload struct {
	Start  float64
	Finish float64
	Data   []byte
}
