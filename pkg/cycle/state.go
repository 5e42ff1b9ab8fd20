package cycle

// State is the progress of the capture cycle.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateCapturing State = "capturing"
	StateUploading State = "uploading"
	StatePlaying   State = "playing"
)

// Busy reports whether a cycle is in flight.
func (s State) Busy() bool {
	return s != StateIdle && s != ""
}

func (s State) String() string {
	return string(s)
}
