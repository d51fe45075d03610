package types

import "time"

// Facing identifies which physical capture device produced a frame.
type Facing int

const (
	FacingBack Facing = iota
	FacingFront
)

func (f Facing) String() string {
	if f == FacingFront {
		return "Front Camera"
	}
	return "Back Camera"
}

// Opposite returns the other facing.
func (f Facing) Opposite() Facing {
	if f == FacingFront {
		return FacingBack
	}
	return FacingFront
}

// Status renders a match decision the way it appears in the scan log.
func Status(matched bool) string {
	if matched {
		return "Valid"
	}
	return "Invalid"
}

// ScanInput is what the capture device reports for one detected barcode.
type ScanInput struct {
	Symbology string `json:"symbology"`
	Payload   string `json:"payload"`
}

// ScanEvent is constructed once per accepted scan and is not retained
// beyond the logging pipeline.
type ScanEvent struct {
	ID         string
	Symbology  string
	Payload    string
	CapturedAt time.Time
	Facing     Facing
}

type ScanResult struct {
	OK         bool   `json:"ok"`
	EventID    string `json:"event_id"`
	Symbology  string `json:"symbology"`
	Payload    string `json:"payload"`
	Matched    bool   `json:"matched"`
	Status     string `json:"status"`
	Camera     string `json:"camera"`
	CapturedAt string `json:"captured_at"`
}
