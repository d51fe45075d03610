package scanlog

import (
	"fmt"
	"time"

	"github.com/BrandonDHaskell/barscan/internal/barscan/types"
)

// TimestampLayout renders as "2026/02/15, 14:03:09".
const TimestampLayout = "2006/01/02, 15:04:05"

// FormatLine renders one log record, newline included.  Payloads are written
// verbatim; a payload containing ", " is indistinguishable from a delimiter.
func FormatLine(ev types.ScanEvent, matched bool, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return fmt.Sprintf("%s, Camera: %s, Status: %s, Data: %s\n",
		ev.CapturedAt.In(loc).Format(TimestampLayout),
		ev.Facing,
		types.Status(matched),
		ev.Payload,
	)
}
