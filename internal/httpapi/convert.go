package httpapi

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/barscan/internal/barscan/store"
	"github.com/BrandonDHaskell/barscan/internal/barscan/types"
)

// ── Scan (protobuf Struct) ───────────────────────────────────────────────────

func scanInputFromStruct(p *structpb.Struct) types.ScanInput {
	fields := p.GetFields()
	return types.ScanInput{
		Symbology: fields["symbology"].GetStringValue(),
		Payload:   fields["payload"].GetStringValue(),
	}
}

func scanResultToStruct(r types.ScanResult) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"ok":          r.OK,
		"event_id":    r.EventID,
		"symbology":   r.Symbology,
		"payload":     r.Payload,
		"matched":     r.Matched,
		"status":      r.Status,
		"camera":      r.Camera,
		"captured_at": r.CapturedAt,
	})
}

// ── History ──────────────────────────────────────────────────────────────────

type scanRecordJSON struct {
	EventID    string `json:"event_id"`
	Symbology  string `json:"symbology"`
	Payload    string `json:"payload"`
	Camera     string `json:"camera"`
	Status     string `json:"status"`
	CapturedAt string `json:"captured_at"`
}

func scanRecordToJSON(rec store.ScanEventRecord) scanRecordJSON {
	return scanRecordJSON{
		EventID:    rec.EventID,
		Symbology:  rec.Symbology,
		Payload:    rec.Payload,
		Camera:     rec.Camera,
		Status:     types.Status(rec.Matched),
		CapturedAt: rec.CapturedAt.UTC().Format(time.RFC3339Nano),
	}
}
