package types

// SessionSnapshot is a point-in-time copy of the scanning session state.
type SessionSnapshot struct {
	ScanEnabled     bool   `json:"scan_enabled"`
	Camera          string `json:"camera"`
	LastPayload     string `json:"last_payload,omitempty"`
	DefaultAccepted string `json:"default_accepted"`
	UserAccepted    string `json:"user_accepted"`
	FrequencyMs     int64  `json:"frequency_ms"` // 0 = no periodic scanning
}

type FrequencyOption struct {
	Label    string `json:"label"`
	Value    int64  `json:"value"`
	Selected bool   `json:"selected"`
}

type FrequencyResponse struct {
	Armed      bool              `json:"armed"`
	IntervalMs int64             `json:"interval_ms"`
	Options    []FrequencyOption `json:"options"`
}

type ValidationRequest struct {
	UserAccepted string `json:"user_accepted"`
}

type FrequencyRequest struct {
	IntervalMs int64 `json:"interval_ms"`
}
