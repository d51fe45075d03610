package types

import "time"

type NoticeKind string

const (
	NoticeInfo  NoticeKind = "info"
	NoticeError NoticeKind = "error"
)

// Notice is a non-fatal, user-facing message produced by log lifecycle
// operations.
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"created_at"`
}

type LogStatus struct {
	Exists     bool   `json:"exists"`
	SizeBytes  int64  `json:"size_bytes"`
	Size       string `json:"size,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`
}
