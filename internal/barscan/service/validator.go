package service

// DefaultAcceptedPayload is the built-in acceptance string.
const DefaultAcceptedPayload = "Testikoodi"

// ValidationRule holds the payloads a scan is compared against.
type ValidationRule struct {
	DefaultAccepted string
	UserAccepted    string
}

// Validate reports whether payload exactly equals one of the rule's accepted
// payloads.  Comparison is byte-for-byte: no trimming, no case folding.  An
// empty accepted payload means "not configured" and never matches.
func Validate(payload string, rule ValidationRule) bool {
	if rule.DefaultAccepted != "" && payload == rule.DefaultAccepted {
		return true
	}
	return rule.UserAccepted != "" && payload == rule.UserAccepted
}
