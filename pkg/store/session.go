package store

import "time"

// SessionStatus follows PENDING -> ANALYZED -> COMPLETED.
// EXPIRED is reachable from any non-terminal state once the TTL
// elapses. COMPLETED and EXPIRED are terminal.
type SessionStatus string

const (
	SessionPending   SessionStatus = "PENDING"
	SessionAnalyzed  SessionStatus = "ANALYZED"
	SessionCompleted SessionStatus = "COMPLETED"
	SessionExpired   SessionStatus = "EXPIRED"
)

// Terminal reports whether no further transition may leave the status.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionExpired
}

// Session bridges the two phases of an image inspection: phase 1 writes
// the visual analysis and the reranked evidence, phase 2 consumes them
// to generate the report. Owned exclusively by the session store.
type Session struct {
	ID             string         `json:"id"`
	Status         SessionStatus  `json:"status"`
	Query          Query          `json:"query"`
	VisualAnalysis string         `json:"visual_analysis,omitempty"`
	Evidence       []EvidenceItem `json:"evidence,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	ExpiresAt      time.Time      `json:"expires_at"`
}

// ExpiredAt reports logical expiry relative to now. It applies to
// every status: a COMPLETED session is readable only until the
// deadline, it just never flips to EXPIRED.
func (s *Session) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
