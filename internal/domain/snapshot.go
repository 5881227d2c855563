package domain

import (
	"strings"
	"time"
)

// SnapshotMaxAge bounds how long a persisted record is trusted.
const SnapshotMaxAge = 24 * time.Hour

// PersistedSession is the local copy read by the fallback tier.
type PersistedSession struct {
	CurrentSession Session   `json:"currentSession"`
	ExpiresAt      time.Time `json:"expiresAt"`
	Timestamp      time.Time `json:"timestamp"`
}

func (p PersistedSession) Valid(now time.Time) bool {
	return validRecord(now, p.Timestamp, string(p.CurrentSession.UserID))
}

// StateSnapshot is the light record child windows read instead of refreshing.
type StateSnapshot struct {
	Timestamp       time.Time  `json:"timestamp"`
	ExpiresAt       time.Time  `json:"expiresAt"`
	UserID          UserID     `json:"userId"`
	Role            string     `json:"role"`
	LastRefresh     time.Time  `json:"lastRefresh"`
	WindowID        WindowRole `json:"windowId"`
	OwnerID         string     `json:"ownerId,omitempty"`
	IsAuthenticated bool       `json:"isAuthenticated"`
}

func (s StateSnapshot) Valid(now time.Time) bool {
	return validRecord(now, s.Timestamp, string(s.UserID))
}

// Stale reports whether the snapshot was written longer than maxAge ago.
func (s StateSnapshot) Stale(now time.Time, maxAge time.Duration) bool {
	if s.Timestamp.IsZero() {
		return true
	}
	if maxAge <= 0 {
		return false
	}
	return now.Sub(s.Timestamp) > maxAge
}

func SnapshotFromState(state SessionState, owner string, now time.Time) StateSnapshot {
	return StateSnapshot{
		Timestamp:       now,
		ExpiresAt:       state.ExpiresAt,
		UserID:          state.UserID,
		Role:            state.Role,
		LastRefresh:     state.LastRefresh,
		WindowID:        state.WindowID,
		OwnerID:         owner,
		IsAuthenticated: state.IsAuthenticated,
	}
}

func validRecord(now, timestamp time.Time, userID string) bool {
	if strings.TrimSpace(userID) == "" || timestamp.IsZero() {
		return false
	}
	return now.Sub(timestamp) <= SnapshotMaxAge
}
