package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a user's login session (single device).
func (r *CacheKeyStruct) UserSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// SessionSnapshotKey returns the cache key for a practice session's last
// published state snapshot.
func (r *CacheKeyStruct) SessionSnapshotKey(sessionID string) string {
	return fmt.Sprintf("session:%s:snapshot", sessionID)
}

// SessionAIGradeLockKey returns the guard key that prevents a second AI
// grading request while one is outstanding for the same session.
func (r *CacheKeyStruct) SessionAIGradeLockKey(sessionID string) string {
	return fmt.Sprintf("session:%s:ai_grade_lock", sessionID)
}

// UserActiveSessionKey returns the cache key for a user's currently active
// practice session.
func (r *CacheKeyStruct) UserActiveSessionKey(userID int) string {
	return fmt.Sprintf("user:%d:active_session", userID)
}

var CacheKey = NewCacheKeyStruct()
