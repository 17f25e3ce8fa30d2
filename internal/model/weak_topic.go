package model

import "time"

// WeakTopic tracks how often a topic has shown up in mistake analysis.
type WeakTopic struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id"`
	Topic       string    `json:"topic"`
	Occurrences int       `json:"occurrences"`
	LastSeen    time.Time `json:"last_seen"`
}

// ReportWeaknessRequest is the payload from the mistake-analysis flow.
type ReportWeaknessRequest struct {
	Topics []string `json:"topics" binding:"required,min=1,max=20,dive,min=1,max=200"`
}
