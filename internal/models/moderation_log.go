package models

import "time"

// ModerationLog is the audit trail row written for every action applied
// by a successful bulk commit. Rows in the same commit share a batch ID.
type ModerationLog struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	BatchID  string `gorm:"not null;index" json:"batch_id"`
	ActorID  uint   `gorm:"index" json:"actor_id"`
	UserID   uint   `gorm:"not null;index" json:"user_id"`
	Action   Action `gorm:"not null" json:"action"`
	Role     string `json:"role,omitempty"`
	Duration string `json:"duration,omitempty"`
	// Reasons is the justification list joined with "; ".
	Reasons   string    `gorm:"type:text" json:"reasons"`
	Outcome   string    `json:"outcome"`
	CreatedAt time.Time `json:"created_at"`
}
