package models

import "time"

// Task represents a single scheduled to-do item, optionally mirrored to an
// external calendar event identified by GoogleEventID.
type Task struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Priority      string    `json:"priority"`
	StartDate     string    `json:"start_date"` // 2006-01-02
	StartTime     string    `json:"start_time"` // 15:04
	EndTime       string    `json:"end_time"`   // 15:04
	GoogleEventID string    `json:"google_event_id,omitempty"`
	IsCompleted   bool      `json:"is_completed"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ValidCategories enumerates the categories a task can belong to.
var ValidCategories = map[string]struct{}{
	"work":     {},
	"personal": {},
	"study":    {},
}

// ValidPriorities enumerates the supported priority levels.
var ValidPriorities = map[string]struct{}{
	"low":    {},
	"medium": {},
	"high":   {},
}

// Credentials holds the Google-issued OAuth tokens kept in session state.
// Never persisted to the task database.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}
