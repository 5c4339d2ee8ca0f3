package types

import "time"

// Resume is a free-text document owned by exactly one user.
type Resume struct {
	// ID is the unique identifier of the resume.
	ID int `json:"id" db:"id"`

	// Title is the display name of the resume.
	Title string `json:"title" db:"title"`

	// Context is the free-text body of the resume.
	Context string `json:"context" db:"context"`

	// UserID identifies the owning user. It is always taken from the
	// authenticated caller, never from the request body.
	UserID int `json:"user_id" db:"user_id"`
}

// ResumeEventType names a resume lifecycle transition.
type ResumeEventType string

const (
	ResumeCreated  ResumeEventType = "resume.created"
	ResumeUpdated  ResumeEventType = "resume.updated"
	ResumeDeleted  ResumeEventType = "resume.deleted"
	ResumeImproved ResumeEventType = "resume.improved"
)

// ResumeEvent is published after a resume changes.
type ResumeEvent struct {
	ID       string          `json:"id"`
	Type     ResumeEventType `json:"type"`
	ResumeID int             `json:"resume_id"`
	UserID   int             `json:"user_id"`
	At       time.Time       `json:"at"`
}

// ResumeRevision is an archived snapshot of a resume taken before it was
// overwritten or deleted.
type ResumeRevision struct {
	ResumeID   int             `json:"resume_id"`
	UserID     int             `json:"user_id"`
	Title      string          `json:"title"`
	Context    string          `json:"context"`
	Reason     ResumeEventType `json:"reason"`
	ArchivedAt time.Time       `json:"archived_at"`
}
