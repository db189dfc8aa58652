package types

import (
	"time"

	"github.com/google/uuid"
)

// Approval is the three-value per-role confirmation state of a session.
// The zero value is ApprovalUnset so a freshly created row is pending for
// whichever role did not log it.
type Approval string

const (
	ApprovalUnset    Approval = "unset"
	ApprovalApproved Approval = "approved"
	ApprovalRejected Approval = "rejected"
)

type Session struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_session_request_date;column:request_id" json:"request_id"`
	Date           time.Time  `gorm:"type:date;not null;uniqueIndex:idx_session_request_date;column:date" json:"date"`
	StartTime      string     `gorm:"column:start_time" json:"start_time"`
	EndTime        string     `gorm:"column:end_time" json:"end_time"`
	MenteeApproval Approval   `gorm:"not null;default:'unset';column:mentee_approval" json:"mentee_approval"`
	MentorApproval Approval   `gorm:"not null;default:'unset';column:mentor_approval" json:"mentor_approval"`
	MenteeLoggedAt *time.Time `gorm:"column:mentee_logged_at" json:"mentee_logged_at"`
	MentorLoggedAt *time.Time `gorm:"column:mentor_logged_at" json:"mentor_logged_at"`
	CreatedAt      time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Session) TableName() string {
	return "session"
}

// Confirmed reports whether both parties have approved the session.
func (s *Session) Confirmed() bool {
	return s.MenteeApproval == ApprovalApproved && s.MentorApproval == ApprovalApproved
}

// Rejected reports whether either party has explicitly rejected the session.
func (s *Session) Rejected() bool {
	return s.MenteeApproval == ApprovalRejected || s.MentorApproval == ApprovalRejected
}
