package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RequestStatus string

const (
	RequestStatusOpen      RequestStatus = "open"
	RequestStatusMatched   RequestStatus = "matched"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// Pairing is the recurring schedule of a request: which weekdays the pair
// meets, at what times, and in which timezone the dates are computed.
type Pairing struct {
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Days      []string `json:"days"`
	Timezone  string   `json:"timezone"`
}

type MentorshipRequest struct {
	ID                 uuid.UUID                     `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedByID        uuid.UUID                     `gorm:"type:uuid;not null;index;column:created_by_id" json:"created_by_id"`
	MentorID           *uuid.UUID                    `gorm:"type:uuid;index;column:mentor_id" json:"mentor_id"`
	MenteeID           *uuid.UUID                    `gorm:"type:uuid;index;column:mentee_id" json:"mentee_id"`
	Title              string                        `gorm:"not null;column:title" json:"title"`
	Description        string                        `gorm:"type:text;column:description" json:"description"`
	Status             RequestStatus                 `gorm:"not null;default:'open';index;column:status" json:"status"`
	MatchDate          *time.Time                    `gorm:"column:match_date" json:"match_date"`
	Duration           float64                       `gorm:"not null;column:duration" json:"duration"`
	Pairing            datatypes.JSONType[Pairing]   `gorm:"column:pairing" json:"pairing"`
	Interested         datatypes.JSONSlice[uuid.UUID] `gorm:"column:interested" json:"interested"`
	CancellationReason string                        `gorm:"column:cancellation_reason" json:"cancellation_reason,omitempty"`
	Sessions           []Session                     `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"sessions,omitempty"`
	CreatedAt          time.Time                     `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time                     `gorm:"not null;default:now()" json:"updated_at"`
}

func (MentorshipRequest) TableName() string {
	return "mentorship_request"
}

// IsParty reports whether the given user is the request's mentor or mentee.
func (r *MentorshipRequest) IsParty(userID uuid.UUID) bool {
	if r.MentorID != nil && *r.MentorID == userID {
		return true
	}
	if r.MenteeID != nil && *r.MenteeID == userID {
		return true
	}
	return false
}

// ExpiresAt is the calendar point at which a matched request is considered
// complete: match date plus the requested duration in months, fractional
// months counted as whole days.
func (r *MentorshipRequest) ExpiresAt() *time.Time {
	if r.MatchDate == nil {
		return nil
	}
	whole := int(r.Duration)
	fractionDays := int((r.Duration - float64(whole)) * 30)
	t := r.MatchDate.AddDate(0, whole, fractionDays)
	return &t
}
