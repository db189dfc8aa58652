package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Rating struct {
	ID        uuid.UUID                          `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID                          `gorm:"type:uuid;not null;uniqueIndex:idx_rating_session_user;column:session_id" json:"session_id"`
	UserID    uuid.UUID                          `gorm:"type:uuid;not null;uniqueIndex:idx_rating_session_user;column:user_id" json:"user_id"`
	Values    datatypes.JSONType[map[string]int] `gorm:"not null;column:values" json:"values"`
	Scale     int                                `gorm:"not null;column:scale" json:"scale"`
	CreatedAt time.Time                          `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time                          `gorm:"not null;default:now()" json:"updated_at"`
}

func (Rating) TableName() string {
	return "rating"
}

// RatingSummary is the aggregated view of a user's received ratings.
type RatingSummary struct {
	AverageRating       float64 `json:"average_rating"`
	AverageMentorRating float64 `json:"average_mentor_rating"`
	AverageMenteeRating float64 `json:"average_mentee_rating"`
	TotalRatings        int     `json:"total_ratings"`
}
