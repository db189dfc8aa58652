package types

import (
	"time"

	"github.com/google/uuid"
)

// SessionFile is the metadata row for an attachment stored in the bucket.
// GeneratedName is the object key; the bytes themselves never touch postgres.
type SessionFile struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID     uuid.UUID `gorm:"type:uuid;not null;index;column:session_id" json:"session_id"`
	UploadedByID  uuid.UUID `gorm:"type:uuid;not null;column:uploaded_by_id" json:"uploaded_by_id"`
	GeneratedName string    `gorm:"uniqueIndex;not null;column:generated_name" json:"generated_name"`
	Name          string    `gorm:"not null;column:name" json:"name"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (SessionFile) TableName() string {
	return "session_file"
}
