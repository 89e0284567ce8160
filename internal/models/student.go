package models

import (
	"time"

	"github.com/google/uuid"
)

type Student struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SchoolID  uuid.UUID `gorm:"type:uuid;index" json:"school_id"`
	FullName  string    `gorm:"index" json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}
