package models

import "time"

// Blob is one whole-file buffer stored by the sqlite storage backend.
type Blob struct {
	Key       string    `gorm:"primaryKey;column:blob_key" json:"key"`
	Data      []byte    `gorm:"not null" json:"-"`
	Size      int       `gorm:"not null;default:0" json:"size"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`
}
