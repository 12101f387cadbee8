package models

import "time"

type Project struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	Files     []File    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
