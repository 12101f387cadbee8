package models

import "time"

type File struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	ProjectID string    `gorm:"type:uuid;not null;uniqueIndex:idx_files_project_path,priority:1" json:"project_id"`
	Path      string    `gorm:"type:text;not null;uniqueIndex:idx_files_project_path,priority:2" json:"path"`
	Content   string    `gorm:"type:text;not null;default:''" json:"content"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// FileEntry is a path/content pair as supplied by a bulk replace or read back
// for an archive export.
type FileEntry struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// FileRef locates a file without its content.
type FileRef struct {
	ID   string
	Path string
}
