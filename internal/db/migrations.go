package db

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/Aadithya-J/code_nest/services/editor-service/internal/models"
)

func Migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "20250827_create_projects_table",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Project{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("projects")
			},
		},
		{
			// files.project_id references projects.id with ON DELETE CASCADE and
			// (project_id, path) is unique.
			ID: "20250827_create_files_table",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Project{}, &models.File{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("files")
			},
		},
	}
}

// Migrate applies pending migrations. Already applied ids are skipped, so it is
// safe to call on every start and from the init endpoint.
func Migrate(gdb *gorm.DB) error {
	m := gormigrate.New(gdb, gormigrate.DefaultOptions, Migrations())
	return m.Migrate()
}
