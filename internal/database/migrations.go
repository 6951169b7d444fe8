package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/taskboard-api/internal/models"
	"gorm.io/gorm"
)

// compositeIndexes are the listing and statistics access paths not covered by
// single-column tags on the models.
var compositeIndexes = []struct {
	model   any
	table   string
	name    string
	columns string
}{
	{&models.Task{}, "tasks", "idx_tasks_creator_status", "created_by_id, status"},
	{&models.Task{}, "tasks", "idx_tasks_assignee_status", "assigned_to_id, status"},
	{&models.Task{}, "tasks", "idx_tasks_archived_due", "is_archived, due_date"},
	{&models.TaskComment{}, "task_comments", "idx_task_comments_task_created", "task_id, created_at"},
}

// Migrate creates or updates the relational schema.
func Migrate(db *gorm.DB, log logrus.FieldLogger) error {
	log.Info("Running database migrations...")
	err := db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.TaskComment{},
		&models.TaskTimeLog{},
		&models.TaskAttachment{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := AddIndexes(db, log); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	log.Info("Database migrations completed")
	return nil
}

// AddIndexes adds the composite indexes, skipping any that already exist.
func AddIndexes(db *gorm.DB, log logrus.FieldLogger) error {
	migrator := db.Migrator()
	for _, idx := range compositeIndexes {
		if migrator.HasIndex(idx.model, idx.name) {
			log.WithField("index", idx.name).Debug("Index already exists, skipping")
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
		log.WithFields(logrus.Fields{"index": idx.name, "table": idx.table}).Info("Created index")
	}
	return nil
}
