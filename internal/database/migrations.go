package database

import (
	"launchpad_go_backend/internal/models"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func GetMigrator(db *gorm.DB) *gormigrate.Gormigrate {
	migrator := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			// Message listing walks (conversation_id, created_at); older databases only had
			// the single-column index.
			ID: "202410-messages-conversation-created-index",
			Migrate: func(tx *gorm.DB) error {
				if tx.Migrator().HasIndex(&models.Message{}, "idx_messages_conversation_created") {
					return nil
				}
				return tx.Migrator().CreateIndex(&models.Message{}, "idx_messages_conversation_created")
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropIndex(&models.Message{}, "idx_messages_conversation_created")
			},
		},
	})

	migrator.InitSchema(func(tx *gorm.DB) error {
		// Runs only against an empty database and creates the latest schema in one go.
		log.Info().Msg("clean database detected, running full schema initialization")

		return tx.AutoMigrate(&models.User{}, &models.Conversation{}, &models.Message{})
	})

	return migrator
}

func Migrate(db *gorm.DB) error {
	return GetMigrator(db).Migrate()
}
