package database

import (
	"path/filepath"
	"testing"

	"github.com/citadel-pow/pow-bot/internal/posts"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsBackfillsEmptyReactions(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&posts.DiscordPost{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	legacy := "INSERT INTO discord_posts (id, message_id, channel_id, donation_mode, reaction_count, reactions, created_at_s, updated_at_s) VALUES (?, ?, ?, ?, ?, NULL, ?, ?)"
	if err := database.Exec(legacy, "post-1", "m-1", "chan-1", "pow-writing", 0, 1700000000, 1700000000).Error; err != nil {
		testContext.Fatalf("failed to insert legacy post: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var raw string
	if err := database.Raw("SELECT reactions FROM discord_posts WHERE message_id = ?", "m-1").Scan(&raw).Error; err != nil {
		testContext.Fatalf("failed to reload post: %v", err)
	}
	if raw != "{}" {
		testContext.Fatalf("expected reactions to be backfilled, got %q", raw)
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationBackfillEmptyReactions).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("expected re-run to be a no-op: %v", err)
	}
	var count int64
	if err := database.Model(&migrationRecord{}).Count(&count).Error; err != nil {
		testContext.Fatalf("failed to count migrations: %v", err)
	}
	if count != 1 {
		testContext.Fatalf("expected a single migration record, got %d", count)
	}
}

func TestOpenSQLiteMigratesSchema(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "open.db")

	database, err := OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("OpenSQLite: %v", err)
	}
	if !database.Migrator().HasTable(&posts.DiscordPost{}) {
		testContext.Fatalf("expected discord_posts table")
	}
	if !database.Migrator().HasTable(&migrationRecord{}) {
		testContext.Fatalf("expected db_migrations table")
	}

	if _, err := OpenSQLite("", nil); err == nil {
		testContext.Fatalf("expected error for empty path")
	}
}
