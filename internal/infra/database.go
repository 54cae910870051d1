package infra

import (
	"fmt"

	"queuedesk/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies the idempotent SQL patches that GORM
// cannot express (partial unique indexes, seed rows).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// RunMigrations creates the schema. Also used by the integration harness
// against a throwaway database.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.QueueEntry{},
		&model.Transaction{},
		&model.Settlement{},
		&model.DailyArchive{},
		&model.ResetLog{},
		&model.TokenCounter{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot express.
// Each statement uses IF NOT EXISTS / DO NOTHING semantics so re-running on
// an already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// One active entry per counter, enforced at the storage layer as well
		// as by the row-lock check in the call path. Partial: terminal rows
		// release the counter.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_queue_entries_counter_active') THEN
		    CREATE UNIQUE INDEX idx_queue_entries_counter_active
		        ON queue_entries (counter_id)
		        WHERE status IN ('serving', 'processing') AND counter_id IS NOT NULL;
		  END IF;
		END $$`,
		// Token numbers are unique per business day, not globally.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_queue_entries_token_per_day') THEN
		    CREATE UNIQUE INDEX idx_queue_entries_token_per_day
		        ON queue_entries (business_date, token_number);
		  END IF;
		END $$`,
		// Partial index backing the active-queue listing and the reset sweep.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_queue_entries_open') THEN
		    CREATE INDEX idx_queue_entries_open
		        ON queue_entries (status, manual_position, priority_score, created_at)
		        WHERE status IN ('waiting', 'serving', 'processing');
		  END IF;
		END $$`,
		// Seed the token counter singleton so the first registration can
		// increment instead of special-casing an empty table.
		`INSERT INTO token_counters (id, last_value, updated_at)
		 VALUES (1, 0, NOW())
		 ON CONFLICT (id) DO NOTHING`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
