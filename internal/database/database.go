package database

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func Connect(dbURL string) (*sqlx.DB, error) {
	log.Println("🔌 Connecting to database...")

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Printf("❌ Database connection failed: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		log.Printf("❌ Database ping failed: %v", err)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ Database connection successful")
	return db, nil
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Admin users table
		`CREATE TABLE IF NOT EXISTS admin_users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('admin', 'manager', 'operator')),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			last_login BIGINT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Refresh tokens table
		`CREATE TABLE IF NOT EXISTS refresh_tokens (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			token_hash TEXT NOT NULL,
			expires_at BIGINT NOT NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES admin_users(id) ON DELETE CASCADE
		)`,

		// Bins table
		`CREATE TABLE IF NOT EXISTS bins (
			id TEXT PRIMARY KEY,
			bin_code TEXT NOT NULL UNIQUE,
			category TEXT NOT NULL CHECK(category IN ('metal', 'biodegradable', 'non-biodegradable', 'others')),
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			address TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active' CHECK(status IN ('active', 'inactive', 'maintenance', 'full', 'offline')),
			fill_level INT NOT NULL DEFAULT 0 CHECK(fill_level >= 0 AND fill_level <= 100),
			capacity INT NOT NULL DEFAULT 100,
			api_key TEXT NOT NULL UNIQUE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			last_emptied BIGINT,
			last_updated BIGINT NOT NULL,
			installed_at BIGINT NOT NULL,
			maintenance_frequency TEXT NOT NULL DEFAULT 'monthly',
			last_maintenance_at BIGINT,
			next_maintenance_at BIGINT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Commands table
		`CREATE TABLE IF NOT EXISTS commands (
			id TEXT PRIMARY KEY,
			bin_id TEXT NOT NULL,
			command_type TEXT NOT NULL CHECK(command_type IN ('empty', 'calibrate', 'restart', 'maintenance', 'test', 'reset')),
			status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'sent', 'executed', 'failed')),
			issued_by TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			parameters JSONB NOT NULL DEFAULT '{}',
			executed_at BIGINT,
			failure_reason TEXT,
			retry_count INT NOT NULL DEFAULT 0,
			max_retries INT NOT NULL DEFAULT 3,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (bin_id) REFERENCES bins(id) ON DELETE CASCADE
		)`,

		// Alerts table
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			bin_id TEXT NOT NULL,
			alert_type TEXT NOT NULL,
			severity TEXT NOT NULL CHECK(severity IN ('low', 'medium', 'high', 'critical')),
			message TEXT NOT NULL,
			is_resolved BOOLEAN NOT NULL DEFAULT FALSE,
			resolved_at BIGINT,
			resolved_by TEXT,
			resolution_notes TEXT,
			action_taken TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (bin_id) REFERENCES bins(id) ON DELETE CASCADE
		)`,

		// Image records table
		`CREATE TABLE IF NOT EXISTS image_records (
			id TEXT PRIMARY KEY,
			bin_id TEXT NOT NULL,
			image_url TEXT NOT NULL,
			predicted_category TEXT,
			actual_category TEXT,
			confidence INT CHECK(confidence >= 0 AND confidence <= 100),
			is_verified BOOLEAN NOT NULL DEFAULT FALSE,
			verified_by TEXT,
			verification_notes TEXT,
			captured_at BIGINT NOT NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (bin_id) REFERENCES bins(id) ON DELETE CASCADE
		)`,

		// Workers table
		`CREATE TABLE IF NOT EXISTS workers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			phone TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL CHECK(role IN ('collector', 'maintenance', 'supervisor')),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			join_date BIGINT NOT NULL,
			address TEXT,
			performance_rating DECIMAL(3,1) NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Worker bin assignments
		`CREATE TABLE IF NOT EXISTS worker_bins (
			id SERIAL PRIMARY KEY,
			worker_id TEXT NOT NULL,
			bin_id TEXT NOT NULL,
			FOREIGN KEY (worker_id) REFERENCES workers(id) ON DELETE CASCADE,
			FOREIGN KEY (bin_id) REFERENCES bins(id) ON DELETE CASCADE,
			UNIQUE (worker_id, bin_id)
		)`,

		// Maintenance logs table
		`CREATE TABLE IF NOT EXISTS maintenance_logs (
			id TEXT PRIMARY KEY,
			bin_id TEXT NOT NULL,
			worker_id TEXT,
			status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'in-progress', 'completed', 'cancelled')),
			maintenance_type TEXT NOT NULL CHECK(maintenance_type IN ('cleaning', 'repair', 'replacement', 'inspection')),
			description TEXT NOT NULL,
			start_date BIGINT NOT NULL,
			completion_date BIGINT,
			estimated_duration INT,
			notes TEXT,
			cost DECIMAL(10,2) NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (bin_id) REFERENCES bins(id) ON DELETE CASCADE,
			FOREIGN KEY (worker_id) REFERENCES workers(id) ON DELETE SET NULL
		)`,

		// Feedback table
		`CREATE TABLE IF NOT EXISTS feedback (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			subject TEXT NOT NULL,
			message TEXT NOT NULL,
			rating INT CHECK(rating >= 1 AND rating <= 5),
			category TEXT NOT NULL CHECK(category IN ('bug', 'feature-request', 'general', 'complaint')),
			status TEXT NOT NULL DEFAULT 'new' CHECK(status IN ('new', 'reviewed', 'resolved')),
			reviewed_by TEXT,
			review_notes TEXT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_admin_users_email ON admin_users(email)`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON refresh_tokens(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bins_bin_code ON bins(bin_code)`,
		`CREATE INDEX IF NOT EXISTS idx_bins_status ON bins(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bins_last_updated ON bins(last_updated)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bins_api_key ON bins(api_key)`,
		`CREATE INDEX IF NOT EXISTS idx_commands_bin_id ON commands(bin_id)`,
		`CREATE INDEX IF NOT EXISTS idx_commands_status ON commands(status)`,
		`CREATE INDEX IF NOT EXISTS idx_commands_bin_status_created ON commands(bin_id, status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_bin_id ON alerts(bin_id)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_image_records_bin_id ON image_records(bin_id)`,
		`CREATE INDEX IF NOT EXISTS idx_image_records_created_at ON image_records(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_maintenance_logs_bin_id ON maintenance_logs(bin_id)`,
		`CREATE INDEX IF NOT EXISTS idx_maintenance_logs_worker_id ON maintenance_logs(worker_id)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_status ON feedback(status)`,

		// One open alert per (bin, type); the detector relies on this
		// holding even when two sweeps race.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_open_bin_type
			ON alerts(bin_id, alert_type) WHERE NOT is_resolved`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	log.Println("✓ Database migrations completed")
	return nil
}
