package config

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/olawanle/timebank-server/internal/models"
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	// Seed the admin account on first run
	if err := seedAdminUser(db, cfg.Auth.AdminPassword); err != nil {
		return nil, fmt.Errorf("failed to seed admin user: %w", err)
	}

	return db, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sqlx.DB) error {
	// Create users table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			username VARCHAR(80) UNIQUE NOT NULL,
			email VARCHAR(120) UNIQUE NOT NULL,
			password_hash VARCHAR(200) NOT NULL,
			wallet_address VARCHAR(42) UNIQUE NOT NULL,
			token_balance DOUBLE PRECISION NOT NULL DEFAULT 10.0,
			hours_earned DOUBLE PRECISION NOT NULL DEFAULT 0.0,
			hours_spent DOUBLE PRECISION NOT NULL DEFAULT 0.0,
			reputation_score DOUBLE PRECISION NOT NULL DEFAULT 5.0,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create services table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS services (
			id VARCHAR(36) PRIMARY KEY,
			title VARCHAR(200) NOT NULL,
			description TEXT NOT NULL,
			category VARCHAR(50) NOT NULL,
			duration DOUBLE PRECISION NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			service_type VARCHAR(20) NOT NULL,
			provider_id VARCHAR(36) REFERENCES users(id),
			requester_id VARCHAR(36) REFERENCES users(id),
			created_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	// Create transactions table (append-only ledger)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id VARCHAR(36) PRIMARY KEY,
			from_user_id VARCHAR(36) REFERENCES users(id),
			to_user_id VARCHAR(36) REFERENCES users(id),
			amount DOUBLE PRECISION NOT NULL,
			transaction_type VARCHAR(50) NOT NULL,
			service_id VARCHAR(36) REFERENCES services(id),
			description VARCHAR(200) NOT NULL,
			timestamp TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create proposals table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS proposals (
			id VARCHAR(36) PRIMARY KEY,
			title VARCHAR(200) NOT NULL,
			description TEXT NOT NULL,
			proposer_id VARCHAR(36) NOT NULL REFERENCES users(id),
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			votes_for INTEGER NOT NULL DEFAULT 0,
			votes_against INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			ends_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create votes table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS votes (
			id VARCHAR(36) PRIMARY KEY,
			proposal_id VARCHAR(36) NOT NULL REFERENCES proposals(id),
			voter_id VARCHAR(36) NOT NULL REFERENCES users(id),
			vote_type VARCHAR(10) NOT NULL,
			voting_power DOUBLE PRECISION NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			UNIQUE (proposal_id, voter_id)
		)
	`)
	if err != nil {
		return err
	}

	// Create indexes for better performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_transactions_from_user ON transactions(from_user_id)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_to_user ON transactions(to_user_id)",
		"CREATE INDEX IF NOT EXISTS idx_services_status_type ON services(status, service_type)",
		"CREATE INDEX IF NOT EXISTS idx_votes_proposal ON votes(proposal_id)",
	}

	for _, idx := range indexes {
		_, err = db.Exec(idx)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to create index")
			// Don't return error here, indexes are not critical
		}
	}

	return nil
}

// seedAdminUser creates the administrator account with its opening ledger
// entry when the database is empty.
func seedAdminUser(db *sqlx.DB, password string) error {
	var existingID string
	err := db.Get(&existingID, `SELECT id FROM users WHERE username = 'admin'`)
	if err == nil {
		log.Debug().Str("userId", existingID).Msg("Admin user already exists")
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	adminID := uuid.New().String()
	now := time.Now().UTC()
	const adminBalance = 1000.0

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec(`
		INSERT INTO users (id, username, email, password_hash, wallet_address,
			token_balance, hours_earned, hours_spent, reputation_score, is_admin, created_at)
		VALUES ($1, 'admin', 'admin@timebank.com', $2, $3, $4, 0, 0, $5, TRUE, $6)`,
		adminID, string(hash), models.NewWalletAddress(), adminBalance, models.StartingReputation, now)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO transactions (id, from_user_id, to_user_id, amount, transaction_type, service_id, description, timestamp)
		VALUES ($1, NULL, $2, $3, $4, NULL, 'Admin account initialization - 1000 tokens', $5)`,
		uuid.New().String(), adminID, adminBalance, models.TransactionTypeBonus, now)
	if err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	log.Info().Str("userId", adminID).Msg("Admin user created")
	return nil
}
