package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/olawanle/timebank-server/internal/models"
	"github.com/olawanle/timebank-server/internal/timebank"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// User repository methods

// CreateUser inserts the user together with its opening bonus ledger entry
// in one transaction. The bonus amount is the user's starting balance, so
// the ledger row cannot disagree with the balance.
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User, welcomeDescription string) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, wallet_address,
			token_balance, hours_earned, hours_spent, reputation_score, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.WalletAddress,
		user.TokenBalance, user.HoursEarned, user.HoursSpent, user.ReputationScore,
		user.IsAdmin, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			err = timebank.ErrAlreadyExists
		}
		return err
	}

	if user.TokenBalance > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO transactions (id, from_user_id, to_user_id, amount, transaction_type, service_id, description, timestamp)
			VALUES ($1, NULL, $2, $3, $4, NULL, $5, $6)`,
			uuid.New().String(), user.ID, user.TokenBalance,
			models.TransactionTypeBonus, welcomeDescription, user.CreatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT * FROM users WHERE id = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT * FROM users WHERE username = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT * FROM users WHERE email = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT * FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *PostgresRepository) GrantAdmin(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_admin = TRUE WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return timebank.ErrNotFound
	}
	return nil
}

// Service exchange repository methods

func (r *PostgresRepository) CreateService(ctx context.Context, svc *models.Service) error {
	if svc.ID == "" {
		svc.ID = uuid.New().String()
	}
	if svc.CreatedAt.IsZero() {
		svc.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO services (id, title, description, category, duration, status,
			service_type, provider_id, requester_id, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		svc.ID, svc.Title, svc.Description, svc.Category, svc.Duration, svc.Status,
		svc.ServiceType, svc.ProviderID, svc.RequesterID, svc.CreatedAt, svc.CompletedAt)

	return err
}

func (r *PostgresRepository) GetService(ctx context.Context, id string) (*models.Service, error) {
	var svc models.Service
	err := r.db.GetContext(ctx, &svc, `SELECT * FROM services WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Service not found
		}
		return nil, err
	}
	return &svc, nil
}

func (r *PostgresRepository) ListOpenRequests(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	err := r.db.SelectContext(ctx, &services, `
		SELECT * FROM services
		WHERE service_type = $1 AND status = $2
		ORDER BY created_at DESC`,
		models.ServiceTypeRequest, models.ServiceStatusPending)
	if err != nil {
		return nil, err
	}
	return services, nil
}

func (r *PostgresRepository) ListUserServices(ctx context.Context, userID string, limit int) ([]models.Service, error) {
	var services []models.Service
	err := r.db.SelectContext(ctx, &services, `
		SELECT * FROM services
		WHERE provider_id = $1 OR requester_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	return services, nil
}

func (r *PostgresRepository) ListServices(ctx context.Context, limit int) ([]models.Service, error) {
	var services []models.Service
	err := r.db.SelectContext(ctx, &services, `
		SELECT * FROM services ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return services, nil
}

// RecordCompletedService inserts an already-completed service and settles
// it in the same transaction. The whole write rolls back if the requester's
// balance no longer covers the duration.
func (r *PostgresRepository) RecordCompletedService(ctx context.Context, svc *models.Service) (*models.Transaction, error) {
	if svc.ID == "" {
		svc.ID = uuid.New().String()
	}
	if svc.CreatedAt.IsZero() {
		svc.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO services (id, title, description, category, duration, status,
			service_type, provider_id, requester_id, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		svc.ID, svc.Title, svc.Description, svc.Category, svc.Duration, svc.Status,
		svc.ServiceType, svc.ProviderID, svc.RequesterID, svc.CreatedAt, svc.CompletedAt)
	if err != nil {
		return nil, err
	}

	record, err := r.settleExchangeTx(ctx, tx, svc)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return record, nil
}

// AcceptServiceRequest moves a pending request to completed with the given
// provider and settles the exchange, all in one transaction. The
// pending->completed transition is a conditional update, so two concurrent
// acceptors cannot both win.
func (r *PostgresRepository) AcceptServiceRequest(ctx context.Context, serviceID, providerID string) (*models.Service, *models.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	now := time.Now().UTC()

	var svc models.Service
	err = tx.QueryRowxContext(ctx, `
		UPDATE services
		SET provider_id = $2, status = $3, completed_at = $4
		WHERE id = $1 AND status = $5
		RETURNING *`,
		serviceID, providerID, models.ServiceStatusCompleted, now,
		models.ServiceStatusPending).StructScan(&svc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = timebank.ErrInvalidState
		}
		return nil, nil, err
	}

	record, err := r.settleExchangeTx(ctx, tx, &svc)
	if err != nil {
		return nil, nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, err
	}

	return &svc, record, nil
}

// settleExchangeTx moves tokens for one completed service and appends the
// matching ledger entry. The amount is taken once from the service
// duration; the requester debit, provider credit, hour counters,
// reputation reward, and ledger row are all derived from it. The debit is
// conditional on the requester's current balance.
func (r *PostgresRepository) settleExchangeTx(ctx context.Context, tx *sqlx.Tx, svc *models.Service) (*models.Transaction, error) {
	amount := svc.Duration

	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET token_balance = token_balance - $1, hours_spent = hours_spent + $1
		WHERE id = $2 AND token_balance >= $1`,
		amount, *svc.RequesterID)
	if err != nil {
		return nil, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, timebank.ErrInsufficientBalance
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE users
		SET token_balance = token_balance + $1, hours_earned = hours_earned + $1,
			reputation_score = reputation_score + $2
		WHERE id = $3`,
		amount, models.ReputationReward, *svc.ProviderID)
	if err != nil {
		return nil, err
	}

	record := &models.Transaction{
		ID:          uuid.New().String(),
		FromUserID:  svc.RequesterID,
		ToUserID:    svc.ProviderID,
		Amount:      amount,
		Type:        models.TransactionTypeService,
		ServiceID:   &svc.ID,
		Description: "Service: " + svc.Title,
		Timestamp:   time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, from_user_id, to_user_id, amount, transaction_type, service_id, description, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID, record.FromUserID, record.ToUserID, record.Amount,
		record.Type, record.ServiceID, record.Description, record.Timestamp)
	if err != nil {
		return nil, err
	}

	return record, nil
}

// Ledger repository methods

func (r *PostgresRepository) ListUserTransactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.db.SelectContext(ctx, &transactions, `
		SELECT * FROM transactions
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *PostgresRepository) ListTransactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.db.SelectContext(ctx, &transactions, `
		SELECT * FROM transactions ORDER BY timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

// Governance repository methods

func (r *PostgresRepository) CreateProposal(ctx context.Context, proposal *models.Proposal) error {
	if proposal.ID == "" {
		proposal.ID = uuid.New().String()
	}
	if proposal.CreatedAt.IsZero() {
		proposal.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO proposals (id, title, description, proposer_id, status,
			votes_for, votes_against, created_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		proposal.ID, proposal.Title, proposal.Description, proposal.ProposerID,
		proposal.Status, proposal.VotesFor, proposal.VotesAgainst,
		proposal.CreatedAt, proposal.EndsAt)

	return err
}

func (r *PostgresRepository) GetProposal(ctx context.Context, id string) (*models.Proposal, error) {
	var proposal models.Proposal
	err := r.db.GetContext(ctx, &proposal, `SELECT * FROM proposals WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Proposal not found
		}
		return nil, err
	}
	return &proposal, nil
}

func (r *PostgresRepository) ListProposals(ctx context.Context) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := r.db.SelectContext(ctx, &proposals, `SELECT * FROM proposals ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return proposals, nil
}

// ResolveProposal finalizes a proposal. Only an active proposal can be
// resolved; resolving one that is already passed or rejected is a no-op.
func (r *PostgresRepository) ResolveProposal(ctx context.Context, proposalID string, status models.ProposalStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE proposals SET status = $2 WHERE id = $1 AND status = $3`,
		proposalID, status, models.ProposalStatusActive)
	return err
}

func (r *PostgresRepository) GetVote(ctx context.Context, proposalID, voterID string) (*models.Vote, error) {
	var vote models.Vote
	err := r.db.GetContext(ctx, &vote, `
		SELECT * FROM votes WHERE proposal_id = $1 AND voter_id = $2`,
		proposalID, voterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No vote yet
		}
		return nil, err
	}
	return &vote, nil
}

// CastVote appends the ballot and bumps the matching tally by exactly one
// in a single transaction. The tally update is conditional on the proposal
// still being active; the unique (proposal, voter) constraint rejects a
// concurrent duplicate ballot.
func (r *PostgresRepository) CastVote(ctx context.Context, vote *models.Vote) error {
	if vote.ID == "" {
		vote.ID = uuid.New().String()
	}
	if vote.Timestamp.IsZero() {
		vote.Timestamp = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	tallyColumn := "votes_for"
	if vote.VoteType == models.VoteAgainst {
		tallyColumn = "votes_against"
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE proposals SET `+tallyColumn+` = `+tallyColumn+` + 1
		WHERE id = $1 AND status = $2`,
		vote.ProposalID, models.ProposalStatusActive)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		err = timebank.ErrVotingEnded
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO votes (id, proposal_id, voter_id, vote_type, voting_power, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		vote.ID, vote.ProposalID, vote.VoterID, vote.VoteType,
		vote.VotingPower, vote.Timestamp)
	if err != nil {
		if isUniqueViolation(err) {
			err = timebank.ErrAlreadyVoted
		}
		return err
	}

	return tx.Commit()
}
