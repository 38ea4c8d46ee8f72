package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/olawanle/timebank-server/internal/models"
	"github.com/olawanle/timebank-server/internal/timebank"
)

// MemoryRepository is an in-memory Repository used by the test suite. It
// mirrors the PostgresRepository semantics statement for statement: guarded
// writes reject without partial effects, and list methods return newest
// first.
type MemoryRepository struct {
	mu sync.Mutex

	users     map[string]*models.User
	userOrder []string
	services  map[string]*models.Service
	svcOrder  []string
	ledger    []models.Transaction
	proposals map[string]*models.Proposal
	propOrder []string
	votes     map[string]map[string]*models.Vote // proposal id -> voter id
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:     make(map[string]*models.User),
		services:  make(map[string]*models.Service),
		proposals: make(map[string]*models.Proposal),
		votes:     make(map[string]map[string]*models.Vote),
	}
}

// User repository methods

func (r *MemoryRepository) CreateUser(ctx context.Context, user *models.User, welcomeDescription string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return timebank.ErrAlreadyExists
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	stored := *user
	r.users[stored.ID] = &stored
	r.userOrder = append(r.userOrder, stored.ID)

	if stored.TokenBalance > 0 {
		r.ledger = append(r.ledger, models.Transaction{
			ID:          uuid.New().String(),
			ToUserID:    &stored.ID,
			Amount:      stored.TokenBalance,
			Type:        models.TransactionTypeBonus,
			Description: welcomeDescription,
			Timestamp:   stored.CreatedAt,
		})
	}

	return nil
}

func (r *MemoryRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (r *MemoryRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]models.User, 0, len(r.userOrder))
	for i := len(r.userOrder) - 1; i >= 0; i-- {
		users = append(users, *r.users[r.userOrder[i]])
	}
	return users, nil
}

func (r *MemoryRepository) GrantAdmin(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return timebank.ErrNotFound
	}
	u.IsAdmin = true
	return nil
}

// Service exchange repository methods

func (r *MemoryRepository) CreateService(ctx context.Context, svc *models.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if svc.ID == "" {
		svc.ID = uuid.New().String()
	}
	if svc.CreatedAt.IsZero() {
		svc.CreatedAt = time.Now().UTC()
	}

	stored := *svc
	r.services[stored.ID] = &stored
	r.svcOrder = append(r.svcOrder, stored.ID)
	return nil
}

func (r *MemoryRepository) GetService(ctx context.Context, id string) (*models.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.services[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, nil
}

func (r *MemoryRepository) ListOpenRequests(ctx context.Context) ([]models.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	services := []models.Service{}
	for i := len(r.svcOrder) - 1; i >= 0; i-- {
		s := r.services[r.svcOrder[i]]
		if s.ServiceType == models.ServiceTypeRequest && s.Status == models.ServiceStatusPending {
			services = append(services, *s)
		}
	}
	return services, nil
}

func (r *MemoryRepository) ListUserServices(ctx context.Context, userID string, limit int) ([]models.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	services := []models.Service{}
	for i := len(r.svcOrder) - 1; i >= 0 && len(services) < limit; i-- {
		s := r.services[r.svcOrder[i]]
		if (s.ProviderID != nil && *s.ProviderID == userID) ||
			(s.RequesterID != nil && *s.RequesterID == userID) {
			services = append(services, *s)
		}
	}
	return services, nil
}

func (r *MemoryRepository) ListServices(ctx context.Context, limit int) ([]models.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	services := []models.Service{}
	for i := len(r.svcOrder) - 1; i >= 0 && len(services) < limit; i-- {
		services = append(services, *r.services[r.svcOrder[i]])
	}
	return services, nil
}

func (r *MemoryRepository) RecordCompletedService(ctx context.Context, svc *models.Service) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if svc.ID == "" {
		svc.ID = uuid.New().String()
	}
	if svc.CreatedAt.IsZero() {
		svc.CreatedAt = time.Now().UTC()
	}

	// Settle before inserting so a rejection leaves no service row behind.
	record, err := r.settleExchange(svc)
	if err != nil {
		return nil, err
	}

	stored := *svc
	r.services[stored.ID] = &stored
	r.svcOrder = append(r.svcOrder, stored.ID)
	return record, nil
}

func (r *MemoryRepository) AcceptServiceRequest(ctx context.Context, serviceID, providerID string) (*models.Service, *models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.services[serviceID]
	if !ok || s.Status != models.ServiceStatusPending {
		return nil, nil, timebank.ErrInvalidState
	}

	requester := r.users[*s.RequesterID]
	if requester == nil || requester.TokenBalance < s.Duration {
		return nil, nil, timebank.ErrInsufficientBalance
	}

	now := time.Now().UTC()
	s.ProviderID = &providerID
	s.Status = models.ServiceStatusCompleted
	s.CompletedAt = &now

	record, err := r.settleExchange(s)
	if err != nil {
		return nil, nil, err
	}

	copied := *s
	return &copied, record, nil
}

// settleExchange is the in-memory twin of settleExchangeTx: every delta and
// the ledger row derive from the service duration. Callers hold the lock.
func (r *MemoryRepository) settleExchange(svc *models.Service) (*models.Transaction, error) {
	amount := svc.Duration

	requester, ok := r.users[*svc.RequesterID]
	if !ok || requester.TokenBalance < amount {
		return nil, timebank.ErrInsufficientBalance
	}
	provider := r.users[*svc.ProviderID]

	requester.TokenBalance -= amount
	requester.HoursSpent += amount
	provider.TokenBalance += amount
	provider.HoursEarned += amount
	provider.ReputationScore += models.ReputationReward

	record := models.Transaction{
		ID:          uuid.New().String(),
		FromUserID:  svc.RequesterID,
		ToUserID:    svc.ProviderID,
		Amount:      amount,
		Type:        models.TransactionTypeService,
		ServiceID:   &svc.ID,
		Description: "Service: " + svc.Title,
		Timestamp:   time.Now().UTC(),
	}
	r.ledger = append(r.ledger, record)
	return &record, nil
}

// Ledger repository methods

func (r *MemoryRepository) ListUserTransactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	transactions := []models.Transaction{}
	for i := len(r.ledger) - 1; i >= 0 && len(transactions) < limit; i-- {
		t := r.ledger[i]
		if (t.FromUserID != nil && *t.FromUserID == userID) ||
			(t.ToUserID != nil && *t.ToUserID == userID) {
			transactions = append(transactions, t)
		}
	}
	return transactions, nil
}

func (r *MemoryRepository) ListTransactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	transactions := []models.Transaction{}
	for i := len(r.ledger) - 1; i >= 0 && len(transactions) < limit; i-- {
		transactions = append(transactions, r.ledger[i])
	}
	return transactions, nil
}

// Governance repository methods

func (r *MemoryRepository) CreateProposal(ctx context.Context, proposal *models.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if proposal.ID == "" {
		proposal.ID = uuid.New().String()
	}
	if proposal.CreatedAt.IsZero() {
		proposal.CreatedAt = time.Now().UTC()
	}

	stored := *proposal
	r.proposals[stored.ID] = &stored
	r.propOrder = append(r.propOrder, stored.ID)
	return nil
}

func (r *MemoryRepository) GetProposal(ctx context.Context, id string) (*models.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.proposals[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, nil
}

func (r *MemoryRepository) ListProposals(ctx context.Context) ([]models.Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	proposals := make([]models.Proposal, 0, len(r.propOrder))
	for i := len(r.propOrder) - 1; i >= 0; i-- {
		proposals = append(proposals, *r.proposals[r.propOrder[i]])
	}
	return proposals, nil
}

func (r *MemoryRepository) ResolveProposal(ctx context.Context, proposalID string, status models.ProposalStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.proposals[proposalID]
	if !ok || p.Status != models.ProposalStatusActive {
		return nil // already resolved, no-op
	}
	p.Status = status
	return nil
}

func (r *MemoryRepository) GetVote(ctx context.Context, proposalID, voterID string) (*models.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if byVoter, ok := r.votes[proposalID]; ok {
		if v, ok := byVoter[voterID]; ok {
			copied := *v
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) CastVote(ctx context.Context, vote *models.Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.proposals[vote.ProposalID]
	if !ok || p.Status != models.ProposalStatusActive {
		return timebank.ErrVotingEnded
	}
	if _, voted := r.votes[vote.ProposalID][vote.VoterID]; voted {
		return timebank.ErrAlreadyVoted
	}

	if vote.ID == "" {
		vote.ID = uuid.New().String()
	}
	if vote.Timestamp.IsZero() {
		vote.Timestamp = time.Now().UTC()
	}

	if vote.VoteType == models.VoteAgainst {
		p.VotesAgainst++
	} else {
		p.VotesFor++
	}

	stored := *vote
	if r.votes[vote.ProposalID] == nil {
		r.votes[vote.ProposalID] = make(map[string]*models.Vote)
	}
	r.votes[vote.ProposalID][vote.VoterID] = &stored
	return nil
}
