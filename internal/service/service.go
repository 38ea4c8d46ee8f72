package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/olawanle/timebank-server/internal/models"
	"github.com/olawanle/timebank-server/internal/repository"
	"github.com/olawanle/timebank-server/internal/timebank"
)

const (
	welcomeBonusDescription = "Welcome bonus - 10 time tokens!"
	defaultProposalDays     = 7
	recentActivityLimit     = 10
	adminOverviewLimit      = 50
)

// Service defines all the business logic operations
type Service interface {
	// Authentication
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)

	// Account ledger
	Dashboard(ctx context.Context, userID string) (*models.DashboardResponse, error)

	// Service exchange
	RecordOffer(ctx context.Context, userID string, req models.OfferServiceRequest) (*models.ServiceResponse, error)
	PostRequest(ctx context.Context, userID string, req models.RequestServiceRequest) (*models.ServiceResponse, error)
	AcceptRequest(ctx context.Context, userID, serviceID string) (*models.ServiceResponse, error)
	Marketplace(ctx context.Context) (*models.MarketplaceResponse, error)

	// Governance
	CreateProposal(ctx context.Context, userID string, req models.CreateProposalRequest) (*models.ProposalResponse, error)
	CastVote(ctx context.Context, userID, proposalID string, req models.CastVoteRequest) (*models.VoteResponse, error)
	ListProposals(ctx context.Context) (*models.ProposalListResponse, error)

	// Administration
	AdminOverview(ctx context.Context, userID string) (*models.AdminOverviewResponse, error)
	MakeAdmin(ctx context.Context, actingUserID, targetUserID string) (*models.MessageResponse, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo          repository.Repository
	jwtSecret     []byte
	tokenDuration time.Duration
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, jwtSecret string) Service {
	return &DefaultService{
		repo:          repo,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: 24 * time.Hour, // 24 hours token validity
	}
}

// Authentication methods

func (s *DefaultService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	existing, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("error checking username: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("username: %w", timebank.ErrAlreadyExists)
	}

	existing, err = s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error checking email: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("email: %w", timebank.ErrAlreadyExists)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		ID:              uuid.New().String(),
		Username:        req.Username,
		Email:           req.Email,
		PasswordHash:    string(hashedPassword),
		WalletAddress:   models.NewWalletAddress(),
		TokenBalance:    models.WelcomeBonus,
		ReputationScore: models.StartingReputation,
	}

	if err := s.repo.CreateUser(ctx, user, welcomeBonusDescription); err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return &models.AuthResponse{
		Status:        "success",
		UserID:        user.ID,
		Username:      user.Username,
		Email:         user.Email,
		WalletAddress: user.WalletAddress,
	}, nil
}

func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if user == nil {
		return nil, timebank.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, timebank.ErrInvalidCredentials
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.AuthResponse{
		Status:    "success",
		UserID:    user.ID,
		Username:  user.Username,
		Token:     token,
		ExpiresIn: int(s.tokenDuration.Seconds()),
	}, nil
}

// Account ledger methods

func (s *DefaultService) Dashboard(ctx context.Context, userID string) (*models.DashboardResponse, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user: %w", timebank.ErrNotFound)
	}

	transactions, err := s.repo.ListUserTransactions(ctx, userID, recentActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("error listing transactions: %w", err)
	}

	services, err := s.repo.ListUserServices(ctx, userID, recentActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("error listing services: %w", err)
	}

	return &models.DashboardResponse{
		Status:       "success",
		User:         *user,
		Transactions: transactions,
		Services:     services,
	}, nil
}

// Service exchange methods

// RecordOffer records a service the acting user already performed for the
// named requester: the service row is created completed and settled
// immediately.
func (s *DefaultService) RecordOffer(ctx context.Context, userID string, req models.OfferServiceRequest) (*models.ServiceResponse, error) {
	requester, err := s.repo.GetUserByUsername(ctx, req.RequesterUsername)
	if err != nil {
		return nil, fmt.Errorf("error getting requester: %w", err)
	}
	if requester == nil {
		return nil, fmt.Errorf("requester %q: %w", req.RequesterUsername, timebank.ErrNotFound)
	}

	if requester.TokenBalance < req.Duration {
		return nil, fmt.Errorf("requester: %w", timebank.ErrInsufficientBalance)
	}

	now := time.Now().UTC()
	svc := &models.Service{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Duration:    req.Duration,
		Status:      models.ServiceStatusCompleted,
		ServiceType: models.ServiceTypeOffer,
		ProviderID:  &userID,
		RequesterID: &requester.ID,
		CreatedAt:   now,
		CompletedAt: &now,
	}

	if _, err := s.repo.RecordCompletedService(ctx, svc); err != nil {
		return nil, fmt.Errorf("error recording service: %w", err)
	}

	return &models.ServiceResponse{
		Status:       "success",
		ServiceID:    svc.ID,
		ServiceState: string(svc.Status),
		Duration:     svc.Duration,
		Message:      fmt.Sprintf("Service recorded! You earned %g tokens", svc.Duration),
	}, nil
}

// PostRequest posts a pending request for help. The balance is checked at
// posting time only; acceptance re-checks against the balance current at
// that moment.
func (s *DefaultService) PostRequest(ctx context.Context, userID string, req models.RequestServiceRequest) (*models.ServiceResponse, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user: %w", timebank.ErrNotFound)
	}

	if user.TokenBalance < req.Duration {
		return nil, timebank.ErrInsufficientBalance
	}

	svc := &models.Service{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Duration:    req.Duration,
		Status:      models.ServiceStatusPending,
		ServiceType: models.ServiceTypeRequest,
		RequesterID: &user.ID,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.CreateService(ctx, svc); err != nil {
		return nil, fmt.Errorf("error creating service request: %w", err)
	}

	return &models.ServiceResponse{
		Status:       "success",
		ServiceID:    svc.ID,
		ServiceState: string(svc.Status),
		Duration:     svc.Duration,
		Message:      "Service request posted! Waiting for a provider",
	}, nil
}

// AcceptRequest lets the acting user accept a pending request; the
// pending->completed transition and the settlement are one atomic write.
func (s *DefaultService) AcceptRequest(ctx context.Context, userID, serviceID string) (*models.ServiceResponse, error) {
	svc, err := s.repo.GetService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("error getting service: %w", err)
	}
	if svc == nil {
		return nil, fmt.Errorf("service: %w", timebank.ErrNotFound)
	}

	if !svc.Status.CanTransitionTo(models.ServiceStatusCompleted) {
		return nil, fmt.Errorf("service: %w", timebank.ErrInvalidState)
	}

	accepted, _, err := s.repo.AcceptServiceRequest(ctx, serviceID, userID)
	if err != nil {
		return nil, fmt.Errorf("error accepting service: %w", err)
	}

	return &models.ServiceResponse{
		Status:       "success",
		ServiceID:    accepted.ID,
		ServiceState: string(accepted.Status),
		Duration:     accepted.Duration,
		Message:      fmt.Sprintf("Service accepted! You earned %g tokens", accepted.Duration),
	}, nil
}

func (s *DefaultService) Marketplace(ctx context.Context) (*models.MarketplaceResponse, error) {
	services, err := s.repo.ListOpenRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing open requests: %w", err)
	}

	return &models.MarketplaceResponse{
		Status:   "success",
		Services: services,
	}, nil
}

// Governance methods

func (s *DefaultService) CreateProposal(ctx context.Context, userID string, req models.CreateProposalRequest) (*models.ProposalResponse, error) {
	days := req.Days
	if days == 0 {
		days = defaultProposalDays
	}

	now := time.Now().UTC()
	proposal := &models.Proposal{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		ProposerID:  userID,
		Status:      models.ProposalStatusActive,
		CreatedAt:   now,
		EndsAt:      now.Add(time.Duration(days) * 24 * time.Hour),
	}

	if err := s.repo.CreateProposal(ctx, proposal); err != nil {
		return nil, fmt.Errorf("error creating proposal: %w", err)
	}

	return &models.ProposalResponse{
		Status:     "success",
		ProposalID: proposal.ID,
		EndsAt:     proposal.EndsAt.Format(time.RFC3339),
	}, nil
}

// CastVote records one ballot. The voter's balance is snapshotted into the
// vote as voting power, but the proposal tally counts ballots only. A
// proposal past its deadline is resolved lazily here, on the first vote
// attempt after ends_at; that attempt itself is rejected.
func (s *DefaultService) CastVote(ctx context.Context, userID, proposalID string, req models.CastVoteRequest) (*models.VoteResponse, error) {
	proposal, err := s.repo.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("error getting proposal: %w", err)
	}
	if proposal == nil {
		return nil, fmt.Errorf("proposal: %w", timebank.ErrNotFound)
	}

	if proposal.Status != models.ProposalStatusActive {
		return nil, timebank.ErrVotingEnded
	}

	if time.Now().UTC().After(proposal.EndsAt) {
		status := models.ProposalStatusRejected
		if proposal.VotesFor > proposal.VotesAgainst {
			status = models.ProposalStatusPassed
		}
		if err := s.repo.ResolveProposal(ctx, proposalID, status); err != nil {
			return nil, fmt.Errorf("error resolving proposal: %w", err)
		}
		return nil, timebank.ErrVotingEnded
	}

	existing, err := s.repo.GetVote(ctx, proposalID, userID)
	if err != nil {
		return nil, fmt.Errorf("error checking vote: %w", err)
	}
	if existing != nil {
		return nil, timebank.ErrAlreadyVoted
	}

	voter, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting voter: %w", err)
	}
	if voter == nil {
		return nil, fmt.Errorf("voter: %w", timebank.ErrNotFound)
	}

	vote := &models.Vote{
		ID:          uuid.New().String(),
		ProposalID:  proposalID,
		VoterID:     userID,
		VoteType:    req.VoteType,
		VotingPower: voter.TokenBalance,
		Timestamp:   time.Now().UTC(),
	}

	if err := s.repo.CastVote(ctx, vote); err != nil {
		return nil, fmt.Errorf("error casting vote: %w", err)
	}

	updated, err := s.repo.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("error getting proposal: %w", err)
	}

	return &models.VoteResponse{
		Status:       "success",
		VotingPower:  vote.VotingPower,
		VotesFor:     updated.VotesFor,
		VotesAgainst: updated.VotesAgainst,
	}, nil
}

func (s *DefaultService) ListProposals(ctx context.Context) (*models.ProposalListResponse, error) {
	proposals, err := s.repo.ListProposals(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing proposals: %w", err)
	}

	return &models.ProposalListResponse{
		Status:    "success",
		Proposals: proposals,
	}, nil
}

// Administration methods

func (s *DefaultService) AdminOverview(ctx context.Context, userID string) (*models.AdminOverviewResponse, error) {
	if err := s.requireAdmin(ctx, userID); err != nil {
		return nil, err
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}

	transactions, err := s.repo.ListTransactions(ctx, adminOverviewLimit)
	if err != nil {
		return nil, fmt.Errorf("error listing transactions: %w", err)
	}

	services, err := s.repo.ListServices(ctx, adminOverviewLimit)
	if err != nil {
		return nil, fmt.Errorf("error listing services: %w", err)
	}

	return &models.AdminOverviewResponse{
		Status:       "success",
		Users:        users,
		Transactions: transactions,
		Services:     services,
	}, nil
}

func (s *DefaultService) MakeAdmin(ctx context.Context, actingUserID, targetUserID string) (*models.MessageResponse, error) {
	if err := s.requireAdmin(ctx, actingUserID); err != nil {
		return nil, err
	}

	if err := s.repo.GrantAdmin(ctx, targetUserID); err != nil {
		return nil, fmt.Errorf("error granting admin: %w", err)
	}

	return &models.MessageResponse{
		Status:  "success",
		Message: "User promoted to admin",
	}, nil
}

func (s *DefaultService) requireAdmin(ctx context.Context, userID string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("error getting user: %w", err)
	}
	if user == nil || !user.IsAdmin {
		return timebank.ErrForbidden
	}
	return nil
}

// Helper methods
func (s *DefaultService) generateJWT(user *models.User) (string, error) {
	expirationTime := time.Now().Add(s.tokenDuration)

	claims := jwt.MapClaims{
		"sub": user.ID, // subject
		"exp": expirationTime.Unix(),
		"iat": time.Now().Unix(), // issued at
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
