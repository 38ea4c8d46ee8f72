package repository

import (
	"context"

	"github.com/olawanle/timebank-server/internal/models"
)

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User, welcomeDescription string) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	GrantAdmin(ctx context.Context, userID string) error

	// Service exchange operations
	CreateService(ctx context.Context, svc *models.Service) error
	GetService(ctx context.Context, id string) (*models.Service, error)
	ListOpenRequests(ctx context.Context) ([]models.Service, error)
	ListUserServices(ctx context.Context, userID string, limit int) ([]models.Service, error)
	ListServices(ctx context.Context, limit int) ([]models.Service, error)
	RecordCompletedService(ctx context.Context, svc *models.Service) (*models.Transaction, error)
	AcceptServiceRequest(ctx context.Context, serviceID, providerID string) (*models.Service, *models.Transaction, error)

	// Ledger operations
	ListUserTransactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error)
	ListTransactions(ctx context.Context, limit int) ([]models.Transaction, error)

	// Governance operations
	CreateProposal(ctx context.Context, proposal *models.Proposal) error
	GetProposal(ctx context.Context, id string) (*models.Proposal, error)
	ListProposals(ctx context.Context) ([]models.Proposal, error)
	ResolveProposal(ctx context.Context, proposalID string, status models.ProposalStatus) error
	GetVote(ctx context.Context, proposalID, voterID string) (*models.Vote, error)
	CastVote(ctx context.Context, vote *models.Vote) error
}
