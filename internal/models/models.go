package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Token economy constants: 1 token equals 1 hour of service.
const (
	WelcomeBonus       = 10.0
	StartingReputation = 5.0
	ReputationReward   = 0.1
)

// ServiceStatus is the lifecycle state of a service exchange
type ServiceStatus string

const (
	ServiceStatusPending   ServiceStatus = "pending"
	ServiceStatusConfirmed ServiceStatus = "confirmed"
	ServiceStatusCompleted ServiceStatus = "completed"
	ServiceStatusCancelled ServiceStatus = "cancelled"
)

// IsValid reports whether s is one of the known service statuses
func (s ServiceStatus) IsValid() bool {
	switch s {
	case ServiceStatusPending, ServiceStatusConfirmed, ServiceStatusCompleted, ServiceStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the transition s -> next is legal.
// Completed and cancelled are terminal.
func (s ServiceStatus) CanTransitionTo(next ServiceStatus) bool {
	switch s {
	case ServiceStatusPending:
		return next == ServiceStatusConfirmed || next == ServiceStatusCompleted || next == ServiceStatusCancelled
	case ServiceStatusConfirmed:
		return next == ServiceStatusCompleted || next == ServiceStatusCancelled
	}
	return false
}

// ServiceType distinguishes recorded offers from posted requests
type ServiceType string

const (
	ServiceTypeOffer   ServiceType = "offer"
	ServiceTypeRequest ServiceType = "request"
)

// TransactionType classifies ledger entries
type TransactionType string

const (
	TransactionTypeService    TransactionType = "service"
	TransactionTypeBonus      TransactionType = "bonus"
	TransactionTypeGovernance TransactionType = "governance"
)

// ProposalStatus is the lifecycle state of a governance proposal
type ProposalStatus string

const (
	ProposalStatusActive   ProposalStatus = "active"
	ProposalStatusPassed   ProposalStatus = "passed"
	ProposalStatusRejected ProposalStatus = "rejected"
)

// IsValid reports whether p is one of the known proposal statuses
func (p ProposalStatus) IsValid() bool {
	switch p {
	case ProposalStatusActive, ProposalStatusPassed, ProposalStatusRejected:
		return true
	}
	return false
}

// VoteType is the direction of a ballot
type VoteType string

const (
	VoteFor     VoteType = "for"
	VoteAgainst VoteType = "against"
)

// User represents a member of the time bank with a wallet and reputation
type User struct {
	ID              string    `db:"id" json:"id"`
	Username        string    `db:"username" json:"username"`
	Email           string    `db:"email" json:"email"`
	PasswordHash    string    `db:"password_hash" json:"-"`
	WalletAddress   string    `db:"wallet_address" json:"walletAddress"`
	TokenBalance    float64   `db:"token_balance" json:"tokenBalance"`
	HoursEarned     float64   `db:"hours_earned" json:"hoursEarned"`
	HoursSpent      float64   `db:"hours_spent" json:"hoursSpent"`
	ReputationScore float64   `db:"reputation_score" json:"reputationScore"`
	IsAdmin         bool      `db:"is_admin" json:"isAdmin"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// Service represents one unit of service exchanged between two users
type Service struct {
	ID          string        `db:"id" json:"id"`
	Title       string        `db:"title" json:"title"`
	Description string        `db:"description" json:"description"`
	Category    string        `db:"category" json:"category"`
	Duration    float64       `db:"duration" json:"duration"` // hours
	Status      ServiceStatus `db:"status" json:"status"`
	ServiceType ServiceType   `db:"service_type" json:"serviceType"`
	ProviderID  *string       `db:"provider_id" json:"providerId,omitempty"`
	RequesterID *string       `db:"requester_id" json:"requesterId,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	CompletedAt *time.Time    `db:"completed_at" json:"completedAt,omitempty"`
}

// Transaction is one append-only ledger entry; rows are never updated or
// deleted after insertion.
type Transaction struct {
	ID          string          `db:"id" json:"id"`
	FromUserID  *string         `db:"from_user_id" json:"fromUserId,omitempty"`
	ToUserID    *string         `db:"to_user_id" json:"toUserId,omitempty"`
	Amount      float64         `db:"amount" json:"amount"`
	Type        TransactionType `db:"transaction_type" json:"transactionType"`
	ServiceID   *string         `db:"service_id" json:"serviceId,omitempty"`
	Description string          `db:"description" json:"description"`
	Timestamp   time.Time       `db:"timestamp" json:"timestamp"`
}

// Proposal is a governance proposal. VotesFor and VotesAgainst count
// ballots; the per-vote voting power snapshot is never folded into them.
type Proposal struct {
	ID           string         `db:"id" json:"id"`
	Title        string         `db:"title" json:"title"`
	Description  string         `db:"description" json:"description"`
	ProposerID   string         `db:"proposer_id" json:"proposerId"`
	Status       ProposalStatus `db:"status" json:"status"`
	VotesFor     int            `db:"votes_for" json:"votesFor"`
	VotesAgainst int            `db:"votes_against" json:"votesAgainst"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	EndsAt       time.Time      `db:"ends_at" json:"endsAt"`
}

// Vote records one ballot. VotingPower is the voter's token balance at
// cast time. At most one vote exists per (proposal, voter) pair.
type Vote struct {
	ID          string    `db:"id" json:"id"`
	ProposalID  string    `db:"proposal_id" json:"proposalId"`
	VoterID     string    `db:"voter_id" json:"voterId"`
	VoteType    VoteType  `db:"vote_type" json:"voteType"`
	VotingPower float64   `db:"voting_power" json:"votingPower"`
	Timestamp   time.Time `db:"timestamp" json:"timestamp"`
}

// NewWalletAddress generates a mock blockchain wallet address. It is a
// cosmetic unique identifier, not a cryptographic key.
func NewWalletAddress() string {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		panic(err) // crypto/rand does not fail on supported platforms
	}
	return "0x" + hex.EncodeToString(b)
}
