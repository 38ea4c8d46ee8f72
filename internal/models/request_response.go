package models

// Request models
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=80"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type OfferServiceRequest struct {
	Title             string  `json:"title" binding:"required"`
	Description       string  `json:"description" binding:"required"`
	Category          string  `json:"category" binding:"required"`
	Duration          float64 `json:"duration" binding:"required,gt=0"`
	RequesterUsername string  `json:"requesterUsername" binding:"required"`
}

type RequestServiceRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description" binding:"required"`
	Category    string  `json:"category" binding:"required"`
	Duration    float64 `json:"duration" binding:"required,gt=0"`
}

type CreateProposalRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Days        int    `json:"days" binding:"omitempty,min=1,max=90"`
}

type CastVoteRequest struct {
	VoteType VoteType `json:"voteType" binding:"required,oneof=for against"`
}

// Response models
type AuthResponse struct {
	Status        string `json:"status"`
	UserID        string `json:"userId,omitempty"`
	Username      string `json:"username,omitempty"`
	Email         string `json:"email,omitempty"`
	WalletAddress string `json:"walletAddress,omitempty"`
	Token         string `json:"token,omitempty"`
	ExpiresIn     int    `json:"expiresIn,omitempty"`
}

type ServiceResponse struct {
	Status       string  `json:"status"`
	ServiceID    string  `json:"serviceId,omitempty"`
	ServiceState string  `json:"serviceState,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	Message      string  `json:"message,omitempty"`
}

type MarketplaceResponse struct {
	Status   string    `json:"status"`
	Services []Service `json:"services"`
}

type DashboardResponse struct {
	Status       string        `json:"status"`
	User         User          `json:"user"`
	Transactions []Transaction `json:"transactions"`
	Services     []Service     `json:"services"`
}

type ProposalResponse struct {
	Status     string `json:"status"`
	ProposalID string `json:"proposalId,omitempty"`
	EndsAt     string `json:"endsAt,omitempty"`
}

type ProposalListResponse struct {
	Status    string     `json:"status"`
	Proposals []Proposal `json:"proposals"`
}

type VoteResponse struct {
	Status       string  `json:"status"`
	VotingPower  float64 `json:"votingPower"`
	VotesFor     int     `json:"votesFor"`
	VotesAgainst int     `json:"votesAgainst"`
}

type AdminOverviewResponse struct {
	Status       string        `json:"status"`
	Users        []User        `json:"users"`
	Transactions []Transaction `json:"transactions"`
	Services     []Service     `json:"services"`
}

type MessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
