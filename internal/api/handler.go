package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/olawanle/timebank-server/internal/models"
	"github.com/olawanle/timebank-server/internal/service"
	"github.com/olawanle/timebank-server/internal/timebank"
)

// Handler holds the HTTP handlers for the API
type Handler struct {
	svc service.Service
}

// NewHandler creates a new API handler
func NewHandler(svc service.Service) *Handler {
	return &Handler{svc: svc}
}

// SetupRoutes registers all API routes on the router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}

	protected := api.Group("")
	protected.Use(AuthMiddleware())
	{
		protected.GET("/dashboard", h.Dashboard)
		protected.GET("/marketplace", h.Marketplace)

		protected.POST("/services/offer", h.RecordOffer)
		protected.POST("/services/request", h.PostRequest)
		protected.POST("/services/:id/accept", h.AcceptRequest)

		protected.GET("/proposals", h.ListProposals)
		protected.POST("/proposals", h.CreateProposal)
		protected.POST("/proposals/:id/vote", h.CastVote)

		protected.GET("/admin/overview", h.AdminOverview)
		protected.POST("/admin/users/:id/make-admin", h.MakeAdmin)
	}
}

// Authentication handlers

func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Account ledger handlers

func (h *Handler) Dashboard(c *gin.Context) {
	resp, err := h.svc.Dashboard(c.Request.Context(), c.GetString("userId"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Service exchange handlers

func (h *Handler) RecordOffer(c *gin.Context) {
	var req models.OfferServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.svc.RecordOffer(c.Request.Context(), c.GetString("userId"), req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) PostRequest(c *gin.Context) {
	var req models.RequestServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.svc.PostRequest(c.Request.Context(), c.GetString("userId"), req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) AcceptRequest(c *gin.Context) {
	resp, err := h.svc.AcceptRequest(c.Request.Context(), c.GetString("userId"), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Marketplace(c *gin.Context) {
	resp, err := h.svc.Marketplace(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Governance handlers

func (h *Handler) CreateProposal(c *gin.Context) {
	var req models.CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.svc.CreateProposal(c.Request.Context(), c.GetString("userId"), req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) CastVote(c *gin.Context) {
	var req models.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.svc.CastVote(c.Request.Context(), c.GetString("userId"), c.Param("id"), req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListProposals(c *gin.Context) {
	resp, err := h.svc.ListProposals(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Administration handlers

func (h *Handler) AdminOverview(c *gin.Context) {
	resp, err := h.svc.AdminOverview(c.Request.Context(), c.GetString("userId"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) MakeAdmin(c *gin.Context) {
	resp, err := h.svc.MakeAdmin(c.Request.Context(), c.GetString("userId"), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Error helpers

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    "BAD_REQUEST",
		Message: err.Error(),
	})
}

// errorResponse maps domain errors to HTTP status codes
func errorResponse(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL_ERROR"

	switch {
	case errors.Is(err, timebank.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, timebank.ErrInsufficientBalance):
		status, code = http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE"
	case errors.Is(err, timebank.ErrInvalidState):
		status, code = http.StatusConflict, "INVALID_STATE"
	case errors.Is(err, timebank.ErrAlreadyVoted):
		status, code = http.StatusConflict, "ALREADY_VOTED"
	case errors.Is(err, timebank.ErrVotingEnded):
		status, code = http.StatusConflict, "VOTING_ENDED"
	case errors.Is(err, timebank.ErrAlreadyExists):
		status, code = http.StatusConflict, "ALREADY_EXISTS"
	case errors.Is(err, timebank.ErrUnauthorized),
		errors.Is(err, timebank.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, timebank.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}

	c.JSON(status, models.ErrorResponse{
		Status:  "error",
		Code:    code,
		Message: err.Error(),
	})
}
