package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yourusername/election-api/internal/pkg/errors"
	"github.com/yourusername/election-api/internal/service"
)

// VoteHandler serves the public voting surface: the catalog reads and the
// payment-backed vote lifecycle.
type VoteHandler struct {
	voteService     *service.VoteService
	electionService *service.ElectionService
}

func NewVoteHandler(voteService *service.VoteService, electionService *service.ElectionService) *VoteHandler {
	return &VoteHandler{
		voteService:     voteService,
		electionService: electionService,
	}
}

// InitializeVoteRequest intentionally has no amount field; the server derives
// the charge from vote_count.
type InitializeVoteRequest struct {
	CandidateID uint   `json:"candidate_id" binding:"required"`
	PositionID  uint   `json:"position_id" binding:"required"`
	VoterEmail  string `json:"voter_email" binding:"required,email"`
	VoterPhone  string `json:"voter_phone" binding:"omitempty,max=20"`
	VoteCount   int    `json:"vote_count" binding:"required,min=1"`
}

// InitializeVote opens a pending vote and returns the gateway checkout URL.
func (h *VoteHandler) InitializeVote(c *gin.Context) {
	var req InitializeVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	output, err := h.voteService.Initialize(c.Request.Context(), service.InitializeVoteInput{
		CandidateID: req.CandidateID,
		PositionID:  req.PositionID,
		VoterEmail:  req.VoterEmail,
		VoterPhone:  req.VoterPhone,
		VoteCount:   req.VoteCount,
	})
	if err != nil {
		h.handleVoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, output)
}

// VerifyVoteRequest carries the gateway reference back from the callback.
type VerifyVoteRequest struct {
	Reference string `json:"reference" binding:"required"`
}

// VerifyVote confirms the payment with the gateway and commits the vote.
// Safe to call repeatedly with the same reference.
func (h *VoteHandler) VerifyVote(c *gin.Context) {
	var req VerifyVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// The gateway redirect puts the reference in the query string.
		req.Reference = c.Query("reference")
		if req.Reference == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reference is required", "error_type": "validation_error"})
			return
		}
	}

	receipt, err := h.voteService.VerifyAndCommit(c.Request.Context(), req.Reference)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotSuccessful) {
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":      "Payment was not successful",
				"error_type": "payment_not_successful",
				"receipt":    receipt,
			})
			return
		}
		h.handleVoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, receipt)
}

// GetVoteStatus reads the current state of a vote by reference.
func (h *VoteHandler) GetVoteStatus(c *gin.Context) {
	reference := c.Param("reference")
	vote, err := h.voteService.GetByReference(reference)
	if err != nil {
		h.handleVoteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reference":  vote.PaymentReference,
		"status":     vote.Status,
		"vote_count": vote.VoteCount,
		"amount":     vote.Amount,
	})
}

// ListCategories serves the public election catalog.
func (h *VoteHandler) ListCategories(c *gin.Context) {
	categories, err := h.electionService.ListCategories()
	if err != nil {
		h.handleVoteError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// GetCategory returns one category with its positions.
func (h *VoteHandler) GetCategory(c *gin.Context) {
	id := c.MustGet("categoryID").(uint)
	category, err := h.electionService.GetCategory(id)
	if err != nil {
		h.handleVoteError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// ListCandidates returns the candidates for a position.
func (h *VoteHandler) ListCandidates(c *gin.Context) {
	positionID := c.MustGet("positionID").(uint)
	candidates, err := h.electionService.ListCandidates(positionID)
	if err != nil {
		h.handleVoteError(c, err)
		return
	}
	c.JSON(http.StatusOK, candidates)
}

// GetResults serves the public live tallies, grouped by position.
func (h *VoteHandler) GetResults(c *gin.Context) {
	results, err := h.electionService.Results()
	if err != nil {
		h.handleVoteError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *VoteHandler) handleVoteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found", "error_type": "not_found"})
	case errors.Is(err, service.ErrGateway):
		log.Printf("[VoteHandler] gateway error: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway unavailable", "error_type": "gateway_error"})
	default:
		log.Printf("[VoteHandler] unexpected error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal_server_error"})
	}
}
