package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"github.com/yourusername/election-api/internal/domain/entity"
	apperrors "github.com/yourusername/election-api/internal/pkg/errors"
	"github.com/yourusername/election-api/internal/service"
)

// ElectionHandler serves the admin-side catalog management, dashboard and
// results export.
type ElectionHandler struct {
	electionService *service.ElectionService
}

func NewElectionHandler(electionService *service.ElectionService) *ElectionHandler {
	return &ElectionHandler{electionService: electionService}
}

// CategoryRequest covers create and update.
type CategoryRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Description string `json:"description" binding:"omitempty,max=255"`
}

func (h *ElectionHandler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	category := &entity.Category{Name: req.Name, Description: req.Description}
	if err := h.electionService.CreateCategory(category); err != nil {
		h.handleElectionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *ElectionHandler) UpdateCategory(c *gin.Context) {
	id := c.MustGet("categoryID").(uint)

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	category, err := h.electionService.GetCategory(id)
	if err != nil {
		h.handleElectionError(c, err)
		return
	}
	category.Name = req.Name
	category.Description = req.Description

	if err := h.electionService.UpdateCategory(category); err != nil {
		h.handleElectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *ElectionHandler) DeleteCategory(c *gin.Context) {
	id := c.MustGet("categoryID").(uint)
	if err := h.electionService.DeleteCategory(id); err != nil {
		h.handleElectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}

// PositionRequest covers create and update.
type PositionRequest struct {
	CategoryID  uint   `json:"category_id" binding:"required"`
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Description string `json:"description" binding:"omitempty,max=255"`
}

func (h *ElectionHandler) CreatePosition(c *gin.Context) {
	var req PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	position := &entity.Position{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.electionService.CreatePosition(position); err != nil {
		h.handleElectionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, position)
}

func (h *ElectionHandler) ListPositions(c *gin.Context) {
	var categoryID uint
	if raw := c.Query("category_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category_id", "error_type": "validation_error"})
			return
		}
		categoryID = uint(parsed)
	}

	positions, err := h.electionService.ListPositions(categoryID)
	if err != nil {
		h.handleElectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, positions)
}

func (h *ElectionHandler) UpdatePosition(c *gin.Context) {
	id := c.MustGet("positionID").(uint)

	var req PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	position, err := h.electionService.GetPosition(id)
	if err != nil {
		h.handleElectionError(c, err)
		return
	}
	position.CategoryID = req.CategoryID
	position.Name = req.Name
	position.Description = req.Description

	if err := h.electionService.UpdatePosition(position); err != nil {
		h.handleElectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, position)
}

func (h *ElectionHandler) DeletePosition(c *gin.Context) {
	id := c.MustGet("positionID").(uint)
	if err := h.electionService.DeletePosition(id); err != nil {
		h.handleElectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Position deleted"})
}

// CandidateRequest covers create and update.
type CandidateRequest struct {
	PositionID uint   `json:"position_id" binding:"required"`
	Name       string `json:"name" binding:"required,min=2,max=100"`
	Bio        string `json:"bio" binding:"omitempty,max=500"`
	PhotoURL   string `json:"photo_url" binding:"omitempty,url,max=255"`
}

func (h *ElectionHandler) CreateCandidate(c *gin.Context) {
	var req CandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	candidate := &entity.Candidate{
		PositionID: req.PositionID,
		Name:       req.Name,
		Bio:        req.Bio,
		PhotoURL:   req.PhotoURL,
	}
	if err := h.electionService.CreateCandidate(candidate); err != nil {
		h.handleElectionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, candidate)
}

func (h *ElectionHandler) UpdateCandidate(c *gin.Context) {
	id := c.MustGet("candidateID").(uint)

	var req CandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
		return
	}

	candidate, err := h.electionService.GetCandidate(id)
	if err != nil {
		h.handleElectionError(c, err)
		return
	}
	candidate.PositionID = req.PositionID
	candidate.Name = req.Name
	candidate.Bio = req.Bio
	candidate.PhotoURL = req.PhotoURL

	if err := h.electionService.UpdateCandidate(candidate); err != nil {
		h.handleElectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, candidate)
}

func (h *ElectionHandler) DeleteCandidate(c *gin.Context) {
	id := c.MustGet("candidateID").(uint)
	if err := h.electionService.DeleteCandidate(id); err != nil {
		h.handleElectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Candidate deleted"})
}

// GetDashboard serves the admin overview.
func (h *ElectionHandler) GetDashboard(c *gin.Context) {
	dashboard, err := h.electionService.Dashboard()
	if err != nil {
		h.handleElectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// GetPositionResults serves per-position tallies for the admin view.
func (h *ElectionHandler) GetPositionResults(c *gin.Context) {
	id := c.MustGet("positionID").(uint)
	tallies, err := h.electionService.ResultsByPosition(id)
	if err != nil {
		h.handleElectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, tallies)
}

// ExportResults streams the full tallies as CSV (default) or XLSX.
func (h *ElectionHandler) ExportResults(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")

	results, err := h.electionService.Results()
	if err != nil {
		h.handleElectionError(c, err)
		return
	}

	filename := fmt.Sprintf("election_results_%s", time.Now().Format("2006-01-02"))

	switch format {
	case "xlsx":
		h.exportXLSX(c, results, filename)
	default:
		h.exportCSV(c, results, filename)
	}
}

func (h *ElectionHandler) exportCSV(c *gin.Context, results []service.PositionResult, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM so Excel renders UTF-8 correctly
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write([]string{"Position", "Candidate", "Votes"})
	for _, position := range results {
		for _, tally := range position.Candidates {
			writer.Write([]string{
				sanitizeForExcel(position.PositionName),
				sanitizeForExcel(tally.CandidateName),
				strconv.FormatInt(tally.TotalVotes, 10),
			})
		}
	}
}

func (h *ElectionHandler) exportXLSX(c *gin.Context, results []service.PositionResult, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Results"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[ElectionHandler] failed to create stream writer: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	if err := sw.SetRow("A1", []interface{}{"Position", "Candidate", "Votes"}); err != nil {
		log.Printf("[ElectionHandler] failed to write header row: %v", err)
	}

	rowNum := 2
	for _, position := range results {
		for _, tally := range position.Candidates {
			cell := fmt.Sprintf("A%d", rowNum)
			row := []interface{}{
				sanitizeForExcel(position.PositionName),
				sanitizeForExcel(tally.CandidateName),
				tally.TotalVotes,
			}
			if err := sw.SetRow(cell, row); err != nil {
				log.Printf("[ElectionHandler] failed to write row %d: %v", rowNum, err)
			}
			rowNum++
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[ElectionHandler] flush failed: %v", err)
	}
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[ElectionHandler] failed to write workbook to response: %v", err)
	}
}

// sanitizeForExcel guards against formula injection in Excel/CSV exports.
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

func (h *ElectionHandler) handleElectionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found", "error_type": "not_found"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Already exists", "error_type": "conflict"})
	default:
		log.Printf("[ElectionHandler] unexpected error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal_server_error"})
	}
}
