package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/veertikothari/campustrack/internal/modules/cep/dto"
	cepService "github.com/veertikothari/campustrack/internal/modules/cep/service"
	"github.com/veertikothari/campustrack/internal/session"
	"github.com/veertikothari/campustrack/pkg/apperror"
	"github.com/veertikothari/campustrack/pkg/response"
	"github.com/veertikothari/campustrack/pkg/validator"
)

const maxProofSize = 10 << 20

type CEPHandler struct {
	cepService cepService.CEPService
}

func NewCEPHandler(cepService cepService.CEPService) *CEPHandler {
	return &CEPHandler{cepService: cepService}
}

func (h *CEPHandler) SetRequirement(c *gin.Context) {
	sess, ok := current(c)
	if !ok {
		return
	}

	var input dto.RequirementInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	req, err := h.cepService.SetRequirement(c.Request.Context(), sess.Principal, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": req})
}

func (h *CEPHandler) MyProgress(c *gin.Context) {
	sess, ok := current(c)
	if !ok {
		return
	}
	h.progress(c, sess, sess.Principal.UserID)
}

func (h *CEPHandler) StudentProgress(c *gin.Context) {
	sess, ok := current(c)
	if !ok {
		return
	}

	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}
	h.progress(c, sess, userID)
}

func (h *CEPHandler) progress(c *gin.Context, sess *session.Session, userID uuid.UUID) {
	progress, err := h.cepService.Progress(c.Request.Context(), sess.Principal, userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": progress})
}

// Submit accepts JSON with a file_ref, or multipart form data with a "proof" file.
func (h *CEPHandler) Submit(c *gin.Context) {
	sess, ok := current(c)
	if !ok {
		return
	}

	var input dto.SubmitInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	upload, closeFn, ok := proofFromForm(c)
	if !ok {
		return
	}
	defer closeFn()

	sub, err := h.cepService.Submit(c.Request.Context(), sess.Principal, input, upload)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": dto.ToSubmissionResponse(*sub)})
}

func (h *CEPHandler) Edit(c *gin.Context) {
	sess, ok := current(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	var input dto.EditInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	upload, closeFn, ok := proofFromForm(c)
	if !ok {
		return
	}
	defer closeFn()

	sub, err := h.cepService.Edit(c.Request.Context(), sess.Principal, id, input, upload)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": dto.ToSubmissionResponse(*sub)})
}

func (h *CEPHandler) Review(c *gin.Context) {
	sess, ok := current(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	var input dto.ReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	sub, err := h.cepService.Review(c.Request.Context(), sess.Principal, id, *input.Approved)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": dto.ToSubmissionResponse(*sub)})
}

func (h *CEPHandler) MySubmissions(c *gin.Context) {
	sess, ok := current(c)
	if !ok {
		return
	}

	subs, err := h.cepService.MySubmissions(c.Request.Context(), sess.Principal)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": dto.ToSubmissionResponses(subs)})
}

func (h *CEPHandler) PendingSubmissions(c *gin.Context) {
	sess, ok := current(c)
	if !ok {
		return
	}

	subs, err := h.cepService.PendingForDepartment(c.Request.Context(), sess.Principal)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": dto.ToSubmissionResponses(subs)})
}

func current(c *gin.Context) (*session.Session, bool) {
	sess, ok := session.Current(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
	}
	return sess, ok
}

func proofFromForm(c *gin.Context) (*cepService.ProofUpload, func(), bool) {
	fileHeader, err := c.FormFile("proof")
	if err != nil || fileHeader == nil {
		return nil, func() {}, true
	}
	if fileHeader.Size > maxProofSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Proof file must be 10MB or smaller"})
		return nil, nil, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read proof file"})
		return nil, nil, false
	}

	return &cepService.ProofUpload{Reader: file, FileName: fileHeader.Filename}, func() { _ = file.Close() }, true
}
