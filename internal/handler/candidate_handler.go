package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/evoting/internal/pkg/response"
	"github.com/xxxsen/evoting/internal/service"
)

type CandidateHandler struct {
	candidates *service.CandidateService
	auth       *service.AuthService
}

func NewCandidateHandler(candidates *service.CandidateService, auth *service.AuthService) *CandidateHandler {
	return &CandidateHandler{candidates: candidates, auth: auth}
}

// List serves the ballot: the active roster plus whether the caller has voted.
func (h *CandidateHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	voter, err := h.auth.Profile(ctx, getVoterID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	list, err := h.candidates.List(ctx)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"candidates": list, "has_voted": voter.HasVoted})
}

func (h *CandidateHandler) AdminList(c *gin.Context) {
	list, err := h.candidates.ListWithCounts(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"candidates": list})
}

func (h *CandidateHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	item, err := h.candidates.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, item)
}

func (h *CandidateHandler) Create(c *gin.Context) {
	var req service.CandidateInput
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.candidates.Create(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, item)
}

func (h *CandidateHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req service.CandidateInput
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.candidates.Update(c.Request.Context(), id, req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, item)
}

func (h *CandidateHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	out, err := h.candidates.Delete(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"policy": h.candidates.Policy(), "outcome": out})
}
