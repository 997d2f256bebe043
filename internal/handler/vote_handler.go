package handler

import (
	"github.com/gin-gonic/gin"

	appErr "github.com/xxxsen/evoting/internal/pkg/errors"
	"github.com/xxxsen/evoting/internal/pkg/response"
	"github.com/xxxsen/evoting/internal/service"
)

type VoteHandler struct {
	ballots *service.BallotService
	tally   *service.TallyService
}

func NewVoteHandler(ballots *service.BallotService, tally *service.TallyService) *VoteHandler {
	return &VoteHandler{ballots: ballots, tally: tally}
}

type voteRequest struct {
	CandidateID int64 `json:"candidate_id"`
}

func (h *VoteHandler) Cast(c *gin.Context) {
	var req voteRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.CandidateID <= 0 {
		response.Fail(c, appErr.ErrInvalid.WithMsg("candidate_id is required"))
		return
	}
	ballot, err := h.ballots.Cast(c.Request.Context(), getVoterID(c), req.CandidateID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, gin.H{"candidate_id": ballot.CandidateID, "cast_at": ballot.Ctime})
}

func (h *VoteHandler) Results(c *gin.Context) {
	res, err := h.tally.Results(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}
