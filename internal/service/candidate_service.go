package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/xxxsen/evoting/internal/model"
	appErr "github.com/xxxsen/evoting/internal/pkg/errors"
	"github.com/xxxsen/evoting/internal/pkg/timeutil"
	"github.com/xxxsen/evoting/internal/repo"
)

type CandidateInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Party       string `json:"party" validate:"required,max=100"`
	Description string `json:"description" validate:"max=5000"`
	ImageURL    string `json:"image_url" validate:"omitempty,url,max=500"`
}

// CandidateView is a candidate as served to clients: the description is also
// rendered from markdown, and admins additionally see the vote count.
type CandidateView struct {
	model.Candidate
	DescriptionHTML string `json:"description_html"`
	VoteCount       *int64 `json:"vote_count,omitempty"`
}

type CandidateService struct {
	candidates   *repo.CandidateRepo
	ballots      *repo.BallotRepo
	policy       model.DeletePolicy
	defaultImage string
	validate     *validator.Validate
	md           goldmark.Markdown
	sanitizer    *bluemonday.Policy
	now          func() time.Time
}

func NewCandidateService(candidates *repo.CandidateRepo, ballots *repo.BallotRepo, policy model.DeletePolicy, defaultImage string) *CandidateService {
	return &CandidateService{
		candidates:   candidates,
		ballots:      ballots,
		policy:       policy,
		defaultImage: defaultImage,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		md:           goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Linkify)),
		sanitizer:    bluemonday.UGCPolicy(),
		now:          time.Now,
	}
}

func (s *CandidateService) Policy() model.DeletePolicy {
	return s.policy
}

func (s *CandidateService) Create(ctx context.Context, in CandidateInput) (*CandidateView, error) {
	in, err := s.clean(in)
	if err != nil {
		return nil, err
	}
	now := timeutil.Clock(s.now)().Unix()
	c := &model.Candidate{
		Name:        in.Name,
		Party:       in.Party,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Ctime:       now,
		Mtime:       now,
	}
	if err := s.candidates.Create(ctx, c); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("candidate created", zap.Int64("candidate_id", c.ID), zap.String("name", c.Name))
	return s.view(c), nil
}

func (s *CandidateService) Update(ctx context.Context, id int64, in CandidateInput) (*CandidateView, error) {
	in, err := s.clean(in)
	if err != nil {
		return nil, err
	}
	current, err := s.candidates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	current.Name = in.Name
	current.Party = in.Party
	current.Description = in.Description
	current.ImageURL = in.ImageURL
	current.Mtime = timeutil.Clock(s.now)().Unix()
	if err := s.candidates.Update(ctx, current); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("candidate updated", zap.Int64("candidate_id", id))
	return s.view(current), nil
}

// Delete applies the configured policy; see repo.CandidateRepo.Delete.
func (s *CandidateService) Delete(ctx context.Context, id int64) (model.DeleteOutcome, error) {
	out, err := s.candidates.Delete(ctx, id, s.policy, timeutil.Clock(s.now)().Unix())
	if err != nil {
		return out, err
	}
	logutil.GetLogger(ctx).Info("candidate deleted",
		zap.Int64("candidate_id", id), zap.String("policy", string(s.policy)),
		zap.Bool("withdrawn", out.Withdrawn), zap.Int64("ballots_purged", out.BallotsPurged))
	return out, nil
}

func (s *CandidateService) Get(ctx context.Context, id int64) (*CandidateView, error) {
	c, err := s.candidates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(c), nil
}

// List returns the active roster ordered by id.
func (s *CandidateService) List(ctx context.Context) ([]*CandidateView, error) {
	list, err := s.candidates.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*CandidateView, 0, len(list))
	for i := range list {
		views = append(views, s.view(&list[i]))
	}
	return views, nil
}

// ListWithCounts is List plus the current vote count of each candidate.
func (s *CandidateService) ListWithCounts(ctx context.Context) ([]*CandidateView, error) {
	views, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range views {
		n, err := s.ballots.CountFor(ctx, v.ID)
		if err != nil {
			return nil, err
		}
		v.VoteCount = &n
	}
	return views, nil
}

func (s *CandidateService) clean(in CandidateInput) (CandidateInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Party = strings.TrimSpace(in.Party)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return in, appErr.ErrInvalid.WithMsg(fieldMessage(verrs[0]))
		}
		return in, appErr.ErrInvalid
	}
	if in.ImageURL == "" {
		in.ImageURL = s.defaultImage
	}
	return in, nil
}

func (s *CandidateService) view(c *model.Candidate) *CandidateView {
	return &CandidateView{Candidate: *c, DescriptionHTML: s.render(c.Description)}
}

func (s *CandidateService) render(text string) string {
	if text == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(text), &buf); err != nil {
		return s.sanitizer.Sanitize(text)
	}
	return s.sanitizer.Sanitize(buf.String())
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	if fe.Field() == "ImageURL" {
		field = "image_url"
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "url":
		return field + " must be a valid url"
	}
	return field + " is invalid"
}
