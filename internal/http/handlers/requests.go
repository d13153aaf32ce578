package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"scenegen/internal/domain"
)

type firstSceneQuery struct {
	PortraitID string `json:"portrait_id" validate:"required,max=64,printascii"`
	BuildType  string `json:"build_type" validate:"required,oneof=warrior mage rogue ranger"`
}

func (q firstSceneQuery) combination() domain.Combination {
	return domain.Combination{
		PortraitID: domain.PortraitID(q.PortraitID),
		BuildType:  domain.BuildType(q.BuildType),
	}
}

type pregenerateRequest struct {
	Force      bool   `json:"force"`
	PortraitID string `json:"portrait_id" validate:"omitempty,oneof=m1 m2 m3 m4 f1 f2 f3 f4"`
	BuildType  string `json:"build_type" validate:"omitempty,oneof=warrior mage rogue ranger"`
}

func (r pregenerateRequest) toDomain() domain.PregenRequest {
	return domain.PregenRequest{
		Force:      r.Force,
		PortraitID: domain.PortraitID(r.PortraitID),
		BuildType:  domain.BuildType(r.BuildType),
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// validationMessage turns validator output into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

type jobResponse struct {
	JobID      string               `json:"job_id"`
	Status     domain.JobStatus     `json:"status"`
	Request    domain.PregenRequest `json:"request"`
	Error      string               `json:"error,omitempty"`
	Result     *domain.BatchRun     `json:"result,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	StartedAt  *time.Time           `json:"started_at,omitempty"`
	FinishedAt *time.Time           `json:"finished_at,omitempty"`
}

func newJobResponse(job *domain.PregenJob) jobResponse {
	return jobResponse{
		JobID:      job.ID,
		Status:     job.Status,
		Request:    job.Request,
		Error:      job.Error,
		Result:     job.Result,
		CreatedAt:  job.CreatedAt,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
	}
}
