package http

import (
	"time"

	"github.com/google/uuid"

	"github.com/anigen/anigen/internal/domain"
	"github.com/anigen/anigen/internal/workflow"
)

// OutcomeResponse is the JSON view of a music outcome.
type OutcomeResponse struct {
	RequestID    uuid.UUID      `json:"request_id"`
	State        workflow.State `json:"state"`
	Params       domain.Params  `json:"params"`
	Description  string         `json:"description,omitempty"`
	HasAudio     bool           `json:"has_audio"`
	AudioSeconds float64        `json:"audio_seconds,omitempty"`
	Charged      int64          `json:"charged"`
	Balance      int64          `json:"balance"`
	Error        string         `json:"error,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
}

func outcomeResponse(o *workflow.Outcome, balance int64) OutcomeResponse {
	resp := OutcomeResponse{
		RequestID:   o.RequestID,
		State:       o.State,
		Params:      o.Params,
		Description: o.Description,
		HasAudio:    o.HasAudio(),
		Charged:     o.Charged,
		Balance:     balance,
		StartedAt:   o.StartedAt,
		FinishedAt:  o.FinishedAt,
	}
	if resp.HasAudio {
		resp.AudioSeconds = o.Audio.Duration().Seconds()
	}
	if o.Err != nil {
		resp.Error = o.Err.Error()
	}
	return resp
}

// ImageResponse is the JSON view of an image outcome. Image is base64.
type ImageResponse struct {
	RequestID uuid.UUID      `json:"request_id"`
	State     workflow.State `json:"state"`
	Image     []byte         `json:"image,omitempty"`
	MIMEType  string         `json:"mime_type,omitempty"`
	Charged   int64          `json:"charged"`
	Balance   int64          `json:"balance"`
	Error     string         `json:"error,omitempty"`
}

func imageResponse(o *workflow.ImageOutcome, balance int64) ImageResponse {
	resp := ImageResponse{
		RequestID: o.RequestID,
		State:     o.State,
		Image:     o.Image,
		Charged:   o.Charged,
		Balance:   balance,
	}
	if len(o.Image) > 0 {
		resp.MIMEType = "image/png"
	}
	if o.Err != nil {
		resp.Error = o.Err.Error()
	}
	return resp
}

// GrantRequest is the body of a manual credit grant.
type GrantRequest struct {
	Amount    int64  `json:"amount"`
	Reference string `json:"reference,omitempty"`
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
