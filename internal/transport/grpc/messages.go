package grpc

import (
	"time"

	"github.com/anigen/anigen/internal/domain"
	"github.com/anigen/anigen/internal/workflow"
)

// OptionsRequest is empty.
type OptionsRequest struct{}

// AccountRequest names the account an RPC applies to.
type AccountRequest struct {
	AccountID string `json:"account_id"`
}

// BalanceReply is the post-renewal state of a ledger.
type BalanceReply struct {
	AccountID    string    `json:"account_id"`
	Balance      int64     `json:"balance"`
	MonthlyGrant int64     `json:"monthly_grant"`
	NextResetAt  time.Time `json:"next_reset_at"`
}

// ComposeRequest asks for one music generation.
type ComposeRequest struct {
	AccountID    string        `json:"account_id"`
	Params       domain.Params `json:"params"`
	IncludeAudio bool          `json:"include_audio"`
}

// ComposeReply is a Ready outcome. PCM is mono 16-bit little-endian at
// SampleRate and only set when requested.
type ComposeReply struct {
	RequestID   string         `json:"request_id"`
	State       workflow.State `json:"state"`
	Description string         `json:"description"`
	HasAudio    bool           `json:"has_audio"`
	SampleRate  int            `json:"sample_rate,omitempty"`
	PCM         []byte         `json:"pcm,omitempty"`
	Charged     int64          `json:"charged"`
	Balance     int64          `json:"balance"`
}

// IllustrateRequest asks for one image generation.
type IllustrateRequest struct {
	AccountID string             `json:"account_id"`
	Prompt    domain.ImagePrompt `json:"prompt"`
}

// IllustrateReply carries the encoded image.
type IllustrateReply struct {
	RequestID string `json:"request_id"`
	Image     []byte `json:"image"`
	Charged   int64  `json:"charged"`
	Balance   int64  `json:"balance"`
}

// CreditRequest adds credits to an account.
type CreditRequest struct {
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}
