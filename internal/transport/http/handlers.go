package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/anigen/anigen/internal/domain"
	"github.com/anigen/anigen/internal/transport"
	"github.com/anigen/anigen/internal/wav"
	"github.com/anigen/anigen/internal/workflow"
)

const maxBodyBytes = 64 << 10

// handleOptions returns the accepted parameter catalog.
//
// @Summary  List generation options
// @Tags     studio
// @Produce  json
// @Success  200  {object}  transport.Options
// @Router   /v1/options [get]
func (t *Transport) handleOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, transport.Catalog(t.studio))
}

// handleCredits returns the account's post-renewal balance.
//
// @Summary  Get credit balance
// @Tags     credits
// @Produce  json
// @Param    account  path      string  true  "Account ID"
// @Success  200      {object}  ledger.Snapshot
// @Failure  400      {object}  ErrorResponse
// @Router   /v1/accounts/{account}/credits [get]
func (t *Transport) handleCredits(w http.ResponseWriter, r *http.Request) {
	s, ok := t.session(w, r)
	if !ok {
		return
	}
	snap, err := s.Ledger().Current(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleLedger returns the account's journal, newest first.
//
// @Summary  List ledger entries
// @Tags     credits
// @Produce  json
// @Param    account  path      string  true   "Account ID"
// @Param    limit    query     int     false  "Maximum entries (default 50, 0 for all)"
// @Success  200      {array}   ledger.Entry
// @Failure  400      {object}  ErrorResponse
// @Router   /v1/accounts/{account}/ledger [get]
func (t *Transport) handleLedger(w http.ResponseWriter, r *http.Request) {
	s, ok := t.session(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		writeErr(w, err)
		return
	}
	entries, err := s.Ledger().Entries(r.Context(), limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleGrant adds purchased or complimentary credits.
//
// @Summary  Grant credits
// @Tags     credits
// @Accept   json
// @Produce  json
// @Security AdminToken
// @Param    account  path      string        true  "Account ID"
// @Param    grant    body      GrantRequest  true  "Credits to add"
// @Success  200      {object}  ledger.Snapshot
// @Failure  400      {object}  ErrorResponse
// @Failure  401      {object}  ErrorResponse
// @Router   /v1/accounts/{account}/credits [post]
func (t *Transport) handleGrant(w http.ResponseWriter, r *http.Request) {
	s, ok := t.session(w, r)
	if !ok {
		return
	}
	var req GrantRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if req.Reference == "" {
		req.Reference = "admin:" + requestID(r)
	}
	if err := s.Ledger().Credit(r.Context(), req.Amount, req.Reference); err != nil {
		writeErr(w, err)
		return
	}
	snap, err := s.Ledger().Current(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleGenerate runs a music request to completion.
//
// @Summary     Generate a music theme
// @Description Charges the generation cost, asks the describer for an atmosphere text and, when speech
// @Description is enabled, synthesizes it to audio. Credits are not refunded when generation fails.
// @Tags        music
// @Accept      json
// @Produce     json
// @Param       account  path      string           true   "Account ID"
// @Param       params   body      domain.Params    false  "Generation parameters (defaults apply to omitted fields)"
// @Success     200      {object}  OutcomeResponse  "Ready"
// @Failure     400      {object}  ErrorResponse    "Invalid parameters"
// @Failure     402      {object}  OutcomeResponse  "Insufficient credits"
// @Failure     409      {object}  ErrorResponse    "A request is already in flight"
// @Failure     502      {object}  OutcomeResponse  "Remote generation failed"
// @Router      /v1/accounts/{account}/music [post]
func (t *Transport) handleGenerate(w http.ResponseWriter, r *http.Request) {
	s, ok := t.session(w, r)
	if !ok {
		return
	}
	params := domain.DefaultParams()
	if err := decodeBody(w, r, &params); err != nil {
		writeErr(w, err)
		return
	}

	out, err := s.Generate(r.Context(), params)
	if err != nil {
		writeErr(w, err)
		return
	}
	balance, _ := s.Ledger().Balance(r.Context())
	writeJSON(w, outcomeStatus(out.State, out.Err), outcomeResponse(out, balance))
}

// handleCurrent returns the latest music outcome.
//
// @Summary  Get the current result
// @Tags     music
// @Produce  json
// @Param    account  path      string  true  "Account ID"
// @Success  200      {object}  OutcomeResponse
// @Failure  404      {object}  ErrorResponse
// @Router   /v1/accounts/{account}/music/current [get]
func (t *Transport) handleCurrent(w http.ResponseWriter, r *http.Request) {
	s, ok := t.session(w, r)
	if !ok {
		return
	}
	out, ok := s.Current()
	if !ok {
		writeErr(w, domain.ErrNoResult)
		return
	}
	balance, _ := s.Ledger().Balance(r.Context())
	writeJSON(w, http.StatusOK, outcomeResponse(out, balance))
}

// handleExport downloads the current audio as a WAV file.
//
// @Summary  Export the current result
// @Tags     music
// @Produce  audio/wav
// @Param    account  path      string  true  "Account ID"
// @Success  200      {file}    binary
// @Failure  404      {object}  ErrorResponse
// @Router   /v1/accounts/{account}/music/current.wav [get]
func (t *Transport) handleExport(w http.ResponseWriter, r *http.Request) {
	s, ok := t.session(w, r)
	if !ok {
		return
	}
	name, data, err := s.Export()
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", wav.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handlePlay plays the current audio on the daemon's speaker.
//
// @Summary  Play the current result
// @Tags     music
// @Param    account  path  string  true  "Account ID"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Failure  503  {object}  ErrorResponse  "Playback disabled or failed"
// @Router   /v1/accounts/{account}/music/play [post]
func (t *Transport) handlePlay(w http.ResponseWriter, r *http.Request) {
	s, ok := t.session(w, r)
	if !ok {
		return
	}
	if err := s.Play(r.Context()); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStop stops playback.
//
// @Summary  Stop playback
// @Tags     music
// @Param    account  path  string  true  "Account ID"
// @Success  204
// @Router   /v1/accounts/{account}/music/stop [post]
func (t *Transport) handleStop(w http.ResponseWriter, r *http.Request) {
	s, ok := t.session(w, r)
	if !ok {
		return
	}
	s.Stop()
	w.WriteHeader(http.StatusNoContent)
}

// handleImage runs an image request to completion.
//
// @Summary  Generate an illustration
// @Tags     images
// @Accept   json
// @Produce  json
// @Param    account  path      string              true  "Account ID"
// @Param    prompt   body      domain.ImagePrompt  true  "Character and environment"
// @Success  200      {object}  ImageResponse
// @Failure  400      {object}  ErrorResponse
// @Failure  402      {object}  ImageResponse
// @Failure  409      {object}  ErrorResponse
// @Failure  502      {object}  ImageResponse
// @Router   /v1/accounts/{account}/images [post]
func (t *Transport) handleImage(w http.ResponseWriter, r *http.Request) {
	s, ok := t.session(w, r)
	if !ok {
		return
	}
	var prompt domain.ImagePrompt
	if err := decodeBody(w, r, &prompt); err != nil {
		writeErr(w, err)
		return
	}
	out, err := s.GenerateImage(r.Context(), prompt)
	if err != nil {
		writeErr(w, err)
		return
	}
	balance, _ := s.Ledger().Balance(r.Context())
	writeJSON(w, outcomeStatus(out.State, out.Err), imageResponse(out, balance))
}

// handleThemes lists saved themes.
//
// @Summary  List saved themes
// @Tags     themes
// @Produce  json
// @Param    account  path      string  true   "Account ID"
// @Param    limit    query     int     false  "Maximum themes (default 50, 0 for all)"
// @Success  200      {array}   domain.MusicTheme
// @Router   /v1/accounts/{account}/themes [get]
func (t *Transport) handleThemes(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	v := t.studio.Vault()
	if v == nil {
		writeError(w, http.StatusServiceUnavailable, "theme vault is not configured")
		return
	}
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		writeErr(w, err)
		return
	}
	themes, err := v.Themes(r.Context(), account, limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	if themes == nil {
		themes = []domain.MusicTheme{}
	}
	writeJSON(w, http.StatusOK, themes)
}

// handleSaveTheme stores the current result in the vault.
//
// @Summary  Save the current result
// @Tags     themes
// @Produce  json
// @Param    account  path      string  true  "Account ID"
// @Success  201      {object}  domain.MusicTheme
// @Failure  404      {object}  ErrorResponse
// @Router   /v1/accounts/{account}/themes [post]
func (t *Transport) handleSaveTheme(w http.ResponseWriter, r *http.Request) {
	s, ok := t.session(w, r)
	if !ok {
		return
	}
	if t.studio.Vault() == nil {
		writeError(w, http.StatusServiceUnavailable, "theme vault is not configured")
		return
	}
	theme, err := s.SaveTheme(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, theme)
}

// handleDeleteTheme removes a saved theme.
//
// @Summary  Delete a saved theme
// @Tags     themes
// @Param    account  path  string  true  "Account ID"
// @Param    id       path  string  true  "Theme ID"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Router   /v1/accounts/{account}/themes/{id} [delete]
func (t *Transport) handleDeleteTheme(w http.ResponseWriter, r *http.Request) {
	v := t.studio.Vault()
	if v == nil {
		writeError(w, http.StatusServiceUnavailable, "theme vault is not configured")
		return
	}
	if err := v.DeleteTheme(r.Context(), chi.URLParam(r, "account"), chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ---

func (t *Transport) session(w http.ResponseWriter, r *http.Request) (*workflow.Session, bool) {
	s, err := t.studio.Session(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		writeErr(w, err)
		return nil, false
	}
	return s, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, key)
	}
	return n, nil
}

func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}

func outcomeStatus(state workflow.State, err error) int {
	if state == workflow.StateReady {
		return http.StatusOK
	}
	return statusFor(transport.OutcomeError(state, err))
}

func statusFor(err error) int {
	switch transport.Classify(err) {
	case transport.CodeInvalid:
		return http.StatusBadRequest
	case transport.CodeInsufficientCredits:
		return http.StatusPaymentRequired
	case transport.CodeBusy:
		return http.StatusConflict
	case transport.CodeNotFound:
		return http.StatusNotFound
	case transport.CodeRemote:
		return http.StatusBadGateway
	case transport.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
