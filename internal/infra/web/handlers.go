package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"telegram-channel-booster/internal/domain"
	"telegram-channel-booster/internal/domain/model"
	"telegram-channel-booster/internal/usecase"
)

// --- request/response shapes ---

type loginRequest struct {
	APIKey string `json:"api_key"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type sourceCreateRequest struct {
	ChannelID            int64                 `json:"channel_id"`
	ChannelTitle         string                `json:"channel_title"`
	ChannelUsername      string                `json:"channel_username"`
	Action               string                `json:"action"`
	CheckIntervalSeconds int                   `json:"check_interval_seconds"`
	AllowedKinds         []string              `json:"allowed_kinds"`
	Boost                *model.BoostSettings  `json:"boost"`
	Repost               *model.RepostSettings `json:"repost"`
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

type sourceResponse struct {
	ID                   string                `json:"id"`
	ChannelID            int64                 `json:"channel_id"`
	ChannelTitle         string                `json:"channel_title"`
	ChannelUsername      string                `json:"channel_username,omitempty"`
	Action               string                `json:"action"`
	Enabled              bool                  `json:"enabled"`
	Status               string                `json:"status"`
	CheckIntervalSeconds int                   `json:"check_interval_seconds"`
	LastProcessedID      int64                 `json:"last_processed_id"`
	Boost                *model.BoostSettings  `json:"boost,omitempty"`
	Repost               *model.RepostSettings `json:"repost,omitempty"`
	AllowedKinds         []string              `json:"allowed_kinds"`
	LastError            *string               `json:"last_error,omitempty"`
	LastCheckedAt        *time.Time            `json:"last_checked_at,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

type statsResponse struct {
	SourceID     string           `json:"source_id"`
	Total        int64            `json:"total"`
	Successful   int64            `json:"successful"`
	Failed       int64            `json:"failed"`
	Filtered     int64            `json:"filtered"`
	KindCounts   map[string]int64 `json:"kind_counts"`
	LastActionAt *time.Time       `json:"last_action_at,omitempty"`
	PeriodStart  time.Time        `json:"period_start"`
}

type sourceStatsResponse struct {
	statsResponse
	BoostedItems int64 `json:"boosted_items"`
}

type logEntryResponse struct {
	ID        string         `json:"id"`
	SourceID  string         `json:"source_id"`
	ChannelID int64          `json:"channel_id"`
	ItemID    int64          `json:"item_id,omitempty"`
	Action    string         `json:"action"`
	Outcome   string         `json:"outcome"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func sourceToResponse(src *model.SourceConfig) sourceResponse {
	kinds := make([]string, 0, len(src.AllowedKinds))
	for _, k := range src.AllowedKinds {
		kinds = append(kinds, string(k))
	}
	return sourceResponse{
		ID:                   src.ID,
		ChannelID:            src.ChannelID,
		ChannelTitle:         src.ChannelTitle,
		ChannelUsername:      src.ChannelUsername,
		Action:               string(src.Action),
		Enabled:              src.Enabled,
		Status:               string(src.Status),
		CheckIntervalSeconds: int(src.CheckInterval / time.Second),
		LastProcessedID:      src.LastProcessedID,
		Boost:                src.Boost,
		Repost:               src.Repost,
		AllowedKinds:         kinds,
		LastError:            src.LastError,
		LastCheckedAt:        src.LastCheckedAt,
		CreatedAt:            src.CreatedAt,
		UpdatedAt:            src.UpdatedAt,
	}
}

func statsToResponse(st *model.SourceStats) statsResponse {
	return statsResponse{
		SourceID:     st.SourceID,
		Total:        st.Total,
		Successful:   st.Successful,
		Failed:       st.Failed,
		Filtered:     st.Filtered,
		KindCounts:   st.KindCounts,
		LastActionAt: st.LastActionAt,
		PeriodStart:  st.PeriodStart,
	}
}

func logToResponse(e *model.OperationLog) logEntryResponse {
	return logEntryResponse{
		ID:        e.ID,
		SourceID:  e.SourceID,
		ChannelID: e.ChannelID,
		ItemID:    e.ItemID,
		Action:    string(e.Action),
		Outcome:   string(e.Outcome),
		Detail:    e.Detail,
		CreatedAt: e.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain errors onto HTTP statuses. Channel access failures
// carry their cause so the operator can see what the bot is missing.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, domain.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "already exists"})
	case errors.Is(err, domain.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		if _, ok := domain.AsTelegramError(err); ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// --- auth ---

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.apiKey == "" {
		s.log.Error().Msg("Admin API key is not configured")
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.APIKey != s.apiKey {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	token, err := s.auth.Mint(w)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to mint admin token")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	if s.auth != nil {
		s.auth.Clear(w)
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- sources ---

func (s *Server) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	var req sourceCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	kinds := make([]model.ContentKind, 0, len(req.AllowedKinds))
	for _, k := range req.AllowedKinds {
		kinds = append(kinds, model.ContentKind(k))
	}
	params := usecase.AddSourceParams{
		ChannelID:       req.ChannelID,
		ChannelTitle:    req.ChannelTitle,
		ChannelUsername: req.ChannelUsername,
		Action:          model.SourceAction(req.Action),
		CheckInterval:   time.Duration(req.CheckIntervalSeconds) * time.Second,
		AllowedKinds:    kinds,
		Boost:           req.Boost,
		Repost:          req.Repost,
	}

	src, err := s.sources.Add(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sourceToResponse(src))
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	list, err := s.sources.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]sourceResponse, 0, len(list))
	for _, src := range list {
		items = append(items, sourceToResponse(src))
	}
	writeJSON(w, http.StatusOK, struct {
		Items []sourceResponse `json:"items"`
	}{Items: items})
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	src, err := s.sources.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sourceToResponse(src))
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	if err := s.sources.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetEnabled(w http.ResponseWriter, r *http.Request) {
	var req setEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	src, err := s.sources.SetEnabled(r.Context(), chi.URLParam(r, "id"), *req.Enabled)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sourceToResponse(src))
}

func (s *Server) handleRecheck(w http.ResponseWriter, r *http.Request) {
	enabled, err := s.health.RecheckAndReenable(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Enabled bool `json:"enabled"`
	}{Enabled: enabled})
}

// --- stats and logs ---

func (s *Server) handleSourceStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := s.stats.ForSource(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	boosted, err := s.stats.BoostedCount(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sourceStatsResponse{
		statsResponse: statsToResponse(st),
		BoostedItems:  boosted,
	})
}

func (s *Server) handleAllStats(w http.ResponseWriter, r *http.Request) {
	all, err := s.stats.All(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]statsResponse, 0, len(all))
	for _, st := range all {
		items = append(items, statsToResponse(st))
	}
	writeJSON(w, http.StatusOK, struct {
		Items []statsResponse `json:"items"`
	}{Items: items})
}

func (s *Server) handleSourceLogs(w http.ResponseWriter, r *http.Request) {
	s.writeLogs(w, r, chi.URLParam(r, "id"))
}

func (s *Server) handleRecentLogs(w http.ResponseWriter, r *http.Request) {
	s.writeLogs(w, r, "")
}

func (s *Server) writeLogs(w http.ResponseWriter, r *http.Request, sourceID string) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.stats.RecentLogs(r.Context(), sourceID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]logEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, logToResponse(e))
	}
	writeJSON(w, http.StatusOK, struct {
		Items []logEntryResponse `json:"items"`
	}{Items: items})
}
