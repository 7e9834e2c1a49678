package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lewisedginton/mood_mate/internal/analytics"
	"github.com/lewisedginton/mood_mate/internal/chat"
)

type startSessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type sendMessageResponse struct {
	Success bool `json:"success"`
	chat.SendResult
}

type trendsResponse struct {
	Trends []analytics.TrendPoint `json:"trends"`
}

func (a *API) startSession(w http.ResponseWriter, r *http.Request) {
	sess, err := a.chat.StartSession(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, startSessionResponse{
		Success:   true,
		SessionID: sess.ID,
		Message:   "Session started successfully",
	})
}

func (a *API) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req chat.SendRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	result, err := a.chat.SendMessage(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sendMessageResponse{Success: true, SendResult: result})
}

func (a *API) sessionHistory(w http.ResponseWriter, r *http.Request) {
	result, err := a.chat.History(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) moodAnalytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.chat.Analytics(r.Context()))
}

// moodTrends serves ?days=N. Anything that is not a positive integer falls back to
// the default window.
func (a *API) moodTrends(w http.ResponseWriter, r *http.Request) {
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days <= 0 {
		days = analytics.DefaultTrendDays
	}
	writeJSON(w, http.StatusOK, trendsResponse{Trends: a.chat.Trends(r.Context(), days)})
}

func (a *API) serviceHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.chat.Health(r.Context()))
}
