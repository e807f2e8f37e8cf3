// Package handler is the HTTP surface of the translator: chat turns, history,
// summaries, stored recordings and a live feed of new messages.
package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"

	"github.com/comigor/meditranslate-go/internal/feed"
	"github.com/comigor/meditranslate-go/internal/history"
	"github.com/comigor/meditranslate-go/internal/lang"
	"github.com/comigor/meditranslate-go/internal/transcript"
)

// maxAudioBytes bounds a single uploaded recording.
const maxAudioBytes = 32 << 20

// Conversation is implemented by *session.Orchestrator.
type Conversation interface {
	NewSession() string
	SendText(ctx context.Context, sessionID string, role history.Role, text, target string) (history.Message, error)
	SendAudio(ctx context.Context, sessionID string, role history.Role, data []byte, target string) (history.Message, error)
	Summarize(ctx context.Context, sessionID string) (string, error)
	History(ctx context.Context, query string) ([]history.Message, error)
	Clear(ctx context.Context) error
}

// AudioFiles resolves stored recording names to paths.
type AudioFiles interface {
	Resolve(name string) (string, bool)
}

// Feed hands out subscriptions to log changes.
type Feed interface {
	Subscribe() (<-chan feed.Event, func())
}

// Handler serves the API.
type Handler struct {
	conv  Conversation
	audio AudioFiles
	feed  Feed
}

// New creates a Handler. feed may be nil, which disables the websocket route.
func New(conv Conversation, audio AudioFiles, feed Feed) *Handler {
	return &Handler{conv: conv, audio: audio, feed: feed}
}

// RegisterRoutes mounts the API routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/languages", h.handleLanguages)
	r.Get("/messages", h.handleListMessages)
	r.Post("/messages", h.handleSendText)
	r.Post("/messages/audio", h.handleSendAudio)
	r.Delete("/messages", h.handleClear)
	r.Post("/summary", h.handleSummary)
	r.Get("/transcript", h.handleTranscript)
	r.Get("/audio/{name}", h.handleAudio)
	if h.feed != nil {
		r.Get("/ws", h.handleFeed)
	}
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusCreated, map[string]string{"id": h.conv.NewSession()})
}

func (h *Handler) handleLanguages(w http.ResponseWriter, r *http.Request) {
	role, err := history.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"role":    role,
		"targets": lang.Targets(role),
		"default": lang.Default(role),
	})
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.conv.History(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	if messages == nil {
		messages = []history.Message{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *Handler) handleSendText(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID      string `json:"sessionId"`
		Role           string `json:"role"`
		Text           string `json:"text"`
		TargetLanguage string `json:"targetLanguage"`
	}
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.conv.SendText(r.Context(), payload.SessionID, history.Role(payload.Role), payload.Text, payload.TargetLanguage)
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, m)
}

func (h *Handler) handleSendAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes+1<<20)
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read audio")
		return
	}

	m, err := h.conv.SendAudio(r.Context(),
		r.FormValue("sessionId"),
		history.Role(r.FormValue("role")),
		data,
		r.FormValue("targetLanguage"),
	)
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, m)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.conv.Clear(r.Context()); err != nil {
		respondFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	summary, err := h.conv.Summarize(r.Context(), payload.SessionID)
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	messages, err := h.conv.History(r.Context(), query)
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	io.WriteString(w, transcript.Markdown(messages, strings.TrimSpace(query)))
}

func (h *Handler) handleAudio(w http.ResponseWriter, r *http.Request) {
	path, ok := h.audio.Resolve(chi.URLParam(r, "name"))
	if !ok {
		respondError(w, http.StatusNotFound, "audio not found")
		return
	}
	http.ServeFile(w, r, path)
}
