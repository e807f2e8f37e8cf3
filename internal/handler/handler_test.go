package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/comigor/meditranslate-go/internal/audio"
	"github.com/comigor/meditranslate-go/internal/errs"
	"github.com/comigor/meditranslate-go/internal/feed"
	"github.com/comigor/meditranslate-go/internal/gateway"
	"github.com/comigor/meditranslate-go/internal/history"
	"github.com/comigor/meditranslate-go/internal/session"
)

type fakeConversation struct {
	messages []history.Message
	audio    [][]byte
	err      error
	cleared  bool
}

func (f *fakeConversation) NewSession() string { return "session-1" }

func (f *fakeConversation) SendText(_ context.Context, sessionID string, role history.Role, text, target string) (history.Message, error) {
	if f.err != nil {
		return history.Message{}, f.err
	}
	m := history.Message{ID: int64(len(f.messages) + 1), Role: role, OriginalText: text, TranslatedText: target + ":" + text, Timestamp: time.Now()}
	f.messages = append(f.messages, m)
	return m, nil
}

func (f *fakeConversation) SendAudio(_ context.Context, sessionID string, role history.Role, data []byte, target string) (history.Message, error) {
	if f.err != nil {
		return history.Message{}, f.err
	}
	f.audio = append(f.audio, data)
	m := history.Message{ID: int64(len(f.messages) + 1), Role: role, OriginalText: gateway.AudioPlaceholder, TranslatedText: "heard", AudioPath: "audio_files/x.wav"}
	f.messages = append(f.messages, m)
	return m, nil
}

func (f *fakeConversation) Summarize(context.Context, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "### Follow-up Plan\nReturn in a week", nil
}

func (f *fakeConversation) History(_ context.Context, query string) ([]history.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if query == "" {
		return f.messages, nil
	}
	var out []history.Message
	for _, m := range f.messages {
		if strings.Contains(m.OriginalText, query) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeConversation) Clear(context.Context) error {
	f.cleared = true
	f.messages = nil
	return f.err
}

type env struct {
	conv   *fakeConversation
	hub    *feed.Hub
	audio  *audio.Store
	router http.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{conv: &fakeConversation{}, hub: feed.NewHub(), audio: audio.New(t.TempDir())}
	e.router = NewRouter(New(e.conv, e.audio, e.hub))
	return e
}

func (e *env) do(method, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealthz(t *testing.T) {
	rec := newEnv(t).do(http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"ok"`)
}

func TestCreateSession(t *testing.T) {
	rec := newEnv(t).do(http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	require.Equal(t, "session-1", body["id"])
}

func TestLanguages(t *testing.T) {
	e := newEnv(t)
	rec := e.do(http.MethodGet, "/api/languages?role=doctor", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Targets []struct{ Name string } `json:"targets"`
		Default struct{ Name string }   `json:"default"`
	}
	decodeBody(t, rec, &body)
	require.Len(t, body.Targets, 7)
	require.Equal(t, "Hindi", body.Default.Name)

	rec = e.do(http.MethodGet, "/api/languages?role=nurse", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendTextAndList(t *testing.T) {
	e := newEnv(t)
	rec := e.do(http.MethodPost, "/api/messages", `{"sessionId":"s","role":"Doctor","text":"Any allergies?","targetLanguage":"German"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var m history.Message
	decodeBody(t, rec, &m)
	require.Equal(t, "German:Any allergies?", m.TranslatedText)

	rec = e.do(http.MethodGet, "/api/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Messages []history.Message `json:"messages"`
	}
	decodeBody(t, rec, &list)
	require.Len(t, list.Messages, 1)

	rec = e.do(http.MethodGet, "/api/messages?q=nothing", "")
	decodeBody(t, rec, &list)
	require.Empty(t, list.Messages)
	require.Contains(t, rec.Body.String(), `"messages":[]`)

	rec = e.do(http.MethodPost, "/api/messages", `{bad`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"rate limited", &gateway.Error{Op: "translate", Kind: gateway.KindRateLimited, Err: errors.New("429")}, http.StatusTooManyRequests, "rate_limited"},
		{"model missing", &gateway.Error{Op: "translate", Kind: gateway.KindNotFound, Err: errors.New("404")}, http.StatusBadGateway, "not_found"},
		{"other gateway", &gateway.Error{Op: "translate", Kind: gateway.KindOther, Err: errors.New("eof")}, http.StatusBadGateway, "other"},
		{"busy", session.ErrBusy, http.StatusConflict, ""},
		{"duplicate audio", session.ErrDuplicateAudio, http.StatusConflict, ""},
		{"empty", session.ErrEmptyMessage, http.StatusBadRequest, ""},
		{"role", history.ErrInvalidRole, http.StatusBadRequest, ""},
		{"storage", errs.Storage("append", "chat.db", errors.New("disk full")), http.StatusInternalServerError, ""},
		{"unknown", errors.New("weird"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			e.conv.err = tc.err
			rec := e.do(http.MethodPost, "/api/messages", `{"sessionId":"s","role":"Doctor","text":"hi"}`)
			require.Equal(t, tc.status, rec.Code)

			var body errorBody
			decodeBody(t, rec, &body)
			require.NotEmpty(t, body.Error)
			require.Equal(t, tc.kind, body.Kind)
			if tc.kind != "" {
				require.Equal(t, gateway.UserMessage(tc.err), body.Error)
			}
		})
	}
}

func TestSendAudioMultipart(t *testing.T) {
	e := newEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("sessionId", "s"))
	require.NoError(t, mw.WriteField("role", "Patient"))
	fw, err := mw.CreateFormFile("audio", "rec.wav")
	require.NoError(t, err)
	_, err = fw.Write([]byte("RIFF....WAVE"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/messages/audio", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, [][]byte{[]byte("RIFF....WAVE")}, e.conv.audio)

	rec = e.do(http.MethodPost, "/api/messages/audio", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearAndSummary(t *testing.T) {
	e := newEnv(t)
	rec := e.do(http.MethodDelete, "/api/messages", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.True(t, e.conv.cleared)

	rec = e.do(http.MethodPost, "/api/summary", `{"sessionId":"s"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	require.Contains(t, body["summary"], "Follow-up Plan")
}

func TestTranscript(t *testing.T) {
	e := newEnv(t)
	e.do(http.MethodPost, "/api/messages", `{"sessionId":"s","role":"Doctor","text":"Take ibuprofen"}`)

	rec := e.do(http.MethodGet, "/api/transcript?q=ibuprofen", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/markdown"))
	require.Contains(t, rec.Body.String(), "Take **ibuprofen**")
}

func TestServeAudio(t *testing.T) {
	e := newEnv(t)
	path, err := e.audio.Save([]byte("wavdata"))
	require.NoError(t, err)

	rec := e.do(http.MethodGet, "/api/audio/"+filepath.Base(path), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "wavdata", rec.Body.String())

	rec = e.do(http.MethodGet, "/api/audio/missing.wav", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestFeedWebsocket(t *testing.T) {
	e := newEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg outgoingMessage
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "connected", msg.Type)

	e.hub.MessageAppended(history.Message{ID: 7, Role: history.RoleDoctor, OriginalText: "hi", TranslatedText: "hola"})
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, feed.EventMessage, msg.Type)
	require.NotNil(t, msg.Message)
	require.Equal(t, int64(7), msg.Message.ID)

	e.hub.Cleared()
	msg = outgoingMessage{}
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, feed.EventCleared, msg.Type)
	require.Nil(t, msg.Message)
}
