// Package session drives one interaction at a time per session: it validates
// input, calls the translation gateway, records the turn and notifies the feed.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/qmuntal/stateless"

	"github.com/comigor/meditranslate-go/internal/gateway"
	"github.com/comigor/meditranslate-go/internal/history"
	"github.com/comigor/meditranslate-go/internal/lang"
	"github.com/comigor/meditranslate-go/internal/logger"
	"github.com/comigor/meditranslate-go/internal/transcript"
)

// FSM states
type FSMState string

const (
	StateIdle         FSMState = "Idle"
	StateTranslating  FSMState = "Translating"
	StateTranscribing FSMState = "Transcribing"
	StateSummarizing  FSMState = "Summarizing"
)

// FSM triggers
type FSMTrigger string

const (
	TriggerTranslate  FSMTrigger = "Translate"
	TriggerTranscribe FSMTrigger = "Transcribe"
	TriggerSummarize  FSMTrigger = "Summarize"
	TriggerFinished   FSMTrigger = "Finished"
)

var (
	ErrBusy           = errors.New("another request is in progress for this session")
	ErrEmptyMessage   = errors.New("message text is empty")
	ErrEmptyAudio     = errors.New("audio recording is empty")
	ErrDuplicateAudio = errors.New("this recording was already translated")
	ErrNoSession      = errors.New("session id required")
)

// Log is the part of the message log the orchestrator writes and reads.
type Log interface {
	Append(ctx context.Context, role history.Role, original, translated, audioPath string) (history.Message, error)
	All(ctx context.Context) ([]history.Message, error)
	Search(ctx context.Context, query string) ([]history.Message, error)
	Clear(ctx context.Context) error
}

// Translator is implemented by *gateway.Gateway.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
	TranscribeAndTranslate(ctx context.Context, audioPath, targetLanguage, spoken string) (gateway.Transcription, error)
	Summarize(ctx context.Context, historyText string) (string, error)
}

// AudioSaver persists a recording and returns its path.
type AudioSaver interface {
	Save(data []byte) (string, error)
}

// Publisher is told about every change to the log.
type Publisher interface {
	MessageAppended(m history.Message)
	Cleared()
}

type state struct {
	mu        sync.Mutex
	fsm       *stateless.StateMachine
	processed map[string]struct{}
}

func newState() *state {
	fsm := stateless.NewStateMachine(StateIdle)
	fsm.Configure(StateIdle).
		Permit(TriggerTranslate, StateTranslating).
		Permit(TriggerTranscribe, StateTranscribing).
		Permit(TriggerSummarize, StateSummarizing)
	for _, busy := range []FSMState{StateTranslating, StateTranscribing, StateSummarizing} {
		fsm.Configure(busy).Permit(TriggerFinished, StateIdle)
	}
	return &state{fsm: fsm, processed: make(map[string]struct{})}
}

// Orchestrator owns the per-session state machines. It is safe for
// concurrent use; different sessions never block each other.
type Orchestrator struct {
	log        Log
	translator Translator
	audio      AudioSaver
	publisher  Publisher

	mu       sync.Mutex
	sessions map[string]*state
}

// New wires an orchestrator. publisher may be nil.
func New(log Log, translator Translator, audio AudioSaver, publisher Publisher) *Orchestrator {
	return &Orchestrator{
		log:        log,
		translator: translator,
		audio:      audio,
		publisher:  publisher,
		sessions:   make(map[string]*state),
	}
}

// NewSession registers a fresh session and returns its id.
func (o *Orchestrator) NewSession() string {
	id := uuid.NewString()
	o.mu.Lock()
	o.sessions[id] = newState()
	o.mu.Unlock()
	return id
}

// session returns the state for id, creating it on first use so that
// clients holding an id from a previous process keep working.
func (o *Orchestrator) session(id string) (*state, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNoSession
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[id]
	if !ok {
		s = newState()
		o.sessions[id] = s
	}
	return s, nil
}

func (s *state) begin(trigger FSMTrigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok, _ := s.fsm.CanFire(trigger); !ok {
		return ErrBusy
	}
	return s.fsm.Fire(trigger)
}

func (s *state) finish(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fsm.Fire(TriggerFinished); err != nil {
		logger.FromContext(ctx).Warn("FSM fire error", "error", err)
	}
}

func (s *state) current() FSMState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, _ := s.fsm.MustState().(FSMState)
	return st
}

// Busy reports whether an interaction is in flight for sessionID.
func (o *Orchestrator) Busy(sessionID string) bool {
	o.mu.Lock()
	s, ok := o.sessions[strings.TrimSpace(sessionID)]
	o.mu.Unlock()
	return ok && s.current() != StateIdle
}

// State returns the current FSM state of sessionID; unknown sessions are Idle.
func (o *Orchestrator) State(sessionID string) FSMState {
	o.mu.Lock()
	s, ok := o.sessions[strings.TrimSpace(sessionID)]
	o.mu.Unlock()
	if !ok {
		return StateIdle
	}
	return s.current()
}

func resolveTarget(role history.Role, target string) (lang.Language, error) {
	if strings.TrimSpace(target) == "" {
		return lang.Default(role), nil
	}
	return lang.Resolve(role, target)
}

// SendText translates text spoken by role into target (the role's default
// when blank) and records the turn.
func (o *Orchestrator) SendText(ctx context.Context, sessionID string, role history.Role, text, target string) (history.Message, error) {
	if strings.TrimSpace(text) == "" {
		return history.Message{}, ErrEmptyMessage
	}
	role, err := history.ParseRole(string(role))
	if err != nil {
		return history.Message{}, err
	}
	to, err := resolveTarget(role, target)
	if err != nil {
		return history.Message{}, err
	}
	s, err := o.session(sessionID)
	if err != nil {
		return history.Message{}, err
	}
	if err := s.begin(TriggerTranslate); err != nil {
		return history.Message{}, err
	}
	defer s.finish(ctx)

	log := logger.FromContext(ctx).With("session", sessionID, "role", role, "target", to.Name)
	translated, err := o.translator.Translate(ctx, text, to.Name)
	if err != nil {
		return history.Message{}, err
	}
	m, err := o.log.Append(ctx, role, text, translated, "")
	if err != nil {
		log.Error("append failed", "error", err)
		return history.Message{}, err
	}
	log.Info("text translated", "id", m.ID)
	o.notify(m)
	return m, nil
}

// SendAudio stores the recording, transcribes and translates it, and records
// the turn with the artifact path. A recording already translated in this
// session is rejected with ErrDuplicateAudio.
func (o *Orchestrator) SendAudio(ctx context.Context, sessionID string, role history.Role, data []byte, target string) (history.Message, error) {
	if len(data) == 0 {
		return history.Message{}, ErrEmptyAudio
	}
	role, err := history.ParseRole(string(role))
	if err != nil {
		return history.Message{}, err
	}
	to, err := resolveTarget(role, target)
	if err != nil {
		return history.Message{}, err
	}
	s, err := o.session(sessionID)
	if err != nil {
		return history.Message{}, err
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	s.mu.Lock()
	_, seen := s.processed[digest]
	s.mu.Unlock()
	if seen {
		return history.Message{}, ErrDuplicateAudio
	}

	if err := s.begin(TriggerTranscribe); err != nil {
		return history.Message{}, err
	}
	defer s.finish(ctx)

	log := logger.FromContext(ctx).With("session", sessionID, "role", role, "target", to.Name)
	path, err := o.audio.Save(data)
	if err != nil {
		log.Error("save audio failed", "error", err)
		return history.Message{}, err
	}
	tr, err := o.translator.TranscribeAndTranslate(ctx, path, to.Name, spokenHint(role))
	if err != nil {
		return history.Message{}, err
	}
	m, err := o.log.Append(ctx, role, tr.Original, tr.Translated, path)
	if err != nil {
		log.Error("append failed", "error", err)
		return history.Message{}, err
	}

	s.mu.Lock()
	s.processed[digest] = struct{}{}
	s.mu.Unlock()

	log.Info("audio translated", "id", m.ID, "audio", path)
	o.notify(m)
	return m, nil
}

// A doctor speaks the language patients translate into; a patient may speak
// any of the catalog languages, so no hint is given.
func spokenHint(role history.Role) string {
	if role == history.RoleDoctor {
		return lang.Default(history.RolePatient).ISO639()
	}
	return ""
}

// Summarize asks the gateway for a clinical summary of the whole log.
func (o *Orchestrator) Summarize(ctx context.Context, sessionID string) (string, error) {
	s, err := o.session(sessionID)
	if err != nil {
		return "", err
	}
	if err := s.begin(TriggerSummarize); err != nil {
		return "", err
	}
	defer s.finish(ctx)

	messages, err := o.log.All(ctx)
	if err != nil {
		return "", err
	}
	return o.translator.Summarize(ctx, transcript.HistoryText(messages))
}

// History returns the messages matching query, or all of them when query is blank.
func (o *Orchestrator) History(ctx context.Context, query string) ([]history.Message, error) {
	if strings.TrimSpace(query) == "" {
		return o.log.All(ctx)
	}
	return o.log.Search(ctx, query)
}

// Clear deletes every message. Stored recordings are kept.
func (o *Orchestrator) Clear(ctx context.Context) error {
	if err := o.log.Clear(ctx); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("history cleared")
	if o.publisher != nil {
		o.publisher.Cleared()
	}
	return nil
}

func (o *Orchestrator) notify(m history.Message) {
	if o.publisher != nil {
		o.publisher.MessageAppended(m)
	}
}
