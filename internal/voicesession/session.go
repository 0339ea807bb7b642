// Package voicesession holds the state of a voice-assistant call: the
// call lifecycle, the transcript, and who is currently speaking. The
// actual audio transport lives behind the Client interface.
package voicesession

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/possamhq/possam/internal/logging"
)

// CallState is the lifecycle of a single call.
type CallState int

const (
	CallIdle CallState = iota
	CallConnecting
	CallActive
	CallEnding
)

func (s CallState) String() string {
	switch s {
	case CallIdle:
		return "idle"
	case CallConnecting:
		return "connecting"
	case CallActive:
		return "active"
	case CallEnding:
		return "ending"
	default:
		return "unknown"
	}
}

// MessageKind classifies transcript entries.
type MessageKind int

const (
	KindUser MessageKind = iota
	KindAssistant
	KindAssistantProcessing
	KindSystem
	KindStatus
	KindError
)

// Message is one transcript entry.
type Message struct {
	ID   uuid.UUID
	Kind MessageKind
	Text string
	At   time.Time
}

// Client starts and stops calls on the voice backend. Implementations
// report progress back through the Session's Handle methods.
type Client interface {
	Start(ctx context.Context, assistantID string, metadata map[string]any) error
	Stop(ctx context.Context) error
}

// Sink receives call-state changes and new transcript entries.
type Sink interface {
	OnCallStateChange(CallState)
	OnTranscript(Message)
}

// Session is the single mutable container for one user's call state. It
// is safe for concurrent use; the Client's event callbacks and the UI
// may call in from different goroutines.
type Session struct {
	client      Client
	log         logging.Logger
	assistantID string
	now         func() time.Time

	mu                sync.Mutex
	state             CallState
	transcript        []Message
	userSpeaking      bool
	assistantSpeaking bool
	sinks             []Sink
}

func NewSession(client Client, assistantID string, log logging.Logger) *Session {
	return &Session{
		client:      client,
		assistantID: assistantID,
		log:         log.With("component", "voicesession"),
		now:         time.Now,
	}
}

// State returns the current call state.
func (s *Session) State() CallState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns a copy of the transcript so far.
func (s *Session) Transcript() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.transcript)
}

// Speaking reports the user and assistant speaking flags.
func (s *Session) Speaking() (user, assistant bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userSpeaking, s.assistantSpeaking
}

// Subscribe registers a sink for state and transcript events.
func (s *Session) Subscribe(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Start begins a call. No-op unless the session is idle.
func (s *Session) Start(ctx context.Context, metadata map[string]any) error {
	s.mu.Lock()
	if s.state != CallIdle {
		s.mu.Unlock()
		return nil
	}
	s.state = CallConnecting
	s.mu.Unlock()
	s.notifyState(CallConnecting)
	s.appendStatus(KindStatus, "Connecting...")

	if err := s.client.Start(ctx, s.assistantID, metadata); err != nil {
		s.log.Error(ctx, "failed to start call", "error", err)
		s.appendStatus(KindError, "Could not connect the call")
		s.setState(CallIdle)
		return err
	}
	return nil
}

// Stop ends the call. No-op unless a call is connecting or active.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != CallConnecting && s.state != CallActive {
		s.mu.Unlock()
		return nil
	}
	s.state = CallEnding
	s.mu.Unlock()
	s.notifyState(CallEnding)

	if err := s.client.Stop(ctx); err != nil {
		s.log.Warn(ctx, "failed to stop call cleanly", "error", err)
		// the call-ended event still resets state; fall through
		return err
	}
	return nil
}

// ---- client event callbacks ----

// HandleCallStarted marks the call active.
func (s *Session) HandleCallStarted() {
	s.setState(CallActive)
	s.appendStatus(KindStatus, "Connected")
}

// HandleCallEnded resets the session to idle and clears speaking flags.
// The transcript survives so the UI can keep showing it.
func (s *Session) HandleCallEnded() {
	s.mu.Lock()
	s.state = CallIdle
	s.userSpeaking = false
	s.assistantSpeaking = false
	s.mu.Unlock()
	s.notifyState(CallIdle)
	s.appendStatus(KindStatus, "Call ended")
}

// HandleTranscript appends a final transcript line for the given role.
func (s *Session) HandleTranscript(role, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	kind := KindAssistant
	if strings.EqualFold(role, "user") {
		kind = KindUser
	}
	s.append(Message{Kind: kind, Text: text})
}

// HandleSpeechStart flips the speaking flag for the given role. An
// assistant speech start replaces any pending processing indicator.
func (s *Session) HandleSpeechStart(role string) {
	s.mu.Lock()
	if strings.EqualFold(role, "user") {
		s.userSpeaking = true
	} else {
		s.assistantSpeaking = true
		s.dropProcessingLocked()
	}
	s.mu.Unlock()
}

// HandleSpeechEnd clears the speaking flag for the given role. When the
// user stops speaking the assistant is presumably thinking, so a
// processing indicator is appended.
func (s *Session) HandleSpeechEnd(role string) {
	if strings.EqualFold(role, "user") {
		s.mu.Lock()
		s.userSpeaking = false
		s.mu.Unlock()
		s.append(Message{Kind: KindAssistantProcessing, Text: "..."})
		return
	}
	s.mu.Lock()
	s.assistantSpeaking = false
	s.mu.Unlock()
}

// HandleError records a call error in the transcript.
func (s *Session) HandleError(err error) {
	if err == nil {
		return
	}
	s.log.Error(context.Background(), "call error", "error", err)
	s.appendStatus(KindError, err.Error())
}

// ---- internals ----

func (s *Session) setState(state CallState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.notifyState(state)
}

func (s *Session) appendStatus(kind MessageKind, text string) {
	s.append(Message{Kind: kind, Text: text})
}

func (s *Session) append(msg Message) {
	msg.ID = uuid.New()
	msg.At = s.now()

	s.mu.Lock()
	if msg.Kind != KindAssistantProcessing {
		s.dropProcessingLocked()
	}
	s.transcript = append(s.transcript, msg)
	sinks := slices.Clone(s.sinks)
	s.mu.Unlock()

	for _, sink := range sinks {
		sink.OnTranscript(msg)
	}
}

// dropProcessingLocked removes a trailing processing indicator. Callers
// must hold s.mu.
func (s *Session) dropProcessingLocked() {
	if n := len(s.transcript); n > 0 && s.transcript[n-1].Kind == KindAssistantProcessing {
		s.transcript = s.transcript[:n-1]
	}
}

func (s *Session) notifyState(state CallState) {
	s.mu.Lock()
	sinks := slices.Clone(s.sinks)
	s.mu.Unlock()
	for _, sink := range sinks {
		sink.OnCallStateChange(state)
	}
}
