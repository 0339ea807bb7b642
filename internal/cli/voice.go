package cli

import (
	"context"
	"sync"
	"time"

	"github.com/possamhq/possam/internal/voicesession"
)

// SimClient is a loopback voice client for the shell: it connects after a
// short delay and answers every user utterance with a canned line. It
// implements both voicesession.Client and voicesession.Sink, so wiring is
//
//	client := NewSimClient(delay)
//	voice := voicesession.NewSession(client, assistantID, log)
//	client.Bind(voice)
//	voice.Subscribe(client)
type SimClient struct {
	connectDelay time.Duration

	mu      sync.Mutex
	session *voicesession.Session
}

func NewSimClient(connectDelay time.Duration) *SimClient {
	return &SimClient{connectDelay: connectDelay}
}

// Bind attaches the session that receives the client's events.
func (c *SimClient) Bind(s *voicesession.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

func (c *SimClient) bound() *voicesession.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *SimClient) Start(ctx context.Context, assistantID string, metadata map[string]any) error {
	go func() {
		select {
		case <-time.After(c.connectDelay):
		case <-ctx.Done():
			return
		}
		s := c.bound()
		if s == nil {
			return
		}
		s.HandleCallStarted()
		s.HandleSpeechStart("assistant")
		s.HandleTranscript("assistant", "Hi! I'm listening.")
		s.HandleSpeechEnd("assistant")
	}()
	return nil
}

func (c *SimClient) Stop(ctx context.Context) error {
	if s := c.bound(); s != nil {
		s.HandleCallEnded()
	}
	return nil
}

// OnTranscript answers user lines. Assistant lines are ignored to keep
// the loopback from feeding itself.
func (c *SimClient) OnTranscript(msg voicesession.Message) {
	if msg.Kind != voicesession.KindUser {
		return
	}
	s := c.bound()
	if s == nil {
		return
	}
	s.HandleSpeechStart("assistant")
	s.HandleTranscript("assistant", "I heard: "+msg.Text)
	s.HandleSpeechEnd("assistant")
}

func (c *SimClient) OnCallStateChange(voicesession.CallState) {}
