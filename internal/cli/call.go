package cli

import (
	"context"

	"github.com/possamhq/possam/internal/voicesession"
)

// Call starts a voice call with the assistant. Only available from an
// authenticated session; the user's email travels as call metadata.
func (a *App) Call(ctx context.Context) error {
	st := a.controller.State()
	if st.Session == nil {
		printlnFn("Sign in before starting a call")
		return nil
	}

	metadata := map[string]any{"email": st.Session.Email}
	if st.Session.DisplayName != "" {
		metadata["name"] = st.Session.DisplayName
	}
	if err := a.voice.Start(ctx, metadata); err != nil {
		printlnFn("Could not start the call:", err.Error())
		return err
	}
	printlnFn("Connecting...")
	return nil
}

// Say feeds one user utterance into the active call.
func (a *App) Say(ctx context.Context, text string) error {
	if a.voice.State() != voicesession.CallActive {
		printlnFn("No active call. Run 'call' first.")
		return nil
	}
	a.voice.HandleSpeechStart("user")
	a.voice.HandleTranscript("user", text)
	a.voice.HandleSpeechEnd("user")
	return nil
}

// End hangs up the call and prints the transcript.
func (a *App) End(ctx context.Context) error {
	if err := a.voice.Stop(ctx); err != nil {
		a.log.Warn(ctx, "call did not stop cleanly", "error", err)
	}
	for _, msg := range a.voice.Transcript() {
		printlnFn(transcriptLabel(msg.Kind), msg.Text)
	}
	return nil
}

// Tools lists connected tools and the required-tools flag.
func (a *App) Tools(ctx context.Context) error {
	ids, err := a.tools.Tools(ctx)
	if err != nil {
		printlnFn("Could not read tools:", err.Error())
		return err
	}
	printlnFn("Required tools connected:", a.tools.Connected(ctx))
	if len(ids) == 0 {
		printlnFn("No tools connected")
		return nil
	}
	for _, id := range ids {
		printlnFn(" -", id)
	}
	return nil
}

// Connect registers a tool and marks the required-tools flag.
func (a *App) Connect(ctx context.Context, id string) error {
	if err := a.tools.AddTool(ctx, id); err != nil {
		printlnFn("Could not connect tool:", err.Error())
		return err
	}
	if err := a.tools.MarkConnected(ctx); err != nil {
		printlnFn("Could not update tools flag:", err.Error())
		return err
	}
	printlnFn("Connected:", id)
	return nil
}

func transcriptLabel(kind voicesession.MessageKind) string {
	switch kind {
	case voicesession.KindUser:
		return "you:"
	case voicesession.KindAssistant:
		return "assistant:"
	case voicesession.KindAssistantProcessing:
		return "assistant is thinking"
	case voicesession.KindError:
		return "error:"
	default:
		return "*"
	}
}
