package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/possamhq/possam/internal/oauth"
)

// PromptProvider is the shell's stand-in for a native Google sign-in
// flow: the user obtains an ID token out of band and pastes it in. An
// empty line cancels the flow.
type PromptProvider struct {
	reader *bufio.Reader
}

func NewPromptProvider() *PromptProvider {
	return &PromptProvider{reader: bufio.NewReader(os.Stdin)}
}

func (p *PromptProvider) SignIn(ctx context.Context) (oauth.Credential, error) {
	idToken, err := getSimpleText(p.reader, "Paste your Google ID token (empty line to cancel)", os.Stdout)
	if err != nil {
		return oauth.Credential{}, err
	}
	if idToken == "" {
		return oauth.Credential{}, oauth.ErrCancelled
	}
	accessToken, err := getSimpleText(p.reader, "Paste the access token (optional)", os.Stdout)
	if err != nil {
		return oauth.Credential{}, err
	}
	return oauth.Credential{IDToken: idToken, AccessToken: accessToken}, nil
}

func (p *PromptProvider) SignOut(ctx context.Context) {}

// HandleRedirectURL is a no-op: the paste flow has no redirect leg.
func (p *PromptProvider) HandleRedirectURL(url string) bool { return false }
