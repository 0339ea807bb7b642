package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/possamhq/possam/internal/logging"
)

// TokenStore persists the backend session tokens between runs.
// Load returns empty strings when no session is stored.
type TokenStore interface {
	Save(ctx context.Context, access, refresh string) error
	Load(ctx context.Context) (access, refresh string, err error)
	Clear(ctx context.Context) error
}

// refreshMargin is how close to expiry an access token may get before the
// adapter refreshes it instead of using it.
const refreshMargin = 30 * time.Second

// HTTPGateway implements Gateway against a GoTrue-compatible REST auth API
// (the kind Supabase exposes under /auth/v1).
type HTTPGateway struct {
	baseURL string
	anonKey string
	client  *http.Client
	tokens  TokenStore
	log     logging.Logger
	now     func() time.Time
}

func NewHTTPGateway(baseURL, anonKey string, timeout time.Duration, tokens TokenStore, log logging.Logger) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		client:  &http.Client{Timeout: timeout},
		tokens:  tokens,
		log:     log.With("component", "identity.gateway"),
		now:     time.Now,
	}
}

// ---- wire DTOs ----

type wireUser struct {
	ID               string          `json:"id"`
	Email            string          `json:"email"`
	EmailConfirmedAt *time.Time      `json:"email_confirmed_at"`
	ConfirmedAt      *time.Time      `json:"confirmed_at"`
	UserMetadata     json.RawMessage `json:"user_metadata"`
}

func (u wireUser) confirmed() bool {
	return u.EmailConfirmedAt != nil || u.ConfirmedAt != nil
}

type wireSession struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"`
	User         wireUser `json:"user"`
}

// wireSignUp covers both signup response shapes: the bare user record when
// confirmation is required, or a full session when the account is
// auto-confirmed.
type wireSignUp struct {
	wireUser
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	User         *wireUser `json:"user"`
}

type wireError struct {
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

func (w wireError) message() string {
	for _, m := range []string{w.Msg, w.Message, w.ErrorDescription} {
		if m != "" {
			return m
		}
	}
	return ""
}

// ---- HTTP plumbing ----

func (g *HTTPGateway) doJSON(ctx context.Context, method, path, bearer string, body, out any) error {
	var payload *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", g.anonKey)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var we wireError
		_ = json.NewDecoder(resp.Body).Decode(&we)
		return &backendError{status: resp.StatusCode, code: we.ErrorCode, msg: we.message()}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (g *HTTPGateway) sessionFromUser(u wireUser, access string) *Session {
	s := &Session{
		UserID:        u.ID,
		Email:         u.Email,
		DisplayName:   decodeMetadata(u.UserMetadata).BestName(),
		EmailVerified: u.confirmed(),
	}
	if claims, err := parseAccessClaims(access); err == nil && claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s
}

// refresh exchanges the refresh token for a new token pair. On success the
// new pair is persisted and the new access token returned. A backend
// rejection clears the stored tokens; transient failures leave them alone.
func (g *HTTPGateway) refresh(ctx context.Context, refreshToken string) string {
	if refreshToken == "" {
		return ""
	}

	var ws wireSession
	err := g.doJSON(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "",
		map[string]string{"refresh_token": refreshToken}, &ws)
	if err != nil {
		var be *backendError
		if asBackendError(err, &be) {
			g.log.Info(ctx, "refresh token rejected, clearing stored session", "status", be.status)
			_ = g.tokens.Clear(ctx)
		} else {
			g.log.Warn(ctx, "token refresh failed", "error", err)
		}
		return ""
	}

	if err := g.tokens.Save(ctx, ws.AccessToken, ws.RefreshToken); err != nil {
		g.log.Error(ctx, "failed to persist refreshed tokens", "error", err)
	}
	return ws.AccessToken
}

func (g *HTTPGateway) fetchUser(ctx context.Context, access string) (wireUser, error) {
	var u wireUser
	err := g.doJSON(ctx, http.MethodGet, "/auth/v1/user", access, nil, &u)
	return u, err
}

// ---- Gateway implementation ----

func (g *HTTPGateway) CheckSession(ctx context.Context) *Session {
	access, refreshToken, err := g.tokens.Load(ctx)
	if err != nil {
		g.log.Error(ctx, "failed to load stored tokens", "error", err)
		return nil
	}
	if access == "" {
		return nil
	}

	if expiresSoon(access, g.now(), refreshMargin) {
		if access = g.refresh(ctx, refreshToken); access == "" {
			return nil
		}
	}

	u, err := g.fetchUser(ctx, access)
	if err != nil {
		var be *backendError
		if asBackendError(err, &be) && be.unauthorized() {
			if access = g.refresh(ctx, refreshToken); access != "" {
				if u, err = g.fetchUser(ctx, access); err == nil {
					return g.sessionFromUser(u, access)
				}
			}
			_ = g.tokens.Clear(ctx)
			return nil
		}
		// Transient failure: report no session but keep the tokens so a
		// later check can succeed.
		g.log.Warn(ctx, "session check failed", "error", err)
		return nil
	}
	return g.sessionFromUser(u, access)
}

func (g *HTTPGateway) SignUp(ctx context.Context, email, password, fullName string) SignUpResult {
	body := map[string]any{"email": email, "password": password}
	if fullName != "" {
		body["data"] = map[string]string{"full_name": fullName}
	}

	var ws wireSignUp
	if err := g.doJSON(ctx, http.MethodPost, "/auth/v1/signup", "", body, &ws); err != nil {
		kind, reason := classify(err, "Sign up failed")
		g.log.Warn(ctx, "sign up failed", "email", email, "error", err)
		return SignUpResult{Kind: kind, Reason: reason}
	}

	user := ws.wireUser
	if ws.User != nil {
		user = *ws.User
	}

	if ws.AccessToken == "" && !user.confirmed() {
		return SignUpResult{Created: true, RequiresVerification: true}
	}

	if ws.AccessToken != "" {
		if err := g.tokens.Save(ctx, ws.AccessToken, ws.RefreshToken); err != nil {
			g.log.Error(ctx, "failed to persist tokens after sign up", "error", err)
		}
	}
	return SignUpResult{Created: true, Session: g.sessionFromUser(user, ws.AccessToken)}
}

func (g *HTTPGateway) SignIn(ctx context.Context, email, password string) SignInResult {
	var ws wireSession
	err := g.doJSON(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "",
		map[string]string{"email": email, "password": password}, &ws)
	if err != nil {
		var be *backendError
		if asBackendError(err, &be) && be.emailNotConfirmed() {
			return SignInResult{Outcome: SignInNeedsVerification, Email: email}
		}
		kind, reason := classify(err, "Login failed")
		g.log.Warn(ctx, "sign in failed", "email", email, "error", err)
		return SignInResult{Kind: kind, Reason: reason}
	}

	// Backends with confirmation disabled at the API level can still hand
	// out a session for an unconfirmed account; route those to verification
	// instead of treating them as signed in.
	if !ws.User.confirmed() {
		return SignInResult{Outcome: SignInNeedsVerification, Email: email}
	}

	if err := g.tokens.Save(ctx, ws.AccessToken, ws.RefreshToken); err != nil {
		g.log.Error(ctx, "failed to persist tokens after sign in", "error", err)
	}
	return SignInResult{Outcome: SignInAuthenticated, Session: g.sessionFromUser(ws.User, ws.AccessToken)}
}

func (g *HTTPGateway) SignInWithIDToken(ctx context.Context, idToken, accessToken string) SignInResult {
	body := map[string]string{"provider": "google", "id_token": idToken}
	if accessToken != "" {
		body["access_token"] = accessToken
	}

	var ws wireSession
	err := g.doJSON(ctx, http.MethodPost, "/auth/v1/token?grant_type=id_token", "", body, &ws)
	if err != nil {
		kind, reason := classify(err, "Google sign-in failed")
		g.log.Warn(ctx, "id-token sign in failed", "error", err)
		return SignInResult{Kind: kind, Reason: reason}
	}

	if err := g.tokens.Save(ctx, ws.AccessToken, ws.RefreshToken); err != nil {
		g.log.Error(ctx, "failed to persist tokens after id-token sign in", "error", err)
	}

	session := g.sessionFromUser(ws.User, ws.AccessToken)
	// OAuth-sourced accounts are pre-verified by the provider.
	session.EmailVerified = true
	return SignInResult{Outcome: SignInAuthenticated, Session: session}
}

func (g *HTTPGateway) SignOut(ctx context.Context) error {
	access, _, err := g.tokens.Load(ctx)

	// The stored session is always cleared, whatever the backend says.
	defer func() {
		if clearErr := g.tokens.Clear(ctx); clearErr != nil {
			g.log.Error(ctx, "failed to clear stored tokens", "error", clearErr)
		}
	}()

	if err != nil || access == "" {
		return nil
	}
	if err := g.doJSON(ctx, http.MethodPost, "/auth/v1/logout", access, nil, nil); err != nil {
		return fmt.Errorf("backend sign out: %w", err)
	}
	return nil
}

func (g *HTTPGateway) ResetPassword(ctx context.Context, email string) bool {
	err := g.doJSON(ctx, http.MethodPost, "/auth/v1/recover", "",
		map[string]string{"email": email}, nil)
	if err != nil {
		g.log.Warn(ctx, "password reset request failed", "email", email, "error", err)
		return false
	}
	return true
}

func (g *HTTPGateway) ResendVerification(ctx context.Context, email string) bool {
	err := g.doJSON(ctx, http.MethodPost, "/auth/v1/resend", "",
		map[string]string{"type": "signup", "email": email}, nil)
	if err != nil {
		g.log.Warn(ctx, "verification resend failed", "email", email, "error", err)
		return false
	}
	return true
}

func (g *HTTPGateway) CheckEmailVerification(ctx context.Context, email string) bool {
	s := g.CheckSession(ctx)
	return s != nil && strings.EqualFold(s.Email, email) && s.EmailVerified
}
