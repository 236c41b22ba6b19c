package yale

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oshokin/yale-alarm/internal/logger"
)

const (
	// clientCredential is the HTTP Basic credential of the vendor mobile app,
	// required by the token endpoint alongside the user's own credentials.
	clientCredential = "VnVWWDZYVjlXSUNzVHJhcUVpdVNCUHBwZ3ZPakxUeXNsRU1LUHBjdTpkd3RPbE15WEtENUJ5ZW1GWHV0am55eGhrc0U3V0ZFY2p0dFcyOXRaSWNuWHlSWHFsWVBEZ1BSZE1xczF4R3VwVTlxa1o4UE5ubGlQanY5Z2hBZFFtMHpsM0h4V3dlS0ZBcGZzakpMcW1GMm1HR1lXRlpad01MRkw3MGR0bmNndQ=="

	// tokenExpiryBuffer refreshes a token slightly before the server would reject it.
	tokenExpiryBuffer = 30 * time.Second

	grantPassword = "password"
	grantRefresh  = "refresh_token"
)

// Credentials identify a Yale Smart Living account.
// They are kept in memory only.
type Credentials struct {
	Username string
	Password string
}

// Token is a bearer credential issued by the token endpoint.
type Token struct {
	AccessToken  string
	RefreshToken string
	// ExpiresAt is zero when the server did not announce a lifetime.
	ExpiresAt time.Time
}

// Expired reports whether the token must be refreshed before use at now.
// A token without an announced lifetime only expires when the server rejects it.
func (t *Token) Expired(now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return true
	}

	if t.ExpiresAt.IsZero() {
		return false
	}

	return !now.Add(tokenExpiryBuffer).Before(t.ExpiresAt)
}

// tokenResponse is the payload of the token endpoint.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	TokenType        string `json:"token_type"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// reason returns the most descriptive vendor error text.
func (r *tokenResponse) reason() string {
	if r.ErrorDescription != "" {
		return r.Error + ": " + r.ErrorDescription
	}

	return r.Error
}

// Authenticator exchanges credentials for tokens and keeps the current one
// fresh. It is not safe for concurrent use.
type Authenticator struct {
	credentials Credentials
	endpoints   *endpoints
	httpClient  *http.Client
	// token is the current token, nil before the first login.
	token *Token
	// rejected is set when the server refused token, forcing a refresh.
	rejected bool
	// afterLogin runs after every successful password grant.
	afterLogin func(ctx context.Context, token *Token)
	now        func() time.Time
}

func newAuthenticator(credentials Credentials, ep *endpoints, httpClient *http.Client) *Authenticator {
	return &Authenticator{
		credentials: credentials,
		endpoints:   ep,
		httpClient:  httpClient,
		now:         time.Now,
	}
}

// Login exchanges the account credentials for a new token pair.
func (a *Authenticator) Login(ctx context.Context) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", grantPassword)
	form.Set("username", a.credentials.Username)
	form.Set("password", a.credentials.Password)

	token, err := a.requestToken(ctx, "login", form)
	if err != nil {
		logger.ErrorKV(ctx, "Yale login failed", "username", a.credentials.Username, "error", err)

		return nil, err
	}

	a.setToken(token)
	logger.InfoKV(ctx, "Yale login succeeded", "username", a.credentials.Username)

	if a.afterLogin != nil {
		a.afterLogin(ctx, token)
	}

	return a.Token(), nil
}

// EnsureValid returns a usable token, logging in when there is none and
// refreshing when it has expired or was rejected by the server.
func (a *Authenticator) EnsureValid(ctx context.Context) (*Token, error) {
	switch {
	case a.token == nil:
		return a.Login(ctx)
	case a.rejected || a.token.Expired(a.now()):
		return a.refresh(ctx)
	default:
		return a.Token(), nil
	}
}

// Invalidate marks the current token as rejected by the server.
func (a *Authenticator) Invalidate() {
	a.rejected = true
}

// Token returns a copy of the current token, or nil before the first login.
func (a *Authenticator) Token() *Token {
	if a.token == nil {
		return nil
	}

	token := *a.token

	return &token
}

// refresh trades the refresh token for a new pair. A refused refresh token
// falls back to a full password login.
func (a *Authenticator) refresh(ctx context.Context) (*Token, error) {
	if a.token == nil || a.token.RefreshToken == "" {
		return a.Login(ctx)
	}

	form := url.Values{}
	form.Set("grant_type", grantRefresh)
	form.Set("refresh_token", a.token.RefreshToken)

	token, err := a.requestToken(ctx, "refresh", form)
	if err != nil {
		if !IsAuth(err) {
			return nil, err
		}

		logger.DebugKV(ctx, "Refresh token refused, logging in again", "error", err)

		return a.Login(ctx)
	}

	a.setToken(token)
	logger.DebugKV(ctx, "Yale token refreshed", "expires_at", token.ExpiresAt)

	return a.Token(), nil
}

func (a *Authenticator) setToken(token *Token) {
	a.token = token
	a.rejected = false
}

// requestToken posts a grant to the token endpoint and validates the answer.
func (a *Authenticator) requestToken(ctx context.Context, op string, form url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		a.endpoints.api(tokenPath),
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, &AuthError{Op: op, Reason: "build token request", Err: err}
	}

	req.Header.Set("Authorization", "Basic "+clientCredential)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	var payload tokenResponse

	decodeErr := json.Unmarshal(body, &payload)

	switch {
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		reason := http.StatusText(resp.StatusCode)
		if decodeErr == nil && payload.Error != "" {
			reason = payload.reason()
		}

		return nil, &AuthError{Op: op, Reason: reason}
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return nil, &ServerError{Op: op, StatusCode: resp.StatusCode, Body: truncate(body)}
	case decodeErr != nil:
		return nil, &ServerError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    "malformed token response",
			Body:       truncate(body),
		}
	case payload.Error != "":
		return nil, &AuthError{Op: op, Reason: payload.reason()}
	case payload.AccessToken == "" || payload.RefreshToken == "":
		return nil, &AuthError{Op: op, Reason: "token response is missing a token"}
	}

	token := &Token{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	}

	if payload.ExpiresIn > 0 {
		token.ExpiresAt = a.now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	}

	return token, nil
}
