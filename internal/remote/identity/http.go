package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTimeout = 12 * time.Second

// HTTPProvider talks to a REST identity service (Identity-Toolkit style
// endpoints: accounts:signUp, accounts:signInWithPassword, accounts:sendOobCode).
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

type authResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *HTTPProvider) CreateAccount(ctx context.Context, email, password string) (*RemoteIdentity, error) {
	return p.authCall(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

func (p *HTTPProvider) SignIn(ctx context.Context, email, password string) (*RemoteIdentity, error) {
	return p.authCall(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

func (p *HTTPProvider) SendPasswordReset(ctx context.Context, email string) error {
	_, err := p.post(ctx, "accounts:sendOobCode", map[string]any{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	})
	return err
}

// Ping probes reachability of the identity service. Any HTTP response,
// including an error status, counts as reachable.
func (p *HTTPProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.baseURL, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: err.Error()}
	}
	_ = resp.Body.Close()
	return nil
}

func (p *HTTPProvider) SendEmailVerification(ctx context.Context, idToken string) error {
	_, err := p.post(ctx, "accounts:sendOobCode", map[string]any{
		"requestType": "VERIFY_EMAIL",
		"idToken":     idToken,
	})
	return err
}

func (p *HTTPProvider) authCall(ctx context.Context, endpoint string, payload map[string]any) (*RemoteIdentity, error) {
	body, err := p.post(ctx, endpoint, payload)
	if err != nil {
		return nil, err
	}

	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Kind: KindNetwork, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	remote := &RemoteIdentity{
		ID:           resp.LocalID,
		Email:        resp.Email,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
	}

	// The uid and expiry also live inside the ID token; fall back to its
	// claims when the response body omits them. The signature is the
	// provider's concern, we only read what it just issued to us.
	if claims := parseTokenClaims(resp.IDToken); claims != nil {
		if remote.ID == "" {
			if sub, err := claims.GetSubject(); err == nil {
				remote.ID = sub
			}
		}
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			remote.ExpiresAt = exp.Time
		}
	}

	if remote.ID == "" {
		return nil, &Error{Kind: KindNetwork, Message: "response carries no account id"}
	}
	return remote, nil
}

func parseTokenClaims(token string) jwt.Claims {
	if token == "" {
		return nil
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil
	}
	return parsed.Claims
}

func (p *HTTPProvider) post(ctx context.Context, endpoint string, payload map[string]any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Kind: KindInvalid, Message: err.Error()}
	}

	url := fmt.Sprintf("%s/v1/%s?key=%s", p.baseURL, endpoint, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Kind: KindInvalid, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: err.Error()}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	return nil, classifyHTTPError(resp.StatusCode, body)
}

// classifyHTTPError converts provider status codes into error kinds. The
// provider's machine-readable error code decides credential vs duplicate vs
// invalid; everything transport-shaped is network.
func classifyHTTPError(status int, body []byte) error {
	if status >= 500 {
		return &Error{Kind: KindNetwork, Message: fmt.Sprintf("server error (%d)", status)}
	}

	var er errorResponse
	_ = json.Unmarshal(body, &er)

	switch er.Error.Message {
	case "EMAIL_EXISTS":
		return &Error{Kind: KindDuplicate, Message: "email already registered"}
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED":
		return &Error{Kind: KindCredentials, Message: "invalid credentials"}
	case "INVALID_EMAIL", "WEAK_PASSWORD", "MISSING_PASSWORD":
		return &Error{Kind: KindInvalid, Message: er.Error.Message}
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &Error{Kind: KindCredentials, Message: fmt.Sprintf("rejected (%d)", status)}
	}
	return &Error{Kind: KindInvalid, Message: fmt.Sprintf("rejected (%d): %s", status, er.Error.Message)}
}
