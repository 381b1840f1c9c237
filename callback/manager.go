package callback

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrStateInvalid is returned when a callback state token fails signature or
// claim verification.
var ErrStateInvalid = errors.New("callback state invalid")

// ErrStateExpired is returned when a callback state token is well formed but
// past its expiry.
var ErrStateExpired = errors.New("callback state expired")

// Config defines a public type used by paneflow APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
	Leeway   time.Duration
}

// StateClaims binds a redirect state token to one flow of one webview. The
// nonce is single use; the engine rejects a callback whose nonce does not
// match the nonce recorded when the redirect pane was produced.
type StateClaims struct {
	WorkspaceID      string `json:"wid"`
	ConnectWebviewID string `json:"cwid"`
	FlowID           string `json:"fid"`
	Nonce            string `json:"nce"`
	jwt.RegisteredClaims
}

// Manager defines a public type used by paneflow APIs.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	config Config
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when input validation, dependency calls, or security checks fail.
// NewManager does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("callback state secret must be at least 32 bytes")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// Sign describes the sign operation and its observable behavior.
//
// Sign may return an error when input validation, dependency calls, or security checks fail.
// Sign does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) Sign(workspaceID, connectWebviewID, flowID, nonce string, now time.Time) (string, error) {
	if workspaceID == "" || connectWebviewID == "" || flowID == "" || nonce == "" {
		return "", errors.New("state claims require workspace, webview, flow, and nonce")
	}
	claims := StateClaims{
		WorkspaceID:      workspaceID,
		ConnectWebviewID: connectWebviewID,
		FlowID:           flowID,
		Nonce:            nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.Secret)
}

// Parse describes the parse operation and its observable behavior.
//
// Parse may return an error when input validation, dependency calls, or security checks fail.
// Parse does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) Parse(tokenStr string) (*StateClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &StateClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrStateExpired
		}
		return nil, ErrStateInvalid
	}

	claims, ok := token.Claims.(*StateClaims)
	if !ok || !token.Valid {
		return nil, ErrStateInvalid
	}
	if claims.WorkspaceID == "" || claims.ConnectWebviewID == "" || claims.FlowID == "" || claims.Nonce == "" {
		return nil, ErrStateInvalid
	}
	return claims, nil
}
