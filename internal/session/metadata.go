package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/voxtask/voxtask/internal/models"
)

// JoinMetadata is the caller-supplied blob carried into the session at
// connection time: who is joining and the credential persistence calls will
// use.
type JoinMetadata struct {
	UserID    string `json:"userId"`
	Name      string `json:"name,omitempty"`
	AuthToken string `json:"authToken,omitempty"`
}

// ParseJoinMetadata decodes connection-time metadata. Callers fall back to a
// placeholder identity when this fails; a malformed blob must not let a
// session run as the wrong user.
func ParseJoinMetadata(raw string) (JoinMetadata, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return JoinMetadata{}, fmt.Errorf("empty join metadata")
	}

	var meta JoinMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return JoinMetadata{}, fmt.Errorf("malformed join metadata: %w", err)
	}
	if meta.UserID == "" {
		return JoinMetadata{}, fmt.Errorf("join metadata missing userId")
	}

	return meta, nil
}

// PlaceholderIdentity is used when join metadata cannot be parsed. The
// session still runs, but persist calls fail fast instead of silently
// succeeding as the wrong user.
func PlaceholderIdentity() models.User {
	return models.User{ID: "anonymous-" + uuid.NewString()[:8], Name: "Guest"}
}

// MintJoinToken creates a room-join token for the given user, signed with
// the shared session secret.
func MintJoinToken(subject, secret string, ttl time.Duration) (string, error) {
	token, err := jwt.NewBuilder().
		Subject(subject).
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(ttl)).
		Build()
	if err != nil {
		return "", fmt.Errorf("building join token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, []byte(secret)))
	if err != nil {
		return "", fmt.Errorf("signing join token: %w", err)
	}
	return string(signed), nil
}

// VerifyJoinToken validates a room-join token minted with the shared session
// secret. Used at the transport edge before a connection is admitted.
func VerifyJoinToken(tokenString, secret string) (string, error) {
	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKey(jwa.HS256, []byte(secret)),
		jwt.WithValidate(true),
	)
	if err != nil {
		return "", fmt.Errorf("invalid join token: %w", err)
	}
	return token.Subject(), nil
}
