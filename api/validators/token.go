package validators

import (
	"errors"
	"strings"
)

var ErrInvalidToken = errors.New("invalid auth token")

// Claims is the caller identity forwarded by the gateway.
type Claims struct {
	UserID string
	Role   string
}

// ParseAuthToken reads "Bearer <userId>|<role>". The role is optional.
func ParseAuthToken(raw string) (Claims, error) {
	token := strings.TrimSpace(raw)
	if scheme, rest, found := strings.Cut(token, " "); found && strings.EqualFold(scheme, "bearer") {
		token = strings.TrimSpace(rest)
	}
	if token == "" || strings.EqualFold(token, "bearer") {
		return Claims{}, ErrInvalidToken
	}
	userID, role, _ := strings.Cut(token, "|")
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Claims{}, ErrInvalidToken
	}
	return Claims{UserID: userID, Role: strings.TrimSpace(role)}, nil
}
