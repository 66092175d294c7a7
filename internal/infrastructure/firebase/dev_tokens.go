package firebase

import (
	"context"
	"fmt"
	"strings"
)

const devTokenPrefix = "dev-"

// DevTokenVerifier accepts "dev-<uid>" tokens. It only backs the in-memory
// development server, which runs without a Firebase project.
type DevTokenVerifier struct{}

func (DevTokenVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	uid := strings.TrimPrefix(token, devTokenPrefix)
	if uid == token || uid == "" {
		return "", fmt.Errorf("not a development token")
	}
	return uid, nil
}
