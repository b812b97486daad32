package cloud

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/dmitrijs2005/cryptkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenProvider supplies the session token presented with every remote
// call. It is read on each credentials refresh, so an external process may
// rotate it.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token, possibly empty.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if err := checkExpiry(string(t)); err != nil {
		return "", err
	}
	return string(t), nil
}

// FileToken reads the token from a file on every call.
type FileToken struct {
	Path string
}

func (t FileToken) Token(context.Context) (string, error) {
	data, err := os.ReadFile(t.Path)
	if err != nil {
		return "", fmt.Errorf("%w: read token file: %v", common.ErrRemoteAuthExpired, err)
	}

	tok := strings.TrimSpace(string(data))
	if err := checkExpiry(tok); err != nil {
		return "", err
	}
	return tok, nil
}

// now is a seam for expiry tests.
var now = time.Now

// checkExpiry rejects a JWT whose exp claim has passed. The signature is
// not verified: the remote does that. Opaque tokens are accepted as is.
func checkExpiry(tok string) error {
	exp, ok := tokenExpiry(tok)
	if ok && !now().Before(exp) {
		return fmt.Errorf("%w: token expired at %s", common.ErrRemoteAuthExpired, exp.Format(time.RFC3339))
	}
	return nil
}

func tokenExpiry(tok string) (time.Time, bool) {
	if strings.Count(tok, ".") != 2 {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// refreshEvery bounds how long the SDK caches credentials before asking
// the token provider again.
const refreshEvery = time.Minute

// tokenCredentials combines static keys with the current session token.
type tokenCredentials struct {
	accessKey string
	secretKey string
	tokens    TokenProvider
}

func (c tokenCredentials) Retrieve(ctx context.Context) (aws.Credentials, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return aws.Credentials{}, err
	}

	expires := now().Add(refreshEvery)
	if exp, ok := tokenExpiry(tok); ok && exp.Before(expires) {
		expires = exp
	}

	return aws.Credentials{
		AccessKeyID:     c.accessKey,
		SecretAccessKey: c.secretKey,
		SessionToken:    tok,
		Source:          "cryptkeeper",
		CanExpire:       true,
		Expires:         expires,
	}, nil
}
