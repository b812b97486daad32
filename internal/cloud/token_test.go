package cloud

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/cryptkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
		Subject:   "cryptkeeper",
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func fixNow(t *testing.T, at time.Time) {
	t.Helper()
	orig := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = orig })
}

func TestStaticToken(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	fixNow(t, at)
	ctx := context.Background()

	tok, err := StaticToken("opaque-session-token").Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "opaque-session-token", tok)

	valid := signedToken(t, at.Add(time.Hour))
	tok, err = StaticToken(valid).Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, valid, tok)

	_, err = StaticToken(signedToken(t, at.Add(-time.Second))).Token(ctx)
	assert.ErrorIs(t, err, common.ErrRemoteAuthExpired)
}

func TestFileToken_ReadsOnEveryCall(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	fixNow(t, at)
	ctx := context.Background()

	p := filepath.Join(t.TempDir(), "token")
	src := FileToken{Path: p}

	_, err := src.Token(ctx)
	require.ErrorIs(t, err, common.ErrRemoteAuthExpired, "missing file")

	first := signedToken(t, at.Add(time.Hour))
	require.NoError(t, os.WriteFile(p, []byte(first+"\n"), 0o600))
	tok, err := src.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, tok)

	require.NoError(t, os.WriteFile(p, []byte(signedToken(t, at.Add(-time.Minute))), 0o600))
	_, err = src.Token(ctx)
	assert.ErrorIs(t, err, common.ErrRemoteAuthExpired)
}

func TestTokenCredentials_Retrieve(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	fixNow(t, at)

	exp := at.Add(30 * time.Second)
	c := tokenCredentials{accessKey: "AK", secretKey: "SK", tokens: StaticToken(signedToken(t, exp))}

	creds, err := c.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AK", creds.AccessKeyID)
	assert.Equal(t, "SK", creds.SecretAccessKey)
	assert.NotEmpty(t, creds.SessionToken)
	assert.True(t, creds.CanExpire)
	assert.True(t, creds.Expires.Equal(exp), "expiry follows the token when sooner than the refresh period")

	c.tokens = StaticToken("")
	creds, err = c.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, at.Add(refreshEvery), creds.Expires)

	c.tokens = StaticToken(signedToken(t, at.Add(-time.Hour)))
	_, err = c.Retrieve(context.Background())
	assert.ErrorIs(t, err, common.ErrRemoteAuthExpired)
}
