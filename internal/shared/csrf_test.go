package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSRFTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewCSRFManager("csrf-secret")
	sess := &Session{ID: "session-a"}

	token, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	again, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, token, again)

	require.NoError(t, m.VerifyToken(ctx, sess, token))
	require.ErrorIs(t, m.VerifyToken(ctx, sess, token+"x"), ErrCSRFTokenMismatch)
	require.ErrorIs(t, m.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)
	require.ErrorIs(t, m.VerifyToken(ctx, nil, token), ErrCSRFTokenMissing)
	require.ErrorIs(t, m.VerifyToken(ctx, &Session{ID: "fresh"}, token), ErrCSRFTokenMissing)
}

func TestCSRFTokenBoundToSession(t *testing.T) {
	ctx := context.Background()
	m := NewCSRFManager("csrf-secret")
	token, err := m.EnsureToken(ctx, &Session{ID: "session-a"})
	require.NoError(t, err)

	other := &Session{ID: "session-b"}
	other.Set(CSRFSessionKey, token)
	require.ErrorIs(t, m.VerifyToken(ctx, other, token), ErrCSRFTokenMismatch)
}

func TestCSRFTokenBoundToSecret(t *testing.T) {
	ctx := context.Background()
	sess := &Session{ID: "session-a"}
	token, err := NewCSRFManager("csrf-secret").EnsureToken(ctx, sess)
	require.NoError(t, err)

	require.NoError(t, NewCSRFManager("csrf-secret").VerifyToken(ctx, sess, token))
	require.ErrorIs(t, NewCSRFManager("rotated").VerifyToken(ctx, sess, token), ErrCSRFTokenMismatch)
}

func TestTokenFromRequest(t *testing.T) {
	form := url.Values{CSRFFormField: {"from-form"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.Equal(t, "from-form", TokenFromRequest(req))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(CSRFHeader, "from-header")
	require.Equal(t, "from-header", TokenFromRequest(req))
}
