package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoski/phishguard/internal/auth"
	"github.com/dkoski/phishguard/internal/ingest"
	"github.com/dkoski/phishguard/internal/store"
	"github.com/dkoski/phishguard/pkg/types"
)

type stubSource struct {
	ids    []string
	bodies map[string]string
}

func (s *stubSource) ListRecentIDs(ctx context.Context, limit int) ([]string, error) {
	if len(s.ids) > limit {
		return s.ids[:limit], nil
	}
	return s.ids, nil
}

func (s *stubSource) FetchBody(ctx context.Context, id string) (string, error) {
	return s.bodies[id], nil
}

func (s *stubSource) Close() error { return nil }

type stubClassifier struct {
	label types.Label
	err   error
}

func (s *stubClassifier) Predict(text string) (types.Label, error) {
	return s.label, s.err
}

func newTestServer(t *testing.T, factory ingest.SourceFactory, cls ingest.Classifier) (*gin.Engine, *store.Store) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	db, err := auth.NewDB(filepath.Join(t.TempDir(), "users.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck
	authSvc := auth.NewService(auth.NewStore(db, logger), "test-secret", logger)

	st := store.New(logger)
	ingestSvc := ingest.NewService(st, cls, factory, 100, logger)

	h := NewHandler(authSvc, ingestSvc, st, cls, logger)
	return NewRouter(h, authSvc, logger), st
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func signUp(t *testing.T, r *gin.Engine, email, password string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/auth/signup", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code)
	token, _ := decodeBody(t, w)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func defaultFactory(src ingest.Source) ingest.SourceFactory {
	return func(ctx context.Context) (ingest.Source, error) { return src, nil }
}

func TestHealthz(t *testing.T) {
	r, _ := newTestServer(t, defaultFactory(&stubSource{}), &stubClassifier{})

	w := doJSON(t, r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignUpAndLogIn(t *testing.T) {
	r, _ := newTestServer(t, defaultFactory(&stubSource{}), &stubClassifier{})

	signUp(t, r, "alice@example.org", "hunter2")

	w := doJSON(t, r, http.MethodPost, "/auth/signup", "", gin.H{"email": "alice@example.org", "password": "x"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{"email": "alice@example.org", "password": "hunter2"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decodeBody(t, w)["token"])

	w = doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{"email": "alice@example.org", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResetPasswordRoute(t *testing.T) {
	r, _ := newTestServer(t, defaultFactory(&stubSource{}), &stubClassifier{})
	signUp(t, r, "alice@example.org", "hunter2")

	w := doJSON(t, r, http.MethodPost, "/auth/reset_password", "", gin.H{
		"email": "alice@example.org", "old_password": "hunter2", "new_password": "correct horse",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{"email": "alice@example.org", "password": "correct horse"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r, _ := newTestServer(t, defaultFactory(&stubSource{}), &stubClassifier{})

	w := doJSON(t, r, http.MethodGet, "/emails", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodGet, "/emails", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFetchListDeleteFlow(t *testing.T) {
	src := &stubSource{
		ids:    []string{"1"},
		bodies: map[string]string{"1": "Your account is suspended, verify now"},
	}
	r, _ := newTestServer(t, defaultFactory(src), &stubClassifier{label: types.LabelPhishing})
	token := signUp(t, r, "alice@example.org", "hunter2")

	w := doJSON(t, r, http.MethodPost, "/emails/fetch", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["fetched"])

	w = doJSON(t, r, http.MethodGet, "/emails", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	messages := decodeBody(t, w)["messages"].([]any)
	require.Len(t, messages, 1)
	msg := messages[0].(map[string]any)
	assert.Equal(t, "Your account is suspended, verify now", msg["text"])
	assert.Equal(t, "phishing", msg["label"])

	w = doJSON(t, r, http.MethodPost, "/emails/delete", token, gin.H{"text": "Your account is suspended, verify now"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["removed"])

	// Re-fetch against unchanged provider state must not resurrect it.
	w = doJSON(t, r, http.MethodPost, "/emails/fetch", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decodeBody(t, w)["fetched"])

	w = doJSON(t, r, http.MethodGet, "/emails", token, nil)
	assert.Empty(t, decodeBody(t, w)["messages"])
}

func TestFetchDegradesOnProviderFailure(t *testing.T) {
	factory := func(ctx context.Context) (ingest.Source, error) {
		return nil, errors.New("token expired")
	}
	r, _ := newTestServer(t, factory, &stubClassifier{})
	token := signUp(t, r, "alice@example.org", "hunter2")

	w := doJSON(t, r, http.MethodPost, "/emails/fetch", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decodeBody(t, w)["fetched"])
}

func TestMailboxesAreIsolatedPerUser(t *testing.T) {
	r, st := newTestServer(t, defaultFactory(&stubSource{}), &stubClassifier{})
	aliceToken := signUp(t, r, "alice@example.org", "hunter2")
	signUp(t, r, "bob@example.org", "hunter2")

	st.AppendIfNew("bob@example.org", types.Message{Text: "bob private", Label: types.LabelNotPhishing})

	w := doJSON(t, r, http.MethodGet, "/emails", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody(t, w)["messages"])
}

func TestClassifyMessage(t *testing.T) {
	r, st := newTestServer(t, defaultFactory(&stubSource{}), &stubClassifier{label: types.LabelPhishing})
	token := signUp(t, r, "alice@example.org", "hunter2")

	w := doJSON(t, r, http.MethodPost, "/messages/classify", token, gin.H{"message": " verify your account "})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "phishing", decodeBody(t, w)["label"])

	live := st.ListLive("alice@example.org")
	require.Len(t, live, 1)
	assert.Equal(t, "verify your account", live[0].Text)

	w = doJSON(t, r, http.MethodPost, "/messages/classify", token, gin.H{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClassifyMessageModelFailure(t *testing.T) {
	r, _ := newTestServer(t, defaultFactory(&stubSource{}), &stubClassifier{err: errors.New("artifacts missing")})
	token := signUp(t, r, "alice@example.org", "hunter2")

	w := doJSON(t, r, http.MethodPost, "/messages/classify", token, gin.H{"message": "odd text"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "error", decodeBody(t, w)["label"])
}
