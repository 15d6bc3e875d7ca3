package providers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/CyberAli-eng/LaCleoOmnia-auto/providers"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// snovStub simulates the Snov.io token and list endpoints. Each call to the
// list endpoint pops the next scripted response; the last one repeats.
type snovStub struct {
	server       *httptest.Server
	tokenFetches int32
	listCalls    int32
	responses    []stubResponse
}

type stubResponse struct {
	status int
	body   string
}

func newSnovStub(responses ...stubResponse) *snovStub {
	stub := &snovStub{responses: responses}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&stub.tokenFetches, 1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test_token",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/v1/add-prospect-to-list", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&stub.listCalls, 1)
		idx := int(n) - 1
		if idx >= len(stub.responses) {
			idx = len(stub.responses) - 1
		}
		resp := stub.responses[idx]
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.status)
		_, _ = w.Write([]byte(resp.body))
	})
	stub.server = httptest.NewServer(mux)
	return stub
}

func (s *snovStub) provider(t *testing.T) *providers.SnovProvider {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	return providers.NewSnovProvider(providers.SnovConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		BaseURL:      s.server.URL,
	}, logger)
}

func prospect() providers.Prospect {
	return providers.Prospect{
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Johnson",
		Fields:    map[string]interface{}{"cart_value": 150.0},
	}
}

// ---- classification ----

func TestAddToList_Success(t *testing.T) {
	stub := newSnovStub(stubResponse{200, `{"success": true}`})
	defer stub.server.Close()

	outcome := stub.provider(t).AddToList(context.Background(), "list-1", prospect())

	assert.Equal(t, providers.OutcomeSuccess, outcome.Status)
	assert.True(t, outcome.Terminal())
}

func TestAddToList_DuplicateConflict(t *testing.T) {
	stub := newSnovStub(stubResponse{409, `{"success": false, "message": "prospect already exists"}`})
	defer stub.server.Close()

	outcome := stub.provider(t).AddToList(context.Background(), "list-1", prospect())

	assert.Equal(t, providers.OutcomeDuplicate, outcome.Status)
	assert.True(t, outcome.Terminal())
}

func TestAddToList_DuplicateInBody(t *testing.T) {
	stub := newSnovStub(stubResponse{200, `{"success": false, "message": "Prospect already in list"}`})
	defer stub.server.Close()

	outcome := stub.provider(t).AddToList(context.Background(), "list-1", prospect())

	assert.Equal(t, providers.OutcomeDuplicate, outcome.Status)
}

func TestAddToList_PermanentRejection(t *testing.T) {
	stub := newSnovStub(stubResponse{422, `{"success": false, "message": "email address is invalid"}`})
	defer stub.server.Close()

	outcome := stub.provider(t).AddToList(context.Background(), "list-1", prospect())

	assert.Equal(t, providers.OutcomeRejected, outcome.Status)
	assert.True(t, outcome.Terminal(), "a permanently rejected address must not retry")
	assert.Equal(t, "email address is invalid", outcome.Reason)
}

func TestAddToList_ServerErrorIsTransient(t *testing.T) {
	stub := newSnovStub(stubResponse{500, `{"error": "internal"}`})
	defer stub.server.Close()

	outcome := stub.provider(t).AddToList(context.Background(), "list-1", prospect())

	assert.Equal(t, providers.OutcomeTransient, outcome.Status)
	assert.False(t, outcome.Terminal())
	assert.Error(t, outcome.Err)
}

func TestAddToList_RateLimitIsTransient(t *testing.T) {
	stub := newSnovStub(stubResponse{429, `{"message": "too many requests"}`})
	defer stub.server.Close()

	outcome := stub.provider(t).AddToList(context.Background(), "list-1", prospect())

	assert.Equal(t, providers.OutcomeTransient, outcome.Status)
}

func TestAddToList_NetworkFailureIsTransient(t *testing.T) {
	stub := newSnovStub(stubResponse{200, `{"success": true}`})
	provider := stub.provider(t)
	stub.server.Close() // connection refused from here on

	outcome := provider.AddToList(context.Background(), "list-1", prospect())

	assert.Equal(t, providers.OutcomeTransient, outcome.Status)
	assert.Error(t, outcome.Err)
}

// ---- skip and mock paths ----

func TestAddToList_EmptyListIDIsSkippedWithoutNetwork(t *testing.T) {
	stub := newSnovStub(stubResponse{200, `{"success": true}`})
	defer stub.server.Close()

	outcome := stub.provider(t).AddToList(context.Background(), "", prospect())

	assert.Equal(t, providers.OutcomeSkipped, outcome.Status)
	assert.True(t, outcome.Terminal(), "misconfiguration must stamp the gate, not retry forever")
	assert.Zero(t, atomic.LoadInt32(&stub.tokenFetches))
	assert.Zero(t, atomic.LoadInt32(&stub.listCalls))
}

func TestAddToList_MockModeShortCircuits(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	provider := providers.NewSnovProvider(providers.SnovConfig{Mock: true}, logger)

	outcome := provider.AddToList(context.Background(), "list-1", prospect())

	assert.Equal(t, providers.OutcomeSuccess, outcome.Status)
}

// ---- token lifecycle ----

func TestAddToList_TokenIsCachedAcrossCalls(t *testing.T) {
	stub := newSnovStub(stubResponse{200, `{"success": true}`})
	defer stub.server.Close()
	provider := stub.provider(t)

	ctx := context.Background()
	provider.AddToList(ctx, "list-1", prospect())
	provider.AddToList(ctx, "list-1", prospect())
	provider.AddToList(ctx, "list-1", prospect())

	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.tokenFetches))
	assert.Equal(t, int32(3), atomic.LoadInt32(&stub.listCalls))
}

func TestAddToList_AuthFailureInvalidatesCachedToken(t *testing.T) {
	stub := newSnovStub(
		stubResponse{401, `{"message": "token expired"}`},
		stubResponse{200, `{"success": true}`},
	)
	defer stub.server.Close()
	provider := stub.provider(t)
	ctx := context.Background()

	outcome := provider.AddToList(ctx, "list-1", prospect())
	assert.Equal(t, providers.OutcomeTransient, outcome.Status)

	outcome = provider.AddToList(ctx, "list-1", prospect())
	assert.Equal(t, providers.OutcomeSuccess, outcome.Status)

	// The 401 dropped the cached token, forcing a re-fetch.
	assert.Equal(t, int32(2), atomic.LoadInt32(&stub.tokenFetches))
}

// ---- outcome semantics ----

func TestOutcomeTerminal(t *testing.T) {
	cases := []struct {
		status   providers.OutcomeStatus
		terminal bool
	}{
		{providers.OutcomeSuccess, true},
		{providers.OutcomeDuplicate, true},
		{providers.OutcomeRejected, true},
		{providers.OutcomeSkipped, true},
		{providers.OutcomeTransient, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.terminal, providers.Outcome{Status: tc.status}.Terminal(),
			"status %s", tc.status)
	}
}
