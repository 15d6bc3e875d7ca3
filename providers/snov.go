package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultSnovBaseURL = "https://api.snov.io"

// tokenExpiryMargin is subtracted from the reported token lifetime so a
// token is refreshed before it actually expires mid-request.
const tokenExpiryMargin = 60 * time.Second

// SnovConfig holds the credentials and flags for the Snov.io client.
type SnovConfig struct {
	ClientID     string
	ClientSecret string
	// BaseURL overrides the API endpoint (used in tests); empty means the
	// real Snov.io API.
	BaseURL string
	// Mock short-circuits every call to a local deterministic success.
	Mock bool
}

// SnovProvider implements CampaignProvider against the Snov.io list API.
//
// The access token is process-scoped state: fetched once via the OAuth
// client-credentials flow and reused until expiry minus the margin. The
// mutex is held across the refresh so concurrent dispatch calls cannot
// trigger duplicate token fetches.
type SnovProvider struct {
	cfg        SnovConfig
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewSnovProvider creates a new SnovProvider.
func NewSnovProvider(cfg SnovConfig, logger *zap.Logger) *SnovProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultSnovBaseURL
	}
	return &SnovProvider{
		cfg:     cfg,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// ---- Snov API request/response structs ----

type snovTokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type snovTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type snovAddProspectResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// getAccessToken returns the cached token, refreshing it when missing or
// within the expiry margin.
func (s *SnovProvider) getAccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != "" && time.Now().Before(s.tokenExpiry) {
		return s.accessToken, nil
	}

	s.logger.Info("Fetching new Snov.io access token")

	reqBody, err := json.Marshal(snovTokenRequest{
		GrantType:    "client_credentials",
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
	})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/oauth/access_token", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("token request failed (status %d): %s", resp.StatusCode, string(respBytes))
	}

	var tokenResp snovTokenResponse
	if err := json.Unmarshal(respBytes, &tokenResp); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	s.accessToken = tokenResp.AccessToken
	s.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - tokenExpiryMargin)

	s.logger.Info("Snov.io access token obtained")
	return s.accessToken, nil
}

// invalidateToken drops the cached token so the next call refreshes it.
func (s *SnovProvider) invalidateToken() {
	s.mu.Lock()
	s.accessToken = ""
	s.tokenExpiry = time.Time{}
	s.mu.Unlock()
}

// AddToList pushes a prospect onto a Snov.io list and classifies the
// response into the uniform Outcome taxonomy.
func (s *SnovProvider) AddToList(ctx context.Context, listID string, prospect Prospect) Outcome {
	if listID == "" {
		s.logger.Warn("Campaign list id not configured, skipping dispatch",
			zap.String("email", prospect.Email),
		)
		return Outcome{Status: OutcomeSkipped, Reason: "list id not configured"}
	}

	if s.cfg.Mock {
		s.logger.Info("[MOCK] Prospect added to list",
			zap.String("email", prospect.Email),
			zap.String("list_id", listID),
		)
		return Outcome{Status: OutcomeSuccess, Reason: "mock"}
	}

	token, err := s.getAccessToken(ctx)
	if err != nil {
		return Outcome{Status: OutcomeTransient, Reason: "token acquisition failed", Err: err}
	}

	payload := map[string]interface{}{
		"list_id":    listID,
		"email":      prospect.Email,
		"first_name": prospect.FirstName,
		"last_name":  prospect.LastName,
	}
	for k, v := range prospect.Fields {
		payload[k] = v
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return Outcome{Status: OutcomeRejected, Reason: "unserializable payload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/add-prospect-to-list", bytes.NewReader(reqBody))
	if err != nil {
		return Outcome{Status: OutcomeTransient, Reason: "create request failed", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	s.logger.Info("Adding prospect to Snov.io list",
		zap.String("email", prospect.Email),
		zap.String("list_id", listID),
	)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Outcome{Status: OutcomeTransient, Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{Status: OutcomeTransient, Reason: "read response failed", Err: err}
	}

	return s.classify(resp.StatusCode, respBytes)
}

// classify maps a Snov.io response to an Outcome. Only transient outcomes
// are eligible for retry; everything else stamps the dispatch gate.
func (s *SnovProvider) classify(statusCode int, body []byte) Outcome {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		// Token likely stale or revoked; drop it so the next trigger
		// re-authenticates.
		s.invalidateToken()
		return Outcome{
			Status: OutcomeTransient,
			Reason: "auth failure",
			Err:    fmt.Errorf("snov API auth error (status %d): %s", statusCode, string(body)),
		}

	case statusCode == http.StatusTooManyRequests:
		return Outcome{
			Status: OutcomeTransient,
			Reason: "rate limited",
			Err:    fmt.Errorf("snov API rate limited"),
		}

	case statusCode >= 500:
		return Outcome{
			Status: OutcomeTransient,
			Reason: "server error",
			Err:    fmt.Errorf("snov API error (status %d): %s", statusCode, string(body)),
		}

	case statusCode == http.StatusConflict:
		return Outcome{Status: OutcomeDuplicate, Reason: "prospect already in list"}

	case statusCode >= 400:
		var apiResp snovAddProspectResponse
		_ = json.Unmarshal(body, &apiResp)
		if isDuplicateMessage(apiResp.Message) {
			return Outcome{Status: OutcomeDuplicate, Reason: apiResp.Message}
		}
		reason := apiResp.Message
		if reason == "" {
			reason = fmt.Sprintf("rejected with status %d", statusCode)
		}
		return Outcome{Status: OutcomeRejected, Reason: reason}
	}

	var apiResp snovAddProspectResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		// 2xx with an unreadable body; assume delivered.
		return Outcome{Status: OutcomeSuccess}
	}
	if apiResp.Success {
		return Outcome{Status: OutcomeSuccess}
	}
	if isDuplicateMessage(apiResp.Message) {
		return Outcome{Status: OutcomeDuplicate, Reason: apiResp.Message}
	}
	return Outcome{Status: OutcomeRejected, Reason: apiResp.Message}
}

func isDuplicateMessage(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "already") || strings.Contains(m, "duplicate") || strings.Contains(m, "exists")
}
