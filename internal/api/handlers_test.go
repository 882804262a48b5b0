package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"risk-service/internal/alerts"
	"risk-service/internal/config"
	"risk-service/internal/logging"
	"risk-service/internal/models"
	"risk-service/internal/risk"
	"risk-service/internal/services"
)

// fakeStore backs the full pipeline in memory for handler tests.
type fakeStore struct {
	mu         sync.Mutex
	riskScores []models.RiskScore
	alerts     map[string]models.Alert
}

func newFakeStore() *fakeStore {
	return &fakeStore{alerts: make(map[string]models.Alert)}
}

func (s *fakeStore) InsertRiskScore(_ context.Context, score models.RiskScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.riskScores = append(s.riskScores, score)
	return nil
}

func (s *fakeStore) GetRiskScoresByUserID(_ context.Context, userID string, _ int) ([]models.RiskScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RiskScore
	for i := len(s.riskScores) - 1; i >= 0; i-- {
		if s.riskScores[i].UserID == userID {
			out = append(out, s.riskScores[i])
		}
	}
	return out, nil
}

func (s *fakeStore) HighRiskUsers(_ context.Context, _ int) ([]models.HighRiskUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byUser := make(map[string]*models.HighRiskUser)
	for _, sc := range s.riskScores {
		if sc.Level != models.RiskLevelHigh {
			continue
		}
		u, ok := byUser[sc.UserID]
		if !ok {
			u = &models.HighRiskUser{UserID: sc.UserID}
			byUser[sc.UserID] = u
		}
		u.HighRiskOccurrences++
		if sc.Score > u.MaxScore {
			u.MaxScore = sc.Score
		}
		if sc.Timestamp.After(u.LatestOccurrence) {
			u.LatestOccurrence = sc.Timestamp
		}
	}
	var out []models.HighRiskUser
	for _, u := range byUser {
		out = append(out, *u)
	}
	return out, nil
}

func (s *fakeStore) InsertAlert(_ context.Context, alert models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[alert.ID] = alert
	return nil
}

func (s *fakeStore) GetAlert(_ context.Context, id string) (models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert, ok := s.alerts[id]
	if !ok {
		return models.Alert{}, alerts.ErrNotFound
	}
	return alert, nil
}

func (s *fakeStore) ResolveAlert(_ context.Context, id string, resolvedAt time.Time, notes *string) (models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert, ok := s.alerts[id]
	if !ok {
		return models.Alert{}, alerts.ErrNotFound
	}
	if alert.Resolved {
		return models.Alert{}, alerts.ErrAlreadyResolved
	}
	alert.Resolved = true
	alert.ResolvedAt = &resolvedAt
	alert.Notes = notes
	s.alerts[id] = alert
	return alert, nil
}

func (s *fakeStore) ReopenAlert(_ context.Context, id string) (models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert, ok := s.alerts[id]
	if !ok {
		return models.Alert{}, alerts.ErrNotFound
	}
	alert.Resolved = false
	alert.ResolvedAt = nil
	s.alerts[id] = alert
	return alert, nil
}

func (s *fakeStore) ListAlerts(_ context.Context, filter models.AlertFilter) ([]models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Alert
	for _, alert := range s.alerts {
		if filter.Resolved != nil && alert.Resolved != *filter.Resolved {
			continue
		}
		if filter.RiskLevel != "" && alert.RiskLevel != filter.RiskLevel {
			continue
		}
		out = append(out, alert)
	}
	return out, nil
}

func (s *fakeStore) CountUnresolved(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, alert := range s.alerts {
		if !alert.Resolved {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) AlertStats(_ context.Context) (models.AlertStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := models.AlertStats{UnresolvedByLevel: make(map[models.RiskLevel]int)}
	for _, alert := range s.alerts {
		stats.TotalAlerts++
		if alert.Resolved {
			stats.ResolvedAlerts++
		} else {
			stats.UnresolvedAlerts++
			stats.UnresolvedByLevel[alert.RiskLevel]++
		}
	}
	return stats, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *fakeStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger, err := logging.New(t.TempDir(), "error")
	if err != nil {
		t.Fatalf("logger init failed: %v", err)
	}

	var cfg config.Config
	cfg.API.BasePath = "/api/v1"
	cfg.Evaluation.QueueSize = 10
	cfg.Evaluation.MaxWorkers = 1

	store := newFakeStore()
	evaluator := risk.NewEvaluator(risk.DefaultConfig())
	alertMgr := alerts.NewManager(store)
	svc := services.New(store, evaluator, alertMgr, nil, logger, cfg)

	h := NewHandler(store, svc, alertMgr, logger)
	return NewRouter(h, logger, cfg), store
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func evaluateBody(message string, sentimentScore float64, polarity, emotion string, confidence float64) map[string]any {
	return map[string]any{
		"user_id":            "u1",
		"message":            message,
		"emotion":            emotion,
		"emotion_confidence": confidence,
		"sentiment_score":    sentimentScore,
		"sentiment_polarity": polarity,
	}
}

func TestEvaluateEndpointHighRisk(t *testing.T) {
	r, store := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/risk/evaluate",
		evaluateBody("I want to die", -0.8, "negative", "sadness", 0.9))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		RiskScore models.RiskScore `json:"risk_score"`
		Alert     *models.Alert    `json:"alert"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.RiskScore.Score != 100 || resp.RiskScore.Level != models.RiskLevelHigh {
		t.Errorf("risk_score = %+v, want score 100 HIGH", resp.RiskScore)
	}
	if len(resp.RiskScore.Factors) != 3 {
		t.Errorf("factors = %v, want 3", resp.RiskScore.Factors)
	}
	if resp.Alert == nil || resp.Alert.RiskLevel != models.RiskLevelHigh || resp.Alert.Resolved {
		t.Errorf("alert = %+v, want open HIGH alert", resp.Alert)
	}
	if len(store.riskScores) != 1 {
		t.Errorf("persisted scores = %d, want 1", len(store.riskScores))
	}
}

func TestEvaluateEndpointQuietMessage(t *testing.T) {
	r, store := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/risk/evaluate",
		evaluateBody("school was fine today", 0.1, "neutral", "neutral", 0.3))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		RiskScore models.RiskScore `json:"risk_score"`
		Alert     *models.Alert    `json:"alert"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.RiskScore.Score != 0 || resp.RiskScore.Level != models.RiskLevelLow {
		t.Errorf("risk_score = %+v, want score 0 LOW", resp.RiskScore)
	}
	if resp.Alert != nil {
		t.Errorf("alert = %+v, want none", resp.Alert)
	}
	// The quiet record still lands for trend continuity.
	if len(store.riskScores) != 1 {
		t.Errorf("persisted scores = %d, want 1", len(store.riskScores))
	}
	if len(store.alerts) != 0 {
		t.Errorf("alerts = %d, want 0", len(store.alerts))
	}
}

func TestEvaluateEndpointRejectsBadInput(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing message", map[string]any{"user_id": "u1", "sentiment_polarity": "neutral"}},
		{"unknown polarity", evaluateBody("hello", 0, "mixed", "neutral", 0.5)},
		{"confidence out of range", evaluateBody("hello", 0, "neutral", "joy", 1.5)},
		{"sentiment out of range", evaluateBody("hello", -2, "negative", "neutral", 0.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/v1/risk/evaluate", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400, body = %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestResolveEndpointLifecycle(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/risk/evaluate",
		evaluateBody("everything feels pointless", -0.6, "negative", "sadness", 0.7))
	if w.Code != http.StatusCreated {
		t.Fatalf("evaluate status = %d", w.Code)
	}
	var created struct {
		Alert *models.Alert `json:"alert"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Alert == nil || created.Alert.RiskLevel != models.RiskLevelMedium {
		t.Fatalf("alert = %+v, want MEDIUM alert", created.Alert)
	}

	// First resolve succeeds.
	w = doJSON(t, r, http.MethodPut, "/api/v1/alerts/"+created.Alert.ID+"/resolve",
		map[string]any{"notes": "spoke with guardian"})
	if w.Code != http.StatusOK {
		t.Fatalf("resolve status = %d, body = %s", w.Code, w.Body.String())
	}
	var resolved models.Alert
	if err := json.Unmarshal(w.Body.Bytes(), &resolved); err != nil {
		t.Fatalf("decode resolved alert: %v", err)
	}
	if !resolved.Resolved || resolved.ResolvedAt == nil {
		t.Errorf("resolved alert = %+v", resolved)
	}
	if resolved.Notes == nil || *resolved.Notes != "spoke with guardian" {
		t.Errorf("notes = %v", resolved.Notes)
	}

	// Second resolve conflicts.
	w = doJSON(t, r, http.MethodPut, "/api/v1/alerts/"+created.Alert.ID+"/resolve", map[string]any{})
	if w.Code != http.StatusConflict {
		t.Errorf("second resolve status = %d, want 409", w.Code)
	}

	// Unknown id is 404, malformed id is 400.
	w = doJSON(t, r, http.MethodPut, "/api/v1/alerts/"+uuid.NewString()+"/resolve", map[string]any{})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", w.Code)
	}
	w = doJSON(t, r, http.MethodPut, "/api/v1/alerts/not-a-uuid/resolve", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", w.Code)
	}
}

func TestListAlertsFilters(t *testing.T) {
	r, _ := newTestRouter(t)

	// One MEDIUM and one HIGH alert via the pipeline.
	doJSON(t, r, http.MethodPost, "/api/v1/risk/evaluate",
		evaluateBody("everything feels pointless", -0.6, "negative", "sadness", 0.7))
	doJSON(t, r, http.MethodPost, "/api/v1/risk/evaluate",
		evaluateBody("I want to die", -0.8, "negative", "sadness", 0.9))

	w := doJSON(t, r, http.MethodGet, "/api/v1/alerts?resolved=false&risk_level=HIGH", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var list models.AlertList
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.TotalCount != 1 || len(list.Alerts) != 1 {
		t.Fatalf("list = %+v, want exactly the HIGH alert", list)
	}
	if list.Alerts[0].RiskLevel != models.RiskLevelHigh {
		t.Errorf("risk_level = %v", list.Alerts[0].RiskLevel)
	}
	if list.UnresolvedCount != 2 {
		t.Errorf("unresolved_count = %d, want 2", list.UnresolvedCount)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/alerts?risk_level=bogus", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bogus level status = %d, want 400", w.Code)
	}
}

func TestGetAlertNotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/alerts/"+uuid.NewString(), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestRiskHistoryEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	doJSON(t, r, http.MethodPost, "/api/v1/risk/evaluate",
		evaluateBody("I want to die", -0.8, "negative", "sadness", 0.9))

	w := doJSON(t, r, http.MethodGet, "/api/v1/risk/u1?days=7", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var history models.RiskHistory
	if err := json.Unmarshal(w.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if history.CurrentLevel != models.RiskLevelHigh {
		t.Errorf("current_level = %v, want HIGH", history.CurrentLevel)
	}
	if history.Trend != risk.TrendInsufficientData {
		t.Errorf("trend = %q, want insufficient_data", history.Trend)
	}
	if len(history.Scores) != 1 {
		t.Errorf("scores = %d, want 1", len(history.Scores))
	}
}

func TestHighRiskUsersEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	doJSON(t, r, http.MethodPost, "/api/v1/risk/evaluate",
		evaluateBody("I want to die", -0.8, "negative", "sadness", 0.9))

	w := doJSON(t, r, http.MethodGet, "/api/v1/risk/high-risk-users", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		HighRiskUsers []models.HighRiskUser `json:"high_risk_users"`
		Total         int                   `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.HighRiskUsers) != 1 {
		t.Fatalf("resp = %+v, want one user", resp)
	}
	if resp.HighRiskUsers[0].MaxScore != 100 {
		t.Errorf("max_score = %v, want 100", resp.HighRiskUsers[0].MaxScore)
	}
}
