package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/lingwo/essayd/internal/adapter/llm"
	"github.com/lingwo/essayd/internal/auth"
	"github.com/lingwo/essayd/internal/domain"
	"github.com/lingwo/essayd/internal/kvstore"
	"github.com/lingwo/essayd/internal/ratelimit"
	"github.com/lingwo/essayd/internal/repository"
	"github.com/lingwo/essayd/internal/scoring"
	"github.com/lingwo/essayd/internal/service"
	"github.com/lingwo/essayd/internal/topics"
	"github.com/lingwo/essayd/policy"
)

func newTestHandler(t *testing.T, mock *llm.MockClient, ceiling int) (*Handler, *service.Service) {
	t.Helper()

	db, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	svc := service.New(db, kvstore.NewWithClient(rdb), scoring.NewScorer(mock), topics.NewProvider("", "no-such-file"))
	return NewHandler(svc, engine, ratelimit.New(rdb, ceiling)), svc
}

func newContext(t *testing.T, method, target, body string, claims *domain.Claims) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if claims != nil {
		auth.SetClaims(c, claims)
	}
	return c, rec
}

var student = &domain.Claims{UserID: "u1", Role: 1}

func TestStartEssayValidation(t *testing.T) {
	h, _ := newTestHandler(t, llm.NewMockClient(), 30)

	c, rec := newContext(t, http.MethodPost, "/essay/start", `{"type":"essay"}`, student)
	if err := h.StartEssay(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestEssayLifecycle(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{
		`{"criteries":{"k1":{"score":1},"k2":{"score":1}},"common_mistakes":[]}`,
	}}
	h, svc := newTestHandler(t, mock, 30)

	c, rec := newContext(t, http.MethodPost, "/essay/start",
		`{"type":"essay","theme":"Человек и природа","theme_source":"recommended"}`, student)
	if err := h.StartEssay(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	c, rec = newContext(t, http.MethodPost, "/essay/save", `{"text":"черновик"}`, student)
	if err := h.SaveEssay(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, rec = newContext(t, http.MethodGet, "/essay", "", student)
	if err := h.CurrentEssay(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var session domain.EssaySession
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.Text != "черновик" {
		t.Fatalf("unexpected draft text %q", session.Text)
	}

	c, rec = newContext(t, http.MethodPost, "/essay/end", `{"text":"финальный текст"}`, student)
	if err := h.EndEssay(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var record domain.EssayRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record.ID == "" || record.MaxScore != nil {
		t.Fatalf("expected an unscored record, got %+v", record)
	}

	svc.WaitScoring()
	c, rec = newContext(t, http.MethodGet, "/essay/"+record.ID, "", student)
	c.SetParamNames("id")
	c.SetParamValues(record.ID)
	if err := h.GetEssay(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var scored domain.EssayRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &scored); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if scored.MaxScore == nil || *scored.MaxScore != 5 || scored.TotalScore != 2 {
		t.Fatalf("unexpected scores: %+v", scored)
	}
}

func TestStartEssayConflict(t *testing.T) {
	h, _ := newTestHandler(t, llm.NewMockClient(), 30)

	body := `{"type":"essay","theme":"Тема","theme_source":"random"}`
	c, rec := newContext(t, http.MethodPost, "/essay/start", body, student)
	if err := h.StartEssay(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, rec = newContext(t, http.MethodPost, "/essay/start", body, student)
	if err := h.StartEssay(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestGetEssayNotFound(t *testing.T) {
	h, _ := newTestHandler(t, llm.NewMockClient(), 30)

	c, rec := newContext(t, http.MethodGet, "/essay/es_missing", "", student)
	c.SetParamNames("id")
	c.SetParamValues("es_missing")
	if err := h.GetEssay(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestValidateThemePolicyBlock(t *testing.T) {
	h, _ := newTestHandler(t, llm.NewMockClient(), 30)

	blocked := &domain.Claims{UserID: "u2", Role: 0}
	c, rec := newContext(t, http.MethodPost, "/essay/validate_theme", `{"theme":"Тема"}`, blocked)
	if err := h.ValidateTheme(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestValidateThemeRateLimited(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{`{"valid": true}`}}
	h, _ := newTestHandler(t, mock, 2)

	for i := 0; i < 2; i++ {
		c, rec := newContext(t, http.MethodPost, "/essay/validate_theme", `{"theme":"Человек и природа"}`, student)
		if err := h.ValidateTheme(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 on call %d, got %d", i+1, rec.Code)
		}
	}

	c, rec := newContext(t, http.MethodPost, "/essay/validate_theme", `{"theme":"Человек и природа"}`, student)
	if err := h.ValidateTheme(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestMissingClaims(t *testing.T) {
	h, _ := newTestHandler(t, llm.NewMockClient(), 30)

	c, rec := newContext(t, http.MethodGet, "/essay", "", nil)
	if err := h.CurrentEssay(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	h, _ := newTestHandler(t, llm.NewMockClient(), 30)

	c, rec := newContext(t, http.MethodGet, "/settings", "", student)
	if err := h.GetSettings(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var settings domain.UserSettings
	if err := json.Unmarshal(rec.Body.Bytes(), &settings); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if settings.TargetPercent != 70 {
		t.Fatalf("expected default target 70, got %d", settings.TargetPercent)
	}

	c, rec = newContext(t, http.MethodPatch, "/settings", `{"target_percent":95}`, student)
	if err := h.UpdateSettings(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &settings); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if settings.TargetPercent != 95 || !settings.AutoSaveEnabled {
		t.Fatalf("unexpected settings: %+v", settings)
	}

	c, rec = newContext(t, http.MethodPatch, "/settings", `{"target_percent":500}`, student)
	if err := h.UpdateSettings(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRandomTopicUnavailable(t *testing.T) {
	// The default handler has no topics file; the service reports upstream
	// failure rather than inventing a topic.
	h, _ := newTestHandler(t, llm.NewMockClient(), 30)

	c, rec := newContext(t, http.MethodGet, "/random_topic", "", student)
	if err := h.RandomTopic(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
