package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"psp.com/mock-exam/backend/internal/exam"
	"psp.com/mock-exam/backend/internal/questionbank"
)

var categories = []string{"Fundamentals", "Sensors", "Control", "Wiring"}

func newTestRouter(t *testing.T, opts Options) http.Handler {
	t.Helper()
	var qs []questionbank.Question
	for i := 0; i < 80; i++ {
		qs = append(qs, questionbank.Question{
			ID:            i + 1,
			Category:      categories[i%4],
			Difficulty:    questionbank.Difficulties[(i/4)%3],
			Question:      fmt.Sprintf("question %d", i+1),
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: i % 4,
		})
	}
	e := exam.New(exam.Config{
		ID:             "instrumentation",
		Title:          "Instrumentation Mock Examination",
		TotalQuestions: 12,
		TimeLimit:      45 * time.Minute,
		PassThreshold:  60,
		Categories:     categories,
	}, questionbank.NewCorpus(qs), map[string]interface{}{"source": "test"})

	reg, err := exam.NewRegistry(e)
	require.NoError(t, err)
	return NewRouter(reg, zap.NewNop(), opts)
}

func do(h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodePaper(t *testing.T, rec *httptest.ResponseRecorder) exam.Paper {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var p exam.Paper
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestHealthz(t *testing.T) {
	rec := do(newTestRouter(t, Options{}), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestListAndGetExam(t *testing.T) {
	h := newTestRouter(t, Options{})

	rec := do(h, http.MethodGet, "/api/exams", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "instrumentation", list[0]["id"])
	assert.EqualValues(t, 2700, list[0]["timeLimitSec"])
	assert.EqualValues(t, 80, list[0]["questionCount"])
	assert.NotContains(t, list[0], "stats")

	rec = do(h, http.MethodGet, "/api/exams/instrumentation", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Contains(t, detail, "stats")
	assert.Equal(t, "test", detail["meta"].(map[string]interface{})["source"])

	rec = do(h, http.MethodGet, "/api/exams/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerate(t *testing.T) {
	h := newTestRouter(t, Options{MaxCount: 30})

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"configured total", "/api/exams/instrumentation/generate", 12},
		{"explicit count", "/api/exams/instrumentation/generate?count=8", 8},
		{"count clamped to max", "/api/exams/instrumentation/generate?count=500", 30},
		{"count clamped to one", "/api/exams/instrumentation/generate?count=0", 1},
		{"bad count falls back", "/api/exams/instrumentation/generate?count=abc", 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := decodePaper(t, do(h, http.MethodGet, tt.target, nil))
			assert.Len(t, p.Questions, tt.want)
			assert.Equal(t, "instrumentation", p.ExamID)
			assert.Equal(t, 60, p.PassThreshold)
		})
	}
}

func TestGenerate_WeightsAndSeed(t *testing.T) {
	h := newTestRouter(t, Options{})

	p := decodePaper(t, do(h, http.MethodGet, "/api/exams/instrumentation/generate?count=8&advanced=1", nil))
	require.Len(t, p.Questions, 8)
	for _, q := range p.Questions {
		assert.Equal(t, questionbank.Advanced, q.Difficulty)
	}

	a := decodePaper(t, do(h, http.MethodGet, "/api/exams/instrumentation/generate?seed=99", nil))
	b := decodePaper(t, do(h, http.MethodGet, "/api/exams/instrumentation/generate?seed=99", nil))
	assert.Equal(t, a.Questions, b.Questions)
}

func TestTargeted(t *testing.T) {
	h := newTestRouter(t, Options{MaxCount: 20})

	body := []byte(`{"categories":[{"category":"Sensors","count":3},{"category":"Wiring","count":2}]}`)
	p := decodePaper(t, do(h, http.MethodPost, "/api/exams/instrumentation/targeted", body))
	require.Len(t, p.Questions, 5)
	counts := map[string]int{}
	for _, q := range p.Questions {
		counts[q.Category]++
	}
	assert.Equal(t, map[string]int{"Sensors": 3, "Wiring": 2}, counts)

	rec := do(h, http.MethodPost, "/api/exams/instrumentation/targeted", []byte(`{"categories":[{"category":"Sensors","count":50}]}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/api/exams/instrumentation/targeted", []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTargeted_Limits(t *testing.T) {
	h := newTestRouter(t, Options{MaxCount: 20})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"exactly max across pairs", `{"categories":[{"category":"Sensors","count":10},{"category":"Wiring","count":10}]}`, http.StatusOK},
		{"one over max across pairs", `{"categories":[{"category":"Sensors","count":7},{"category":"Wiring","count":7},{"category":"Control","count":7}]}`, http.StatusBadRequest},
		{"counts that would overflow", fmt.Sprintf(`{"categories":[{"category":"Sensors","count":%d},{"category":"Wiring","count":%d}]}`, math.MaxInt, math.MaxInt), http.StatusBadRequest},
		{"huge count after a small one", fmt.Sprintf(`{"categories":[{"category":"Sensors","count":1},{"category":"Wiring","count":%d}]}`, math.MaxInt), http.StatusBadRequest},
		{"negative counts are ignored", fmt.Sprintf(`{"categories":[{"category":"Sensors","count":%d},{"category":"Wiring","count":2}]}`, math.MinInt), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodPost, "/api/exams/instrumentation/targeted", []byte(tt.body))
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestPaperPDF(t *testing.T) {
	h := newTestRouter(t, Options{})

	rec := do(h, http.MethodGet, "/api/exams/instrumentation/paper.pdf?count=5&answers=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))

	rec = do(h, http.MethodGet, "/api/exams/missing/paper.pdf", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := newTestRouter(t, Options{RateLimit: 2})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/exams", nil).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, do(h, http.MethodGet, "/api/exams", nil).Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/healthz", nil).Code, "health checks are never limited")
}

func TestRateLimiter_WindowExpires(t *testing.T) {
	now := time.Unix(0, 0)
	rl := newRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.2"))

	now = now.Add(61 * time.Second)
	assert.True(t, rl.allow("10.0.0.1"))
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	now := time.Unix(0, 0)
	rl := newRateLimiter(5, time.Minute)
	rl.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		rl.allow(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}
	assert.Len(t, rl.hits, 100)

	now = now.Add(2 * time.Minute)
	rl.allow("10.9.9.9")
	assert.Len(t, rl.hits, 1)
}

func TestRateLimit_ForwardedFor(t *testing.T) {
	send := func(h http.Handler, xff string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/exams", nil)
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("ignored without a trusted proxy", func(t *testing.T) {
		h := newTestRouter(t, Options{RateLimit: 2})
		assert.Equal(t, http.StatusOK, send(h, "203.0.113.1"))
		assert.Equal(t, http.StatusOK, send(h, "203.0.113.2"))
		assert.Equal(t, http.StatusTooManyRequests, send(h, "203.0.113.3"))
	})

	t.Run("honoured behind a trusted proxy", func(t *testing.T) {
		h := newTestRouter(t, Options{RateLimit: 1, TrustProxy: true})
		assert.Equal(t, http.StatusOK, send(h, "203.0.113.1"))
		assert.Equal(t, http.StatusOK, send(h, "203.0.113.2, 10.0.0.1"))
		assert.Equal(t, http.StatusTooManyRequests, send(h, "203.0.113.1"))
	})
}
