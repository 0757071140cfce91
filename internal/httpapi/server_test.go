package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/placement-assistant/internal/aptitude"
	"github.com/spigell/placement-assistant/internal/embedding"
	"github.com/spigell/placement-assistant/internal/match"
	"github.com/spigell/placement-assistant/internal/models"
	"github.com/spigell/placement-assistant/internal/placement"
	"github.com/spigell/placement-assistant/internal/storage/memory"
)

const resumeText = "Go developer with PostgreSQL, Docker and Kubernetes experience building REST API services."

type fixedEmbedder struct {
	vector match.Embedding
}

func (f *fixedEmbedder) Embed(context.Context, string) (match.Embedding, error) {
	return append(match.Embedding(nil), f.vector...), nil
}

func (f *fixedEmbedder) Dimension() int { return len(f.vector) }

func (f *fixedEmbedder) Model() string { return "fixed" }

type testServer struct {
	handler http.Handler
	store   *memory.Storage
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	return newTestServerWithEmbedder(t, &fixedEmbedder{vector: match.Embedding{1, 1}})
}

// newTestServerWithEmbedder builds a server that expects 2-dimensional vectors.
func newTestServerWithEmbedder(t *testing.T, embedder embedding.Embedder) *testServer {
	t.Helper()

	store := memory.NewStorage()
	svc := placement.New(store, embedder, placement.Config{Dimension: 2}, zap.NewNop())
	papers := aptitude.New(store, aptitude.Config{}, zap.NewNop())

	srv := New(svc, papers, Config{Mode: gin.TestMode, Version: "test"}, zap.NewNop())
	return &testServer{handler: srv.Handler(), store: store}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return ts.serve(t, req)
}

func (ts *testServer) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	decoded := map[string]any{}
	if strings.HasPrefix(rec.Body.String(), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func (ts *testServer) seedProfile(t *testing.T, e match.Embedding) string {
	t.Helper()

	p := &models.Profile{FullName: "Ada Lovelace", SkillsEmbedding: e}
	if e != nil {
		p.ResumeURL = models.ResumeUploaded
	}
	require.NoError(t, ts.store.CreateProfile(context.Background(), p))
	return p.ID
}

func (ts *testServer) seedCompany(t *testing.T, config map[string]int) string {
	t.Helper()

	c := &models.Company{Name: "Acme", AptitudeConfig: config}
	require.NoError(t, ts.store.CreateCompany(context.Background(), c))
	return c.ID
}

func (ts *testServer) seedJob(t *testing.T, companyID string, minScore int, e match.Embedding) string {
	t.Helper()

	j := &models.Job{CompanyID: companyID, Title: "Backend", Description: "Go services", MinScore: minScore, RequiredSkillsEmbedding: e}
	require.NoError(t, ts.store.CreateJob(context.Background(), j))
	return j.ID
}

func TestHealthAndRoot(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec, body := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])

	rec, body = ts.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", body["version"])
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRequestIDIsPropagated(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	id := "6f1c1e1e-5a0b-4f4e-9d43-2f1d7c9b8a10"

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, id)
	rec, _ := ts.serve(t, req)

	assert.Equal(t, id, rec.Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "not a uuid")
	rec, _ = ts.serve(t, req)

	assert.NotEqual(t, "not a uuid", rec.Header().Get(requestIDHeader))
}

func TestMatchEndpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	user := ts.seedProfile(t, match.Embedding{1, 0})
	company := ts.seedCompany(t, nil)
	job := ts.seedJob(t, company, 71, match.Embedding{1, 1})

	rec, body := ts.do(t, http.MethodPost, "/match", map[string]string{"user_id": user, "job_id": job})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "success", body["status"])
	assert.InDelta(t, 70.7, body["match_score"], 1e-9)
	assert.Contains(t, body["analysis"], "Good match!")

	details := body["details"].(map[string]any)
	assert.Equal(t, false, details["meets_threshold"])
	assert.Equal(t, float64(71), details["min_score_required"])
	assert.Equal(t, "Consider improving your profile to meet the 71% threshold.", details["recommendation"])
	assert.Equal(t, "strong", details["tier"])
	assert.Equal(t, "Acme", details["company_name"])
}

func TestMatchEndpointErrors(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ready := ts.seedProfile(t, match.Embedding{1, 0})
	noResume := ts.seedProfile(t, nil)
	zero := ts.seedProfile(t, match.Embedding{0, 0})
	company := ts.seedCompany(t, nil)
	job := ts.seedJob(t, company, 50, match.Embedding{1, 1})
	bare := ts.seedJob(t, company, 50, nil)

	cases := []struct {
		name   string
		body   any
		status int
	}{
		{name: "missing fields", body: map[string]string{"user_id": ready}, status: http.StatusBadRequest},
		{name: "unknown user", body: map[string]string{"user_id": "missing", "job_id": job}, status: http.StatusNotFound},
		{name: "unknown job", body: map[string]string{"user_id": ready, "job_id": "missing"}, status: http.StatusNotFound},
		{name: "no resume", body: map[string]string{"user_id": noResume, "job_id": job}, status: http.StatusBadRequest},
		{name: "job without embedding", body: map[string]string{"user_id": ready, "job_id": bare}, status: http.StatusBadRequest},
		{name: "zero vector", body: map[string]string{"user_id": zero, "job_id": job}, status: http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := ts.do(t, http.MethodPost, "/match", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "error", body["status"])
			assert.NotEmpty(t, body["detail"])
		})
	}
}

func TestStatusEndpoints(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	user := ts.seedProfile(t, match.Embedding{1, 0})

	rec, body := ts.do(t, http.MethodGet, "/match/status/"+user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ready_for_matching"])
	assert.Equal(t, "Ready for job matching!", body["message"])

	rec, body = ts.do(t, http.MethodGet, "/resume/status/"+user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "complete", body["status"])

	rec, _ = ts.do(t, http.MethodGet, "/resume/status/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartRequest(t *testing.T, fields map[string]string, filename, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/resume/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadResumeEndpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	user := ts.seedProfile(t, nil)

	rec, body := ts.serve(t, multipartRequest(t, map[string]string{"user_id": user}, "cv.txt", resumeText))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	details := body["details"].(map[string]any)
	assert.Equal(t, "cv.txt", details["filename"])
	assert.Equal(t, float64(2), details["embedding_dimensions"])
	assert.Contains(t, details["skills"], "docker")

	stored, err := ts.store.GetProfile(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, stored.HasEmbedding())

	rec, _ = ts.serve(t, multipartRequest(t, map[string]string{"user_id": user, "text": resumeText}, "", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadResumeEndpointErrors(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	user := ts.seedProfile(t, nil)

	cases := []struct {
		name     string
		fields   map[string]string
		filename string
		content  string
		status   int
	}{
		{name: "no user", fields: map[string]string{}, filename: "cv.txt", content: resumeText, status: http.StatusBadRequest},
		{name: "pdf", fields: map[string]string{"user_id": user}, filename: "cv.pdf", content: resumeText, status: http.StatusBadRequest},
		{name: "nothing uploaded", fields: map[string]string{"user_id": user}, status: http.StatusBadRequest},
		{name: "too short", fields: map[string]string{"user_id": user}, filename: "cv.txt", content: "Go developer", status: http.StatusBadRequest},
		{name: "unknown user", fields: map[string]string{"user_id": "missing"}, filename: "cv.txt", content: resumeText, status: http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := ts.serve(t, multipartRequest(t, tc.fields, tc.filename, tc.content))
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, "error", body["status"])
		})
	}
}

func TestEmbedderDimensionIsServerError(t *testing.T) {
	t.Parallel()

	ts := newTestServerWithEmbedder(t, &fixedEmbedder{vector: match.Embedding{1, 2, 3}})
	user := ts.seedProfile(t, nil)
	companyID := ts.seedCompany(t, nil)

	rec, body := ts.serve(t, multipartRequest(t, map[string]string{"user_id": user}, "cv.txt", resumeText))
	assert.Equal(t, http.StatusInternalServerError, rec.Code, rec.Body.String())
	assert.Equal(t, "error", body["status"])

	rec, _ = ts.do(t, http.MethodPost, "/jobs/create", map[string]any{
		"company_id":  companyID,
		"title":       "Platform engineer",
		"description": "Kubernetes operators written in Go, PostgreSQL and observability.",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code, rec.Body.String())

	// Stored vectors that disagree are still a scoring problem.
	profileID := ts.seedProfile(t, match.Embedding{1, 0})
	jobID := ts.seedJob(t, companyID, 50, match.Embedding{1, 0, 0})
	rec, _ = ts.do(t, http.MethodPost, "/match", map[string]any{"user_id": profileID, "job_id": jobID})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
}

func TestCompanyAndJobLifecycle(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec, body := ts.do(t, http.MethodPost, "/companies", map[string]any{"name": "Globex", "aptitude_config": map[string]int{"logic": 2}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	companyID := body["company"].(map[string]any)["id"].(string)

	rec, _ = ts.do(t, http.MethodPost, "/companies", map[string]any{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = ts.do(t, http.MethodPost, "/companies", map[string]any{"name": "Initech", "aptitude_config": map[string]int{"logic": -2}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = ts.do(t, http.MethodPost, "/jobs/create", map[string]any{
		"company_id":  companyID,
		"title":       "Platform engineer",
		"description": "Kubernetes operators written in Go, PostgreSQL and observability.",
		"min_score":   65,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	job := body["job"].(map[string]any)
	assert.Equal(t, "Globex", job["company_name"])
	assert.Equal(t, float64(65), job["min_score"])
	assert.Equal(t, float64(2), job["embedding_dimensions"])
	jobID := job["id"].(string)

	for _, payload := range []map[string]any{
		{"company_id": companyID, "title": "Short", "description": "too short"},
		{"company_id": companyID, "title": "Strict", "description": "Kubernetes operators written in Go.", "min_score": 101},
	} {
		rec, _ = ts.do(t, http.MethodPost, "/jobs/create", payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	}

	rec, _ = ts.do(t, http.MethodPost, "/jobs/create", map[string]any{"company_id": "missing", "title": "T", "description": "Kubernetes operators written in Go."})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = ts.do(t, http.MethodGet, "/jobs/list?company_id="+companyID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	rec, _ = ts.do(t, http.MethodDelete, "/jobs/"+jobID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = ts.do(t, http.MethodDelete, "/jobs/"+jobID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecommendationsEndpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	user := ts.seedProfile(t, match.Embedding{1, 0})
	acme := ts.seedCompany(t, nil)
	exact := ts.seedJob(t, acme, 90, match.Embedding{1, 0})
	ts.seedJob(t, acme, 90, match.Embedding{1, 1})
	ts.seedJob(t, acme, 10, match.Embedding{0, 1})

	rec, body := ts.do(t, http.MethodGet, "/match/recommendations/"+user+"?qualifying=true&limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(1), body["count"])

	items := body["recommendations"].([]any)
	first := items[0].(map[string]any)
	assert.Equal(t, exact, first["job_id"])
	assert.Equal(t, float64(100), first["score"])

	rec, body = ts.do(t, http.MethodGet, "/match/recommendations/"+user+"?exclude_company="+acme, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["count"])

	rec, _ = ts.do(t, http.MethodGet, "/match/recommendations/"+user+"?min_score=150", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAptitudeEndpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	company := ts.seedCompany(t, map[string]int{"logic": 2})
	empty := ts.seedCompany(t, map[string]int{"chemistry": 1})

	for i := 0; i < 3; i++ {
		require.NoError(t, ts.store.CreateQuestion(context.Background(), &models.Question{
			Question: "2 + 2?", Options: []string{"3", "4", "5", "22"}, CorrectAnswer: "B", Topic: "logic",
		}))
	}

	req := httptest.NewRequest(http.MethodGet, "/aptitude/generate/"+company, nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var paper []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &paper))
	assert.Len(t, paper, 2)
	assert.NotContains(t, paper[0], "correct_answer")

	rec, _ = ts.do(t, http.MethodGet, "/aptitude/generate/"+empty, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = ts.do(t, http.MethodGet, "/aptitude/generate/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type panickingService struct {
	Service
}

func (panickingService) ListJobs(context.Context, string) ([]*models.Job, error) {
	panic("boom")
}

type failingService struct {
	Service
}

func (failingService) ListJobs(context.Context, string) ([]*models.Job, error) {
	return nil, errors.New("database is down")
}

func TestRecoveryAndInternalErrors(t *testing.T) {
	t.Parallel()

	srv := New(panickingService{}, nil, Config{Mode: gin.TestMode}, zap.NewNop())
	ts := &testServer{handler: srv.Handler()}

	rec, body := ts.do(t, http.MethodGet, "/jobs/list", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", body["status"])

	srv = New(failingService{}, nil, Config{Mode: gin.TestMode}, zap.NewNop())
	ts = &testServer{handler: srv.Handler()}

	rec, body = ts.do(t, http.MethodGet, "/jobs/list", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "database is down", body["detail"])
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	srv := New(failingService{}, nil, Config{Mode: gin.TestMode, Address: "127.0.0.1:0", ShutdownTimeout: time.Second}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
