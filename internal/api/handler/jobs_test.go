package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/courtsidedata/reportstore/internal/store"
	"github.com/courtsidedata/reportstore/pkg/models"
)

// --- mock JobStore ---

type mockJobStore struct {
	createFn  func(ctx context.Context, ownerKey string, options map[string]any) (uuid.UUID, error)
	getFn     func(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
	updateFn  func(ctx context.Context, jobID uuid.UUID, fields map[string]any) (bool, error)
	listFn    func(ctx context.Context, limit int) []models.JobSummary
	cleanupFn func(ctx context.Context) int
	statsFn   func(ctx context.Context) models.JobStats
}

func (m *mockJobStore) CreateJob(ctx context.Context, ownerKey string, options map[string]any) (uuid.UUID, error) {
	return m.createFn(ctx, ownerKey, options)
}
func (m *mockJobStore) GetJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	return m.getFn(ctx, jobID)
}
func (m *mockJobStore) UpdateJob(ctx context.Context, jobID uuid.UUID, fields map[string]any) (bool, error) {
	return m.updateFn(ctx, jobID, fields)
}
func (m *mockJobStore) ListRecentJobs(ctx context.Context, limit int) []models.JobSummary {
	return m.listFn(ctx, limit)
}
func (m *mockJobStore) CleanupExpiredJobs(ctx context.Context) int {
	return m.cleanupFn(ctx)
}
func (m *mockJobStore) GetJobStats(ctx context.Context) models.JobStats {
	return m.statsFn(ctx)
}

// --- helpers ---

// withURLParam injects a chi route parameter so handlers can be exercised
// without a full router.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonReq(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	b, _ := json.Marshal(body)
	r := httptest.NewRequest(method, target, bytes.NewReader(b))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func parseData(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int) map[string]any {
	t.Helper()
	if rec.Code != wantStatus {
		t.Fatalf("expected %d, got %d: %s", wantStatus, rec.Code, rec.Body.String())
	}
	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env.Data
}

func parseErr(t *testing.T, rec *httptest.ResponseRecorder) (int, string) {
	t.Helper()
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec.Code, env.Error.Code
}

// --- create ---

func TestCreateJobHandler_Success(t *testing.T) {
	id := uuid.New()
	var gotOwner string
	var gotOptions map[string]any
	mock := &mockJobStore{createFn: func(_ context.Context, ownerKey string, options map[string]any) (uuid.UUID, error) {
		gotOwner = ownerKey
		gotOptions = options
		return id, nil
	}}

	h := NewCreateJobHandler(mock)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonReq(t, http.MethodPost, "/api/v1/jobs", map[string]any{
		"owner_key": "acme-reports",
		"options":   map[string]any{"report_type": "monthly"},
	}))

	data := parseData(t, rec, http.StatusCreated)
	if data["job_id"] != id.String() {
		t.Errorf("unexpected job_id: %v", data["job_id"])
	}
	if data["status"] != models.JobStatusPending {
		t.Errorf("unexpected status: %v", data["status"])
	}
	if gotOwner != "acme-reports" {
		t.Errorf("unexpected owner key: %q", gotOwner)
	}
	if gotOptions["report_type"] != "monthly" {
		t.Errorf("unexpected options: %v", gotOptions)
	}
}

func TestCreateJobHandler_MissingOwnerKey(t *testing.T) {
	h := NewCreateJobHandler(&mockJobStore{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonReq(t, http.MethodPost, "/api/v1/jobs", map[string]any{
		"options": map[string]any{},
	}))

	status, code := parseErr(t, rec)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", status)
	}
	if code != "INVALID_REQUEST" {
		t.Errorf("expected INVALID_REQUEST, got %s", code)
	}
}

func TestCreateJobHandler_InvalidJSON(t *testing.T) {
	h := NewCreateJobHandler(&mockJobStore{})
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader([]byte("{invalid")))
	h.ServeHTTP(rec, r)

	status, _ := parseErr(t, rec)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", status)
	}
}

func TestCreateJobHandler_StoreError(t *testing.T) {
	mock := &mockJobStore{createFn: func(_ context.Context, _ string, _ map[string]any) (uuid.UUID, error) {
		return uuid.Nil, errors.New("insert failed")
	}}

	h := NewCreateJobHandler(mock)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonReq(t, http.MethodPost, "/api/v1/jobs", map[string]any{
		"owner_key": "acme",
	}))

	status, code := parseErr(t, rec)
	if status != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", status)
	}
	if code != "INTERNAL_ERROR" {
		t.Errorf("expected INTERNAL_ERROR, got %s", code)
	}
}

// --- get ---

func TestGetJobHandler_Success(t *testing.T) {
	id := uuid.New()
	msg := "Generating charts"
	mock := &mockJobStore{getFn: func(_ context.Context, jobID uuid.UUID) (*models.Job, error) {
		return &models.Job{
			JobID:    jobID,
			OwnerKey: "acme",
			Status:   models.JobStatusRunning,
			Progress: 45,
			Message:  &msg,
		}, nil
	}}

	h := NewGetJobHandler(mock)
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+id.String(), nil)
	h.ServeHTTP(rec, withURLParam(r, "jobID", id.String()))

	data := parseData(t, rec, http.StatusOK)
	if data["job_id"] != id.String() {
		t.Errorf("unexpected job_id: %v", data["job_id"])
	}
	if data["status"] != models.JobStatusRunning {
		t.Errorf("unexpected status: %v", data["status"])
	}
	if int(data["progress"].(float64)) != 45 {
		t.Errorf("unexpected progress: %v", data["progress"])
	}
}

func TestGetJobHandler_NotFound(t *testing.T) {
	mock := &mockJobStore{getFn: func(_ context.Context, _ uuid.UUID) (*models.Job, error) {
		return nil, store.ErrNotFound
	}}

	h := NewGetJobHandler(mock)
	rec := httptest.NewRecorder()
	id := uuid.New()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+id.String(), nil)
	h.ServeHTTP(rec, withURLParam(r, "jobID", id.String()))

	status, code := parseErr(t, rec)
	if status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", status)
	}
	if code != "JOB_NOT_FOUND" {
		t.Errorf("expected JOB_NOT_FOUND, got %s", code)
	}
}

func TestGetJobHandler_InvalidUUID(t *testing.T) {
	h := NewGetJobHandler(&mockJobStore{})
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/not-a-uuid", nil)
	h.ServeHTTP(rec, withURLParam(r, "jobID", "not-a-uuid"))

	status, _ := parseErr(t, rec)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", status)
	}
}

// --- update ---

func TestUpdateJobHandler_Success(t *testing.T) {
	id := uuid.New()
	var gotFields map[string]any
	mock := &mockJobStore{updateFn: func(_ context.Context, _ uuid.UUID, fields map[string]any) (bool, error) {
		gotFields = fields
		return true, nil
	}}

	h := NewUpdateJobHandler(mock)
	rec := httptest.NewRecorder()
	r := jsonReq(t, http.MethodPatch, "/api/v1/jobs/"+id.String(), map[string]any{
		"status":   models.JobStatusCompleted,
		"progress": 100,
	})
	h.ServeHTTP(rec, withURLParam(r, "jobID", id.String()))

	data := parseData(t, rec, http.StatusOK)
	if data["updated"] != true {
		t.Errorf("expected updated true, got %v", data["updated"])
	}
	if gotFields["status"] != models.JobStatusCompleted {
		t.Errorf("unexpected fields: %v", gotFields)
	}
}

func TestUpdateJobHandler_NothingUpdated(t *testing.T) {
	id := uuid.New()
	mock := &mockJobStore{updateFn: func(_ context.Context, _ uuid.UUID, _ map[string]any) (bool, error) {
		return false, nil
	}}

	h := NewUpdateJobHandler(mock)
	rec := httptest.NewRecorder()
	r := jsonReq(t, http.MethodPatch, "/api/v1/jobs/"+id.String(), map[string]any{
		"nonsense": "field",
	})
	h.ServeHTTP(rec, withURLParam(r, "jobID", id.String()))

	data := parseData(t, rec, http.StatusOK)
	if data["updated"] != false {
		t.Errorf("expected updated false, got %v", data["updated"])
	}
}

func TestUpdateJobHandler_InvalidJSON(t *testing.T) {
	id := uuid.New()
	h := NewUpdateJobHandler(&mockJobStore{})
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPatch, "/api/v1/jobs/"+id.String(), bytes.NewReader([]byte("nope")))
	h.ServeHTTP(rec, withURLParam(r, "jobID", id.String()))

	status, _ := parseErr(t, rec)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", status)
	}
}

// --- list ---

func TestListJobsHandler_DefaultLimit(t *testing.T) {
	var gotLimit int
	mock := &mockJobStore{listFn: func(_ context.Context, limit int) []models.JobSummary {
		gotLimit = limit
		return []models.JobSummary{}
	}}

	h := NewListJobsHandler(mock)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotLimit != 100 {
		t.Errorf("expected default limit 100, got %d", gotLimit)
	}
}

func TestListJobsHandler_LimitClamped(t *testing.T) {
	var gotLimit int
	mock := &mockJobStore{listFn: func(_ context.Context, limit int) []models.JobSummary {
		gotLimit = limit
		return []models.JobSummary{}
	}}

	h := NewListJobsHandler(mock)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs?limit=9999", nil))

	if gotLimit != maxListLimit {
		t.Errorf("expected limit clamped to %d, got %d", maxListLimit, gotLimit)
	}
}

func TestListJobsHandler_InvalidLimit(t *testing.T) {
	h := NewListJobsHandler(&mockJobStore{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs?limit=banana", nil))

	status, _ := parseErr(t, rec)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", status)
	}
}

// --- stats / cleanup ---

func TestJobStatsHandler(t *testing.T) {
	mock := &mockJobStore{statsFn: func(_ context.Context) models.JobStats {
		return models.JobStats{Total: 5, Completed: 2, Failed: 1, Running: 1, Pending: 1}
	}}

	h := NewJobStatsHandler(mock)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/stats", nil))

	data := parseData(t, rec, http.StatusOK)
	if int(data["total"].(float64)) != 5 {
		t.Errorf("unexpected total: %v", data["total"])
	}
	if int(data["completed"].(float64)) != 2 {
		t.Errorf("unexpected completed: %v", data["completed"])
	}
}

func TestCleanupJobsHandler(t *testing.T) {
	mock := &mockJobStore{cleanupFn: func(_ context.Context) int { return 7 }}

	h := NewCleanupJobsHandler(mock)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/jobs/cleanup", nil))

	data := parseData(t, rec, http.StatusOK)
	if int(data["deleted"].(float64)) != 7 {
		t.Errorf("unexpected deleted: %v", data["deleted"])
	}
}
