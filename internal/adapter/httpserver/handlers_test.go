package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techresidents/indexsvc/internal/adapter/httpserver"
	"github.com/techresidents/indexsvc/internal/config"
	"github.com/techresidents/indexsvc/internal/domain"
)

type fakeJobStore struct {
	inserted  []domain.IndexJob
	insertErr error
	jobs      map[string]domain.IndexJob
}

func (s *fakeJobStore) Insert(_ context.Context, j domain.IndexJob) (string, error) {
	if s.insertErr != nil {
		return "", s.insertErr
	}
	j.ID = "job-1"
	s.inserted = append(s.inserted, j)
	return j.ID, nil
}

func (s *fakeJobStore) Get(_ context.Context, id string) (domain.IndexJob, error) {
	j, ok := s.jobs[id]
	if !ok {
		return domain.IndexJob{}, domain.ErrNotFound
	}
	return j, nil
}

func (s *fakeJobStore) SelectClaimable(context.Context, time.Time, int) ([]domain.IndexJob, error) {
	return nil, nil
}

func (s *fakeJobStore) Claim(context.Context, string, string) error { return nil }
func (s *fakeJobStore) Finish(context.Context, string, bool) error  { return nil }

func testServer(store *fakeJobStore) *httpserver.Server {
	cfg := config.Config{IndexerJobMaxRetryAttempts: 3}
	return httpserver.NewServer(cfg, store, nil, nil)
}

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndexHandler_EnqueuesUpdate(t *testing.T) {
	t.Parallel()
	store := &fakeJobStore{}
	srv := testServer(store)

	rec := postJSON(t, srv.IndexHandler(),
		`{"context":"chat:42","name":"users","type":"user","keys":["1","2"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp.ID)

	require.Len(t, store.inserted, 1)
	job := store.inserted[0]
	assert.Equal(t, "chat:42", job.Context)
	assert.Equal(t, 3, job.RetriesRemaining)
	assert.True(t, job.NotBefore.IsZero(), "no deferral requested")

	op, err := domain.DecodeIndexOp(job.Data)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionUpdate, op.Action)
	assert.Equal(t, "users", op.Name)
	assert.Equal(t, "user", op.Type)
	assert.Equal(t, []string{"1", "2"}, op.Keys)
}

func TestIndexAllHandler_EmptyKeys(t *testing.T) {
	t.Parallel()
	store := &fakeJobStore{}
	srv := testServer(store)

	rec := postJSON(t, srv.IndexAllHandler(),
		`{"context":"admin","name":"topics","type":"topic"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Len(t, store.inserted, 1)
	op, err := domain.DecodeIndexOp(store.inserted[0].Data)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionUpdate, op.Action)
	assert.Empty(t, op.Keys, "index-all targets every key")
}

func TestIndexAllHandler_IgnoresSuppliedKeys(t *testing.T) {
	t.Parallel()
	store := &fakeJobStore{}
	srv := testServer(store)

	rec := postJSON(t, srv.IndexAllHandler(),
		`{"context":"admin","name":"topics","type":"topic","keys":["9"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	op, err := domain.DecodeIndexOp(store.inserted[0].Data)
	require.NoError(t, err)
	assert.Empty(t, op.Keys)
}

func TestIndexHandler_Validation(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		body string
	}{
		{"missing context", `{"name":"users","type":"user","keys":["1"]}`},
		{"missing name", `{"context":"c","type":"user","keys":["1"]}`},
		{"missing type", `{"context":"c","name":"users","keys":["1"]}`},
		{"missing keys", `{"context":"c","name":"users","type":"user"}`},
		{"empty keys", `{"context":"c","name":"users","type":"user","keys":[]}`},
		{"malformed body", `{not json`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeJobStore{}
			rec := postJSON(t, testServer(store).IndexHandler(), tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, store.inserted, "invalid input must not enqueue")

			var env struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.Equal(t, "INVALID_DATA", env.Error.Code)
		})
	}
}

func TestIndexAllHandler_KeysNotRequired(t *testing.T) {
	t.Parallel()
	store := &fakeJobStore{}
	rec := postJSON(t, testServer(store).IndexAllHandler(),
		`{"context":"c","name":"users","type":"user","keys":[]}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestIndexHandler_NotBefore(t *testing.T) {
	t.Parallel()
	store := &fakeJobStore{}
	when := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	body, err := json.Marshal(map[string]any{
		"context": "scheduler", "name": "users", "type": "user",
		"keys": []string{"1"}, "not_before": when.Unix(),
	})
	require.NoError(t, err)

	rec := postJSON(t, testServer(store).IndexHandler(), string(body))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, when, store.inserted[0].NotBefore)
}

func TestIndexHandler_StoreFailure(t *testing.T) {
	t.Parallel()
	store := &fakeJobStore{insertErr: errors.New("db down")}
	rec := postJSON(t, testServer(store).IndexHandler(),
		`{"context":"c","name":"users","type":"user","keys":["1"]}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "UNAVAILABLE", env.Error.Code)
}

func TestJobHandler(t *testing.T) {
	t.Parallel()
	done := true
	store := &fakeJobStore{jobs: map[string]domain.IndexJob{
		"job-9": {ID: "job-9", Context: "c", Successful: &done},
	}}
	srv := testServer(store)

	r := chi.NewRouter()
	r.Get("/v1/jobs/{id}", srv.JobHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/job-9", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ID         string `json:"id"`
		Successful *bool  `json:"successful"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "job-9", resp.ID)
	require.NotNil(t, resp.Successful)
	assert.True(t, *resp.Successful)

	req = httptest.NewRequest(http.MethodGet, "/v1/jobs/missing", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReadyzHandler(t *testing.T) {
	t.Parallel()
	srv := httpserver.NewServer(config.Config{}, &fakeJobStore{},
		func(context.Context) error { return nil },
		func(context.Context) error { return errors.New("cluster red") })

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	srv.ReadyzHandler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var checks map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &checks))
	assert.Equal(t, "ok", checks["db"])
	assert.Contains(t, checks["es"], "cluster red")
}
