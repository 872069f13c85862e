package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battleflow/internal/database"
	"battleflow/internal/repository"
	"battleflow/internal/service"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	logger := zerolog.Nop()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db, logger))

	repos := service.NewRepos(
		repository.NewTournamentRepository(db, logger),
		repository.NewCategoryRepository(db, logger),
		repository.NewPerformerRepository(db, logger),
		repository.NewPoolRepository(db, logger),
		repository.NewBattleRepository(db, logger),
	)
	lock := service.NewWriteLock()
	tiebreaks := service.NewTiebreakService(logger)

	srv := NewEngineServer(
		service.NewTournamentService(db, repos, lock, logger),
		service.NewPhaseService(db, repos, tiebreaks, lock, logger),
		service.NewResultService(db, repos, tiebreaks, lock, logger),
		service.NewQueueService(db, repos, lock, logger),
		logger,
	)
	mux := http.NewServeMux()
	srv.Routes(mux)
	return mux
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestTournamentEndpoints(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/tournaments", `{"name":"Block Party"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Phase  string `json:"phase"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Block Party", created.Name)
	assert.Equal(t, "registration", created.Phase)
	assert.Equal(t, "created", created.Status)

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/tournaments/"+created.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/tournaments/"+created.ID+"/categories",
		`{"name":"breaking","groups_ideal":2,"performers_ideal":4}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/tournaments/"+created.ID+"/validate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.Errors, "an empty category cannot advance")
}

func TestErrorMapping(t *testing.T) {
	handler := newTestHandler(t)

	t.Run("unknown tournament is 404", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodGet, "/api/v1/tournaments/nope", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("validation failure is 422 with details", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/v1/tournaments", `{"name":""}`)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		var body struct {
			Error   string   `json:"error"`
			Details []string `json:"details"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "validation failed", body.Error)
		assert.NotEmpty(t, body.Details)
	})

	t.Run("malformed JSON is 400", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/v1/tournaments", `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("advancing an unknown tournament is 404", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/v1/tournaments/nope/advance", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
