package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rulebook-cli/internal/blob"
	"github.com/sells-group/rulebook-cli/internal/model"
	"github.com/sells-group/rulebook-cli/internal/pipeline"
	"github.com/sells-group/rulebook-cli/internal/qa"
)

type mockStages struct{ mock.Mock }

func (m *mockStages) Discover(ctx context.Context, key model.Key) (*pipeline.DiscoverResult, error) {
	args := m.Called(ctx, key)
	res, _ := args.Get(0).(*pipeline.DiscoverResult)
	return res, args.Error(1)
}

func (m *mockStages) Archive(ctx context.Context, key model.Key) (*pipeline.ArchiveResult, error) {
	args := m.Called(ctx, key)
	res, _ := args.Get(0).(*pipeline.ArchiveResult)
	return res, args.Error(1)
}

func (m *mockStages) Extract(ctx context.Context, key model.Key) (*pipeline.ExtractResult, error) {
	args := m.Called(ctx, key)
	res, _ := args.Get(0).(*pipeline.ExtractResult)
	return res, args.Error(1)
}

func (m *mockStages) Status(ctx context.Context, key model.Key) (*pipeline.StatusResult, error) {
	args := m.Called(ctx, key)
	res, _ := args.Get(0).(*pipeline.StatusResult)
	return res, args.Error(1)
}

type mockAsker struct{ mock.Mock }

func (m *mockAsker) Ask(ctx context.Context, key model.Key, question string) (*qa.Answer, error) {
	args := m.Called(ctx, key, question)
	res, _ := args.Get(0).(*qa.Answer)
	return res, args.Error(1)
}

func (m *mockAsker) Invalidate(key model.Key) { m.Called(key) }

var fall2025 = model.Key{Season: model.SeasonFall, Year: 2025}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	rec, body := do(t, NewRouter(Deps{Stages: &mockStages{}}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/discover", nil)
	req.Header.Set("Origin", "https://league.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	NewRouter(Deps{Stages: &mockStages{}}).ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestDiscover_YearAsNumberOrString(t *testing.T) {
	for _, payload := range []string{
		`{"season":"fall","year":2025}`,
		`{"season":"Fall","year":"2025"}`,
		`{"season":" fall ","year":" 2025 "}`,
	} {
		st := &mockStages{}
		st.On("Discover", mock.Anything, fall2025).Return(&pipeline.DiscoverResult{
			Message: "Saved 1 tournament record(s) for Fall 2025",
			Sources: []string{"https://www.chess.com/news/view/fall-2025"},
			Records: []model.TournamentRecord{{ID: "r1", Season: model.SeasonFall, Year: 2025}},
		}, nil)

		rec, body := do(t, NewRouter(Deps{Stages: st}), http.MethodPost, "/discover", payload)
		require.Equal(t, http.StatusOK, rec.Code, payload)
		assert.Equal(t, false, body["exists"])
		assert.Len(t, body["savedData"], 1)
		assert.Len(t, body["sources"], 1)
		st.AssertExpectations(t)
	}
}

func TestPost_ValidationErrors(t *testing.T) {
	tests := map[string]string{
		"bad json":       `{"season":`,
		"missing season": `{"year":2025}`,
		"bad season":     `{"season":"summer","year":2025}`,
		"missing year":   `{"season":"fall"}`,
		"null year":      `{"season":"fall","year":null}`,
		"text year":      `{"season":"fall","year":"next"}`,
		"fraction year":  `{"season":"fall","year":2025.5}`,
		"negative year":  `{"season":"fall","year":-1}`,
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			st := &mockStages{}
			for _, path := range []string{"/discover", "/archive", "/extract"} {
				rec, body := do(t, NewRouter(Deps{Stages: st}), http.MethodPost, path, payload)
				assert.Equal(t, http.StatusBadRequest, rec.Code, path)
				assert.NotEmpty(t, body["error"])
			}
			st.AssertNotCalled(t, "Discover", mock.Anything, mock.Anything)
		})
	}
}

func TestArchive_InvalidatesQA(t *testing.T) {
	st := &mockStages{}
	st.On("Archive", mock.Anything, fall2025).Return(&pipeline.ArchiveResult{Updated: []model.RecordUpdate{
		{ID: "r1", ArchivedDocumentURL: "http://localhost:8080/blobs/fall/2025/1.pdf"},
	}}, nil)
	asker := &mockAsker{}
	asker.On("Invalidate", fall2025).Return()

	rec, body := do(t, NewRouter(Deps{Stages: st, Asker: asker}), http.MethodPost, "/archive", `{"season":"fall","year":2025}`)
	require.Equal(t, http.StatusOK, rec.Code)
	docs := body["updatedDocs"].([]any)
	require.Len(t, docs, 1)
	assert.Equal(t, "http://localhost:8080/blobs/fall/2025/1.pdf", docs[0].(map[string]any)["pdfStorageUrl"])
	asker.AssertExpectations(t)
}

func TestStageErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", &pipeline.NotFoundError{Key: fall2025}, http.StatusNotFound},
		{"precondition", &pipeline.PreconditionError{Missing: "archivedDocumentUrl"}, http.StatusBadRequest},
		{"upstream", &pipeline.UpstreamError{Provider: "llm", Err: errors.New("overloaded")}, http.StatusBadGateway},
		{"parse", &pipeline.ParseError{Err: errors.New("not json")}, http.StatusBadGateway},
		{"internal", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &mockStages{}
			st.On("Extract", mock.Anything, fall2025).Return(nil, tt.err)
			rec, body := do(t, NewRouter(Deps{Stages: st}), http.MethodPost, "/extract", `{"season":"fall","year":2025}`)
			assert.Equal(t, tt.code, rec.Code)
			require.Contains(t, body, "error")
			if tt.code == http.StatusInternalServerError {
				assert.Equal(t, "internal error", body["error"])
			} else {
				assert.Equal(t, tt.err.Error(), body["error"])
			}
		})
	}
}

func TestExtract_ReturnsTournamentInfo(t *testing.T) {
	st := &mockStages{}
	st.On("Extract", mock.Anything, fall2025).Return(&pipeline.ExtractResult{
		RecordID: "r1",
		TournamentInfo: &model.TournamentInfo{
			Logistics: model.Logistics{SeasonStart: "September 14, 2025 7:00 PM ET"},
		},
	}, nil)

	rec, body := do(t, NewRouter(Deps{Stages: st}), http.MethodPost, "/extract", `{"season":"fall","year":"2025"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	info := body["tournamentInfo"].(map[string]any)
	assert.Equal(t, "September 14, 2025 7:00 PM ET", info["logistics"].(map[string]any)["season_start"])
}

func TestStatus(t *testing.T) {
	st := &mockStages{}
	st.On("Status", mock.Anything, fall2025).Return(&pipeline.StatusResult{
		Exists: true,
		Stage:  model.StageArchived,
		Record: &model.TournamentRecord{ID: "r1", ArchivedDocumentURL: "http://x/blobs/a.pdf"},
	}, nil)
	router := NewRouter(Deps{Stages: st})

	rec, body := do(t, router, http.MethodGet, "/status?season=fall&year=2025", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["exists"])
	assert.Equal(t, "archived", body["stage"])
	assert.Equal(t, "r1", body["data"].(map[string]any)["id"])

	rec, _ = do(t, router, http.MethodGet, "/status?season=fall", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = do(t, router, http.MethodGet, "/status?year=2025", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAsk(t *testing.T) {
	asker := &mockAsker{}
	asker.On("Ask", mock.Anything, fall2025, "When is the fair play deadline?").
		Return(&qa.Answer{Answer: "September 10, 2025 11:59 PM ET"}, nil)
	router := NewRouter(Deps{Stages: &mockStages{}, Asker: asker})

	rec, body := do(t, router, http.MethodPost, "/ask", `{"season":"fall","year":2025,"question":"When is the fair play deadline?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "September 10, 2025 11:59 PM ET", body["answer"])

	rec, _ = do(t, router, http.MethodPost, "/ask", `{"season":"fall","year":2025,"question":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAsk_NotConfigured(t *testing.T) {
	rec, body := do(t, NewRouter(Deps{Stages: &mockStages{}}), http.MethodPost, "/ask", `{"season":"fall","year":2025,"question":"q"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotEmpty(t, body["error"])
}

func TestBlobs(t *testing.T) {
	store := blob.NewFSStore(afero.NewMemMapFs(), "http://localhost:8080")
	require.NoError(t, store.Put(context.Background(), "fall/2025/1.pdf", []byte("%PDF"), "application/pdf"))
	router := NewRouter(Deps{Stages: &mockStages{}, Blobs: store.Handler()})

	req := httptest.NewRequest(http.MethodGet, "/blobs/fall/2025/1.pdf", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/blobs/fall/2025/missing.pdf", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParseYear(t *testing.T) {
	y, err := parseYear([]byte(`2026`))
	require.NoError(t, err)
	assert.Equal(t, 2026, y)
	y, err = parseYear([]byte(`"2026"`))
	require.NoError(t, err)
	assert.Equal(t, 2026, y)
	_, err = parseYear([]byte(`0`))
	require.Error(t, err)
	_, err = parseYear(nil)
	require.Error(t, err)
}
