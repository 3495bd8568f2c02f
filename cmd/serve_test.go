package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studioforge/asset-cli/internal/classify"
	"github.com/studioforge/asset-cli/internal/extract"
	"github.com/studioforge/asset-cli/internal/model"
	"github.com/studioforge/asset-cli/internal/prepass"
	"github.com/studioforge/asset-cli/internal/store"
)

type stubExtractor struct {
	raw map[string]any
	err error
}

func (s *stubExtractor) Extract(ctx context.Context, img extract.Image, schema map[string]any, instruction string, maxRetries int) (map[string]any, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.raw, nil
}

func (s *stubExtractor) Embed(ctx context.Context, text string) ([]float64, error) {
	return []float64{1, 0, 0}, nil
}

func (s *stubExtractor) EmbedAll(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{1, 0, 0}
	}
	return out, nil
}

func (s *stubExtractor) Model() string { return "vision-model" }

func newTestEnv(t *testing.T, ext extract.Client) *pipelineEnv {
	t.Helper()
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	pr := &prepass.Runner{Extractor: ext, Store: st, Perm: prepass.AllowAll, MaxRetries: 2}
	return &pipelineEnv{
		Store:   st,
		Prepass: pr,
		Classify: &classify.Runner{
			Extractor: ext,
			Store:     st,
			Prepass:   pr,
			Perm:      prepass.AllowAll,
			Config:    classify.DefaultConfig(),
		},
	}
}

func testImagePath(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "asset.png")
	require.NoError(t, os.WriteFile(path, []byte("not-a-real-png"), 0o644))
	return path
}

func TestServeHealth(t *testing.T) {
	router := newRouter(newTestEnv(t, &stubExtractor{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestServeClassify_BadRequest(t *testing.T) {
	router := newRouter(newTestEnv(t, &stubExtractor{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/classify", bytes.NewBufferString(`{"asset_id":""}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "required")
}

func TestServePrepass_Success(t *testing.T) {
	ext := &stubExtractor{raw: map[string]any{
		"primary_subject":  "human",
		"subjects_present": []any{"human"},
		"counts":           map[string]any{"humans": float64(1), "animals": float64(0), "objects": float64(0)},
		"human_attributes": map[string]any{"present": true, "apparent_age": "adult", "gender_presentation": "unknown"},
		"image_kind":       "illustration",
		"background_type":  "plain",
		"notes": map[string]any{
			"is_single_character_fullbody": false,
			"has_visible_text":             false,
			"is_close_up":                  false,
		},
		"free_caption": "a knight",
		"confidence":   map[string]any{"overall": 0.8, "primary_subject": 0.9},
	}}
	env := newTestEnv(t, ext)
	router := newRouter(env)

	body, _ := json.Marshal(pipelineRequest{AssetID: "asset-1", Image: testImagePath(t)})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/prepass", bytes.NewBuffer(body)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result model.PrepassResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, model.SubjectHuman, result.Features.PrimarySubject)

	// The run left an audit trail readable over the API.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/asset-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var records []model.AuditRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "prepass", records[0].Action)
}

func TestServeClassify_UpstreamFailure(t *testing.T) {
	ext := &stubExtractor{err: model.NewError(model.KindUpstream, "extract: vision call")}
	router := newRouter(newTestEnv(t, ext))

	body, _ := json.Marshal(pipelineRequest{AssetID: "asset-1", Image: testImagePath(t)})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/classify", bytes.NewBuffer(body)))

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var result model.ClassifyResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestServeAudit_UnknownAssetEmptyList(t *testing.T) {
	router := newRouter(newTestEnv(t, &stubExtractor{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/nothing-here", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestShutdownGracefullyDrainsInflight(t *testing.T) {
	started := make(chan struct{})
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		close(started)
		time.Sleep(150 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(ln) }()

	status := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			status <- 0
			return
		}
		_ = resp.Body.Close()
		status <- resp.StatusCode
	}()

	<-started
	shutdownGracefully(srv, 5*time.Second)

	// The in-flight request finished instead of being cut off mid-handler.
	assert.Equal(t, http.StatusOK, <-status)
}

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{model.NewError(model.KindValidation, "x"), http.StatusUnprocessableEntity},
		{model.NewError(model.KindNotFound, "x"), http.StatusNotFound},
		{model.NewError(model.KindPermission, "x"), http.StatusForbidden},
		{model.NewError(model.KindUpstream, "x"), http.StatusBadGateway},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusForError(tc.err))
	}
}
