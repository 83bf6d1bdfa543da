package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/attribution-cli/internal/credential"
	"github.com/sells-group/attribution-cli/internal/model"
	"github.com/sells-group/attribution-cli/internal/pipeline"
	"github.com/sells-group/attribution-cli/internal/resilience"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, img model.ImageRef, opts pipeline.Options) (*model.PipelineResult, error) {
	args := m.Called(ctx, img, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PipelineResult), args.Error(1)
}

func (m *mockResolver) ResolveBatch(ctx context.Context, refs []model.ImageRef, opts pipeline.Options) (*model.BatchResult, error) {
	args := m.Called(ctx, refs, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BatchResult), args.Error(1)
}

func (m *mockResolver) LookupPage(ctx context.Context, pageURL string) (*model.LookupResult, error) {
	args := m.Called(ctx, pageURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LookupResult), args.Error(1)
}

func newTestAPI(res resolver) http.Handler {
	api := &apiServer{
		resolver: res,
		keyStats: func() map[string]credential.Stats {
			return map[string]credential.Stats{
				"pexels": credential.NewPool("pexels", credential.RoundRobin, "a", "b").Stats(),
			}
		},
		circuits: func() map[string]resilience.CircuitState {
			return map[string]resilience.CircuitState{"yandex": resilience.CircuitOpen}
		},
		maxUploadMB: 1,
		timeout:     time.Second,
	}
	return api.routes(nil)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestAPI(&mockResolver{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, map[string]any{"yandex": "open"}, body["circuits"])
}

func TestKeyStatsEndpoint(t *testing.T) {
	h := newTestAPI(&mockResolver{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api-key-stats", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var body map[string]credential.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 2, body["pexels"].TotalKeys)
}

func TestReverseSearch_Valid(t *testing.T) {
	res := &mockResolver{}
	res.On("Resolve", mock.Anything, model.ImageRef{URL: "https://cdn.example/a.jpg"}, mock.MatchedBy(func(o pipeline.Options) bool {
		return o.MaxResults == 3 && o.KeyIndex != nil && *o.KeyIndex == 1 &&
			o.Timeout == 5*time.Second && len(o.Engines) == 1
	})).Return(&model.PipelineResult{
		RequestID:   "req-1",
		ImageURL:    "https://cdn.example/a.jpg",
		Found:       true,
		Results:     []model.AttributionCandidate{{Creator: "Jane Doe", Confidence: 0.95}},
		MatchedURLs: []string{},
		EnginesUsed: []string{},
	}, nil)
	h := newTestAPI(res)

	body := `{"image_url":"https://cdn.example/a.jpg","max_results":3,"timeout":5,"engines":["bing"],"api_key_index":1}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/reverse-search", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, true, got["found"])
	assert.Contains(t, got, "search_engines_used")
	assert.Contains(t, got, "total_matches_found")
	res.AssertExpectations(t)
}

func TestReverseSearch_BadRequests(t *testing.T) {
	res := &mockResolver{}
	res.On("Resolve", mock.Anything, model.ImageRef{URL: "ftp://x/a.jpg"}, mock.Anything).
		Return(nil, eris.Wrap(model.ErrInvalidImage, "unsupported url"))
	h := newTestAPI(res)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{not json"},
		{"missing url", `{"max_results":3}`},
		{"invalid image", `{"image_url":"ftp://x/a.jpg"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/reverse-search", strings.NewReader(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), "error")
		})
	}
}

func TestReverseSearch_InternalError(t *testing.T) {
	res := &mockResolver{}
	res.On("Resolve", mock.Anything, mock.Anything, mock.Anything).Return(nil, eris.New("boom"))
	h := newTestAPI(res)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/reverse-search", strings.NewReader(`{"image_url":"https://a.example/x.jpg"}`)))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "boom")
}

func TestGetAttribution_Valid(t *testing.T) {
	page := "https://www.pexels.com/photo/red-fox-4321/"
	res := &mockResolver{}
	res.On("LookupPage", mock.Anything, page).Return(&model.LookupResult{
		RequestID: "req-2",
		URL:       page,
		Found:     true,
		Supported: true,
		Attribution: &model.AttributionCandidate{
			SourceURL:  page,
			Source:     "pexels",
			Creator:    "Jane Doe",
			License:    "Pexels License",
			Status:     model.StatusSuccess,
			Confidence: 0.9,
		},
	}, nil)
	h := newTestAPI(res)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/get-attribution", strings.NewReader(`{"url":"`+page+`"}`)))

	require.Equal(t, http.StatusOK, rr.Code)
	var got model.LookupResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.True(t, got.Found)
	assert.True(t, got.Supported)
	require.NotNil(t, got.Attribution)
	assert.Equal(t, "Jane Doe", got.Attribution.Creator)
	res.AssertExpectations(t)
}

func TestGetAttribution_Errors(t *testing.T) {
	res := &mockResolver{}
	res.On("LookupPage", mock.Anything, "ftp://x/p").Return(nil, eris.Wrap(model.ErrInvalidImage, "unsupported url"))
	res.On("LookupPage", mock.Anything, "https://a.example/p").Return(nil, eris.New("boom"))
	h := newTestAPI(res)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"invalid json", "{", http.StatusBadRequest},
		{"missing url", `{}`, http.StatusBadRequest},
		{"invalid url", `{"url":"ftp://x/p"}`, http.StatusBadRequest},
		{"internal", `{"url":"https://a.example/p"}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/get-attribution", strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, rr.Code)
			assert.NotContains(t, rr.Body.String(), "boom")
		})
	}
}

func uploadRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "image.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("max_results", "2"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/reverse-search/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload_Valid(t *testing.T) {
	data := pngBytes(t)
	res := &mockResolver{}
	res.On("Resolve", mock.Anything, model.ImageRef{Bytes: data}, mock.MatchedBy(func(o pipeline.Options) bool {
		return o.MaxResults == 2 && o.KeyIndex == nil
	})).Return(&model.PipelineResult{RequestID: "r", Results: []model.AttributionCandidate{}}, nil)
	h := newTestAPI(res)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, uploadRequest(t, "file", data))
	assert.Equal(t, http.StatusOK, rr.Code)
	res.AssertExpectations(t)
}

func TestUpload_Rejected(t *testing.T) {
	res := &mockResolver{}
	h := newTestAPI(res)

	t.Run("not an image", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, uploadRequest(t, "file", []byte("plain text")))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
	t.Run("missing file field", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, uploadRequest(t, "other", pngBytes(t)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
	t.Run("too large", func(t *testing.T) {
		big := append(pngBytes(t), bytes.Repeat([]byte{0}, 2<<20)...)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, uploadRequest(t, "file", big))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
	res.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)
}

func TestBatch_Endpoint(t *testing.T) {
	res := &mockResolver{}
	res.On("ResolveBatch", mock.Anything, []model.ImageRef{{URL: "https://a.example/1.jpg"}, {URL: "https://a.example/2.jpg"}}, mock.MatchedBy(func(o pipeline.Options) bool {
		return o.MaxResults == 4 && o.Timeout == 10*time.Second
	})).Return(&model.BatchResult{
		Results:    []model.PipelineResult{{Found: true}, {Error: "boom"}},
		TotalFound: 1,
	}, nil)
	h := newTestAPI(res)

	body := `{"image_urls":["https://a.example/1.jpg","https://a.example/2.jpg"],"max_results_per_image":4,"timeout_per_image":10}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/reverse-search/batch", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	var got model.BatchResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 1, got.TotalFound)
	assert.Len(t, got.Results, 2)
	assert.Equal(t, "boom", got.Results[1].Error)
}

func TestBatch_SizeError(t *testing.T) {
	res := &mockResolver{}
	res.On("ResolveBatch", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, eris.Wrap(pipeline.ErrBatchSize, "got 0 images"))
	h := newTestAPI(res)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/reverse-search/batch", strings.NewReader(`{"image_urls":[]}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestAPI(&mockResolver{})

	req := httptest.NewRequest(http.MethodOptions, "/reverse-search", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestServeCmd_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}
