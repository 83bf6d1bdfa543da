package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/attribution-cli/internal/credential"
	"github.com/sells-group/attribution-cli/internal/extract"
	"github.com/sells-group/attribution-cli/internal/metadata"
	"github.com/sells-group/attribution-cli/internal/model"
	"github.com/sells-group/attribution-cli/internal/search"
)

// --- Searcher Mock ---

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, img model.ImageRef, q search.Query) model.SearchOutcome {
	args := m.Called(ctx, img, q)
	return args.Get(0).(model.SearchOutcome)
}

// --- Metadata Reader Mock ---

type mockReader struct {
	mock.Mock
}

func (m *mockReader) Read(data []byte) *metadata.Record {
	args := m.Called(data)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*metadata.Record)
}

// --- Downloader Mock ---

type mockDownloader struct {
	mock.Mock
}

func (m *mockDownloader) Download(ctx context.Context, imageURL string) ([]byte, error) {
	args := m.Called(ctx, imageURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// --- Strategy stubs ---

type stubStrategy struct {
	pages map[string]model.AttributionCandidate
	calls atomic.Int32

	mu   sync.Mutex
	keys []*int
}

func (s *stubStrategy) Name() string { return "stub" }

func (s *stubStrategy) Extract(ctx context.Context, url string) model.AttributionCandidate {
	s.calls.Add(1)
	s.mu.Lock()
	s.keys = append(s.keys, credential.IndexFrom(ctx))
	s.mu.Unlock()
	if c, ok := s.pages[url]; ok {
		c.SourceURL = url
		return c
	}
	return model.FailedCandidate(url, "stub", errors.New("no page"))
}

type stubStrategies struct {
	s *stubStrategy
}

func (ss stubStrategies) StrategyFor(string) extract.Strategy { return ss.s }
