package scrape

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/attribution-cli/internal/resilience"
	"github.com/sells-group/attribution-cli/pkg/jina"
	jinamocks "github.com/sells-group/attribution-cli/pkg/jina/mocks"
)

var readerHTML = "<html><body><h1>Red fox</h1>" + strings.Repeat("<p>caption</p>", 20) + "</body></html>"

func TestJinaAdapter_Name(t *testing.T) {
	t.Parallel()
	adapter := NewJinaAdapter(jinamocks.NewMockClient(t))
	assert.Equal(t, "jina", adapter.Name())
	assert.True(t, adapter.Supports("https://example.com"))
}

func TestJinaAdapter_Scrape_Success(t *testing.T) {
	t.Parallel()
	client := jinamocks.NewMockClient(t)
	adapter := NewJinaAdapter(client)

	client.On("Read", mock.Anything, "https://example.com/photo").Return(&jina.ReadResponse{
		Code: 200,
		Data: jina.ReadData{URL: "https://example.com/photo", HTML: readerHTML},
	}, nil)

	page, err := adapter.Scrape(context.Background(), "https://example.com/photo")
	require.NoError(t, err)
	assert.Equal(t, "jina", page.Source)
	assert.Equal(t, readerHTML, page.HTML)
}

func TestJinaAdapter_Scrape_EmptyBody(t *testing.T) {
	t.Parallel()
	client := jinamocks.NewMockClient(t)
	adapter := NewJinaAdapter(client)

	client.On("Read", mock.Anything, "https://example.com/photo").Return(&jina.ReadResponse{Code: 200}, nil)

	_, err := adapter.Scrape(context.Background(), "https://example.com/photo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestJinaAdapter_CircuitOpensAfterFailures(t *testing.T) {
	t.Parallel()
	client := jinamocks.NewMockClient(t)
	adapter := NewJinaAdapter(client)

	client.On("Read", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused")).Times(3)

	for range 3 {
		_, err := adapter.Scrape(context.Background(), "https://example.com/photo")
		require.Error(t, err)
	}
	assert.False(t, adapter.Supports("https://example.com/photo"))

	_, err := adapter.Scrape(context.Background(), "https://example.com/photo")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}
