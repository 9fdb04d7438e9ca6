package tools

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/primal-archive/server/internal/core/error"
	"github.com/primal-archive/server/internal/search"
)

type stubSearcher struct {
	chunks []search.Chunk
	err    error

	calls     int
	lastQuery string
	lastTopK  int
}

func (s *stubSearcher) Search(_ context.Context, query string, topK int) ([]search.Chunk, error) {
	s.calls++
	s.lastQuery = query
	s.lastTopK = topK
	return s.chunks, s.err
}

func TestSearchArchiveToolInfo(t *testing.T) {
	tool := NewSearchArchiveTool(&stubSearcher{}, 4)

	info, err := tool.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ToolSearchArchive, info.Name)
	assert.NotEmpty(t, info.Desc)
}

func TestSearchArchiveToolReturnsTextBlock(t *testing.T) {
	searcher := &stubSearcher{chunks: []search.Chunk{
		{Content: "raw dairy heals the gut"},
		{Content: "honey stabilizes blood sugar"},
	}}
	tool := NewSearchArchiveTool(searcher, 4)

	out, err := tool.InvokableRun(context.Background(), `{"query": "raw dairy"}`)
	require.NoError(t, err)
	assert.Equal(t, "raw dairy heals the gut\n\nhoney stabilizes blood sugar", out)
	assert.Equal(t, 1, searcher.calls)
	assert.Equal(t, "raw dairy", searcher.lastQuery)
	assert.Equal(t, 4, searcher.lastTopK)
}

func TestSearchArchiveToolEmptyResultsYieldEmptyBlock(t *testing.T) {
	tool := NewSearchArchiveTool(&stubSearcher{}, 4)

	out, err := tool.InvokableRun(context.Background(), `{"query": "nothing here"}`)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSearchArchiveToolRejectsBadArguments(t *testing.T) {
	tool := NewSearchArchiveTool(&stubSearcher{}, 4)

	_, err := tool.InvokableRun(context.Background(), `not json`)
	assert.Error(t, err)

	_, err = tool.InvokableRun(context.Background(), `{"query": "   "}`)
	assert.Error(t, err)
}

func TestSearchArchiveToolWrapsSearcherFailure(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("connection refused")}
	tool := NewSearchArchiveTool(searcher, 4)

	_, err := tool.InvokableRun(context.Background(), `{"query": "raw dairy"}`)
	require.Error(t, err)

	var appErr *errx.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
}

func TestSearchArchiveToolDefaultsTopK(t *testing.T) {
	searcher := &stubSearcher{}
	tool := NewSearchArchiveTool(searcher, 0)

	_, err := tool.InvokableRun(context.Background(), `{"query": "q"}`)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, searcher.lastTopK)
}

func TestFormatChunksSkipsEmptyContent(t *testing.T) {
	out := FormatChunks([]search.Chunk{
		{Content: "first"},
		{Content: ""},
		{Content: "second"},
	})
	assert.Equal(t, "first\n\nsecond", out)
}
