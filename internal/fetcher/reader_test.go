package fetcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rulebook-cli/pkg/jina"
)

type mockReader struct{ mock.Mock }

func (m *mockReader) Read(ctx context.Context, targetURL, format string) (*jina.ReadResponse, error) {
	args := m.Called(ctx, targetURL, format)
	res, _ := args.Get(0).(*jina.ReadResponse)
	return res, args.Error(1)
}

func TestReaderGetter(t *testing.T) {
	r := &mockReader{}
	r.On("Read", mock.Anything, "https://www.chess.com/a", "html").Return(&jina.ReadResponse{
		Data: jina.ReadData{URL: "https://www.chess.com/a?ref=1", HTML: "<p>hi</p>"},
	}, nil)
	r.On("Read", mock.Anything, "https://www.chess.com/b", "html").Return(&jina.ReadResponse{
		Data: jina.ReadData{Content: "<p>plain</p>"},
	}, nil)
	r.On("Read", mock.Anything, "https://www.chess.com/c", "html").Return(nil, errors.New("reader down"))
	g := NewReaderGetter(r)

	resp, err := g.Get(context.Background(), "https://www.chess.com/a")
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, "https://www.chess.com/a?ref=1", resp.URL)
	assert.Equal(t, "text/html", resp.ContentType)
	assert.Equal(t, "<p>hi</p>", string(resp.Body))

	resp, err = g.Get(context.Background(), "https://www.chess.com/b")
	require.NoError(t, err)
	assert.Equal(t, "https://www.chess.com/b", resp.URL)
	assert.Equal(t, "<p>plain</p>", string(resp.Body))

	_, err = g.Get(context.Background(), "https://www.chess.com/c")
	assert.ErrorContains(t, err, "reader down")
}
