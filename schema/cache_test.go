package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCachePutGetRoundTrip(t *testing.T) {
	c, err := OpenCache(t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	fields := []SearchField{
		{Name: "description", Type: TypeStr, Stored: true, Tokenizer: TokenizerConfig{Name: "en"}},
		{Name: "rating", Type: TypeI64, IsFast: true, IsSortableRaw: true},
	}
	require.NoError(t, c.Put(7, fields))

	h, err := c.Get(7)
	require.NoError(t, err)
	f, ok := h.Field("rating")
	require.True(t, ok)
	require.True(t, f.IsFast)
	require.Equal(t, "en", func() string {
		d, _ := h.Field("description")
		return d.Tokenizer.Name
	}())
}

func TestCacheGetMissingReturnsUnavailable(t *testing.T) {
	c, err := OpenCache(t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Get(99)
	require.ErrorIs(t, err, ErrSchemaUnavailable)
}

func TestCacheInvalidate(t *testing.T) {
	c, err := OpenCache(t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Put(1, []SearchField{{Name: "x", Type: TypeStr}}))
	require.NoError(t, c.Invalidate(1))

	_, err = c.Get(1)
	require.ErrorIs(t, err, ErrSchemaUnavailable)
}
