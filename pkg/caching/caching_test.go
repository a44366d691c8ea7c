package caching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPageCache_RoundTrip(t *testing.T) {
	c, err := NewPageCache(t.TempDir(), time.Hour)
	require.NoError(t, err)

	_, ok := c.Get("http://example/index.php?ano=2020")
	require.False(t, ok)

	require.NoError(t, c.Put("http://example/index.php?ano=2020", []byte("<html></html>")))
	body, ok := c.Get("http://example/index.php?ano=2020")
	require.True(t, ok)
	require.Equal(t, "<html></html>", string(body))

	_, ok = c.Get("http://example/index.php?ano=2021")
	require.False(t, ok)
}

func TestPageCache_Expiry(t *testing.T) {
	c, err := NewPageCache(t.TempDir(), time.Minute)
	require.NoError(t, err)
	require.NoError(t, c.Put("u", []byte("x")))

	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, ok := c.Get("u")
	require.False(t, ok)

	removed, err := c.Prune()
	require.NoError(t, err)
	require.Equal(t, 1, removed)
}

func TestPageCache_NilIsDisabled(t *testing.T) {
	var c *PageCache
	require.NoError(t, c.Put("u", []byte("x")))
	_, ok := c.Get("u")
	require.False(t, ok)
	n, err := c.Prune()
	require.NoError(t, err)
	require.Zero(t, n)
}
