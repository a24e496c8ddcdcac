package reference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchReferenceImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "48.858370,2.294481", r.URL.Query().Get("location"))
		assert.Equal(t, "640x640", r.URL.Query().Get("size"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Write([]byte("image-bytes"))
	}))
	defer server.Close()

	acquirer := NewStreetViewAcquirer(server.URL, "test-key", "640x640", 5*time.Second)

	data, err := acquirer.FetchReferenceImage(context.Background(), 48.85837, 2.294481)
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), data)
}

func TestFetchReferenceImageNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no imagery", http.StatusNotFound)
	}))
	defer server.Close()

	acquirer := NewStreetViewAcquirer(server.URL, "", "640x640", 5*time.Second)

	_, err := acquirer.FetchReferenceImage(context.Background(), 1, 2)
	require.Error(t, err)

	var acqErr *AcquisitionError
	require.True(t, errors.As(err, &acqErr))
	assert.Contains(t, acqErr.Error(), "404")
}

func TestFetchReferenceImageEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	acquirer := NewStreetViewAcquirer(server.URL, "", "640x640", 5*time.Second)

	_, err := acquirer.FetchReferenceImage(context.Background(), 1, 2)

	var acqErr *AcquisitionError
	require.True(t, errors.As(err, &acqErr))
}

func TestFetchReferenceImageUnreachable(t *testing.T) {
	// Closed server: the transport error must surface as an AcquisitionError
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	acquirer := NewStreetViewAcquirer(server.URL, "", "640x640", time.Second)

	_, err := acquirer.FetchReferenceImage(context.Background(), 1, 2)

	var acqErr *AcquisitionError
	require.True(t, errors.As(err, &acqErr))
}

type memoryCache struct {
	entries  map[string][]byte
	getErr   error
	putCalls int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) key(lat, lng float64) string {
	return fmt.Sprintf("%.6f/%.6f", lat, lng)
}

func (c *memoryCache) Get(lat, lng float64) ([]byte, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	data, ok := c.entries[c.key(lat, lng)]
	return data, ok, nil
}

func (c *memoryCache) Put(lat, lng float64, image []byte) error {
	c.putCalls++
	c.entries[c.key(lat, lng)] = image
	return nil
}

type countingAcquirer struct {
	data  []byte
	calls int
}

func (a *countingAcquirer) FetchReferenceImage(ctx context.Context, lat, lng float64) ([]byte, error) {
	a.calls++
	return a.data, nil
}

func TestCachingAcquirerReadThrough(t *testing.T) {
	source := &countingAcquirer{data: []byte("reference")}
	cache := newMemoryCache()
	acquirer := &CachingAcquirer{Source: source, Cache: cache}

	first, err := acquirer.FetchReferenceImage(context.Background(), 10, 20)
	require.NoError(t, err)
	assert.Equal(t, []byte("reference"), first)

	second, err := acquirer.FetchReferenceImage(context.Background(), 10, 20)
	require.NoError(t, err)
	assert.Equal(t, []byte("reference"), second)

	// The second fetch is served from the cache
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, 1, cache.putCalls)
}

func TestCachingAcquirerDegradesOnCacheError(t *testing.T) {
	source := &countingAcquirer{data: []byte("reference")}
	cache := newMemoryCache()
	cache.getErr = errors.New("disk trouble")
	acquirer := &CachingAcquirer{Source: source, Cache: cache}

	data, err := acquirer.FetchReferenceImage(context.Background(), 10, 20)
	require.NoError(t, err)
	assert.Equal(t, []byte("reference"), data)
	assert.Equal(t, 1, source.calls)
}
