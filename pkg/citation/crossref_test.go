package citation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impactguard/impactguard/pkg/config"
)

func TestIsValidDOIFormat(t *testing.T) {
	valid := []string{
		"10.1000/xyz123",
		"10.48550/arXiv.2303.08774",
		"10.1234/some(thing):else",
	}
	for _, doi := range valid {
		assert.True(t, IsValidDOIFormat(doi), doi)
	}

	invalid := []string{
		"abc/123",
		"10.1/",
		"10.1000/",
		"doi:10.1000/xyz123",
		"",
	}
	for _, doi := range invalid {
		assert.False(t, IsValidDOIFormat(doi), doi)
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.CrossRefBaseURL = baseURL
	cfg.CitationRate = 1000
	c := NewClient(cfg, nil)
	c.backoff = time.Millisecond
	return c
}

func TestSearchDecodesWorksResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/works", r.URL.Path)
		assert.Equal(t, "adversarial robustness", r.URL.Query().Get("query"))
		assert.Equal(t, "10", r.URL.Query().Get("rows"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":{"items":[
			{"title":["Paper One"],"DOI":"10.1000/one","author":[{"family":"Doe","given":"Jane"}],"issued":{"date-parts":[[2022]]}},
			{"title":["Paper Two"],"DOI":"10.1000/two"}
		]}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	articles, err := c.Search(context.Background(), "adversarial robustness")
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "Paper One", articles[0].Title[0])
	assert.Equal(t, 2022, articles[0].Issued.Year())
	assert.Equal(t, "10.1000/two", articles[1].DOI)
}

func TestSearchNonOKStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Search(context.Background(), "anything")
	assert.Error(t, err)
}

func TestValidateDOIRejectsMalformedWithoutNetwork(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:0")
	// Malformed DOIs fail fast; no resolver request is ever made.
	assert.False(t, c.ValidateDOI(context.Background(), "abc/123"))
	assert.False(t, c.ValidateDOI(context.Background(), "10.1/"))
}

func TestValidateDOIResolvesAgainstResolver(t *testing.T) {
	var heads int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&heads, 1)
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, "/10.1000/xyz123", r.URL.Path)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.resolverURL = srv.URL

	assert.True(t, c.ValidateDOI(context.Background(), "10.1000/xyz123"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&heads))
}

func TestValidateURLRetriesThenGivesUp(t *testing.T) {
	var heads int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&heads, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	assert.False(t, c.ValidateURL(context.Background(), srv.URL+"/missing"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&heads))
}

func TestValidateURLRecoversOnRetry(t *testing.T) {
	var heads int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&heads, 1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	assert.True(t, c.ValidateURL(context.Background(), srv.URL))
	assert.Equal(t, int32(2), atomic.LoadInt32(&heads))
}

func TestResolvesHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.backoff = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() { done <- c.ValidateURL(ctx, srv.URL) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("validation did not stop after cancellation")
	}
}
