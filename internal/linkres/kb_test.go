package linkres

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/lepinkainen/catalink/internal/kb"
	"github.com/lepinkainen/catalink/internal/ratelimit"
)

func kbResolver(t *testing.T, links ...string) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body := make([]map[string]string, len(links))
		for i, l := range links {
			body[i] = map[string]string{"url": l}
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func kbConfig(endpoint string, timeout time.Duration) Config {
	cfg := testConfig()
	cfg.Builder.Endpoint = endpoint
	cfg.Timeout = timeout
	return cfg
}

func TestFullPageKeepsPerRecordTimeoutBehindLimiter(t *testing.T) {
	srv, calls := kbResolver(t, "https://publisher.example/full-text")

	// A 100-record page drains a 50-token bucket twice over; each call still
	// gets its whole 200ms once its turn comes.
	r := New(kbConfig(srv.URL, 200*time.Millisecond),
		kb.NewClient(kb.WithCache(false)),
		WithLimiter(ratelimit.New("kb", 50)),
	)

	const page = 100
	links := make([]Link, page)
	var wg sync.WaitGroup
	for i := range page {
		wg.Add(1)
		go func() {
			defer wg.Done()
			links[i] = r.Resolve(context.Background(), article(fmt.Sprint(i)))
		}()
	}
	wg.Wait()

	fallbacks := 0
	for _, l := range links {
		if l.Tier == TierCatalogFallback {
			fallbacks++
		}
	}
	assert.Equal(t, 0, fallbacks)
	assert.Equal(t, int32(page), calls.Load())
}

func TestLimiterWaitFailureFallsBackToCatalog(t *testing.T) {
	srv, calls := kbResolver(t, "https://publisher.example/full-text")
	r := New(kbConfig(srv.URL, time.Second), kb.NewClient(kb.WithCache(false)),
		WithLimiter(ratelimit.New("kb", 1)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	link := r.Resolve(ctx, article("7"))
	assert.Equal(t, Link{URL: catalogBase + "7", Tier: TierCatalogFallback}, link)
	assert.Equal(t, int32(0), calls.Load())
}

func TestDuplicateLinksFromKBCountAsOneCandidate(t *testing.T) {
	srv, _ := kbResolver(t, "https://publisher.example/a", " https://publisher.example/a ")
	r := New(kbConfig(srv.URL, time.Second), kb.NewClient(kb.WithCache(false)))

	link := r.Resolve(context.Background(), article("9"))
	assert.Equal(t, Link{URL: "https://publisher.example/a", Tier: TierProtocolSingle}, link)
}

func TestDistinctLinksFromKBGoToCitationFinder(t *testing.T) {
	srv, _ := kbResolver(t, "https://publisher.example/a", "https://publisher.example/b")
	r := New(kbConfig(srv.URL, time.Second), kb.NewClient(kb.WithCache(false)))

	link := r.Resolve(context.Background(), article("9"))
	assert.Equal(t, TierCitationFinder, link.Tier)
}
