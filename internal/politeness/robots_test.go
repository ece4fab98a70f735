package politeness

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/k8crawler/internal/log"
)

func TestRobots_Allowed(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\nCrawl-delay: 3\n"))
	}))
	defer server.Close()

	clock := newFakeClock()
	robots := NewRobots(server.Client(), "k8crawler", WithRobotsClock(clock.Now), WithRobotsTTL(time.Minute),
		WithRobotsLogger(log.Discard()))

	ok, delay := robots.Allowed(t.Context(), server.URL+"/kids")
	if !ok {
		t.Error("/kids should be allowed")
	}
	if delay != 3*time.Second {
		t.Errorf("crawl delay = %v, want 3s", delay)
	}
	if ok, _ := robots.Allowed(t.Context(), server.URL+"/private/page"); ok {
		t.Error("/private should be disallowed")
	}
	if hits.Load() != 1 {
		t.Errorf("robots.txt fetched %d times, want 1", hits.Load())
	}

	clock.Advance(2 * time.Minute)
	robots.Allowed(t.Context(), server.URL+"/kids")
	if hits.Load() != 2 {
		t.Errorf("robots.txt fetched %d times after TTL, want 2", hits.Load())
	}
}

func TestRobots_FailOpen(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	robots := NewRobots(server.Client(), "k8crawler", WithRobotsLogger(log.Discard()))
	if ok, _ := robots.Allowed(t.Context(), server.URL+"/anything"); !ok {
		t.Error("server error on robots.txt should allow the fetch")
	}
}

func TestRobots_RelativeURL(t *testing.T) {
	t.Parallel()

	robots := NewRobots(nil, "k8crawler", WithRobotsLogger(log.Discard()))
	if ok, _ := robots.Allowed(t.Context(), "/relative"); ok {
		t.Error("relative URL should not be allowed")
	}
}

func TestRobots_HangingServerFailsOpen(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	robots := NewRobots(server.Client(), "k8crawler",
		WithRobotsTimeout(100*time.Millisecond),
		WithRobotsLogger(log.Discard()),
	)

	start := time.Now()
	ok, delay := robots.Allowed(t.Context(), server.URL+"/kids")
	elapsed := time.Since(start)
	if !ok || delay != 0 {
		t.Errorf("Allowed() = %v, %v; want true, 0 when robots.txt never answers", ok, delay)
	}
	if elapsed > 2*time.Second {
		t.Errorf("Allowed() took %v, want it bounded by the robots timeout", elapsed)
	}

	start = time.Now()
	if ok, _ := robots.Allowed(t.Context(), server.URL+"/other"); !ok {
		t.Error("timed out host should stay allowed")
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("second lookup took %v, want the cached allow-all entry", elapsed)
	}
}
