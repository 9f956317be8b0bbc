package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	domainDish "github.com/snapfood/snapfood-engine/domains/dish"
	pkgError "github.com/snapfood/snapfood-engine/pkg/error"
)

// stubImageService scripts gallery resolutions per dish name. A name with a
// gate channel blocks until the gate is released, ignoring cancellation, so
// tests can force a stale completion to arrive after a newer one.
type stubImageService struct {
	mu      sync.Mutex
	calls   int
	gates   map[string]chan struct{}
	results map[string][]string
	err     error
}

func newStubImageService() *stubImageService {
	return &stubImageService{
		gates:   make(map[string]chan struct{}),
		results: make(map[string][]string),
	}
}

func (s *stubImageService) ResolveGallery(ctx context.Context, query domainDish.Query) (domainDish.Gallery, error) {
	s.mu.Lock()
	s.calls++
	gate := s.gates[query.Name]
	urls := s.results[query.Name]
	err := s.err
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return domainDish.Gallery{}, err
	}
	return domainDish.Gallery{ImageURLs: urls}, nil
}

func (s *stubImageService) ResolveThumbnail(ctx context.Context, name, category string) (domainDish.Thumbnail, error) {
	s.mu.Lock()
	s.calls++
	gate := s.gates[name]
	urls := s.results[name]
	err := s.err
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return domainDish.Thumbnail{}, err
	}
	if len(urls) == 0 {
		return domainDish.Thumbnail{}, pkgError.EmptyResultError("no matching images for dish")
	}
	return domainDish.Thumbnail{URL: urls[0]}, nil
}

func (s *stubImageService) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// stateRecorder funnels onChange notifications into a channel tests can wait
// on without polling.
type stateRecorder struct {
	mu     sync.Mutex
	states []GalleryState
	signal chan struct{}
}

func newStateRecorder() *stateRecorder {
	return &stateRecorder{signal: make(chan struct{}, 32)}
}

func (r *stateRecorder) record(state GalleryState) {
	r.mu.Lock()
	r.states = append(r.states, state)
	r.mu.Unlock()
	r.signal <- struct{}{}
}

func (r *stateRecorder) waitForChange(t *testing.T) {
	t.Helper()
	select {
	case <-r.signal:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a state change")
	}
}

func TestGalleryResolver_ResolvesAndNotifies(t *testing.T) {
	service := newStubImageService()
	service.results["ramen"] = []string{"https://img/1.jpg"}

	recorder := newStateRecorder()
	resolver := NewGalleryResolver(service, recorder.record)
	defer resolver.Close()

	resolver.Update(domainDish.Query{Name: "ramen"}, false)

	recorder.waitForChange(t) // loading
	recorder.waitForChange(t) // result

	state := resolver.State()
	if state.IsLoading {
		t.Fatalf("still loading after completion")
	}
	if len(state.ImageURLs) != 1 || state.ImageURLs[0] != "https://img/1.jpg" {
		t.Fatalf("state = %+v", state)
	}
	if state.Error != "" {
		t.Fatalf("unexpected error %q", state.Error)
	}
}

func TestGalleryResolver_StaleCompletionDiscarded(t *testing.T) {
	service := newStubImageService()
	gateA := make(chan struct{})
	service.gates["dish-a"] = gateA
	service.results["dish-a"] = []string{"https://img/a.jpg"}
	service.results["dish-b"] = []string{"https://img/b.jpg"}

	recorder := newStateRecorder()
	resolver := NewGalleryResolver(service, recorder.record)
	defer resolver.Close()

	resolver.Update(domainDish.Query{Name: "dish-a"}, false)
	recorder.waitForChange(t) // loading for A

	resolver.Update(domainDish.Query{Name: "dish-b"}, false)
	recorder.waitForChange(t) // loading for B
	recorder.waitForChange(t) // result for B

	state := resolver.State()
	if len(state.ImageURLs) != 1 || state.ImageURLs[0] != "https://img/b.jpg" {
		t.Fatalf("state before stale completion = %+v", state)
	}

	// Release the superseded resolution; its result must be dropped.
	close(gateA)
	time.Sleep(50 * time.Millisecond)

	state = resolver.State()
	if state.ImageURLs[0] != "https://img/b.jpg" {
		t.Fatalf("stale completion overwrote newer result: %+v", state)
	}
}

func TestGalleryResolver_SkipClearsState(t *testing.T) {
	service := newStubImageService()
	service.results["ramen"] = []string{"https://img/1.jpg"}

	recorder := newStateRecorder()
	resolver := NewGalleryResolver(service, recorder.record)
	defer resolver.Close()

	resolver.Update(domainDish.Query{Name: "ramen"}, false)
	recorder.waitForChange(t)
	recorder.waitForChange(t)

	resolver.Update(domainDish.Query{Name: "ramen"}, true)
	recorder.waitForChange(t)

	state := resolver.State()
	if len(state.ImageURLs) != 0 || state.Error != "" || state.IsLoading {
		t.Fatalf("skip did not clear state: %+v", state)
	}
}

func TestGalleryResolver_ShortNameDoesNotAutoFetch(t *testing.T) {
	service := newStubImageService()
	resolver := NewGalleryResolver(service, nil)
	defer resolver.Close()

	resolver.Update(domainDish.Query{Name: "a"}, false)
	time.Sleep(20 * time.Millisecond)

	if service.callCount() != 0 {
		t.Fatalf("short name triggered an automatic fetch")
	}
}

func TestGalleryResolver_SupersedingShortNameClearsLoading(t *testing.T) {
	service := newStubImageService()
	gate := make(chan struct{})
	service.gates["slow-dish"] = gate
	service.results["slow-dish"] = []string{"https://img/slow.jpg"}

	recorder := newStateRecorder()
	resolver := NewGalleryResolver(service, recorder.record)
	defer resolver.Close()

	resolver.Update(domainDish.Query{Name: "slow-dish"}, false)
	recorder.waitForChange(t) // loading

	// The new name is too short to fetch, but it still supersedes the
	// in-flight resolution, whose loading flag must not linger.
	resolver.Update(domainDish.Query{Name: "a"}, false)
	recorder.waitForChange(t)

	if state := resolver.State(); state.IsLoading {
		t.Fatalf("still loading after superseding update with short name: %+v", state)
	}

	// The superseded completion stays discarded.
	close(gate)
	time.Sleep(50 * time.Millisecond)
	state := resolver.State()
	if state.IsLoading || len(state.ImageURLs) != 0 {
		t.Fatalf("superseded completion surfaced: %+v", state)
	}
}

func TestThumbnailResolver_HiddenUpdateClearsLoading(t *testing.T) {
	service := newStubImageService()
	gate := make(chan struct{})
	defer close(gate)
	service.gates["slow-dish"] = gate
	service.results["slow-dish"] = []string{"https://img/slow.jpg"}

	var mu sync.Mutex
	var last ThumbnailState
	signal := make(chan struct{}, 8)
	resolver := NewThumbnailResolver(service, func(state ThumbnailState) {
		mu.Lock()
		last = state
		mu.Unlock()
		signal <- struct{}{}
	})
	defer resolver.Close()

	resolver.Update("slow-dish", "", true)
	<-signal // loading

	// Scrolled out of view while the fetch is still in flight.
	resolver.Update("slow-dish", "", false)
	select {
	case <-signal:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for loading to clear")
	}

	mu.Lock()
	defer mu.Unlock()
	if last.IsLoading {
		t.Fatalf("still loading after the thumbnail went hidden: %+v", last)
	}
}

func TestGalleryResolver_RefetchSurfacesValidationError(t *testing.T) {
	service := newStubImageService()
	service.err = pkgError.ValidationError("name: dish name requires at least 2 characters")

	recorder := newStateRecorder()
	resolver := NewGalleryResolver(service, recorder.record)
	defer resolver.Close()

	resolver.Update(domainDish.Query{Name: "a"}, false)
	resolver.Refetch()

	recorder.waitForChange(t) // loading
	recorder.waitForChange(t) // error

	state := resolver.State()
	if state.Error == "" {
		t.Fatalf("refetch of an invalid query produced no error")
	}
	if service.callCount() != 1 {
		t.Fatalf("Refetch calls = %d, want 1", service.callCount())
	}
}

func TestGalleryResolver_ErrorsBecomeUserMessages(t *testing.T) {
	service := newStubImageService()
	service.err = pkgError.RateLimitedError("image matcher rate limit exceeded")

	recorder := newStateRecorder()
	resolver := NewGalleryResolver(service, recorder.record)
	defer resolver.Close()

	resolver.Update(domainDish.Query{Name: "ramen"}, false)
	recorder.waitForChange(t)
	recorder.waitForChange(t)

	state := resolver.State()
	if state.Error != domainDish.UserMessage(service.err) {
		t.Fatalf("Error = %q, want user-facing message", state.Error)
	}
}

func TestThumbnailResolver_FetchOnlyWhenVisible(t *testing.T) {
	service := newStubImageService()
	service.results["gyoza"] = []string{"https://img/thumb.jpg"}

	var mu sync.Mutex
	var last ThumbnailState
	signal := make(chan struct{}, 8)
	resolver := NewThumbnailResolver(service, func(state ThumbnailState) {
		mu.Lock()
		last = state
		mu.Unlock()
		signal <- struct{}{}
	})
	defer resolver.Close()

	// Not visible yet: no fetch.
	resolver.Update("gyoza", "", false)
	time.Sleep(20 * time.Millisecond)
	if service.callCount() != 0 {
		t.Fatalf("hidden thumbnail was fetched")
	}

	// Scrolled into view.
	resolver.Update("gyoza", "", true)
	<-signal // loading
	select {
	case <-signal:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for thumbnail result")
	}

	mu.Lock()
	defer mu.Unlock()
	if last.URL != "https://img/thumb.jpg" {
		t.Fatalf("state = %+v", last)
	}
}
