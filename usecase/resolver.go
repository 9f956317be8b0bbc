package usecase

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	domainDish "github.com/snapfood/snapfood-engine/domains/dish"
)

// GalleryState is what a consuming view renders for a gallery resolution.
type GalleryState struct {
	ImageURLs []string `json:"image_urls"`
	IsLoading bool     `json:"is_loading"`
	Error     string   `json:"error,omitempty"`
}

// ThumbnailState is the single-image counterpart.
type ThumbnailState struct {
	URL       string `json:"url"`
	IsLoading bool   `json:"is_loading"`
	Error     string `json:"error,omitempty"`
}

// GalleryResolver drives gallery resolutions for one call-site. Each Update
// cancels the previous in-flight resolution; completions of superseded
// resolutions are discarded so a stale response can never overwrite a newer
// one. Errors arrive as user-facing messages, never as raised errors.
type GalleryResolver struct {
	service  domainDish.IDishImageUsecase
	onChange func(GalleryState)

	mu        sync.Mutex
	cancel    context.CancelFunc
	gen       uint64
	state     GalleryState
	lastQuery domainDish.Query
	hasQuery  bool
}

func NewGalleryResolver(service domainDish.IDishImageUsecase, onChange func(GalleryState)) *GalleryResolver {
	return &GalleryResolver{service: service, onChange: onChange}
}

// Update reacts to changed inputs. With skip set, any previous result or
// error is cleared and nothing is fetched. A name shorter than 2 characters
// does not trigger an automatic fetch (Refetch still surfaces the validation
// error for it).
func (r *GalleryResolver) Update(query domainDish.Query, skip bool) {
	r.mu.Lock()
	r.supersedeLocked()

	if skip {
		r.state = GalleryState{}
		r.notifyLocked()
		r.mu.Unlock()
		return
	}

	r.lastQuery = query
	r.hasQuery = true
	if utf8.RuneCountInString(strings.TrimSpace(query.Name)) < 2 {
		// The superseded resolution is discarded on arrival, so the loading
		// flag it set must be cleared here.
		if r.state.IsLoading {
			r.state.IsLoading = false
			r.notifyLocked()
		}
		r.mu.Unlock()
		return
	}
	r.startLocked(query)
	r.mu.Unlock()
}

// Refetch re-runs the last query, bypassing the short-name auto-fetch guard.
func (r *GalleryResolver) Refetch() {
	r.mu.Lock()
	if !r.hasQuery {
		r.mu.Unlock()
		return
	}
	r.supersedeLocked()
	r.startLocked(r.lastQuery)
	r.mu.Unlock()
}

func (r *GalleryResolver) State() GalleryState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Close cancels any in-flight resolution.
func (r *GalleryResolver) Close() {
	r.mu.Lock()
	r.supersedeLocked()
	r.mu.Unlock()
}

// supersedeLocked bumps the generation and cancels the in-flight resolution,
// if any. Completions holding an older generation are dropped on arrival.
func (r *GalleryResolver) supersedeLocked() {
	r.gen++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

func (r *GalleryResolver) startLocked(query domainDish.Query) {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	gen := r.gen

	r.state.IsLoading = true
	r.state.Error = ""
	r.notifyLocked()

	go func() {
		gallery, err := r.service.ResolveGallery(ctx, query)

		r.mu.Lock()
		defer r.mu.Unlock()
		if gen != r.gen {
			return
		}
		r.cancel = nil
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			r.state = GalleryState{Error: domainDish.UserMessage(err)}
		} else {
			r.state = GalleryState{ImageURLs: gallery.ImageURLs}
		}
		r.notifyLocked()
	}()
}

func (r *GalleryResolver) notifyLocked() {
	if r.onChange != nil {
		r.onChange(r.state)
	}
}

// ThumbnailResolver is the visibility-driven counterpart: it fetches only
// when autoFetch is set (the list item scrolled into view) or on an explicit
// Refetch.
type ThumbnailResolver struct {
	service  domainDish.IDishImageUsecase
	onChange func(ThumbnailState)

	mu           sync.Mutex
	cancel       context.CancelFunc
	gen          uint64
	state        ThumbnailState
	lastName     string
	lastCategory string
	hasQuery     bool
}

func NewThumbnailResolver(service domainDish.IDishImageUsecase, onChange func(ThumbnailState)) *ThumbnailResolver {
	return &ThumbnailResolver{service: service, onChange: onChange}
}

func (r *ThumbnailResolver) Update(name, category string, autoFetch bool) {
	r.mu.Lock()
	r.supersedeLocked()
	r.lastName = name
	r.lastCategory = category
	r.hasQuery = true

	if !autoFetch || utf8.RuneCountInString(strings.TrimSpace(name)) < 2 {
		if r.state.IsLoading {
			r.state.IsLoading = false
			r.notifyLocked()
		}
		r.mu.Unlock()
		return
	}
	r.startLocked(name, category)
	r.mu.Unlock()
}

func (r *ThumbnailResolver) Refetch() {
	r.mu.Lock()
	if !r.hasQuery {
		r.mu.Unlock()
		return
	}
	r.supersedeLocked()
	r.startLocked(r.lastName, r.lastCategory)
	r.mu.Unlock()
}

func (r *ThumbnailResolver) State() ThumbnailState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *ThumbnailResolver) Close() {
	r.mu.Lock()
	r.supersedeLocked()
	r.mu.Unlock()
}

func (r *ThumbnailResolver) supersedeLocked() {
	r.gen++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

func (r *ThumbnailResolver) startLocked(name, category string) {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	gen := r.gen

	r.state.IsLoading = true
	r.state.Error = ""
	r.notifyLocked()

	go func() {
		thumbnail, err := r.service.ResolveThumbnail(ctx, name, category)

		r.mu.Lock()
		defer r.mu.Unlock()
		if gen != r.gen {
			return
		}
		r.cancel = nil
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			r.state = ThumbnailState{Error: domainDish.UserMessage(err)}
		} else {
			r.state = ThumbnailState{URL: thumbnail.URL}
		}
		r.notifyLocked()
	}()
}

func (r *ThumbnailResolver) notifyLocked() {
	if r.onChange != nil {
		r.onChange(r.state)
	}
}
