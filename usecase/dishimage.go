package usecase

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domainDish "github.com/snapfood/snapfood-engine/domains/dish"
	"github.com/snapfood/snapfood-engine/infrastructure/imagecache"
	pkgError "github.com/snapfood/snapfood-engine/pkg/error"
	"github.com/snapfood/snapfood-engine/pkg/retrier"
	"github.com/snapfood/snapfood-engine/validations"
)

// defaultGalleryCount is requested when a gallery query carries no count.
const defaultGalleryCount = 6

type serviceDishImage struct {
	matcher domainDish.ImageMatcher
	cache   *imagecache.TieredCache
	policy  retrier.Policy
}

func NewDishImageService(matcher domainDish.ImageMatcher, cache *imagecache.TieredCache, policy retrier.Policy) domainDish.IDishImageUsecase {
	return &serviceDishImage{
		matcher: matcher,
		cache:   cache,
		policy:  policy,
	}
}

// ResolveGallery runs the full pipeline for a gallery request:
// validate -> cache lookup -> fetch with retry -> write-through -> return.
// A failure never touches existing cache entries.
func (service *serviceDishImage) ResolveGallery(ctx context.Context, query domainDish.Query) (domainDish.Gallery, error) {
	if err := validations.ValidateDishQuery(ctx, query); err != nil {
		return domainDish.Gallery{}, err
	}

	query.PlaceID = domainDish.NormalizePlaceID(query.PlaceID)
	if query.Count == nil {
		count := defaultGalleryCount
		query.Count = &count
	}

	key := imagecache.GalleryKey(query)
	if urls, ok := service.cache.GetURLs(ctx, key); ok {
		return domainDish.Gallery{ImageURLs: urls, FromCache: true}, nil
	}

	urls, err := service.fetch(ctx, query)
	if err != nil {
		return domainDish.Gallery{}, err
	}

	service.cache.SetURLs(ctx, key, urls)
	return domainDish.Gallery{ImageURLs: urls}, nil
}

// ResolveThumbnail resolves a single representative image keyed by name and
// category only; other dish fields never influence the result.
func (service *serviceDishImage) ResolveThumbnail(ctx context.Context, name, category string) (domainDish.Thumbnail, error) {
	name = strings.TrimSpace(name)
	count := 1
	query := domainDish.Query{
		Name:     name,
		Category: category,
		Count:    &count,
	}
	if err := validations.ValidateDishQuery(ctx, query); err != nil {
		return domainDish.Thumbnail{}, err
	}

	key := imagecache.ThumbnailKey(name, category)
	if url, ok := service.cache.GetURL(ctx, key); ok {
		return domainDish.Thumbnail{URL: url, FromCache: true}, nil
	}

	urls, err := service.fetch(ctx, query)
	if err != nil {
		return domainDish.Thumbnail{}, err
	}

	service.cache.SetURL(ctx, key, urls[0])
	return domainDish.Thumbnail{URL: urls[0]}, nil
}

// fetch calls the upstream matcher through the retry controller. Only
// rate-limit and network failures are re-attempted.
func (service *serviceDishImage) fetch(ctx context.Context, query domainDish.Query) ([]string, error) {
	resolutionID := uuid.NewString()
	logrus.Debugf("[DISH_IMAGE] Resolution %s: cache miss for %q, querying image matcher", resolutionID, query.Name)

	var urls []string
	err := retrier.Do(ctx, service.policy, pkgError.IsRetryable, func(ctx context.Context) error {
		fetched, fetchErr := service.matcher.MatchImages(ctx, query)
		if fetchErr != nil {
			return fetchErr
		}
		urls = fetched
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled resolutions are discarded, not surfaced as failures.
			return nil, ctx.Err()
		}
		logrus.WithError(err).Debugf("[DISH_IMAGE] Resolution %s failed for %q", resolutionID, query.Name)
		return nil, err
	}
	return urls, nil
}
