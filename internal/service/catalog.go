package service

import (
	"context"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/reinvoice/reinvoice/internal/cache"
	"github.com/reinvoice/reinvoice/internal/domain/catalog"
	ierr "github.com/reinvoice/reinvoice/internal/errors"
)

// CatalogService resolves catalog versions from the external catalog plugin.
// Results are cached under the plugin's version marker so a marker change
// invalidates every derived entry at once.
type CatalogService interface {
	// Versions returns all published catalog versions, ordered by effective date
	Versions(ctx context.Context) ([]*catalog.CatalogVersion, error)

	// GetVersion returns the version with the given id
	GetVersion(ctx context.Context, id string) (*catalog.CatalogVersion, error)

	// ResolveVersion returns the version governing a charge at asOf for a
	// subscription created at subscriptionStart. A version may carry a later
	// applicability date for subscriptions that predate it.
	ResolveVersion(ctx context.Context, asOf, subscriptionStart time.Time) (*catalog.CatalogVersion, error)
}

type catalogService struct {
	ServiceParams
}

func NewCatalogService(params ServiceParams) CatalogService {
	return &catalogService{ServiceParams: params}
}

func (s *catalogService) Versions(ctx context.Context) ([]*catalog.CatalogVersion, error) {
	marker, err := callPlugin(s, ctx, "marker", func() (string, error) {
		return s.CatalogPlugin.GetLatestVersionMarker(ctx)
	})
	if err != nil {
		return nil, err
	}

	cacheKey := cache.Key("catalog", "versions", marker)
	if cached, found := s.Cache.Get(ctx, cacheKey); found {
		if versions, ok := cached.([]*catalog.CatalogVersion); ok {
			return versions, nil
		}
	}

	versions, err := callPlugin(s, ctx, "versions", func() ([]*catalog.CatalogVersion, error) {
		return s.CatalogPlugin.GetVersionedCatalog(ctx)
	})
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, ierr.NewError("catalog has no versions").
			WithHint("the catalog plugin returned an empty version set").
			Mark(ierr.ErrSystem)
	}

	sorted := make([]*catalog.CatalogVersion, len(versions))
	copy(sorted, versions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectiveDate.Before(sorted[j].EffectiveDate)
	})

	s.Cache.Set(ctx, cacheKey, sorted, s.Config.Catalog.CacheTTL)
	return sorted, nil
}

func (s *catalogService) GetVersion(ctx context.Context, id string) (*catalog.CatalogVersion, error) {
	versions, err := s.Versions(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range versions {
		if v.ID == id {
			return v, nil
		}
	}
	return nil, ierr.NewError("catalog version not found").
		WithHintf("no catalog version with id %s", id).
		Mark(ierr.ErrNotFound)
}

func (s *catalogService) ResolveVersion(ctx context.Context, asOf, subscriptionStart time.Time) (*catalog.CatalogVersion, error) {
	versions, err := s.Versions(ctx)
	if err != nil {
		return nil, err
	}

	var resolved *catalog.CatalogVersion
	for _, v := range versions {
		existing := subscriptionStart.Before(v.EffectiveDate)
		if !v.ApplicableDate(existing).After(asOf) {
			resolved = v
		}
	}
	if resolved == nil {
		return nil, ierr.NewError("no applicable catalog version").
			WithHintf("no catalog version is effective at %s", asOf.Format(time.RFC3339)).
			Mark(ierr.ErrNotFound)
	}
	return resolved, nil
}

// callPlugin invokes a plugin operation with bounded immediate retries for
// generic transient failures. A plugin-provided retry policy is never consumed
// here: it is propagated unchanged so the trigger scheduler can reschedule the
// whole pass on the plugin's own terms.
func callPlugin[T any](s *catalogService, ctx context.Context, op string, fn func() (T, error)) (T, error) {
	var result T

	operation := func() error {
		var err error
		result, err = fn()
		if err == nil {
			return nil
		}
		if _, ok := catalog.AsRetryable(err); ok {
			return backoff.Permanent(err)
		}
		s.Logger.Debugw("transient catalog plugin failure, retrying",
			"operation", op, "error", err)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(s.Config.Catalog.TransientRetryInterval),
			s.Config.Catalog.MaxTransientRetries,
		), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		if re, ok := catalog.AsRetryable(err); ok {
			return result, re
		}
		return result, ierr.WithError(err).
			WithHintf("catalog plugin %s failed after retries", op).
			Mark(ierr.ErrSystem)
	}
	return result, nil
}
