package catalog

import (
	"context"
	"time"
)

// RetryPolicy is an explicit list of delays after which a failed plugin call
// may be retried. It is a plain value carried on the error rather than
// control flow baked into exception semantics: the trigger scheduler owns the
// actual rescheduling.
type RetryPolicy struct {
	Delays []time.Duration `json:"delays"`
}

// Next returns the delay for the given zero-based attempt and whether another
// attempt is allowed.
func (p RetryPolicy) Next(attempt int) (time.Duration, bool) {
	if attempt < 0 || attempt >= len(p.Delays) {
		return 0, false
	}
	return p.Delays[attempt], true
}

// Plugin is the capability exposed by the external catalog source. The marker
// is a cheap cache-invalidation signal: it changes whenever a new version set
// would be returned by GetVersionedCatalog.
type Plugin interface {
	// GetLatestVersionMarker returns an opaque marker identifying the current
	// published catalog state
	GetLatestVersionMarker(ctx context.Context) (string, error)

	// GetVersionedCatalog returns every published catalog version
	GetVersionedCatalog(ctx context.Context) ([]*CatalogVersion, error)
}
