package testutil

import (
	"context"
	"sync"

	"github.com/reinvoice/reinvoice/internal/domain/catalog"
)

// FakeCatalogPlugin implements catalog.Plugin with programmable versions and
// failure sequences. Each queued error is returned once, in order, before the
// call starts succeeding again.
type FakeCatalogPlugin struct {
	mu       sync.Mutex
	marker   string
	versions []*catalog.CatalogVersion

	markerErrs  []error
	catalogErrs []error

	MarkerCalls  int
	CatalogCalls int
}

func NewFakeCatalogPlugin() *FakeCatalogPlugin {
	return &FakeCatalogPlugin{marker: "v1"}
}

// SetVersions replaces the published catalog and bumps the marker
func (p *FakeCatalogPlugin) SetVersions(marker string, versions ...*catalog.CatalogVersion) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.marker = marker
	p.versions = versions
}

// FailMarkerWith queues errors for successive GetLatestVersionMarker calls
func (p *FakeCatalogPlugin) FailMarkerWith(errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.markerErrs = append(p.markerErrs, errs...)
}

// FailCatalogWith queues errors for successive GetVersionedCatalog calls
func (p *FakeCatalogPlugin) FailCatalogWith(errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.catalogErrs = append(p.catalogErrs, errs...)
}

func (p *FakeCatalogPlugin) GetLatestVersionMarker(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.MarkerCalls++
	if len(p.markerErrs) > 0 {
		err := p.markerErrs[0]
		p.markerErrs = p.markerErrs[1:]
		return "", err
	}
	return p.marker, nil
}

func (p *FakeCatalogPlugin) GetVersionedCatalog(_ context.Context) ([]*catalog.CatalogVersion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CatalogCalls++
	if len(p.catalogErrs) > 0 {
		err := p.catalogErrs[0]
		p.catalogErrs = p.catalogErrs[1:]
		return nil, err
	}
	return p.versions, nil
}

func (p *FakeCatalogPlugin) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.marker = "v1"
	p.versions = nil
	p.markerErrs = nil
	p.catalogErrs = nil
	p.MarkerCalls = 0
	p.CatalogCalls = 0
}
