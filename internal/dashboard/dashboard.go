// Package dashboard answers the three screens of the dashboard (overview,
// version timeline, changelog) through the radar cache.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	radar "github.com/krisalay/package-radar"
	"github.com/krisalay/package-radar/fetcherr"
	"github.com/krisalay/package-radar/internal/registry/github"
	"github.com/krisalay/package-radar/internal/registry/npm"
	"github.com/krisalay/package-radar/types"
)

// --- Consumer-side interfaces ---

// PackageSource reads package data from the npm registry.
type PackageSource interface {
	Summary(ctx context.Context, name string) (npm.Summary, error)
	Versions(ctx context.Context, name string) ([]npm.Version, error)
}

// ReleaseSource reads release notes from GitHub.
type ReleaseSource interface {
	Release(ctx context.Context, repo, version string) (github.Release, error)
}

// DefaultConcurrency bounds the registry calls made by one Overview.
const DefaultConcurrency = 4

// Service serves dashboard data through a radar cache.
type Service struct {
	cache       *radar.CacheService
	packages    PackageSource
	releases    ReleaseSource
	concurrency int
}

// NewService wires the cache and the registry clients.
func NewService(cache *radar.CacheService, packages PackageSource, releases ReleaseSource) *Service {
	return &Service{
		cache:       cache,
		packages:    packages,
		releases:    releases,
		concurrency: DefaultConcurrency,
	}
}

// SetConcurrency changes how many summaries Overview fetches at once.
func (s *Service) SetConcurrency(n int) {
	if n > 0 {
		s.concurrency = n
	}
}

// Summary returns the cached (or freshly fetched) summary of name.
func (s *Service) Summary(ctx context.Context, name string, opts ...radar.FetchOption) (npm.Summary, error) {
	return radar.Fetch(ctx, s.cache, types.Dashboard, types.DashboardKey(name),
		func(ctx context.Context) (npm.Summary, error) {
			return s.packages.Summary(ctx, name)
		}, opts...)
}

/*
Overview returns the summaries of names in the order given. Fetches run
concurrently; the first failure cancels the rest and is returned.
Duplicate names are fetched once.
*/
func (s *Service) Overview(ctx context.Context, names []string, opts ...radar.FetchOption) ([]npm.Summary, error) {
	names = dedupe(names)
	out := make([]npm.Summary, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, name := range names {
		g.Go(func() error {
			sum, err := s.Summary(gctx, name, opts...)
			if err != nil {
				return fmt.Errorf("overview %s: %w", name, err)
			}
			out[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Timeline returns the version timeline of name, newest first.
func (s *Service) Timeline(ctx context.Context, name string, opts ...radar.FetchOption) ([]npm.Version, error) {
	return radar.Fetch(ctx, s.cache, types.Timeline, types.TimelineKey(name),
		func(ctx context.Context) ([]npm.Version, error) {
			return s.packages.Versions(ctx, name)
		}, opts...)
}

// ErrNoRepository is returned when a package declares no GitHub repository,
// so there is nowhere to read release notes from.
var ErrNoRepository = errors.New("package has no GitHub repository")

/*
Changelog returns the release notes of version of name. The repository comes
from the package summary, which is resolved (through the cache) before the
changelog fetch so the two retry loops never nest. A package without a GitHub
repository is a fetcherr.NotFound failure.
*/
func (s *Service) Changelog(ctx context.Context, name, version string, opts ...radar.FetchOption) (github.Release, error) {
	sum, err := s.Summary(ctx, name)
	if err != nil {
		return github.Release{}, err
	}
	if sum.Repository == "" {
		return github.Release{}, fetcherr.NotFound("changelog "+name+"@"+version, ErrNoRepository)
	}

	return radar.Fetch(ctx, s.cache, types.Changelog, types.ChangelogKey(name, version),
		func(ctx context.Context) (github.Release, error) {
			return s.releases.Release(ctx, sum.Repository, version)
		}, opts...)
}

// Refresh drops everything cached for name (summary, timeline and every
// changelog) so the next read fetches again.
func (s *Service) Refresh(name string) int {
	n := s.cache.Invalidate(types.Dashboard, types.DashboardKey(name))
	prefix := regexp.MustCompile("^" + regexp.QuoteMeta(types.ChangelogKey(name, "")))
	return n + s.cache.InvalidateByPattern(prefix)
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		k := strings.ToLower(n)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, n)
	}
	return out
}
