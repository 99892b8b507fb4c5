// Package npm reads package summaries and version timelines from the npm
// registry.
package npm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/krisalay/package-radar/fetcherr"
	"github.com/krisalay/package-radar/internal/logging"
	"github.com/krisalay/package-radar/internal/registry"
)

// DefaultBaseURL is the public npm registry.
const DefaultBaseURL = "https://registry.npmjs.org"

// Summary is what the dashboard card shows for one package.
type Summary struct {
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	LatestVersion     string    `json:"latestVersion"`
	LatestPublishedAt time.Time `json:"latestPublishedAt,omitzero"`
	Modified          time.Time `json:"modified,omitzero"`
	Repository        string    `json:"repository,omitempty"` // owner/name on GitHub, when known
	Homepage          string    `json:"homepage,omitempty"`
	License           string    `json:"license,omitempty"`
	VersionCount      int       `json:"versionCount"`
}

// Version is one entry of a timeline.
type Version struct {
	Version     string    `json:"version"`
	PublishedAt time.Time `json:"publishedAt,omitzero"`
	Prerelease  bool      `json:"prerelease"`
	Deprecated  string    `json:"deprecated,omitempty"`
	Latest      bool      `json:"latest"`
}

// Client talks to one npm registry.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = registry.NewHTTPClient()
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// packument is the subset of the registry document the radar reads.
type packument struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	DistTags    map[string]string `json:"dist-tags"`
	Time        map[string]string `json:"time"`
	Versions    map[string]struct {
		Deprecated string `json:"deprecated"`
	} `json:"versions"`
	Repository repository `json:"repository"`
	Homepage   string     `json:"homepage"`
	License    license    `json:"license"`
}

// repository is either a string or {"type": ..., "url": ...}.
type repository struct{ URL string }

func (r *repository) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		r.URL = s
		return nil
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	r.URL = obj.URL
	return nil
}

// license is either a string or the legacy {"type": ...} object.
type license struct{ Name string }

func (l *license) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		l.Name = s
		return nil
	}
	var obj struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		// Unusual license shapes are not worth failing the whole summary for.
		return nil
	}
	l.Name = obj.Type
	return nil
}

func (c *Client) packument(ctx context.Context, op, name string) (*packument, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fetcherr.Validation(op, errors.New("package name is empty"))
	}

	var doc packument
	u := c.baseURL + "/" + url.PathEscape(name)
	if err := registry.GetJSON(ctx, c.http, op, u, nil, &doc); err != nil {
		return nil, err
	}
	if doc.Name == "" {
		return nil, fetcherr.Validation(op, errors.New("registry document has no name"))
	}
	return &doc, nil
}

// Summary fetches the dashboard summary of name.
func (c *Client) Summary(ctx context.Context, name string) (Summary, error) {
	op := "npm summary " + name
	doc, err := c.packument(ctx, op, name)
	if err != nil {
		return Summary{}, err
	}

	latest := doc.DistTags["latest"]
	if latest == "" {
		return Summary{}, fetcherr.Validation(op, errors.New("registry document has no latest dist-tag"))
	}

	s := Summary{
		Name:              doc.Name,
		Description:       doc.Description,
		LatestVersion:     latest,
		LatestPublishedAt: parseTime(doc.Time[latest]),
		Modified:          parseTime(doc.Time["modified"]),
		Homepage:          doc.Homepage,
		License:           doc.License.Name,
		VersionCount:      len(doc.Versions),
	}
	if repo, ok := registry.GitHubRepo(doc.Repository.URL); ok {
		s.Repository = repo
	}
	return s, nil
}

/*
Versions fetches the version timeline of name, newest first by semver
precedence. Versions that do not parse as semver are skipped and logged.
*/
func (c *Client) Versions(ctx context.Context, name string) ([]Version, error) {
	op := "npm versions " + name
	doc, err := c.packument(ctx, op, name)
	if err != nil {
		return nil, err
	}

	log := logging.FromContext(ctx)
	latest := doc.DistTags["latest"]

	type parsed struct {
		sv *semver.Version
		v  Version
	}
	out := make([]parsed, 0, len(doc.Versions))
	for raw, meta := range doc.Versions {
		sv, err := semver.NewVersion(raw)
		if err != nil {
			log.Debug().Str("package", doc.Name).Str("version", raw).Err(err).Msg("skipping non-semver version")
			continue
		}
		out = append(out, parsed{
			sv: sv,
			v: Version{
				Version:     raw,
				PublishedAt: parseTime(doc.Time[raw]),
				Prerelease:  sv.Prerelease() != "",
				Deprecated:  meta.Deprecated,
				Latest:      raw == latest,
			},
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].sv.GreaterThan(out[j].sv)
	})

	versions := make([]Version, len(out))
	for i, p := range out {
		versions[i] = p.v
	}
	return versions, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
