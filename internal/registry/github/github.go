// Package github reads release notes from the GitHub releases API.
package github

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/krisalay/package-radar/fetcherr"
	"github.com/krisalay/package-radar/internal/registry"
)

// DefaultBaseURL is the public GitHub REST API.
const DefaultBaseURL = "https://api.github.com"

// Release is the changelog of one version.
type Release struct {
	Repository  string    `json:"repository"`
	Version     string    `json:"version"`
	TagName     string    `json:"tagName"`
	Name        string    `json:"name,omitempty"`
	Body        string    `json:"body"`
	HTMLURL     string    `json:"htmlUrl,omitempty"`
	PublishedAt time.Time `json:"publishedAt,omitzero"`
	Prerelease  bool      `json:"prerelease"`
}

// Client talks to one GitHub API endpoint.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient returns a client for baseURL (DefaultBaseURL when empty). token
// may be empty; unauthenticated calls get a much lower rate limit.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = registry.NewHTTPClient()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

type releaseDoc struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Body        string    `json:"body"`
	HTMLURL     string    `json:"html_url"`
	PublishedAt time.Time `json:"published_at"`
	Prerelease  bool      `json:"prerelease"`
	Draft       bool      `json:"draft"`
}

// TagCandidates lists the tags tried for version, in order.
func TagCandidates(version string) []string {
	v := strings.TrimPrefix(strings.TrimSpace(version), "v")
	return []string{"v" + v, v}
}

/*
Release fetches the release notes of version from repo ("owner/name").

Tags "v<version>" and "<version>" are tried in that order. A version with no
release under either tag, or a release with an empty body, is reported as
fetcherr.NotFound. Any other failure is returned as soon as it happens.
*/
func (c *Client) Release(ctx context.Context, repo, version string) (Release, error) {
	op := "github release " + repo + "@" + version

	owner, name, ok := strings.Cut(strings.TrimSpace(repo), "/")
	if !ok || owner == "" || name == "" || strings.TrimSpace(version) == "" {
		return Release{}, fetcherr.Validation(op, errors.New("repository must be owner/name and version non-empty"))
	}

	header := http.Header{}
	header.Set("Accept", "application/vnd.github+json")
	header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	for _, tag := range TagCandidates(version) {
		u := c.baseURL + "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(name) +
			"/releases/tags/" + url.PathEscape(tag)

		var doc releaseDoc
		err := registry.GetJSON(ctx, c.http, op, u, header, &doc)
		if fetcherr.StatusOf(err) == http.StatusNotFound {
			continue
		}
		if err != nil {
			return Release{}, err
		}
		if doc.Draft || strings.TrimSpace(doc.Body) == "" {
			return Release{}, fetcherr.NotFound(op, errors.New("release has no notes"))
		}
		return Release{
			Repository:  owner + "/" + name,
			Version:     strings.TrimPrefix(strings.TrimSpace(version), "v"),
			TagName:     doc.TagName,
			Name:        doc.Name,
			Body:        doc.Body,
			HTMLURL:     doc.HTMLURL,
			PublishedAt: doc.PublishedAt,
			Prerelease:  doc.Prerelease,
		}, nil
	}

	return Release{}, fetcherr.NotFound(op, errors.New("no release tagged for this version"))
}
