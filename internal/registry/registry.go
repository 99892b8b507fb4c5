// Package registry holds the HTTP plumbing shared by the npm and GitHub
// clients. Every failure leaves here as a *fetcherr.Error so the radar's retry
// executor can classify it.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/krisalay/package-radar/fetcherr"
	"github.com/krisalay/package-radar/internal/logging"
)

// DefaultTimeout bounds one HTTP round trip. The retry executor bounds the
// whole call.
const DefaultTimeout = 15 * time.Second

// maxErrorBody caps how much of an error response is read for its message.
const maxErrorBody = 4 << 10

// NewHTTPClient returns a client with DefaultTimeout.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

/*
GetJSON performs a GET and decodes a 2xx JSON body into out.

	transport failure       → fetcherr.Network
	non-2xx status          → fetcherr.Upstream with the status
	  (403 with an exhausted GitHub rate limit is reported as 429)
	undecodable body        → fetcherr.Validation
*/
func GetJSON(ctx context.Context, client *http.Client, op, url string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fetcherr.Unknown(op, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	log := logging.FromContext(ctx)
	start := time.Now()

	resp, err := client.Do(req)
	if err != nil {
		return fetcherr.Network(op, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("op", op).
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("registry request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.Canceled) {
			return fetcherr.Network(op, err)
		}
		return fetcherr.Validation(op, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := errorMessage(body)

	status := resp.StatusCode
	if status == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0" {
		status = http.StatusTooManyRequests
	}

	var cause error
	if msg != "" {
		cause = errors.New(msg)
	}
	return fetcherr.FromStatus(op, status, cause)
}

// errorMessage pulls a human message out of the registries' error bodies
// ({"message": ...} on GitHub, {"error": ...} on npm).
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(body))
}

var githubRepoPattern = regexp.MustCompile(`(?i)github\.com[:/]+([^/\s]+)/([^/\s#?]+)`)

/*
GitHubRepo extracts "owner/name" from the repository forms found in npm
manifests:

	git+https://github.com/facebook/react.git
	git@github.com:facebook/react.git
	https://github.com/babel/babel/tree/main/packages/babel-core
	github:facebook/react
	facebook/react
*/
func GitHubRepo(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	var owner, name string
	switch {
	case githubRepoPattern.MatchString(raw):
		m := githubRepoPattern.FindStringSubmatch(raw)
		owner, name = m[1], m[2]
	case strings.HasPrefix(raw, "github:"):
		owner, name, _ = strings.Cut(strings.TrimPrefix(raw, "github:"), "/")
	case !strings.Contains(raw, ":") && strings.Count(raw, "/") == 1:
		owner, name, _ = strings.Cut(raw, "/")
	default:
		return "", false
	}

	name = strings.TrimSuffix(name, ".git")
	if owner == "" || name == "" {
		return "", false
	}
	return owner + "/" + name, true
}
