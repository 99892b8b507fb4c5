package types

import "context"

/*
FetchFunc is the contract between the cache and a fetch collaborator
(npm registry client, GitHub releases client, ...).

It is called when the cache misses:
 1. Cache checks the namespace map → key not found or expired
 2. Cache calls the FetchFunc (through the retry executor)
 3. The collaborator talks to the network
 4. Cache stores the result and returns it

Failures should be *fetcherr.Error values so the retry executor can tell
transient failures from terminal ones.
*/
type FetchFunc func(ctx context.Context) (any, error)
