package radar

import (
	"context"
	"time"
)

/*
RunJanitor calls ClearExpired every interval until ctx is done. The cache
never needs it for correctness (reads expire lazily); hosts run it when they
want memory bounded independently of read traffic. It blocks, so start it
with go.
*/
func (c *CacheService) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := c.ClearExpired(); n > 0 {
				c.engine.Logger.Debug().Int("removed", n).Msg("janitor swept expired entries")
			}
		}
	}
}
