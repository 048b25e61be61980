package entropy

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/streamrand/streamrand/internal/core"
)

// ProbeSources fetches one segment from every source in parallel, at most
// limit at a time. Per-source failures are reported in the result rather
// than returned; only a catalog failure is an error.
func ProbeSources(ctx context.Context, catalog SourceLoader, fetcher SegmentFetcher, limit int) ([]core.SourceProbe, error) {
	sources, err := catalog.Load()
	if err != nil {
		return nil, err
	}

	probes := make([]core.SourceProbe, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, source := range sources {
		g.Go(func() error {
			start := time.Now()
			buf, err := fetcher.Fetch(ctx, source)

			probe := core.SourceProbe{
				Index:    i,
				URL:      source.URL,
				Bytes:    len(buf),
				Duration: time.Since(start),
			}
			if err != nil {
				probe.Error = err.Error()
			}
			probes[i] = probe
			return nil
		})
	}

	_ = g.Wait()
	return probes, nil
}
