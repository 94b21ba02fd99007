package whois

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// QueryBatch queries domains in parallel with at most concurrency lookups in
// flight. Results keep the input order; a domain that failed has a nil entry
// and its error is part of the returned multierror.
func (c *Client) QueryBatch(ctx context.Context, domains []string, concurrency int) ([]*Analysis, error) {
	if concurrency <= 0 {
		concurrency = 4
	}
	results := make([]*Analysis, len(domains))

	var (
		mu   sync.Mutex
		errs *multierror.Error
	)
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, domain := range domains {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", domain, err))
				mu.Unlock()
				return nil
			}
			a, err := c.Query(ctx, domain)
			if err != nil {
				mu.Lock()
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", domain, err))
				mu.Unlock()
				return nil
			}
			results[i] = a
			return nil
		})
	}
	_ = g.Wait()
	return results, errs.ErrorOrNil()
}
