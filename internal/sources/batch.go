package sources

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// MaxParallel bounds the number of sources normalized at once.
const MaxParallel = 8

// Dedupe drops repeated entries by exact string equality, keeping the first
// occurrence of each.
func Dedupe(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// NormalizeAll dedupes raw and normalizes what is left concurrently. The
// result follows first-seen order. The only error is ctx being done.
func (n *Normalizer) NormalizeAll(ctx context.Context, raw []string) ([]Source, error) {
	unique := Dedupe(raw)
	out := make([]Source, len(unique))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxParallel)

	for i, s := range unique {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = n.Normalize(s)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// NormalizeAll runs Normalizer.NormalizeAll with the default brand table.
func NormalizeAll(ctx context.Context, raw []string) ([]Source, error) {
	return defaultNormalizer.NormalizeAll(ctx, raw)
}
