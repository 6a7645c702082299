package driver

import (
	"context"
	"fmt"
	"path/filepath"

	"suppressible/internal/archive"
	"suppressible/internal/cache"
	"suppressible/internal/trace"
)

// TransformResult says where the engine archive for a stage lives.
type TransformResult struct {
	Path    string
	Cached  bool
	Skipped bool // the archive is not the engine's and was passed through
	Patched []string
}

// TransformArchive returns the transformed copy of in for variant v. With a
// cache, a previous output for the same input, variant and bust token is
// reused; without one, the output goes to outDir.
func TransformArchive(ctx context.Context, t *archive.Transformer, c *cache.Cache, in string, v archive.Variant, bust, outDir string) (TransformResult, error) {
	if !t.Select(in) {
		return TransformResult{Path: in, Skipped: true}, nil
	}
	name := archive.OutputName(in)
	if c == nil {
		res, err := t.Transform(ctx, in, filepath.Join(outDir, name), v)
		if err != nil {
			return TransformResult{}, err
		}
		return TransformResult{Path: res.Output, Patched: res.Patched}, nil
	}

	digest, err := cache.FileDigest(in)
	if err != nil {
		return TransformResult{}, fmt.Errorf("hash %s: %w", in, err)
	}
	key := cache.Key(digest, v.String(), bust)
	out := c.ArchivePath(key, name)

	entry, ok, err := c.Get(key, name)
	if err != nil {
		// unreadable metadata is a miss
		trace.Point(trace.FromContext(ctx), trace.ScopeArchive, "cache", err.Error(), trace.ParentID(ctx))
	}
	if ok {
		return TransformResult{Path: out, Cached: true, Patched: entry.Patched}, nil
	}

	res, err := t.Transform(ctx, in, out, v)
	if err != nil {
		return TransformResult{}, err
	}
	if err := c.Put(key, &cache.Entry{Input: in, Variant: v.String(), Patched: res.Patched}); err != nil {
		return TransformResult{}, fmt.Errorf("cache %s: %w", in, err)
	}
	return TransformResult{Path: out, Patched: res.Patched}, nil
}
