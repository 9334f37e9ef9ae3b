package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/c360studio/semform/storage"
	"github.com/c360studio/semform/term"
)

// InstanceFunc fetches the instances of a class as quads.
type InstanceFunc func(ctx context.Context, class string) ([]storage.Quad, error)

// CachedProvider serves class instances from an LRU cache, fetching misses
// once even when several callers ask concurrently. Its lifetime is that of
// its owner; there is no package-level cache.
type CachedProvider struct {
	fetch  InstanceFunc
	cache  *lru.Cache[string, []storage.Quad]
	group  singleflight.Group
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedProvider wraps fetch with a cache of size entries.
func NewCachedProvider(size int, fetch InstanceFunc, logger *slog.Logger) (*CachedProvider, error) {
	if fetch == nil {
		return nil, errors.New("instance fetch function is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &CachedProvider{fetch: fetch, logger: logger}
	cache, err := lru.NewWithEvict[string, []storage.Quad](size, func(class string, _ []storage.Quad) {
		p.logger.Debug("Evicted class instances", slog.String("class", class))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create instance cache: %w", err)
	}
	p.cache = cache
	return p, nil
}

// Instances returns the quads describing the instances of class. Callers
// receive their own copy.
func (p *CachedProvider) Instances(ctx context.Context, class string) ([]storage.Quad, error) {
	if quads, ok := p.cache.Get(class); ok {
		p.hits.Add(1)
		return append([]storage.Quad(nil), quads...), nil
	}
	v, err, _ := p.group.Do(class, func() (any, error) {
		if quads, ok := p.cache.Get(class); ok {
			return quads, nil
		}
		p.misses.Add(1)
		quads, err := p.fetch(ctx, class)
		if err != nil {
			return nil, err
		}
		p.cache.Add(class, quads)
		return quads, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch instances of %s: %w", class, err)
	}
	return append([]storage.Quad(nil), v.([]storage.Quad)...), nil
}

// Stats returns the cache hit and miss counts.
func (p *CachedProvider) Stats() (hits, misses int64) {
	return p.hits.Load(), p.misses.Load()
}

// Purge empties the cache.
func (p *CachedProvider) Purge() {
	p.cache.Purge()
}

// DirectoryInstances returns an InstanceFunc that reads the instances of a
// class from <dir>/<local name>.ttl, where the local name is the part of the
// class IRI after the last '#' or '/'. A missing file yields no instances.
func DirectoryInstances(dir string) InstanceFunc {
	return func(ctx context.Context, class string) ([]storage.Quad, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		local := class[strings.LastIndexAny(class, "#/")+1:]
		if local == "" {
			return nil, nil
		}
		path := filepath.Join(dir, local+".ttl")
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		defer f.Close()
		graph, err := term.NewIRI(FileIRI(path))
		if err != nil {
			return nil, err
		}
		return Decode(f, FormatTurtle, graph, "c_"+local+"_")
	}
}
