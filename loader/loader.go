// Package loader populates a storage.Dataset from RDF documents: the shapes
// document, the data being edited, ontology imports matched by glob
// patterns, and owl:imports reachable from them.
//
// Files are parsed concurrently and added in source order, so declaration
// order in the resulting dataset does not depend on scheduling.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/knakk/rdf"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/semform/storage"
	"github.com/c360studio/semform/term"
	"github.com/c360studio/semform/vocabulary/shacl"
)

var owlImports = term.MustIRI(shacl.OWLImports)

// Sources lists the documents of one load. Every entry may be a path, a
// directory or a glob pattern.
type Sources struct {
	Shapes  []string
	Data    []string
	Imports []string
}

// Options configures a Loader.
type Options struct {
	// FollowImports loads owl:imports targets through Fetcher.
	FollowImports bool
	// Fetcher defaults to a FileFetcher relative to the first shapes file.
	Fetcher Fetcher
	// Concurrency bounds parallel parsing; zero means 4.
	Concurrency int
	Logger      *slog.Logger
}

// Loader parses RDF documents into datasets.
type Loader struct {
	opts   Options
	logger *slog.Logger
}

// New creates a loader.
func New(opts Options) *Loader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Loader{opts: opts, logger: logger}
}

type job struct {
	path  string
	graph rdf.Term
}

// Load parses every source into a new dataset. Shapes go to
// storage.ShapesGraph, data to storage.DataGraph and each import to a graph
// named by its file IRI.
func (l *Loader) Load(ctx context.Context, src Sources) (*storage.Dataset, error) {
	if len(src.Shapes) == 0 {
		return nil, errors.New("no shapes source given")
	}
	jobs, err := l.plan(src)
	if err != nil {
		return nil, err
	}

	results := make([][]storage.Quad, len(jobs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(l.opts.Concurrency)
	for i, j := range jobs {
		eg.Go(func() error {
			quads, err := l.parseFile(egCtx, j, fmt.Sprintf("d%d_", i))
			if err != nil {
				return err
			}
			results[i] = quads
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	ds := storage.NewDataset()
	for i, quads := range results {
		n := ds.AddAll(quads)
		l.logger.Debug("Loaded RDF document", slog.String("path", jobs[i].path), slog.Int("quads", n))
	}

	if l.opts.FollowImports {
		fetcher := l.opts.Fetcher
		if fetcher == nil {
			fetcher = FileFetcher{BaseDir: filepath.Dir(jobs[0].path)}
		}
		loaded := make(map[string]bool, len(jobs))
		for _, j := range jobs {
			loaded[FileIRI(j.path)] = true
		}
		if err := l.followImports(ctx, ds, fetcher, loaded); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func (l *Loader) plan(src Sources) ([]job, error) {
	var jobs []job
	add := func(patterns []string, graph func(path string) rdf.Term) error {
		if len(patterns) == 0 {
			return nil
		}
		paths, err := ResolvePaths(patterns)
		if err != nil {
			return err
		}
		for _, p := range paths {
			jobs = append(jobs, job{path: p, graph: graph(p)})
		}
		return nil
	}
	if err := add(src.Shapes, func(string) rdf.Term { return storage.ShapesGraph }); err != nil {
		return nil, fmt.Errorf("shapes: %w", err)
	}
	if err := add(src.Data, func(string) rdf.Term { return storage.DataGraph }); err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	err := add(src.Imports, func(p string) rdf.Term {
		iri, err := term.NewIRI(FileIRI(p))
		if err != nil {
			return nil
		}
		return iri
	})
	if err != nil {
		return nil, fmt.Errorf("imports: %w", err)
	}
	return jobs, nil
}

func (l *Loader) parseFile(ctx context.Context, j job, scope string) ([]storage.Quad, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	format, err := FormatFromPath(j.path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(j.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", j.path, err)
	}
	defer f.Close()

	quads, err := Decode(f, format, j.graph, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", j.path, err)
	}
	return quads, nil
}

// followImports loads owl:imports targets breadth first. A failed import is
// logged and skipped; only cancellation aborts.
func (l *Loader) followImports(ctx context.Context, ds *storage.Dataset, fetcher Fetcher, loaded map[string]bool) error {
	queue := ds.Objects(nil, owlImports, nil)
	for n := 0; len(queue) > 0; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := queue[0]
		queue = queue[1:]
		iri := term.IRIValue(target)
		if iri == "" || loaded[iri] {
			continue
		}
		loaded[iri] = true

		rc, format, err := fetcher.Fetch(ctx, iri)
		if err != nil {
			l.logger.Warn("Skipping ontology import", slog.String("iri", iri), slog.Any("error", err))
			continue
		}
		quads, err := Decode(rc, format, target, fmt.Sprintf("i%d_", n))
		rc.Close()
		if err != nil {
			l.logger.Warn("Failed to parse ontology import", slog.String("iri", iri), slog.Any("error", err))
			continue
		}
		ds.AddAll(quads)
		l.logger.Debug("Loaded ontology import", slog.String("iri", iri), slog.Int("quads", len(quads)))
		queue = append(queue, ds.Objects(nil, owlImports, target)...)
	}
	return nil
}
