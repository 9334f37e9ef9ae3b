package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/c360studio/semstreams/vocabulary"
	"github.com/knakk/rdf"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/semform/binder"
	"github.com/c360studio/semform/config"
	"github.com/c360studio/semform/export"
	"github.com/c360studio/semform/form"
	"github.com/c360studio/semform/loader"
	"github.com/c360studio/semform/metrics"
	"github.com/c360studio/semform/storage"
	"github.com/c360studio/semform/template"
	"github.com/c360studio/semform/term"
	"github.com/c360studio/semform/vocabulary/shacl"
	"github.com/c360studio/semform/watch"
)

// EmitRequest selects what the emit command writes.
type EmitRequest struct {
	// Subject to bind; empty locates it through conformance links.
	Subject string
	// Shape overrides the located or configured root shape.
	Shape string
	// Fresh writes a new instance instead of bound data.
	Fresh bool
	// Format defaults to the configured emit format.
	Format string
}

// App is the main application that wires together all components.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	out      io.Writer
	prefixes map[string]string

	// Metrics
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	// Class instances served from InstancesDir, nil when not configured
	provider *loader.CachedProvider

	session  *form.Session
	exporter *export.Exporter
}

// NewApp creates a new application instance.
func NewApp(cfg *config.Config, logger *slog.Logger, out io.Writer) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	prefixes := shacl.DefaultPrefixes()
	for p, ns := range cfg.Prefixes {
		prefixes[p] = ns
	}

	app := &App{
		cfg:      cfg,
		logger:   logger,
		out:      out,
		prefixes: prefixes,
		registry: registry,
		metrics:  m,
		exporter: export.NewExporter(prefixes),
	}

	opts := form.Options{
		Languages:   cfg.Languages,
		Prefixes:    prefixes,
		MaxDepth:    cfg.Resolve.MaxDepth,
		Subclasses:  cfg.Resolve.Subclasses,
		RemoveLists: cfg.Resolve.RemoveLists,
		MintBase:    cfg.Emit.MintBase,
		ConformsTo:  cfg.Emit.ConformsTo,
		Metrics:     m,
		Logger:      logger,
	}
	if cfg.Loader.InstancesDir != "" && cfg.Loader.ClassCacheSize > 0 {
		provider, err := loader.NewCachedProvider(cfg.Loader.ClassCacheSize,
			loader.DirectoryInstances(cfg.Loader.InstancesDir), logger)
		if err != nil {
			return nil, fmt.Errorf("create instance provider: %w", err)
		}
		app.provider = provider
		opts.Provider = provider
	}

	app.session = form.NewSession(opts, loader.Options{
		FollowImports: cfg.Loader.FollowImports,
		Concurrency:   cfg.Loader.Concurrency,
		Logger:        logger,
	})
	return app, nil
}

// Close releases the session.
func (a *App) Close() {
	a.session.Close()
}

func (a *App) sources() loader.Sources {
	return loader.Sources{
		Shapes:  a.cfg.Sources.Shapes,
		Data:    a.cfg.Sources.Data,
		Imports: a.cfg.Sources.Imports,
	}
}

// withTimeout bounds one command, including the class lookups made while
// templates resolve after loading.
func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Loader.Timeout > 0 {
		return context.WithTimeout(ctx, a.cfg.Loader.Timeout)
	}
	return context.WithCancel(ctx)
}

func (a *App) load(ctx context.Context) (*form.Pass, error) {
	if len(a.cfg.Sources.Shapes) == 0 {
		return nil, fmt.Errorf("%w: set sources.shapes or --shapes", form.ErrNoShapes)
	}
	pass, err := a.session.Reload(ctx, a.sources())
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return pass, nil
}

// iri expands a prefixed name with the configured prefixes.
func (a *App) iri(s string) (rdf.Term, error) {
	iri, err := term.NewIRI(term.Expand(s, a.prefixes))
	if err != nil {
		return nil, fmt.Errorf("invalid IRI %q: %w", s, err)
	}
	return iri, nil
}

func (a *App) fresh(pass *form.Pass, shape string) (*binder.NodeInstance, error) {
	tpl, err := a.rootTemplate(pass, shape)
	if err != nil {
		return nil, err
	}
	return pass.Bind(tpl, nil), nil
}

func (a *App) rootTemplate(pass *form.Pass, shape string) (*template.NodeTemplate, error) {
	var id rdf.Term
	if shape != "" {
		iri, err := a.iri(shape)
		if err != nil {
			return nil, err
		}
		id = iri
	}
	return pass.Root(id)
}

// Resolve writes the template tree of the root shape as JSON or YAML.
func (a *App) Resolve(ctx context.Context, format string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	pass, err := a.load(ctx)
	if err != nil {
		return err
	}
	root, err := a.rootTemplate(pass, a.cfg.Resolve.RootShape)
	if err != nil {
		return err
	}
	views := pass.Resolver.Describe(root)

	switch format {
	case "json":
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	case "yaml":
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(views); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported resolve format: %s (json, yaml)", format)
	}
}

// Emit binds data or a fresh instance and writes it as RDF.
func (a *App) Emit(ctx context.Context, req EmitRequest) error {
	name := req.Format
	if name == "" {
		name = a.cfg.Emit.Format
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	pass, err := a.load(ctx)
	if err != nil {
		return err
	}
	n, err := a.bind(pass, req)
	if err != nil {
		return err
	}
	return a.exporter.Write(a.out, pass.Emit(n), storage.DataGraph, format)
}

func (a *App) bind(pass *form.Pass, req EmitRequest) (*binder.NodeInstance, error) {
	if req.Fresh {
		shape := req.Shape
		if shape == "" {
			shape = a.cfg.Resolve.RootShape
		}
		return a.fresh(pass, shape)
	}

	var subject rdf.Term
	if req.Subject != "" {
		s, err := a.iri(req.Subject)
		if err != nil {
			return nil, err
		}
		subject = s
		if req.Shape != "" {
			tpl, err := a.rootTemplate(pass, req.Shape)
			if err != nil {
				return nil, err
			}
			return pass.Bind(tpl, subject), nil
		}
	}

	located, tpl, err := pass.Locate(subject)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Located subject",
		slog.String("subject", term.Key(located)),
		slog.String("shape", tpl.Key))
	return pass.Bind(tpl, located), nil
}

// Lists writes every well-formed list of the shapes graph, then the broken
// ones.
func (a *App) Lists(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	pass, err := a.load(ctx)
	if err != nil {
		return err
	}
	for _, head := range pass.Lists.Heads() {
		items, _ := pass.Lists.Lookup(head)
		fmt.Fprintf(a.out, "%s (%d)\n", a.display(head), len(items))
		for _, item := range items {
			fmt.Fprintf(a.out, "  %s\n", a.display(item))
		}
	}
	for _, an := range pass.Anomalies {
		fmt.Fprintf(a.out, "broken %s: %s after %d items\n", a.display(an.Head), an.Reason, an.Items)
	}
	return nil
}

func (a *App) display(t rdf.Term) string {
	if term.IsIRI(t) {
		return term.Compact(term.IRIValue(t), a.prefixes)
	}
	return term.Key(t)
}

// Watch reloads whenever a source document changes, until ctx is done or
// the process is interrupted. Metrics are served when an address is set.
func (a *App) Watch(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr := a.cfg.Metrics.Addr; addr != "" {
		srv := a.metricsServer(addr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("Metrics server failed", slog.String("error", err.Error()))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		a.logger.Info("Serving metrics", slog.String("addr", addr))
	}

	roots := append(append(append([]string(nil), a.cfg.Sources.Shapes...), a.cfg.Sources.Data...), a.cfg.Sources.Imports...)
	if a.cfg.Loader.InstancesDir != "" {
		roots = append(roots, a.cfg.Loader.InstancesDir)
	}
	w, err := watch.New(watch.Config{Roots: roots, ExcludeDirs: []string{"vendor", "node_modules"}}, a.logger)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		_ = w.Stop()
		return fmt.Errorf("start watcher: %w", err)
	}
	defer func() { _ = w.Stop() }()

	var wg sync.WaitGroup
	defer wg.Wait()
	reload := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.reload(ctx)
		}()
	}

	reload()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			a.logger.Info("Sources changed", slog.Any("paths", ev.Paths()))
			if a.provider != nil {
				a.provider.Purge()
			}
			reload()
		}
	}
}

// reload runs one pass and resolves its root eagerly, so that templates
// and diagnostics are ready before the pass can be superseded.
func (a *App) reload(ctx context.Context) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	pass, err := a.session.Reload(ctx, a.sources())
	switch {
	case errors.Is(err, form.ErrSuperseded), errors.Is(err, form.ErrClosed):
		a.logger.Debug("Reload superseded")
		return
	case err != nil:
		a.logger.Error("Reload failed", slog.String("error", err.Error()))
		return
	}

	root, err := a.rootTemplate(pass, a.cfg.Resolve.RootShape)
	if err != nil {
		a.logger.Error("Resolve failed", slog.String("error", err.Error()))
		return
	}
	views := pass.Resolver.Describe(root)
	if a.provider != nil {
		a.metrics.ClassCache(a.provider.Stats())
	}
	a.logger.Info("Resolved templates",
		slog.Uint64("generation", pass.Generation),
		slog.String("root", root.Key),
		slog.Int("nodes", len(views)),
		slog.Int("diagnostics", pass.Diagnostics.Len()))
}

func (a *App) metricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(a.registry))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// writeVocabulary lists every recognised predicate with its registered
// description.
func writeVocabulary(w io.Writer) error {
	for _, p := range shacl.Predicates() {
		desc := ""
		if meta := vocabulary.GetPredicateMetadata(p.Name()); meta != nil {
			desc = meta.Description
		}
		if _, err := fmt.Fprintf(w, "%-32s %s\n    %s\n", p.Name(), p.IRI(), desc); err != nil {
			return err
		}
	}
	return nil
}
