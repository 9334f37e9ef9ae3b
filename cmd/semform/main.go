// Package main provides the semform binary entry point.
// Semform resolves SHACL shapes into form templates, binds RDF data to
// them and writes the edited instances back as RDF.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/semform/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semform"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	languages  []string
	shapes     []string
	data       []string
	imports    []string
	rootShape  string
	format     string
}

func rootCmd() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:   appName,
		Short: "SHACL form template resolver",
		Long: `Semform resolves a SHACL shapes graph into a tree of form templates,
binds existing RDF data to it and writes the result back as RDF.

It provides:
- Template resolution with sh:node, sh:and, sh:or and sh:xone support
- Data binding with recursion guards and option selection
- Turtle, N-Triples and JSON-LD output
- Reload on file change with Prometheus metrics`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	pf.StringVar(&flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	pf.StringSliceVar(&flags.languages, "lang", nil, "Preferred languages, most preferred first")
	pf.StringSliceVar(&flags.shapes, "shapes", nil, "Shapes files, directories or globs")
	pf.StringSliceVar(&flags.data, "data", nil, "Data files, directories or globs")
	pf.StringSliceVar(&flags.imports, "imports", nil, "Additional imported documents")
	pf.StringVar(&flags.rootShape, "shape", "", "Root shape IRI or prefixed name")
	pf.StringVarP(&flags.format, "format", "f", "", "Output format")

	cmd.AddCommand(
		resolveCmd(&flags),
		emitCmd(&flags),
		listsCmd(&flags),
		watchCmd(&flags),
		vocabCmd(),
	)

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func resolveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Print the template tree of the root shape",
		Long:  "Resolve prints every node template reachable from the root shape as JSON or YAML (--format json|yaml).",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer app.Close()
			format := flags.format
			if format == "" {
				format = "json"
			}
			return app.Resolve(cmd.Context(), format)
		},
	}
}

func emitCmd(flags *globalFlags) *cobra.Command {
	var req EmitRequest
	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Bind data to the root shape and write it back as RDF",
		Long: `Emit binds a data subject to its shape and writes the resulting instance as RDF.

Without --subject the subject is located through dcterms:conformsTo or rdf:type
links to a known shape. With --new a fresh instance of the root shape is written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer app.Close()
			req.Shape = flags.rootShape
			req.Format = flags.format
			return app.Emit(cmd.Context(), req)
		},
	}
	cmd.Flags().StringVar(&req.Subject, "subject", "", "Data subject IRI or prefixed name")
	cmd.Flags().BoolVar(&req.Fresh, "new", false, "Emit a fresh instance instead of bound data")
	return cmd
}

func listsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "lists",
		Short: "Print the RDF lists of the shapes graph and any broken ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Lists(cmd.Context())
		},
	}
}

func watchCmd(flags *globalFlags) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload shapes and data whenever they change",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer app.Close()
			if metricsAddr != "" {
				app.cfg.Metrics.Addr = metricsAddr
			}
			return app.Watch(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	return cmd
}

func vocabCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vocab",
		Short: "List the SHACL and DASH predicates semform understands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeVocabulary(cmd.OutOrStdout())
		},
	}
}

// setup configures logging, loads the layered config, applies flag
// overrides and creates the app.
func setup(flags *globalFlags, out, errOut io.Writer) (*App, error) {
	logger := newLogger(flags.logLevel, errOut)
	slog.SetDefault(logger)

	cfg, err := config.NewLoader(logger).Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	flags.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return NewApp(cfg, logger, out)
}

func (f *globalFlags) apply(cfg *config.Config) {
	if len(f.languages) > 0 {
		cfg.Languages = f.languages
	}
	if len(f.shapes) > 0 {
		cfg.Sources.Shapes = f.shapes
	}
	if len(f.data) > 0 {
		cfg.Sources.Data = f.data
	}
	if len(f.imports) > 0 {
		cfg.Sources.Imports = f.imports
	}
	if f.rootShape != "" {
		cfg.Resolve.RootShape = f.rootShape
	}
}

func newLogger(logLevel string, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
