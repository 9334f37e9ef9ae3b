package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedScheme is returned by fetchers for IRIs they cannot retrieve.
var ErrUnsupportedScheme = errors.New("unsupported IRI scheme")

// Fetcher retrieves an imported ontology document.
type Fetcher interface {
	Fetch(ctx context.Context, iri string) (io.ReadCloser, Format, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, iri string) (io.ReadCloser, Format, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, iri string) (io.ReadCloser, Format, error) {
	return f(ctx, iri)
}

// FileFetcher resolves file: IRIs and relative references against BaseDir.
type FileFetcher struct {
	BaseDir string
}

// Fetch opens the local file an IRI refers to.
func (f FileFetcher) Fetch(ctx context.Context, iri string) (io.ReadCloser, Format, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	path, err := f.localPath(iri)
	if err != nil {
		return nil, "", err
	}
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, "", err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open import %s: %w", iri, err)
	}
	return file, format, nil
}

func (f FileFetcher) localPath(iri string) (string, error) {
	u, err := url.Parse(iri)
	if err != nil {
		return "", fmt.Errorf("parse import IRI %q: %w", iri, err)
	}
	switch {
	case u.Scheme == "file":
		return filepath.FromSlash(u.Path), nil
	case u.Scheme == "" && !strings.HasPrefix(iri, "//"):
		if filepath.IsAbs(iri) {
			return iri, nil
		}
		return filepath.Join(f.BaseDir, filepath.FromSlash(iri)), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, iri)
}

// FileIRI returns the file: IRI of an absolute path.
func FileIRI(path string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}
