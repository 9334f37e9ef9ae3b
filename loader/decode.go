package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/knakk/rdf"

	"github.com/c360studio/semform/storage"
	"github.com/c360studio/semform/term"
)

// Decode parses r into quads in graph. Blank node labels are prefixed with
// scope so blank nodes from different documents never collide.
func Decode(r io.Reader, f Format, graph rdf.Term, scope string) ([]storage.Quad, error) {
	kf, err := f.knakk()
	if err != nil {
		return nil, err
	}
	if f == FormatTurtle {
		src, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		r = bytes.NewReader(padNumbers(src))
	}
	dec := rdf.NewTripleDecoder(r, kf)

	var out []storage.Quad
	for {
		tr, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("decode %s: %w", f, err)
		}
		out = append(out, storage.Quad{
			Subject:   scoped(tr.Subj, scope),
			Predicate: tr.Pred,
			Object:    scoped(tr.Obj, scope),
			Graph:     graph,
		})
	}
}

// ParseString decodes an in-memory document.
func ParseString(src string, f Format, graph rdf.Term) ([]storage.Quad, error) {
	return Decode(strings.NewReader(src), f, graph, "")
}

func scoped(t rdf.Term, scope string) rdf.Term {
	b, ok := t.(rdf.Blank)
	if !ok || scope == "" {
		return t
	}
	nb, err := term.NewBlank(scope + term.BlankLabel(b))
	if err != nil {
		return t
	}
	return nb
}

// padNumbers inserts a space between a token ending in a digit and a
// following line break or tab. The knakk/rdf Turtle lexer accepts only a
// space or punctuation after a number, so `sh:maxCount 1` at the end of a
// line would otherwise fail. Strings, IRIs and comments are copied as is.
func padNumbers(src []byte) []byte {
	out := make([]byte, 0, len(src)+len(src)/64)
	var quote byte
	long, iri, comment := false, false, false
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case comment:
			if c == '\n' || c == '\r' {
				comment = false
			}
		case iri:
			if c == '>' {
				iri = false
			}
		case quote != 0:
			if c == '\\' && i+1 < len(src) {
				out = append(out, c, src[i+1])
				i++
				continue
			}
			if c == quote {
				if !long {
					quote = 0
				} else if i+2 < len(src) && src[i+1] == quote && src[i+2] == quote {
					out = append(out, c, c, c)
					i += 2
					quote, long = 0, false
					continue
				}
			}
		default:
			switch c {
			case '#':
				comment = true
			case '<':
				iri = true
			case '"', '\'':
				quote = c
				long = i+2 < len(src) && src[i+1] == c && src[i+2] == c
				if long {
					out = append(out, c, c, c)
					i += 2
					continue
				}
			case '\n', '\r', '\t':
				if n := len(out); n > 0 && out[n-1] >= '0' && out[n-1] <= '9' {
					out = append(out, ' ')
				}
			}
		}
		out = append(out, c)
	}
	return out
}
