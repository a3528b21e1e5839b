package graph

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Encode serializes the graph to w in the named format: ttl or turtle, nt
// or ntriples, jsonld or json. A leading dot is accepted so extensions work
// directly.
func Encode(w io.Writer, g *Store, format string) error {
	encode, err := encoderFor(format)
	if err != nil {
		return err
	}
	return encode(w, g)
}

func encoderFor(format string) (func(io.Writer, *Store) error, error) {
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "ttl", "turtle":
		return EncodeTurtle, nil
	case "nt", "ntriples":
		return EncodeNTriples, nil
	case "jsonld", "json":
		return EncodeJSONLD, nil
	default:
		return nil, fmt.Errorf("no serializer for format: %s", format)
	}
}

// WriteFile serializes the graph to path, picking the codec from the file
// extension (.ttl, .nt, .jsonld). Missing parent directories are created.
func WriteFile(path string, g *Store) error {
	encode, err := encoderFor(filepath.Ext(path))
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	if err := encode(f, g); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// ReadFile parses a Turtle or N-Triples file into a new store.
func ReadFile(path string) (*Store, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".ttl", ".turtle", ".nt":
	default:
		return nil, fmt.Errorf("no parser for format: %s", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	g, err := DecodeTurtle(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return g, nil
}
