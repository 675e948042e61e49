package patch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/flowcanvas/pkg/errors"
)

// Format is a patch document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the encoding from the file extension. Unknown
// extensions are read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Decode reads one patch document from r and validates it.
// Decode does not close r.
func Decode(r io.Reader, f Format) (*Patch, error) {
	var p Patch
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPatch, err, "decode json")
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			if err == io.EOF {
				return nil, errors.New(errors.ErrCodeInvalidPatch, "decode yaml: empty document")
			}
			return nil, errors.Wrap(errors.ErrCodeInvalidPatch, err, "decode yaml")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown patch format %q", f)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Version == 0 {
		p.Version = Version
	}
	return &p, nil
}

// Encode writes p to w. JSON output is indented for diffable files.
func Encode(w io.Writer, p *Patch, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		return enc.Close()
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unknown patch format %q", f)
	}
	return nil
}

// Marshal returns the encoded document.
func Marshal(p *Patch, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, p, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Import reads the patch file at path.
func Import(path string) (*Patch, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	p, err := Decode(f, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Export writes p to path, choosing the format from the extension. The file
// is written to a temporary sibling first and renamed into place.
func Export(p *Patch, path string) error {
	data, err := Marshal(p, FormatFromPath(path))
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".patch-*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
