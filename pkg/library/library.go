// Package library holds the catalog of node classes a dataflow model can
// instantiate.
//
// A node's label selects its class by its first word: the label "add 1"
// resolves to the class "add", and the remaining words are arguments the
// class is free to ignore. A class fixes the typed inlets and outlets of the
// node. Labels that do not resolve produce invalid nodes.
//
// Libraries are built in code with [New], taken from [Builtin], or decoded
// from TOML:
//
//	[[class]]
//	name = "add"
//	description = "sum of two numbers"
//	inlets = ["number", "number"]
//	outlets = ["number"]
package library

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

var (
	// ErrInvalidClassName is returned when a class name is empty or contains
	// whitespace.
	ErrInvalidClassName = errors.New("class name must be a single non-empty word")

	// ErrDuplicateClass is returned when two classes share a name.
	ErrDuplicateClass = errors.New("duplicate class")
)

// Class describes one instantiable node type.
type Class struct {
	Name        string   `toml:"name" json:"name"`
	Description string   `toml:"description,omitempty" json:"description,omitempty"`
	Inlets      []string `toml:"inlets,omitempty" json:"inlets,omitempty"`
	Outlets     []string `toml:"outlets,omitempty" json:"outlets,omitempty"`
}

// Library is an immutable set of classes keyed by name.
// The zero value is an empty library.
type Library struct {
	classes map[string]Class
	names   []string // sorted
}

// New builds a library from classes.
func New(classes ...Class) (*Library, error) {
	l := &Library{classes: make(map[string]Class, len(classes))}
	for _, c := range classes {
		if c.Name == "" || strings.ContainsAny(c.Name, " \t\r\n") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidClassName, c.Name)
		}
		if _, ok := l.classes[c.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateClass, c.Name)
		}
		l.classes[c.Name] = c
		l.names = append(l.names, c.Name)
	}
	slices.Sort(l.names)
	return l, nil
}

// file is the TOML document layout.
type file struct {
	Classes []Class `toml:"class"`
}

// Decode reads a TOML class list from r.
func Decode(r io.Reader) (*Library, error) {
	var f file
	if _, err := toml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode library: %w", err)
	}
	return New(f.Classes...)
}

// Load reads a TOML class list from path.
func Load(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Len returns the number of classes.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.names)
}

// Names returns the class names in lexical order.
func (l *Library) Names() []string {
	if l == nil {
		return nil
	}
	return slices.Clone(l.names)
}

// Lookup returns the class with the given name.
func (l *Library) Lookup(name string) (Class, bool) {
	if l == nil {
		return Class{}, false
	}
	c, ok := l.classes[name]
	return c, ok
}

// Resolve returns the class selected by a node label: its first
// whitespace-separated word.
func (l *Library) Resolve(text string) (Class, bool) {
	name, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	if name == "" {
		return Class{}, false
	}
	return l.Lookup(name)
}

// Builtin returns the default class set used when no library file is
// configured.
func Builtin() *Library {
	l, err := New(
		Class{Name: "number", Description: "numeric constant", Inlets: []string{"any"}, Outlets: []string{"number"}},
		Class{Name: "string", Description: "string constant", Inlets: []string{"any"}, Outlets: []string{"string"}},
		Class{Name: "add", Description: "sum of two numbers", Inlets: []string{"number", "number"}, Outlets: []string{"number"}},
		Class{Name: "sub", Description: "difference of two numbers", Inlets: []string{"number", "number"}, Outlets: []string{"number"}},
		Class{Name: "mul", Description: "product of two numbers", Inlets: []string{"number", "number"}, Outlets: []string{"number"}},
		Class{Name: "div", Description: "quotient of two numbers", Inlets: []string{"number", "number"}, Outlets: []string{"number"}},
		Class{Name: "concat", Description: "joins two strings", Inlets: []string{"string", "string"}, Outlets: []string{"string"}},
		Class{Name: "tostring", Description: "formats any value", Inlets: []string{"any"}, Outlets: []string{"string"}},
		Class{Name: "print", Description: "logs incoming values", Inlets: []string{"any"}},
		Class{Name: "metro", Description: "periodic bang", Inlets: []string{"number"}, Outlets: []string{"bang"}},
		Class{Name: "counter", Description: "counts bangs", Inlets: []string{"bang", "number"}, Outlets: []string{"number"}},
		Class{Name: "split", Description: "fans one value out", Inlets: []string{"any"}, Outlets: []string{"any", "any", "any"}},
	)
	if err != nil {
		panic("library: builtin classes: " + err.Error())
	}
	return l
}
