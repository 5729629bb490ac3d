// Package typeindex maps source files to the aggregate types and namespaces
// declared in them.
package typeindex

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/dwarfkit/pkg/dwarf"
)

// AnonymousNamespace names namespaces that carry no DW_AT_name.
const AnonymousNamespace = "__anonymous_namespace__"

// Decl is one type declaration.
type Decl struct {
	Line uint64 `json:"line"`
	Name string `json:"name"`
}

// Index holds declarations keyed by source path.
type Index struct {
	files map[string]map[Decl]struct{}

	// Units counts units indexed; Skipped counts units dropped after a
	// decode error.
	Units   int
	Skipped int
}

// Options configures Build.
type Options struct {
	Logger zerolog.Logger
	// MaxDepth bounds namespace and type nesting; zero means unbounded.
	MaxDepth int
}

// Build indexes every type unit and then every compilation unit of s. A unit
// that fails to decode is logged and skipped; an error that stops unit
// enumeration ends the scan with the declarations gathered so far.
func Build(ctx context.Context, s *dwarf.Session, opts Options) (*Index, error) {
	logger := opts.Logger.With().Str("component", "typeindex").Logger()
	idx := &Index{files: map[string]map[Decl]struct{}{}}

	readers := []*dwarf.UnitReader{s.Units()}
	if s.HasSection(dwarf.SectionTypes) {
		readers = append([]*dwarf.UnitReader{s.TypeUnits()}, readers...)
	}

	for _, r := range readers {
		for u, err := range r.All() {
			if cerr := ctx.Err(); cerr != nil {
				return idx, cerr
			}
			if err != nil {
				logger.Warn().Err(err).Msg("Stopped enumerating units")
				return idx, err
			}
			if err := idx.addUnit(u, opts.MaxDepth); err != nil {
				if errors.Is(err, dwarf.ErrInvalidState) {
					return idx, err
				}
				logger.Warn().
					Err(err).
					Str("section", u.Section).
					Uint64("offset", u.Offset).
					Msg("Skipping unit")
				idx.Skipped++
				continue
			}
			idx.Units++
		}
	}

	logger.Debug().
		Int("units", idx.Units).
		Int("skipped", idx.Skipped).
		Int("files", len(idx.files)).
		Msg("Built type index")
	return idx, nil
}

type walker struct {
	idx      *Index
	prog     *dwarf.LineProgram
	maxDepth int
	parents  []string
}

func (idx *Index) addUnit(u *dwarf.Unit, maxDepth int) error {
	root, err := u.Root()
	if err != nil {
		return err
	}

	w := &walker{idx: idx, maxDepth: maxDepth}
	if root.Has(dwarf.AttrStmtList) {
		if w.prog, err = u.LineProgram(); err != nil {
			return err
		}
	}
	return w.children(root)
}

func (w *walker) children(parent *dwarf.Entry) error {
	if w.maxDepth > 0 && len(w.parents) >= w.maxDepth {
		return nil
	}
	for e, err := range parent.ChildEntries() {
		if err != nil {
			return err
		}
		if err := w.entry(e); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) entry(e *dwarf.Entry) error {
	var name string
	if e.Has(dwarf.AttrName) {
		var err error
		if name, err = e.Name(); err != nil {
			return err
		}
	}

	switch e.Tag {
	case dwarf.TagNamespace:
		if name == "" {
			name = AnonymousNamespace
		}
		return w.nested(e, name)

	case dwarf.TagClassType, dwarf.TagStructureType, dwarf.TagUnionType, dwarf.TagEnumerationType:
		file, err := w.declFile(e)
		if err != nil {
			return err
		}
		var line uint64
		if e.Has(dwarf.AttrDeclLine) {
			if line, err = e.Uint(dwarf.AttrDeclLine); err != nil {
				return err
			}
		}
		if name == "" || file == "" || line == 0 {
			return nil
		}
		w.idx.add(file, Decl{Line: line, Name: strings.Join(append(w.parents, name), "::")})
		return w.nested(e, name)
	}
	return nil
}

func (w *walker) nested(e *dwarf.Entry, name string) error {
	w.parents = append(w.parents, name)
	err := w.children(e)
	w.parents = w.parents[:len(w.parents)-1]
	return err
}

func (w *walker) declFile(e *dwarf.Entry) (string, error) {
	if w.prog == nil || !e.Has(dwarf.AttrDeclFile) {
		return "", nil
	}
	idx, err := e.Uint(dwarf.AttrDeclFile)
	if err != nil {
		return "", err
	}
	return w.prog.FileName(idx)
}

func (idx *Index) add(file string, d Decl) {
	decls, ok := idx.files[file]
	if !ok {
		decls = map[Decl]struct{}{}
		idx.files[file] = decls
	}
	decls[d] = struct{}{}
}

// Files returns the indexed source paths in sorted order.
func (idx *Index) Files() []string {
	files := make([]string, 0, len(idx.files))
	for f := range idx.files {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Decls returns the declarations of file ordered by line, then name.
func (idx *Index) Decls(file string) []Decl {
	decls := make([]Decl, 0, len(idx.files[file]))
	for d := range idx.files[file] {
		decls = append(decls, d)
	}
	sort.Slice(decls, func(i, j int) bool {
		if decls[i].Line != decls[j].Line {
			return decls[i].Line < decls[j].Line
		}
		return decls[i].Name < decls[j].Name
	})
	return decls
}

// Map returns the index as file → sorted declarations.
func (idx *Index) Map() map[string][]Decl {
	out := make(map[string][]Decl, len(idx.files))
	for f := range idx.files {
		out[f] = idx.Decls(f)
	}
	return out
}

// WriteJSON writes the index as an object keyed by source path. The output
// is byte-for-byte stable for a given input.
func (idx *Index) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(idx.Map())
}
