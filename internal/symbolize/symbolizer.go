// Package symbolize resolves code addresses to functions and source
// positions using an object file's DWARF.
package symbolize

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/dwarfkit/pkg/dwarf"
)

// Symbol represents a resolved address.
type Symbol struct {
	Function string
	// Inlined reports that Function is an inlined subroutine.
	Inlined bool
	File    string
	Line    uint64
	Column  uint64
	// Unit is the .debug_info offset of the unit describing the address.
	Unit uint64
}

// Options configures a Symbolizer.
type Options struct {
	Logger zerolog.Logger
	// Bias is subtracted from every address before lookup, for objects
	// loaded away from their link address.
	Bias uint64
}

type funcRange struct {
	dwarf.Range
	name    string
	inlined bool
	unit    uint64
}

type lineSpan struct {
	dwarf.Range
	file   string
	line   uint64
	column uint64
	unit   uint64
}

// Symbolizer resolves addresses against one Session. The function and line
// tables are built on first use and results are cached per address. Resolve
// is safe for concurrent use.
type Symbolizer struct {
	s      *dwarf.Session
	bias   uint64
	logger zerolog.Logger

	loadOnce sync.Once
	loadErr  error
	funcs    []funcRange
	lines    []lineSpan

	mu    sync.RWMutex
	cache map[uint64]Symbol
}

// New creates a symbolizer over s. The session stays owned by the caller.
func New(s *dwarf.Session, opts Options) *Symbolizer {
	return &Symbolizer{
		s:      s,
		bias:   opts.Bias,
		logger: opts.Logger.With().Str("component", "symbolizer").Logger(),
		cache:  make(map[uint64]Symbol),
	}
}

// Resolve returns the innermost function covering addr together with the
// line-table row in effect there. Either half may be missing; an address
// matching neither fails with dwarf.ErrNotFound.
func (z *Symbolizer) Resolve(addr uint64) (Symbol, error) {
	z.mu.RLock()
	if sym, ok := z.cache[addr]; ok {
		z.mu.RUnlock()
		return sym, nil
	}
	z.mu.RUnlock()

	z.loadOnce.Do(func() { z.loadErr = z.load() })
	if z.loadErr != nil {
		return Symbol{}, z.loadErr
	}

	pc := addr - z.bias
	sym, ok := z.lookup(pc)
	if !ok {
		return Symbol{}, fmt.Errorf("no symbol for address 0x%x (pc 0x%x): %w", addr, pc, dwarf.ErrNotFound)
	}

	z.mu.Lock()
	z.cache[addr] = sym
	z.mu.Unlock()
	return sym, nil
}

func (z *Symbolizer) lookup(pc uint64) (Symbol, bool) {
	var sym Symbol
	found := false

	// innermost = narrowest covering range
	var best *funcRange
	for i := range z.funcs {
		f := &z.funcs[i]
		if pc < f.Low || pc >= f.High {
			continue
		}
		if best == nil || f.High-f.Low < best.High-best.Low {
			best = f
		}
	}
	if best != nil {
		sym.Function, sym.Inlined, sym.Unit = best.name, best.inlined, best.unit
		found = true
	}

	i := sort.Search(len(z.lines), func(i int) bool { return z.lines[i].Low > pc })
	if i > 0 {
		if l := z.lines[i-1]; pc < l.High {
			sym.File, sym.Line, sym.Column = l.file, l.line, l.column
			if !found {
				sym.Unit = l.unit
			}
			found = true
		}
	}
	return sym, found
}

// load indexes every unit. Units that fail to decode are skipped with a
// warning; only a closed session aborts.
func (z *Symbolizer) load() error {
	for u, err := range z.s.Units().All() {
		if err != nil {
			if errors.Is(err, dwarf.ErrInvalidState) {
				return err
			}
			z.logger.Warn().Err(err).Msg("Stopped enumerating units")
			break
		}
		if err := z.loadFuncs(u); err != nil {
			if errors.Is(err, dwarf.ErrInvalidState) {
				return err
			}
			z.logger.Warn().Err(err).Uint64("unit", u.Offset).Msg("Skipping functions of unit")
		}
		if err := z.loadLines(u); err != nil {
			if errors.Is(err, dwarf.ErrInvalidState) {
				return err
			}
			z.logger.Warn().Err(err).Uint64("unit", u.Offset).Msg("Skipping line table of unit")
		}
	}

	sort.Slice(z.lines, func(i, j int) bool { return z.lines[i].Low < z.lines[j].Low })
	z.logger.Debug().
		Int("functions", len(z.funcs)).
		Int("line_spans", len(z.lines)).
		Msg("Symbol tables loaded")
	return nil
}

func (z *Symbolizer) loadFuncs(u *dwarf.Unit) error {
	root, err := u.Root()
	if err != nil {
		return err
	}
	return dwarf.Walk(root, func(e *dwarf.Entry, depth int) error {
		if e.Tag != dwarf.TagSubprogram && e.Tag != dwarf.TagInlinedSubroutine {
			return nil
		}
		ranges, err := e.Ranges()
		if err != nil {
			return err
		}
		if len(ranges) == 0 {
			return nil
		}
		name, err := funcName(e)
		if err != nil {
			return err
		}
		for _, r := range ranges {
			if r.High <= r.Low {
				continue
			}
			z.funcs = append(z.funcs, funcRange{
				Range:   r,
				name:    name,
				inlined: e.Tag == dwarf.TagInlinedSubroutine,
				unit:    u.Offset,
			})
		}
		return nil
	})
}

// funcName follows DW_AT_abstract_origin and DW_AT_specification to the
// entry carrying a name, falling back to the linkage name.
func funcName(e *dwarf.Entry) (string, error) {
	for hops := 0; e != nil && hops < 8; hops++ {
		for _, a := range []dwarf.Attr{dwarf.AttrName, dwarf.AttrLinkageName, dwarf.AttrMIPSLinkageName} {
			if e.Has(a) {
				return e.String(a)
			}
		}
		var next dwarf.Attr
		switch {
		case e.Has(dwarf.AttrAbstractOrigin):
			next = dwarf.AttrAbstractOrigin
		case e.Has(dwarf.AttrSpecification):
			next = dwarf.AttrSpecification
		default:
			return "", nil
		}
		var err error
		if e, err = e.Deref(next); err != nil {
			return "", err
		}
	}
	return "", nil
}

func (z *Symbolizer) loadLines(u *dwarf.Unit) error {
	p, err := u.LineProgram()
	if errors.Is(err, dwarf.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	rows, err := p.Rows()
	if err != nil {
		return err
	}

	names := map[uint64]string{}
	for i := 0; i+1 < len(rows); i++ {
		r, next := rows[i], rows[i+1]
		if r.EndSequence || next.Address <= r.Address {
			continue
		}
		file, ok := names[r.File]
		if !ok {
			if file, err = p.FileName(r.File); err != nil {
				file = ""
			}
			names[r.File] = file
		}
		z.lines = append(z.lines, lineSpan{
			Range:  dwarf.Range{Low: r.Address, High: next.Address},
			file:   file,
			line:   r.Line,
			column: r.Column,
			unit:   u.Offset,
		})
	}
	return nil
}

// FormatSymbol formats a symbol for display.
func FormatSymbol(sym Symbol) string {
	name := sym.Function
	if name == "" {
		name = "??"
	}
	if sym.Inlined {
		name += " [inlined]"
	}
	if sym.File != "" && sym.Line > 0 {
		return fmt.Sprintf("%s (%s:%d)", name, sym.File, sym.Line)
	}
	return name
}
