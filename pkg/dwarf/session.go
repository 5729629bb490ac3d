package dwarf

import (
	"encoding/binary"
	"io"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Session owns an object file's debug sections and every view derived from
// them. Units, entries and attribute values borrow the Session's bytes and
// stop working once it is closed.
//
// Decoding is single-threaded per Session; only the abbreviation cache is
// safe for concurrent use. Open independent Sessions to decode in parallel.
type Session struct {
	id        uuid.UUID
	logger    zerolog.Logger
	sec       Sections
	order     binary.ByteOrder
	container Container
	closer    io.Closer
	closed    atomic.Bool

	abbrevs abbrevCache

	indexMu   sync.Mutex
	unitIndex []*Unit // .debug_info units sorted by offset, built on demand
	indexErr  error
	typeSigs  map[uint64]*Unit
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for diagnostics. The default discards.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// Open opens the object file at path and loads its debug sections.
func Open(path string, opts ...Option) (*Session, error) {
	f, err := os.Open(path) // #nosec G304: caller chooses the file to inspect
	if err != nil {
		return nil, ioError("open", err)
	}
	s, err := newSession(f, f, opts...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	s.logger.Debug().Str("path", path).Msg("Opened object file")
	return s, nil
}

// NewSession loads debug sections from an already open object file. The
// caller keeps ownership of r; Close does not close it.
func NewSession(r io.ReaderAt, opts ...Option) (*Session, error) {
	return newSession(r, nil, opts...)
}

func newSession(r io.ReaderAt, closer io.Closer, opts ...Option) (*Session, error) {
	sec, kind, err := loadSections(r)
	if err != nil {
		return nil, err
	}
	s, err := build(sec, kind, opts...)
	if err != nil {
		return nil, err
	}
	s.closer = closer
	return s, nil
}

// FromSections creates a Session over section bytes already in memory.
func FromSections(sec Sections, opts ...Option) (*Session, error) {
	return build(sec, ContainerRaw, opts...)
}

func build(sec Sections, kind Container, opts ...Option) (*Session, error) {
	if sec.Info == nil {
		return nil, formatError("open", "missing "+SectionInfo)
	}
	if sec.Abbrev == nil {
		return nil, formatError("open", "missing "+SectionAbbrev)
	}
	if sec.ByteOrder == nil {
		sec.ByteOrder = binary.LittleEndian
	}

	s := &Session{
		id:        uuid.New(),
		logger:    zerolog.Nop(),
		sec:       sec,
		order:     sec.ByteOrder,
		container: kind,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().
		Str("component", "session").
		Str("session", s.id.String()).
		Logger()
	s.abbrevs.init(s)

	present := make([]string, 0, len(knownSections))
	for _, name := range knownSections {
		if sec.Data(name) != nil {
			present = append(present, name)
		}
	}
	s.logger.Debug().
		Str("container", string(kind)).
		Strs("sections", present).
		Int("info_bytes", len(sec.Info)).
		Msg("Loaded debug sections")

	return s, nil
}

// Close releases the underlying file. It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.abbrevs.reset()
	s.logger.Debug().Msg("Session closed")
	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			return ioError("close", err)
		}
	}
	return nil
}

func (s *Session) check() error {
	if s.closed.Load() {
		return errClosed
	}
	return nil
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id.String()
}

// Container reports the object file format the session was loaded from.
func (s *Session) Container() Container {
	return s.container
}

// ByteOrder is the byte order of the debug sections.
func (s *Session) ByteOrder() binary.ByteOrder {
	return s.order
}

// HasSection reports whether the named section is present.
func (s *Session) HasSection(name string) bool {
	return s.sec.Data(name) != nil
}

// SectionSize returns the size of the named section, zero when absent.
func (s *Session) SectionSize(name string) int {
	return len(s.sec.Data(name))
}

// units returns every .debug_info unit, sorted by offset. The index is built
// once; a corrupt unit truncates it and the error is kept for later callers.
func (s *Session) units() ([]*Unit, error) {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	if s.unitIndex != nil || s.indexErr != nil {
		return s.unitIndex, s.indexErr
	}
	r := s.Units()
	idx := []*Unit{}
	for {
		u, err := r.Next()
		if err != nil {
			s.indexErr = err
			break
		}
		if u == nil {
			break
		}
		idx = append(idx, u)
	}
	s.unitIndex = idx
	return s.unitIndex, s.indexErr
}

// UnitContaining returns the .debug_info unit whose extent covers the
// section offset off.
func (s *Session) UnitContaining(off uint64) (*Unit, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if off >= uint64(len(s.sec.Info)) {
		return nil, corruptf(SectionInfo, off, "offset outside section (size 0x%x)", len(s.sec.Info))
	}
	idx, err := s.units()
	i := sort.Search(len(idx), func(i int) bool { return idx[i].End > off })
	if i < len(idx) && idx[i].Offset <= off {
		return idx[i], nil
	}
	if err != nil {
		return nil, err
	}
	return nil, notFoundf(SectionInfo, off, "no unit covers offset")
}

// EntryAt decodes the entry at a .debug_info section offset, as used by
// DW_FORM_ref_addr.
func (s *Session) EntryAt(off uint64) (*Entry, error) {
	u, err := s.UnitContaining(off)
	if err != nil {
		return nil, err
	}
	return u.EntryAt(off)
}

// TypeUnitBySignature finds the type unit with the given 8-byte signature in
// .debug_types or among DWARF 5 type units of .debug_info.
func (s *Session) TypeUnitBySignature(sig uint64) (*Unit, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	s.indexMu.Lock()
	built := s.typeSigs != nil
	s.indexMu.Unlock()

	if !built {
		sigs := map[uint64]*Unit{}
		collect := func(r *UnitReader) {
			for u, err := range r.All() {
				if err != nil {
					s.logger.Debug().Err(err).Msg("Stopped scanning type units")
					return
				}
				if u.Type == UnitTypeUnit || u.Type == UnitSplitType {
					sigs[u.Signature] = u
				}
			}
		}
		if s.sec.Types != nil {
			collect(s.TypeUnits())
		}
		collect(s.Units())

		s.indexMu.Lock()
		s.typeSigs = sigs
		s.indexMu.Unlock()
	}

	s.indexMu.Lock()
	u, ok := s.typeSigs[sig]
	s.indexMu.Unlock()
	if !ok {
		return nil, notFoundf("", 0, "no type unit with signature 0x%016x", sig)
	}
	return u, nil
}
