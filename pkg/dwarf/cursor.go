package dwarf

import (
	"bytes"
	"encoding/binary"

	"github.com/coral-mesh/dwarfkit/internal/leb128"
)

// cursor reads forward through one section between off and end. Offsets are
// absolute within the section so errors can report them directly.
type cursor struct {
	section string
	data    []byte
	order   binary.ByteOrder
	off     uint64
	end     uint64
}

func newCursor(section string, data []byte, order binary.ByteOrder, off, end uint64) *cursor {
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}
	return &cursor{section: section, data: data, order: order, off: off, end: end}
}

func (c *cursor) atEnd() bool {
	return c.off >= c.end
}

func (c *cursor) remaining() uint64 {
	if c.off >= c.end {
		return 0
	}
	return c.end - c.off
}

func (c *cursor) rest() []byte {
	if c.off >= c.end {
		return nil
	}
	return c.data[c.off:c.end]
}

func (c *cursor) need(n uint64, what string) error {
	if c.remaining() < n {
		return corruptf(c.section, c.off, "truncated %s: need %d bytes, have %d", what, n, c.remaining())
	}
	return nil
}

func (c *cursor) skip(n uint64, what string) error {
	if err := c.need(n, what); err != nil {
		return err
	}
	c.off += n
	return nil
}

func (c *cursor) u8(what string) (uint8, error) {
	if err := c.need(1, what); err != nil {
		return 0, err
	}
	v := c.data[c.off]
	c.off++
	return v, nil
}

func (c *cursor) u16(what string) (uint16, error) {
	if err := c.need(2, what); err != nil {
		return 0, err
	}
	v := c.order.Uint16(c.data[c.off:])
	c.off += 2
	return v, nil
}

func (c *cursor) u32(what string) (uint32, error) {
	if err := c.need(4, what); err != nil {
		return 0, err
	}
	v := c.order.Uint32(c.data[c.off:])
	c.off += 4
	return v, nil
}

func (c *cursor) u64(what string) (uint64, error) {
	if err := c.need(8, what); err != nil {
		return 0, err
	}
	v := c.order.Uint64(c.data[c.off:])
	c.off += 8
	return v, nil
}

// uint reads an unsigned integer of 1, 2, 3, 4 or 8 bytes.
func (c *cursor) uint(size int, what string) (uint64, error) {
	switch size {
	case 1:
		v, err := c.u8(what)
		return uint64(v), err
	case 2:
		v, err := c.u16(what)
		return uint64(v), err
	case 3:
		if err := c.need(3, what); err != nil {
			return 0, err
		}
		b := c.data[c.off : c.off+3]
		c.off += 3
		if c.order == binary.BigEndian {
			return uint64(b[0])<<16 | uint64(b[1])<<8 | uint64(b[2]), nil
		}
		return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16, nil
	case 4:
		v, err := c.u32(what)
		return uint64(v), err
	case 8:
		return c.u64(what)
	}
	return 0, unsupportedf(c.section, c.off, "%d-byte %s", size, what)
}

func (c *cursor) uleb(what string) (uint64, error) {
	v, n := leb128.DecodeULEB128(c.rest())
	if n == 0 {
		return 0, corruptf(c.section, c.off, "truncated ULEB128 %s", what)
	}
	c.off += uint64(n)
	return v, nil
}

func (c *cursor) sleb(what string) (int64, error) {
	v, n := leb128.DecodeSLEB128(c.rest())
	if n == 0 {
		return 0, corruptf(c.section, c.off, "truncated SLEB128 %s", what)
	}
	c.off += uint64(n)
	return v, nil
}

func (c *cursor) bytes(n uint64, what string) ([]byte, error) {
	if err := c.need(n, what); err != nil {
		return nil, err
	}
	b := c.data[c.off : c.off+n : c.off+n]
	c.off += n
	return b, nil
}

// cstring reads a NUL-terminated string; the terminator must lie before end.
func (c *cursor) cstring(what string) (string, error) {
	i := bytes.IndexByte(c.rest(), 0)
	if i < 0 {
		return "", corruptf(c.section, c.off, "unterminated %s", what)
	}
	s := string(c.data[c.off : c.off+uint64(i)])
	c.off += uint64(i) + 1
	return s, nil
}

// offset reads a section offset of the unit's offset size.
func (c *cursor) offset(size uint8, what string) (uint64, error) {
	if size == 8 {
		return c.u64(what)
	}
	v, err := c.u32(what)
	return uint64(v), err
}

// initialLength reads a unit length field and reports the offset size it
// implies. The 64-bit escape is 0xffffffff; 0xfffffff0-0xfffffffe are
// reserved.
func (c *cursor) initialLength() (uint64, uint8, error) {
	l, err := c.u32("unit length")
	if err != nil {
		return 0, 0, err
	}
	switch {
	case l == 0xffffffff:
		l64, err := c.u64("64-bit unit length")
		return l64, 8, err
	case l >= 0xfffffff0:
		return 0, 0, unsupportedf(c.section, c.off-4, "reserved unit length 0x%x", l)
	}
	return uint64(l), 4, nil
}

// stringAt reads a NUL-terminated string at off in data.
func stringAt(section string, data []byte, off uint64) (string, error) {
	if data == nil {
		return "", notFoundf(section, off, "section not present")
	}
	if off >= uint64(len(data)) {
		return "", corruptf(section, off, "string offset outside section (size 0x%x)", len(data))
	}
	i := bytes.IndexByte(data[off:], 0)
	if i < 0 {
		return "", corruptf(section, off, "unterminated string")
	}
	return string(data[off : off+uint64(i)]), nil
}
