// Package leb128 decodes and encodes the variable-length integers used
// throughout DWARF.
package leb128

// DecodeULEB128 follows figure 46 of the DWARF 4 standard.
//
// It returns the decoded value and the number of bytes consumed from the
// encoded slice. The count is zero when encoded ends before a byte with the
// continuation bit clear.
func DecodeULEB128(encoded []byte) (uint64, int) {
	var result uint64
	var shift uint

	for i, v := range encoded {
		if shift < 64 {
			result |= uint64(v&0x7f) << shift
		}
		if v&0x80 == 0x00 {
			return result, i + 1
		}
		shift += 7
	}

	return 0, 0
}

// DecodeSLEB128 follows figure 47 of the DWARF 4 standard. Byte counts
// behave as for DecodeULEB128.
func DecodeSLEB128(encoded []byte) (int64, int) {
	const size = 64

	var result int64
	var shift uint

	for i, v := range encoded {
		if shift < size {
			result |= int64(v&0x7f) << shift
		}
		shift += 7
		if v&0x80 == 0x00 {
			// sign extend from the last byte
			if shift < size && v&0x40 != 0 {
				result |= -(1 << shift)
			}
			return result, i + 1
		}
	}

	return 0, 0
}

// AppendULEB128 appends the encoding of v to b.
func AppendULEB128(b []byte, v uint64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b = append(b, c)
		if v == 0 {
			return b
		}
	}
}

// AppendSLEB128 appends the encoding of v to b.
func AppendSLEB128(b []byte, v int64) []byte {
	for {
		c := byte(v & 0x7f)
		s := c & 0x40
		v >>= 7
		if (v != -1 || s == 0) && (v != 0 || s != 0) {
			c |= 0x80
		}
		b = append(b, c)
		if c&0x80 == 0 {
			return b
		}
	}
}
