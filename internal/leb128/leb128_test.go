package leb128

import (
	"testing"
)

func TestDecodeULEB128(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		wantValue uint64
		wantN     int
	}{
		{"zero", []byte{0x00}, 0, 1},
		{"one", []byte{0x01}, 1, 1},
		{"127", []byte{0x7f}, 127, 1},
		{"128", []byte{0x80, 0x01}, 128, 2},
		{"255", []byte{0xff, 0x01}, 255, 2},
		{"624485", []byte{0xe5, 0x8e, 0x26}, 624485, 3},
		{"trailing bytes ignored", []byte{0x02, 0x99}, 2, 1},
		{"truncated", []byte{0x80, 0x80}, 0, 0},
		{"empty", []byte{}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n := DecodeULEB128(tt.data)
			if got != tt.wantValue {
				t.Errorf("value = %d, want %d", got, tt.wantValue)
			}
			if n != tt.wantN {
				t.Errorf("consumed = %d, want %d", n, tt.wantN)
			}
		})
	}
}

func TestDecodeSLEB128(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		wantValue int64
		wantN     int
	}{
		{"zero", []byte{0x00}, 0, 1},
		{"63", []byte{0x3f}, 63, 1},
		{"-1", []byte{0x7f}, -1, 1},
		{"-8", []byte{0x78}, -8, 1},
		{"127", []byte{0xff, 0x00}, 127, 2},
		{"-128", []byte{0x80, 0x7f}, -128, 2},
		{"-123456", []byte{0xc0, 0xbb, 0x78}, -123456, 3},
		{"truncated", []byte{0xff}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n := DecodeSLEB128(tt.data)
			if got != tt.wantValue {
				t.Errorf("value = %d, want %d", got, tt.wantValue)
			}
			if n != tt.wantN {
				t.Errorf("consumed = %d, want %d", n, tt.wantN)
			}
		})
	}
}

func TestAppendRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 300, 1 << 20, 1<<63 + 5} {
		enc := AppendULEB128(nil, v)
		got, n := DecodeULEB128(enc)
		if got != v || n != len(enc) {
			t.Errorf("ULEB %d: got %d (n=%d, len=%d)", v, got, n, len(enc))
		}
	}
	for _, v := range []int64{0, 1, -1, 63, -64, 64, -65, 1 << 40, -(1 << 40)} {
		enc := AppendSLEB128(nil, v)
		got, n := DecodeSLEB128(enc)
		if got != v || n != len(enc) {
			t.Errorf("SLEB %d: got %d (n=%d, len=%d)", v, got, n, len(enc))
		}
	}
}
