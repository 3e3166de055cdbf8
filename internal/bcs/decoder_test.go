package bcs

import "testing"

func TestReadULEB128(t *testing.T) {
	cases := []struct {
		in   []byte
		want uint64
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x7f}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xe5, 0x8e, 0x26}, 624485},
	}
	for _, c := range cases {
		d := NewDecoder(c.in)
		got, err := d.ReadULEB128()
		if err != nil {
			t.Fatalf("ReadULEB128(%v): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ReadULEB128(%v) = %d, want %d", c.in, got, c.want)
		}
		if d.Remaining() != 0 {
			t.Errorf("ReadULEB128(%v) left %d bytes unread", c.in, d.Remaining())
		}
	}
}

func TestReadU64LittleEndian(t *testing.T) {
	d := NewDecoder([]byte{1, 0, 0, 0, 0, 0, 0, 0})
	got, err := d.ReadU64()
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("ReadU64 = %d, want 1", got)
	}
}

func TestReadBytesVector(t *testing.T) {
	// length 3 uleb128, then 3 raw bytes
	d := NewDecoder([]byte{3, 0xaa, 0xbb, 0xcc})
	got, err := d.ReadBytes()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0xaa, 0xbb, 0xcc}
	if len(got) != len(want) {
		t.Fatalf("ReadBytes length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ReadBytes[%d] = %x, want %x", i, got[i], want[i])
		}
	}
}

func TestReadShortBufferError(t *testing.T) {
	d := NewDecoder([]byte{1, 2})
	if _, err := d.ReadU64(); err == nil {
		t.Fatal("expected short buffer error, got nil")
	}
}

func TestReadAddressRoundTrip(t *testing.T) {
	raw := make([]byte, 16)
	raw[15] = 0x42
	d := NewDecoder(raw)
	addr, err := d.ReadAddress()
	if err != nil {
		t.Fatal(err)
	}
	if addr.String() != "0x00000000000000000000000000000042" {
		t.Errorf("unexpected address rendering: %s", addr.String())
	}
}
