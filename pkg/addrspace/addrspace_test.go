package addrspace

import (
	"bytes"
	"errors"
	"testing"

	"github.com/go-delve/dumpview/pkg/platform"
)

// parent returns a source whose byte at offset i is i, for i < 200.
func parent() Bytes {
	b := make(Bytes, 200)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func TestSplicedReader(t *testing.T) {
	// Regions with base 0 read the first half of the parent, regions with
	// base 100 the second half, so that the source of every byte read is
	// visible in the result.
	const data, data2 = 0, 100

	type reg struct {
		base   uint64
		addr   uint64
		length uint64
	}
	tests := []struct {
		name     string
		regions  []reg
		readAddr uint64
		readLen  uint64
		want     []byte
	}{
		{
			"Insert after",
			[]reg{
				{data, 0, 1},
				{data2, 1, 1},
			},
			0,
			2,
			[]byte{0, 101},
		},
		{
			"Insert before",
			[]reg{
				{data, 1, 1},
				{data2, 0, 1},
			},
			0,
			2,
			[]byte{100, 1},
		},
		{
			"Completely overwrite",
			[]reg{
				{data, 1, 1},
				{data2, 0, 3},
			},
			0,
			3,
			[]byte{100, 101, 102},
		},
		{
			"Overwrite end",
			[]reg{
				{data, 0, 2},
				{data2, 1, 2},
			},
			0,
			3,
			[]byte{0, 101, 102},
		},
		{
			"Overwrite start",
			[]reg{
				{data, 0, 3},
				{data2, 0, 2},
			},
			0,
			3,
			[]byte{100, 101, 2},
		},
		{
			"Punch hole",
			[]reg{
				{data, 0, 5},
				{data2, 1, 3},
			},
			0,
			5,
			[]byte{0, 101, 102, 103, 4},
		},
		{
			"Overlap two",
			[]reg{
				{data, 10, 4},
				{data, 14, 4},
				{data2, 12, 4},
			},
			10,
			8,
			[]byte{10, 11, 112, 113, 114, 115, 16, 17},
		},
		{
			"Adjacent read",
			[]reg{
				{data, 0, 4},
				{data2, 4, 4},
			},
			4,
			2,
			[]byte{104, 105},
		},
		{
			"Stop at hole",
			[]reg{
				{data, 0, 2},
				{data, 5, 2},
			},
			0,
			7,
			[]byte{0, 1},
		},
	}
	src := parent()
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var mem splicedMemory
			for _, r := range test.regions {
				mem.Add(r.base+r.addr, r.addr, r.length)
			}
			got, err := mem.Read(src, test.readAddr, test.readLen)
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if !bytes.Equal(got, test.want) {
				t.Errorf("Read = %v, want %v", got, test.want)
			}
		})
	}
}

func TestSplicedReaderUnmapped(t *testing.T) {
	var mem splicedMemory
	mem.Add(0, 0x10, 0x10)
	for _, addr := range []uint64{0, 0xf, 0x20, 0x1000} {
		if got, err := mem.Read(parent(), addr, 4); err == nil {
			t.Errorf("read at %#x succeeded: %v", addr, got)
		}
	}
}

func TestAddAutoSegment(t *testing.T) {
	v := New(parent())
	tests := []struct {
		virt, file Range
		err        error
	}{
		{Range{0x1000, 0x1010}, Range{0x10, 0x20}, nil},
		{Range{0x1000, 0x1000}, Range{0x10, 0x10}, ErrEmptySegment},
		{Range{0x1010, 0x1000}, Range{0x10, 0x20}, ErrInvertedRange},
		{Range{0x1000, 0x1010}, Range{0x20, 0x10}, ErrInvertedRange},
		{Range{0x1000, 0x1010}, Range{0x10, 0x30}, ErrLengthMismatch},
		{Range{0x1000, 0x1010}, Range{195, 211}, ErrOutsideParent},
		{Range{0x2000, 0x2008}, Range{192, 200}, nil},
	}
	for _, tc := range tests {
		err := v.AddAutoSegment(tc.virt, tc.file)
		if !errors.Is(err, tc.err) {
			t.Errorf("AddAutoSegment(%v, %v): expected %v got %v", tc.virt, tc.file, tc.err, err)
		}
	}

	segs := v.Segments()
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments got %d: %v", len(segs), segs)
	}
	if segs[0].Virtual != (Range{0x1000, 0x1010}) || segs[1].File != (Range{192, 200}) || !segs[0].Auto {
		t.Errorf("wrong segments %v", segs)
	}
	if v.Len() != 0x2008 {
		t.Errorf("expected length %#x got %#x", 0x2008, v.Len())
	}
}

func TestViewShadowing(t *testing.T) {
	v := New(parent())
	if err := v.AddAutoSegment(Range{0x400000, 0x400010}, Range{0, 0x10}); err != nil {
		t.Fatal(err)
	}
	if err := v.AddAutoSegment(Range{0x400004, 0x400008}, Range{100, 104}); err != nil {
		t.Fatal(err)
	}
	got, err := v.ReadBuffer(0x400002, 8)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{2, 3, 100, 101, 102, 103, 8, 9}
	if !bytes.Equal(got, want) {
		t.Errorf("ReadBuffer = %v, want %v", got, want)
	}
	if _, err := v.ReadBuffer(0x3fffff, 1); err == nil {
		t.Errorf("read before first segment succeeded")
	}
}

func TestViewProperties(t *testing.T) {
	v := New(Bytes("MDMP"))
	if v.DefaultPlatform() != nil {
		t.Errorf("new view has a platform: %v", v.DefaultPlatform())
	}
	p, _ := platform.Default().ByName("linux-x86_64")
	v.SetDefaultPlatform(p)
	if v.DefaultPlatform() != p {
		t.Errorf("expected platform %v got %v", p, v.DefaultPlatform())
	}
	if v.AddressSize() != 0 || v.EntryPoint() != 0 {
		t.Errorf("address size %d entry point %#x", v.AddressSize(), v.EntryPoint())
	}
	if v.DefaultEndianness().String() != "LittleEndian" {
		t.Errorf("endianness %v", v.DefaultEndianness())
	}
	if v.Parent().Len() != 4 {
		t.Errorf("parent length %d", v.Parent().Len())
	}
}

func TestBytesShortRead(t *testing.T) {
	b := Bytes("MDM")
	for _, tc := range []struct {
		off, n uint64
		want   string
	}{
		{0, 4, "MDM"},
		{1, 1, "D"},
		{3, 4, ""},
		{10, 4, ""},
	} {
		got, err := b.ReadBuffer(tc.off, tc.n)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != tc.want {
			t.Errorf("ReadBuffer(%d, %d) = %q, want %q", tc.off, tc.n, got, tc.want)
		}
	}
}
