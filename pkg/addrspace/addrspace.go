// Package addrspace implements the address space a crash dump is mapped
// into: a parent byte source holding the dump, a default platform and a
// list of segments mapping virtual address ranges to ranges of the parent.
package addrspace

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/go-delve/dumpview/pkg/logflags"
	"github.com/go-delve/dumpview/pkg/platform"
)

// Range is the half-open interval [Start, End).
type Range struct {
	Start, End uint64
}

// Len returns the number of bytes in r, zero for an inverted range.
func (r Range) Len() uint64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Contains returns true if addr is inside r.
func (r Range) Contains(addr uint64) bool {
	return addr >= r.Start && addr < r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[%#x, %#x)", r.Start, r.End)
}

// Source is a random access byte source.
type Source interface {
	// ReadBuffer returns up to n bytes starting at off. Fewer bytes are
	// returned when the source ends before off+n.
	ReadBuffer(off, n uint64) ([]byte, error)
	// Len returns the size of the source.
	Len() uint64
}

// Bytes is a Source backed by a byte slice.
type Bytes []byte

// ReadBuffer implements Source.
func (b Bytes) ReadBuffer(off, n uint64) ([]byte, error) {
	if off >= uint64(len(b)) {
		return nil, nil
	}
	end := uint64(len(b))
	if n < end-off {
		end = off + n
	}
	return b[off:end], nil
}

// Len implements Source.
func (b Bytes) Len() uint64 {
	return uint64(len(b))
}

// Segment maps a range of the virtual address space to a range of the
// parent source.
type Segment struct {
	Virtual Range
	File    Range
	// Auto is set for segments derived from the contents of the parent
	// rather than from a user request.
	Auto bool
}

var (
	ErrEmptySegment   = errors.New("zero length segment")
	ErrInvertedRange  = errors.New("range end before range start")
	ErrLengthMismatch = errors.New("virtual and file ranges have different lengths")
	ErrOutsideParent  = errors.New("file range outside of parent")
)

// View is an address space reconstructed on top of a parent source.
//
// Reads through View hit the segment registered last among those covering
// an address.
type View struct {
	parent   Source
	platform *platform.Platform
	segments []Segment
	mem      splicedMemory
	log      logflags.Logger
}

// New returns an empty View on top of parent.
func New(parent Source) *View {
	return &View{parent: parent, log: logflags.AddrspaceLogger()}
}

// Parent returns the source the view was created on.
func (v *View) Parent() Source {
	return v.parent
}

// SetDefaultPlatform sets the platform of the code in the view.
func (v *View) SetDefaultPlatform(p *platform.Platform) {
	v.log.Debugf("default platform %s", p)
	v.platform = p
}

// DefaultPlatform returns the platform set by SetDefaultPlatform, or nil.
func (v *View) DefaultPlatform() *platform.Platform {
	return v.platform
}

// AddAutoSegment maps virt to the range file of the parent source.
func (v *View) AddAutoSegment(virt, file Range) error {
	switch {
	case virt.End < virt.Start || file.End < file.Start:
		return fmt.Errorf("segment %v -> %v: %w", virt, file, ErrInvertedRange)
	case virt.Len() == 0:
		return fmt.Errorf("segment %v -> %v: %w", virt, file, ErrEmptySegment)
	case virt.Len() != file.Len():
		return fmt.Errorf("segment %v -> %v: %w", virt, file, ErrLengthMismatch)
	case file.End > v.parent.Len():
		return fmt.Errorf("segment %v -> %v, parent size %#x: %w", virt, file, v.parent.Len(), ErrOutsideParent)
	}
	v.log.Debugf("segment %v -> file %v", virt, file)
	v.segments = append(v.segments, Segment{Virtual: virt, File: file, Auto: true})
	v.mem.Add(file.Start, virt.Start, virt.Len())
	return nil
}

// Segments returns the registered segments in registration order.
func (v *View) Segments() []Segment {
	return v.segments
}

// ReadBuffer reads up to n bytes of the virtual address space starting at
// off. The read stops at the first address not covered by a segment, an
// error is returned if off itself is not mapped.
func (v *View) ReadBuffer(off, n uint64) ([]byte, error) {
	return v.mem.Read(v.parent, off, n)
}

// Len returns the end of the highest mapped address.
func (v *View) Len() uint64 {
	var end uint64
	for _, seg := range v.segments {
		if seg.Virtual.End > end {
			end = seg.Virtual.End
		}
	}
	return end
}

// AddressSize returns zero, a crash dump has no single pointer width.
func (v *View) AddressSize() int {
	return 0
}

// EntryPoint returns zero, a crash dump is a snapshot and has no entry
// point.
func (v *View) EntryPoint() uint64 {
	return 0
}

// DefaultEndianness returns the byte order of the view.
func (v *View) DefaultEndianness() binary.ByteOrder {
	return binary.LittleEndian
}
