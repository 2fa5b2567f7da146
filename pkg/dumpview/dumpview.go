// Package dumpview turns a minidump into an address space: it recognizes
// the container, resolves the platform of the dumped process and maps the
// captured memory regions to the virtual addresses they occupied.
package dumpview

import (
	"bytes"
	"os"

	"github.com/pkg/errors"

	"github.com/go-delve/dumpview/pkg/addrspace"
	"github.com/go-delve/dumpview/pkg/logflags"
	"github.com/go-delve/dumpview/pkg/minidump"
	"github.com/go-delve/dumpview/pkg/platform"
)

// Signature is the first four bytes of every minidump.
const Signature = "MDMP"

var (
	// ErrNotThisFormat is returned when the input does not start with
	// Signature.
	ErrNotThisFormat = errors.New("not a minidump")
	// ErrContainerUnreadable is returned when the header or the stream
	// directory can not be parsed.
	ErrContainerUnreadable = errors.New("could not parse minidump")
	// ErrMissingSystemInfo is returned when the system info stream is
	// missing or corrupt.
	ErrMissingSystemInfo = errors.New("no system info")
	// ErrUnsupportedPlatform is returned when no platform matches the
	// system info.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrMemoryListUnavailable is returned by CollectSegments when neither
	// memory list stream could be read.
	ErrMemoryListUnavailable = errors.New("no memory list")
)

// IsValidFor returns true if src starts with Signature.
func IsValidFor(src addrspace.Source) bool {
	buf, _ := src.ReadBuffer(0, uint64(len(Signature)))
	return len(buf) == len(Signature) && bytes.Equal(buf, []byte(Signature))
}

// BinaryView is the address space a minidump is mapped into.
type BinaryView interface {
	// Parent returns the source holding the minidump.
	Parent() addrspace.Source
	SetDefaultPlatform(*platform.Platform)
	// AddAutoSegment maps the virtual range virt to the range file of the
	// parent source.
	AddAutoSegment(virt, file addrspace.Range) error
}

// Builder configures a BinaryView from the minidump held by its parent.
// The zero value resolves platforms in platform.Default() and logs with
// logflags.DumpviewLogger().
type Builder struct {
	Registry platform.Registry
	Log      logflags.Logger
}

// NewBuilder returns a Builder resolving platforms in reg.
func NewBuilder(reg platform.Registry) *Builder {
	if reg == nil {
		reg = platform.Default()
	}
	return &Builder{Registry: reg, Log: logflags.DumpviewLogger()}
}

// Build reads the minidump held by the parent of bv, sets the default
// platform of bv and adds a segment for every captured memory region.
// Segments rejected by bv are skipped.
func (b *Builder) Build(bv BinaryView) error {
	reg, log := b.Registry, b.Log
	if reg == nil {
		reg = platform.Default()
	}
	if log == nil {
		log = logflags.DumpviewLogger()
	}

	parent := bv.Parent()
	raw, err := parent.ReadBuffer(0, parent.Len())
	if err != nil {
		return errors.Wrapf(ErrContainerUnreadable, "reading parent: %v", err)
	}

	var logfn func(string, ...interface{})
	if logflags.Minidump() {
		logfn = logflags.MinidumpLogger().Debugf
	}
	mdmp, err := minidump.Read(raw, logfn)
	if err != nil {
		return errors.Wrapf(ErrContainerUnreadable, "%v", err)
	}

	if mdmp.Endian == minidump.BigEndian {
		log.Warnf("big endian minidump, memory64 list offsets are decoded little endian")
	}

	si, err := mdmp.SystemInfo()
	if err != nil {
		return errors.Wrapf(ErrMissingSystemInfo, "%v", err)
	}
	cpu, osys := si.Cpu(), si.OS()
	p, ok := platform.Resolve(reg, cpu, mdmp.Endian, osys)
	if !ok {
		return errors.Wrapf(ErrUnsupportedPlatform, "cpu %v (%v) os %v (%#x) %v endian", cpu, si.ProcessorArch, osys, uint32(si.PlatformID), mdmp.Endian)
	}
	log.Debugf("platform %s", p)
	bv.SetDefaultPlatform(p)

	segs, err := CollectSegments(mdmp, log)
	if err != nil {
		log.Warnf("%v, the address space is empty", err)
	}
	for _, seg := range segs {
		if err := bv.AddAutoSegment(seg.Virtual, seg.File); err != nil {
			log.Warnf("skipping segment: %v", err)
		}
	}
	return nil
}

// Open checks that parent holds a minidump and returns the address space
// built from it. Platforms are resolved in reg, platform.Default() is used
// if reg is nil.
func Open(parent addrspace.Source, reg platform.Registry) (*addrspace.View, error) {
	if !IsValidFor(parent) {
		return nil, ErrNotThisFormat
	}
	v := addrspace.New(parent)
	if err := NewBuilder(reg).Build(v); err != nil {
		return nil, err
	}
	return v, nil
}

// OpenFile reads path and calls Open with its contents.
func OpenFile(path string, reg platform.Registry) (*addrspace.View, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	v, err := Open(addrspace.Bytes(buf), reg)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return v, nil
}
