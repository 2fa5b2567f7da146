// Package platform maps the system description of a minidump (CPU family,
// byte order and operating system) to one of the platforms known to the
// host.
//
// Name is the fixed translation table, a Registry stands for the set of
// platforms the host actually supports and Resolve combines the two.
package platform

import (
	"encoding/binary"
	"sort"

	"github.com/go-delve/dumpview/pkg/minidump"
)

// Platform describes a target platform: an operating system, an
// architecture, its pointer width and its byte order.
type Platform struct {
	Name      string
	OS        string
	Arch      string
	Bits      int
	ByteOrder binary.ByteOrder
}

func (p *Platform) String() string {
	return p.Name
}

// PtrSize returns the size of a pointer in bytes.
func (p *Platform) PtrSize() int {
	return p.Bits / 8
}

// Registry is the set of platforms known to the host.
type Registry interface {
	// ByName returns the platform called name, if there is one.
	ByName(name string) (*Platform, bool)
}

// Table is a Registry backed by a map.
type Table struct {
	platforms map[string]*Platform
}

// NewTable returns a Table holding platforms.
func NewTable(platforms ...*Platform) *Table {
	t := &Table{platforms: make(map[string]*Platform, len(platforms))}
	for _, p := range platforms {
		t.platforms[p.Name] = p
	}
	return t
}

// ByName implements Registry.
func (t *Table) ByName(name string) (*Platform, bool) {
	p, ok := t.platforms[name]
	return p, ok
}

// Names returns the sorted names of all platforms in t.
func (t *Table) Names() []string {
	r := make([]string, 0, len(t.platforms))
	for name := range t.platforms {
		r = append(r, name)
	}
	sort.Strings(r)
	return r
}

// Without returns a copy of t that does not contain any of names.
func (t *Table) Without(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}
	r := &Table{platforms: make(map[string]*Platform, len(t.platforms))}
	for name, p := range t.platforms {
		if !drop[name] {
			r.platforms[name] = p
		}
	}
	return r
}

func mk(os, arch string, bits int, order binary.ByteOrder) *Platform {
	return &Platform{Name: os + "-" + arch, OS: os, Arch: arch, Bits: bits, ByteOrder: order}
}

// Default returns a Table with every platform Name can produce.
func Default() *Table {
	le, be := binary.LittleEndian, binary.BigEndian
	var platforms []*Platform
	for _, os := range []string{"windows", "mac", "linux"} {
		platforms = append(platforms,
			mk(os, "aarch64", 64, le),
			mk(os, "armv7", 32, le),
			mk(os, "x86", 32, le),
			mk(os, "x86_64", 64, le))
	}
	platforms = append(platforms,
		mk("linux", "ppc32", 32, be),
		mk("linux", "ppc32_le", 32, le),
		mk("linux", "ppc64", 64, be),
		mk("linux", "ppc64_le", 64, le))
	return NewTable(platforms...)
}

// Name returns the platform name for a process running on os with the given
// CPU family and byte order. The second return value is false when no
// platform exists for the combination.
//
// The byte order is only consulted for PowerPC on Linux, ARM and x86 are
// always little endian.
func Name(cpu minidump.Cpu, endian minidump.Endian, os minidump.OS) (string, bool) {
	var prefix string
	switch os {
	case minidump.OSWindows:
		prefix = "windows-"
	case minidump.OSMacOS:
		prefix = "mac-"
	case minidump.OSLinux:
		prefix = "linux-"
	default:
		return "", false
	}

	switch cpu {
	case minidump.CpuARM64:
		return prefix + "aarch64", true
	case minidump.CpuARM:
		return prefix + "armv7", true
	case minidump.CpuX86:
		return prefix + "x86", true
	case minidump.CpuAMD64:
		return prefix + "x86_64", true
	}

	if os != minidump.OSLinux {
		return "", false
	}
	var arch string
	switch cpu {
	case minidump.CpuPPC:
		arch = "ppc32"
	case minidump.CpuPPC64:
		arch = "ppc64"
	default:
		return "", false
	}
	if endian == minidump.LittleEndian {
		arch += "_le"
	}
	return prefix + arch, true
}

// Resolve looks up the platform for cpu, endian and os in reg.
func Resolve(reg Registry, cpu minidump.Cpu, endian minidump.Endian, os minidump.OS) (*Platform, bool) {
	name, ok := Name(cpu, endian, os)
	if !ok {
		return nil, false
	}
	return reg.ByName(name)
}
