package platform

import (
	"testing"

	"github.com/go-delve/dumpview/pkg/minidump"
)

var endians = []minidump.Endian{minidump.LittleEndian, minidump.BigEndian}

func TestNameTable(t *testing.T) {
	tests := []struct {
		cpu    minidump.Cpu
		os     minidump.OS
		endian minidump.Endian
		want   string
	}{
		{minidump.CpuARM64, minidump.OSWindows, minidump.LittleEndian, "windows-aarch64"},
		{minidump.CpuARM, minidump.OSWindows, minidump.LittleEndian, "windows-armv7"},
		{minidump.CpuX86, minidump.OSWindows, minidump.LittleEndian, "windows-x86"},
		{minidump.CpuAMD64, minidump.OSWindows, minidump.LittleEndian, "windows-x86_64"},
		{minidump.CpuARM64, minidump.OSMacOS, minidump.LittleEndian, "mac-aarch64"},
		{minidump.CpuARM, minidump.OSMacOS, minidump.LittleEndian, "mac-armv7"},
		{minidump.CpuX86, minidump.OSMacOS, minidump.LittleEndian, "mac-x86"},
		{minidump.CpuAMD64, minidump.OSMacOS, minidump.LittleEndian, "mac-x86_64"},
		{minidump.CpuARM64, minidump.OSLinux, minidump.LittleEndian, "linux-aarch64"},
		{minidump.CpuARM, minidump.OSLinux, minidump.LittleEndian, "linux-armv7"},
		{minidump.CpuX86, minidump.OSLinux, minidump.LittleEndian, "linux-x86"},
		{minidump.CpuAMD64, minidump.OSLinux, minidump.LittleEndian, "linux-x86_64"},
		{minidump.CpuPPC, minidump.OSLinux, minidump.LittleEndian, "linux-ppc32_le"},
		{minidump.CpuPPC, minidump.OSLinux, minidump.BigEndian, "linux-ppc32"},
		{minidump.CpuPPC64, minidump.OSLinux, minidump.LittleEndian, "linux-ppc64_le"},
		{minidump.CpuPPC64, minidump.OSLinux, minidump.BigEndian, "linux-ppc64"},
	}

	reg := Default()
	for _, tc := range tests {
		name, ok := Name(tc.cpu, tc.endian, tc.os)
		if !ok || name != tc.want {
			t.Errorf("Name(%v, %v, %v): expected %q got %q (%v)", tc.cpu, tc.endian, tc.os, tc.want, name, ok)
			continue
		}
		p, ok := Resolve(reg, tc.cpu, tc.endian, tc.os)
		if !ok {
			t.Errorf("Resolve(%v, %v, %v): platform %q not in default registry", tc.cpu, tc.endian, tc.os, name)
			continue
		}
		if p.Name != tc.want {
			t.Errorf("Resolve(%v, %v, %v): expected %q got %q", tc.cpu, tc.endian, tc.os, tc.want, p.Name)
		}
	}

	if n := len(reg.Names()); n != len(tests) {
		t.Errorf("default registry has %d platforms, expected %d", n, len(tests))
	}
}

func supported(cpu minidump.Cpu, os minidump.OS) bool {
	switch os {
	case minidump.OSWindows, minidump.OSMacOS:
		switch cpu {
		case minidump.CpuARM64, minidump.CpuARM, minidump.CpuX86, minidump.CpuAMD64:
			return true
		}
	case minidump.OSLinux:
		switch cpu {
		case minidump.CpuARM64, minidump.CpuARM, minidump.CpuX86, minidump.CpuAMD64, minidump.CpuPPC, minidump.CpuPPC64:
			return true
		}
	}
	return false
}

func TestNameTotal(t *testing.T) {
	// Walks past the last defined value of both enums to cover future
	// variants.
	for cpu := minidump.CpuUnknown; cpu <= minidump.CpuSPARC+3; cpu++ {
		for os := minidump.OSUnknown; os <= minidump.OSUnix+3; os++ {
			for _, endian := range endians {
				name, ok := Name(cpu, endian, os)
				if ok != supported(cpu, os) {
					t.Errorf("Name(%v, %v, %v) = %q, %v", cpu, endian, os, name, ok)
				}
				if !ok && name != "" {
					t.Errorf("Name(%v, %v, %v) returned name %q for unsupported combination", cpu, endian, os, name)
				}
				_, resolved := Resolve(Default(), cpu, endian, os)
				if resolved != ok {
					t.Errorf("Resolve(%v, %v, %v) = %v, Name = %v", cpu, endian, os, resolved, ok)
				}
			}
		}
	}
}

func TestNameByteOrder(t *testing.T) {
	for cpu := minidump.CpuUnknown; cpu <= minidump.CpuSPARC; cpu++ {
		for os := minidump.OSUnknown; os <= minidump.OSUnix; os++ {
			le, _ := Name(cpu, minidump.LittleEndian, os)
			be, _ := Name(cpu, minidump.BigEndian, os)
			ppc := os == minidump.OSLinux && (cpu == minidump.CpuPPC || cpu == minidump.CpuPPC64)
			if ppc && le == be {
				t.Errorf("%v/%v: byte order ignored (%q)", cpu, os, le)
			}
			if !ppc && le != be {
				t.Errorf("%v/%v: byte order changed result %q -> %q", cpu, os, le, be)
			}
		}
	}
}

func TestRegistryWithout(t *testing.T) {
	reg := Default().Without("windows-x86_64", "linux-ppc64")

	if _, ok := Resolve(reg, minidump.CpuAMD64, minidump.LittleEndian, minidump.OSWindows); ok {
		t.Errorf("windows-x86_64 resolved after removal")
	}
	if _, ok := Resolve(reg, minidump.CpuPPC64, minidump.BigEndian, minidump.OSLinux); ok {
		t.Errorf("linux-ppc64 resolved after removal")
	}
	if _, ok := Resolve(reg, minidump.CpuPPC64, minidump.LittleEndian, minidump.OSLinux); !ok {
		t.Errorf("linux-ppc64_le removed together with linux-ppc64")
	}
	if _, ok := Default().ByName("windows-x86_64"); !ok {
		t.Errorf("Without modified the registry it was called on")
	}
}

func TestPlatformAttributes(t *testing.T) {
	reg := Default()
	for _, tc := range []struct {
		name    string
		ptrSize int
		big     bool
	}{
		{"windows-x86", 4, false},
		{"mac-aarch64", 8, false},
		{"linux-ppc32", 4, true},
		{"linux-ppc64_le", 8, false},
	} {
		p, ok := reg.ByName(tc.name)
		if !ok {
			t.Fatalf("platform %q missing", tc.name)
		}
		if p.PtrSize() != tc.ptrSize {
			t.Errorf("%s: expected pointer size %d got %d", tc.name, tc.ptrSize, p.PtrSize())
		}
		if big := p.ByteOrder.String() == "BigEndian"; big != tc.big {
			t.Errorf("%s: wrong byte order %v", tc.name, p.ByteOrder)
		}
		if p.String() != tc.name {
			t.Errorf("%s: String returned %q", tc.name, p.String())
		}
	}
}
