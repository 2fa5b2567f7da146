package minidump

import (
	"fmt"
	"strings"
)

// FileFlags is the type of the Flags field of MINIDUMP_HEADER
type FileFlags uint64

const (
	FileNormal                          FileFlags = 0x00000000
	FileWithDataSegs                    FileFlags = 0x00000001
	FileWithFullMemory                  FileFlags = 0x00000002
	FileWithHandleData                  FileFlags = 0x00000004
	FileFilterMemory                    FileFlags = 0x00000008
	FileScanMemory                      FileFlags = 0x00000010
	FileWithUnloadedModules             FileFlags = 0x00000020
	FileWithIncorrectlyReferencedMemory FileFlags = 0x00000040
	FileFilterModulePaths               FileFlags = 0x00000080
	FileWithProcessThreadData           FileFlags = 0x00000100
	FileWithPrivateReadWriteMemory      FileFlags = 0x00000200
	FileWithoutOptionalData             FileFlags = 0x00000400
	FileWithFullMemoryInfo              FileFlags = 0x00000800
	FileWithThreadInfo                  FileFlags = 0x00001000
	FileWithCodeSegs                    FileFlags = 0x00002000
	FileWithoutAuxilliarySegs           FileFlags = 0x00004000
	FileWithFullAuxilliaryState         FileFlags = 0x00008000
	FileWithPrivateCopyMemory           FileFlags = 0x00010000
	FileIgnoreInaccessibleMemory        FileFlags = 0x00020000
	FileWithTokenInformation            FileFlags = 0x00040000
)

var fileFlagNames = []struct {
	flag FileFlags
	name string
}{
	{FileWithDataSegs, "FileWithDataSegs"},
	{FileWithFullMemory, "FileWithFullMemory"},
	{FileWithHandleData, "FileWithHandleData"},
	{FileFilterMemory, "FileFilterMemory"},
	{FileScanMemory, "FileScanMemory"},
	{FileWithUnloadedModules, "FileWithUnloadedModules"},
	{FileWithIncorrectlyReferencedMemory, "FileWithIncorrectlyReferencedMemory"},
	{FileFilterModulePaths, "FileFilterModulePaths"},
	{FileWithProcessThreadData, "FileWithProcessThreadData"},
	{FileWithPrivateReadWriteMemory, "FileWithPrivateReadWriteMemory"},
	{FileWithoutOptionalData, "FileWithoutOptionalData"},
	{FileWithFullMemoryInfo, "FileWithFullMemoryInfo"},
	{FileWithThreadInfo, "FileWithThreadInfo"},
	{FileWithCodeSegs, "FileWithCodeSegs"},
	{FileWithoutAuxilliarySegs, "FileWithoutAuxilliarySegs"},
	{FileWithFullAuxilliaryState, "FileWithFullAuxilliaryState"},
	{FileWithPrivateCopyMemory, "FileWithPrivateCopyMemory"},
	{FileIgnoreInaccessibleMemory, "FileIgnoreInaccessibleMemory"},
	{FileWithTokenInformation, "FileWithTokenInformation"},
}

// String returns the names of the flags set in flags, separated by '|'.
func (flags FileFlags) String() string {
	if flags == FileNormal {
		return "FileNormal"
	}
	out := []byte{}
	rest := flags
	for _, fl := range fileFlagNames {
		if flags&fl.flag != 0 {
			if len(out) > 0 {
				out = append(out, '|')
			}
			out = append(out, fl.name...)
			rest &^= fl.flag
		}
	}
	if rest != 0 {
		if len(out) > 0 {
			out = append(out, '|')
		}
		out = append(out, fmt.Sprintf("FileFlags(%#x)", uint64(rest))...)
	}
	return string(out)
}

// StreamType is the type of the StreamType field of MINIDUMP_DIRECTORY
type StreamType uint32

const (
	UnusedStream              StreamType = 0
	ReservedStream0           StreamType = 1
	ReservedStream1           StreamType = 2
	ThreadListStream          StreamType = 3
	ModuleListStream          StreamType = 4
	MemoryListStream          StreamType = 5
	ExceptionStream           StreamType = 6
	SystemInfoStream          StreamType = 7
	ThreadExListStream        StreamType = 8
	Memory64ListStream        StreamType = 9
	CommentStreamA            StreamType = 10
	CommentStreamW            StreamType = 11
	HandleDataStream          StreamType = 12
	FunctionTableStream       StreamType = 13
	UnloadedModuleStream      StreamType = 14
	MiscInfoStream            StreamType = 15
	MemoryInfoListStream      StreamType = 16
	ThreadInfoListStream      StreamType = 17
	HandleOperationListStream StreamType = 18
	TokenStream               StreamType = 19
	JavascriptDataStream      StreamType = 20
	SystemMemoryInfoStream    StreamType = 21
	ProcessVMCounterStream    StreamType = 22
)

var streamTypeNames = map[StreamType]string{
	UnusedStream:              "UnusedStream",
	ReservedStream0:           "ReservedStream0",
	ReservedStream1:           "ReservedStream1",
	ThreadListStream:          "ThreadListStream",
	ModuleListStream:          "ModuleListStream",
	MemoryListStream:          "MemoryListStream",
	ExceptionStream:           "ExceptionStream",
	SystemInfoStream:          "SystemInfoStream",
	ThreadExListStream:        "ThreadExListStream",
	Memory64ListStream:        "Memory64ListStream",
	CommentStreamA:            "CommentStreamA",
	CommentStreamW:            "CommentStreamW",
	HandleDataStream:          "HandleDataStream",
	FunctionTableStream:       "FunctionTableStream",
	UnloadedModuleStream:      "UnloadedModuleStream",
	MiscInfoStream:            "MiscInfoStream",
	MemoryInfoListStream:      "MemoryInfoListStream",
	ThreadInfoListStream:      "ThreadInfoListStream",
	HandleOperationListStream: "HandleOperationListStream",
	TokenStream:               "TokenStream",
	JavascriptDataStream:      "JavascriptDataStream",
	SystemMemoryInfoStream:    "SystemMemoryInfoStream",
	ProcessVMCounterStream:    "ProcessVMCounterStream",
}

func (t StreamType) String() string {
	if name, ok := streamTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("StreamType(%#x)", uint32(t))
}

// Arch is the type of the ProcessorArchitecture field of MINIDUMP_SYSTEM_INFO.
type Arch uint16

const (
	CpuArchitectureX86     Arch = 0
	CpuArchitectureMips    Arch = 1
	CpuArchitectureAlpha   Arch = 2
	CpuArchitecturePPC     Arch = 3
	CpuArchitectureSHX     Arch = 4 // Super-H
	CpuArchitectureARM     Arch = 5
	CpuArchitectureIA64    Arch = 6
	CpuArchitectureAlpha64 Arch = 7
	CpuArchitectureMSIL    Arch = 8 // Microsoft Intermediate Language
	CpuArchitectureAMD64   Arch = 9
	CpuArchitectureWoW64   Arch = 10
	CpuArchitectureARM64   Arch = 12
	// Breakpad extensions
	CpuArchitectureSPARC    Arch = 0x8001
	CpuArchitecturePPC64    Arch = 0x8002
	CpuArchitectureARM64Old Arch = 0x8003
	CpuArchitectureMips64   Arch = 0x8004
	CpuArchitectureUnknown  Arch = 0xffff
)

var archNames = map[Arch]string{
	CpuArchitectureX86:      "CpuArchitectureX86",
	CpuArchitectureMips:     "CpuArchitectureMips",
	CpuArchitectureAlpha:    "CpuArchitectureAlpha",
	CpuArchitecturePPC:      "CpuArchitecturePPC",
	CpuArchitectureSHX:      "CpuArchitectureSHX",
	CpuArchitectureARM:      "CpuArchitectureARM",
	CpuArchitectureIA64:     "CpuArchitectureIA64",
	CpuArchitectureAlpha64:  "CpuArchitectureAlpha64",
	CpuArchitectureMSIL:     "CpuArchitectureMSIL",
	CpuArchitectureAMD64:    "CpuArchitectureAMD64",
	CpuArchitectureWoW64:    "CpuArchitectureWoW64",
	CpuArchitectureARM64:    "CpuArchitectureARM64",
	CpuArchitectureSPARC:    "CpuArchitectureSPARC",
	CpuArchitecturePPC64:    "CpuArchitecturePPC64",
	CpuArchitectureARM64Old: "CpuArchitectureARM64Old",
	CpuArchitectureMips64:   "CpuArchitectureMips64",
	CpuArchitectureUnknown:  "CpuArchitectureUnknown",
}

func (a Arch) String() string {
	if name, ok := archNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Arch(%#x)", uint16(a))
}

// Cpu returns the CPU family a processor architecture value belongs to.
func (a Arch) Cpu() Cpu {
	switch a {
	case CpuArchitectureX86, CpuArchitectureWoW64:
		return CpuX86
	case CpuArchitectureAMD64:
		return CpuAMD64
	case CpuArchitecturePPC:
		return CpuPPC
	case CpuArchitecturePPC64:
		return CpuPPC64
	case CpuArchitectureSPARC:
		return CpuSPARC
	case CpuArchitectureARM:
		return CpuARM
	case CpuArchitectureARM64, CpuArchitectureARM64Old:
		return CpuARM64
	case CpuArchitectureMips:
		return CpuMIPS
	case CpuArchitectureMips64:
		return CpuMIPS64
	}
	return CpuUnknown
}

// Cpu is a CPU family, normalized from the ProcessorArchitecture field.
type Cpu uint8

const (
	CpuUnknown Cpu = iota
	CpuX86
	CpuAMD64
	CpuARM
	CpuARM64
	CpuPPC
	CpuPPC64
	CpuMIPS
	CpuMIPS64
	CpuSPARC
)

var cpuNames = [...]string{
	CpuUnknown: "unknown",
	CpuX86:     "x86",
	CpuAMD64:   "amd64",
	CpuARM:     "arm",
	CpuARM64:   "arm64",
	CpuPPC:     "ppc",
	CpuPPC64:   "ppc64",
	CpuMIPS:    "mips",
	CpuMIPS64:  "mips64",
	CpuSPARC:   "sparc",
}

func (c Cpu) String() string {
	if int(c) < len(cpuNames) {
		return cpuNames[c]
	}
	return fmt.Sprintf("Cpu(%d)", uint8(c))
}

// PlatformID is the type of the PlatformId field of MINIDUMP_SYSTEM_INFO.
type PlatformID uint32

const (
	PlatformWin32s       PlatformID = 0
	PlatformWin32Windows PlatformID = 1
	PlatformWin32NT      PlatformID = 2
	PlatformWin32CE      PlatformID = 3
	// Breakpad extensions
	PlatformUnix    PlatformID = 0x8000
	PlatformMacOSX  PlatformID = 0x8101
	PlatformIOS     PlatformID = 0x8102
	PlatformLinux   PlatformID = 0x8201
	PlatformSolaris PlatformID = 0x8202
	PlatformAndroid PlatformID = 0x8203
	PlatformPS3     PlatformID = 0x8204
	PlatformNaCl    PlatformID = 0x8205
	PlatformFuchsia PlatformID = 0x8206
)

// OS returns the operating system a platform id value belongs to.
func (p PlatformID) OS() OS {
	switch p {
	case PlatformWin32s, PlatformWin32Windows, PlatformWin32NT:
		return OSWindows
	case PlatformUnix:
		return OSUnix
	case PlatformMacOSX:
		return OSMacOS
	case PlatformIOS:
		return OSIOS
	case PlatformLinux:
		return OSLinux
	case PlatformSolaris:
		return OSSolaris
	case PlatformAndroid:
		return OSAndroid
	case PlatformPS3:
		return OSPS3
	case PlatformNaCl:
		return OSNaCl
	case PlatformFuchsia:
		return OSFuchsia
	}
	return OSUnknown
}

// OS is an operating system, normalized from the PlatformId field.
type OS uint8

const (
	OSUnknown OS = iota
	OSWindows
	OSMacOS
	OSIOS
	OSLinux
	OSSolaris
	OSAndroid
	OSPS3
	OSNaCl
	OSFuchsia
	OSUnix
)

var osNames = [...]string{
	OSUnknown: "unknown",
	OSWindows: "windows",
	OSMacOS:   "macos",
	OSIOS:     "ios",
	OSLinux:   "linux",
	OSSolaris: "solaris",
	OSAndroid: "android",
	OSPS3:     "ps3",
	OSNaCl:    "nacl",
	OSFuchsia: "fuchsia",
	OSUnix:    "unix",
}

func (o OS) String() string {
	if int(o) < len(osNames) {
		return osNames[o]
	}
	return fmt.Sprintf("OS(%d)", uint8(o))
}

// MemoryState is the type of the State field of MINIDUMP_MEMORY_INFO
type MemoryState uint32

const (
	MemoryStateCommit  MemoryState = 0x1000
	MemoryStateReserve MemoryState = 0x2000
	MemoryStateFree    MemoryState = 0x10000
)

func (s MemoryState) String() string {
	switch s {
	case MemoryStateCommit:
		return "MemoryStateCommit"
	case MemoryStateReserve:
		return "MemoryStateReserve"
	case MemoryStateFree:
		return "MemoryStateFree"
	}
	return fmt.Sprintf("MemoryState(%#x)", uint32(s))
}

// MemoryType is the type of the Type field of MINIDUMP_MEMORY_INFO
type MemoryType uint32

const (
	MemoryTypePrivate MemoryType = 0x20000
	MemoryTypeMapped  MemoryType = 0x40000
	MemoryTypeImage   MemoryType = 0x1000000
)

func (t MemoryType) String() string {
	switch t {
	case MemoryTypePrivate:
		return "MemoryTypePrivate"
	case MemoryTypeMapped:
		return "MemoryTypeMapped"
	case MemoryTypeImage:
		return "MemoryTypeImage"
	}
	return fmt.Sprintf("MemoryType(%#x)", uint32(t))
}

// MemoryProtection is the type of the Protection field of MINIDUMP_MEMORY_INFO
type MemoryProtection uint32

const (
	MemoryProtectNoAccess         MemoryProtection = 0x01 // PAGE_NOACCESS
	MemoryProtectReadOnly         MemoryProtection = 0x02 // PAGE_READONLY
	MemoryProtectReadWrite        MemoryProtection = 0x04 // PAGE_READWRITE
	MemoryProtectWriteCopy        MemoryProtection = 0x08 // PAGE_WRITECOPY
	MemoryProtectExecute          MemoryProtection = 0x10 // PAGE_EXECUTE
	MemoryProtectExecuteRead      MemoryProtection = 0x20 // PAGE_EXECUTE_READ
	MemoryProtectExecuteReadWrite MemoryProtection = 0x40 // PAGE_EXECUTE_READWRITE
	MemoryProtectExecuteWriteCopy MemoryProtection = 0x80 // PAGE_EXECUTE_WRITECOPY
	// These options can be combined with the previous flags
	MemoryProtectPageGuard    MemoryProtection = 0x100 // PAGE_GUARD
	MemoryProtectNoCache      MemoryProtection = 0x200 // PAGE_NOCACHE
	MemoryProtectWriteCombine MemoryProtection = 0x400 // PAGE_WRITECOMBINE
)

var memoryProtectionNames = []struct {
	prot MemoryProtection
	name string
}{
	{MemoryProtectNoAccess, "PAGE_NOACCESS"},
	{MemoryProtectReadOnly, "PAGE_READONLY"},
	{MemoryProtectReadWrite, "PAGE_READWRITE"},
	{MemoryProtectWriteCopy, "PAGE_WRITECOPY"},
	{MemoryProtectExecute, "PAGE_EXECUTE"},
	{MemoryProtectExecuteRead, "PAGE_EXECUTE_READ"},
	{MemoryProtectExecuteReadWrite, "PAGE_EXECUTE_READWRITE"},
	{MemoryProtectExecuteWriteCopy, "PAGE_EXECUTE_WRITECOPY"},
	{MemoryProtectPageGuard, "PAGE_GUARD"},
	{MemoryProtectNoCache, "PAGE_NOCACHE"},
	{MemoryProtectWriteCombine, "PAGE_WRITECOMBINE"},
}

func (p MemoryProtection) String() string {
	var names []string
	rest := p
	for _, pn := range memoryProtectionNames {
		if p&pn.prot != 0 {
			names = append(names, pn.name)
			rest &^= pn.prot
		}
	}
	if rest != 0 || len(names) == 0 {
		names = append(names, fmt.Sprintf("%#x", uint32(rest)))
	}
	return strings.Join(names, "|")
}
