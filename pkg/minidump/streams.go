package minidump

import (
	"fmt"
)

// SystemInfo represents the SystemInfo stream.
// See: https://docs.microsoft.com/en-us/windows/desktop/api/minidumpapiset/ns-minidumpapiset-_minidump_system_info
type SystemInfo struct {
	ProcessorArch      Arch
	ProcessorLevel     uint16
	ProcessorRevision  uint16
	NumberOfProcessors uint8
	ProductType        uint8
	MajorVersion       uint32
	MinorVersion       uint32
	BuildNumber        uint32
	PlatformID         PlatformID
	CSDVersion         string
	SuiteMask          uint16
}

// Cpu returns the CPU family of the dumped process.
func (si *SystemInfo) Cpu() Cpu {
	return si.ProcessorArch.Cpu()
}

// OS returns the operating system of the dumped process.
func (si *SystemInfo) OS() OS {
	return si.PlatformID.OS()
}

// rawSystemInfo is the fixed part of MINIDUMP_SYSTEM_INFO, the CPU
// information union that follows it is not decoded.
type rawSystemInfo struct {
	ProcessorArchitecture uint16
	ProcessorLevel        uint16
	ProcessorRevision     uint16
	NumberOfProcessors    uint8
	ProductType           uint8
	MajorVersion          uint32
	MinorVersion          uint32
	BuildNumber           uint32
	PlatformID            uint32
	CSDVersionRva         uint32
	SuiteMask             uint16
	Reserved2             uint16
}

// SystemInfo decodes the SystemInfo stream.
func (mdmp *Minidump) SystemInfo() (*SystemInfo, error) {
	stream, err := mdmp.Stream(SystemInfoStream)
	if err != nil {
		return nil, err
	}
	buf := mdmp.streamBuf(stream, "system info")

	var raw rawSystemInfo
	buf.unpack(&raw)
	if buf.err != nil {
		return nil, buf.err
	}

	si := &SystemInfo{
		ProcessorArch:      Arch(raw.ProcessorArchitecture),
		ProcessorLevel:     raw.ProcessorLevel,
		ProcessorRevision:  raw.ProcessorRevision,
		NumberOfProcessors: raw.NumberOfProcessors,
		ProductType:        raw.ProductType,
		MajorVersion:       raw.MajorVersion,
		MinorVersion:       raw.MinorVersion,
		BuildNumber:        raw.BuildNumber,
		PlatformID:         PlatformID(raw.PlatformID),
		SuiteMask:          raw.SuiteMask,
	}

	// A missing or broken service pack string does not make the rest of the
	// stream unusable.
	if raw.CSDVersionRva != 0 {
		nameBuf := mdmp.fileBuf(int(raw.CSDVersionRva), "reading CSD version")
		if s := readString(nameBuf); nameBuf.err == nil {
			si.CSDVersion = s
		}
	}

	return si, nil
}

// MemoryDescriptor represents an entry in the MemoryList stream, the memory
// it describes is stored at Rva in the minidump file.
// See: https://docs.microsoft.com/en-us/windows/desktop/api/minidumpapiset/ns-minidumpapiset-_minidump_memory_descriptor
type MemoryDescriptor struct {
	Addr     uint64
	DataSize uint32
	Rva      uint32
}

// MemoryList decodes the MemoryList stream.
func (mdmp *Minidump) MemoryList() ([]MemoryDescriptor, error) {
	stream, err := mdmp.Stream(MemoryListStream)
	if err != nil {
		return nil, err
	}
	buf := mdmp.streamBuf(stream, "memory list")

	const entrySize = 16
	rangesNum := buf.u32()
	if buf.err != nil {
		return nil, buf.err
	}
	// Some writers pad the count to 8 bytes.
	if uint64(len(buf.buf)) == 8+uint64(rangesNum)*entrySize {
		buf.off += 4
	}
	if uint64(rangesNum)*entrySize > uint64(buf.remaining()) {
		buf.truncated()
		return nil, buf.err
	}

	ranges := make([]MemoryDescriptor, rangesNum)
	for i := range ranges {
		buf.ctx = fmt.Sprintf("reading memory list entry %d", i)
		buf.unpack(&ranges[i])
		if buf.err != nil {
			return nil, buf.err
		}
	}
	return ranges, nil
}

// Memory64Descriptor represents an entry in the Memory64List stream.
// The memory of all entries is stored contiguously in the minidump file,
// starting at the base offset found in the stream header.
// See: https://docs.microsoft.com/en-us/windows/desktop/api/minidumpapiset/ns-minidumpapiset-_minidump_memory_descriptor64
type Memory64Descriptor struct {
	Addr     uint64
	DataSize uint64
}

// Memory64List decodes the _MINIDUMP_MEMORY64_LIST structure, containing
// the description of the process memory.
// See: https://docs.microsoft.com/en-us/windows/desktop/api/minidumpapiset/ns-minidumpapiset-_minidump_memory64_list
func (mdmp *Minidump) Memory64List() ([]Memory64Descriptor, error) {
	stream, err := mdmp.Stream(Memory64ListStream)
	if err != nil {
		return nil, err
	}
	buf := mdmp.streamBuf(stream, "memory64 list")

	const entrySize = 16
	rangesNum := buf.u64()
	buf.u64() // base rva
	if buf.err != nil {
		return nil, buf.err
	}
	if rangesNum > uint64(buf.remaining())/entrySize {
		buf.truncated()
		return nil, buf.err
	}

	ranges := make([]Memory64Descriptor, rangesNum)
	for i := range ranges {
		buf.ctx = fmt.Sprintf("reading memory64 list entry %d", i)
		buf.unpack(&ranges[i])
		if buf.err != nil {
			return nil, buf.err
		}
	}
	return ranges, nil
}

// MemoryInfo reprents an entry in the MemoryInfoList stream.
// See: https://docs.microsoft.com/en-us/windows/desktop/api/minidumpapiset/ns-minidumpapiset-_minidump_memory_info
type MemoryInfo struct {
	Addr                 uint64
	AllocationBase       uint64
	AllocationProtection MemoryProtection
	Size                 uint64
	State                MemoryState
	Protection           MemoryProtection
	Type                 MemoryType
}

type rawMemoryInfo struct {
	BaseAddress       uint64
	AllocationBase    uint64
	AllocationProtect uint32
	Alignment1        uint32
	RegionSize        uint64
	State             uint32
	Protect           uint32
	Type              uint32
	Alignment2        uint32
}

// MemoryInfoList decodes the MemoryInfoList stream.
func (mdmp *Minidump) MemoryInfoList() ([]MemoryInfo, error) {
	stream, err := mdmp.Stream(MemoryInfoListStream)
	if err != nil {
		return nil, err
	}
	buf := mdmp.streamBuf(stream, "memory info list")

	const minEntrySize = 48
	sizeOfHeader := int(buf.u32())
	sizeOfEntry := int(buf.u32())
	numEntries := buf.u64()
	if buf.err != nil {
		return nil, buf.err
	}
	if sizeOfHeader < 16 || sizeOfEntry < minEntrySize {
		return nil, fmt.Errorf("invalid memory info list header size %#x entry size %#x, while %s", sizeOfHeader, sizeOfEntry, buf.ctx)
	}

	buf.off = sizeOfHeader
	if numEntries > uint64(buf.remaining())/uint64(sizeOfEntry) {
		buf.truncated()
		return nil, buf.err
	}

	infos := make([]MemoryInfo, numEntries)
	for i := range infos {
		buf.ctx = fmt.Sprintf("reading memory info list entry %d", i)
		startOff := buf.off

		var raw rawMemoryInfo
		buf.unpack(&raw)
		if buf.err != nil {
			return nil, buf.err
		}
		infos[i] = MemoryInfo{
			Addr:                 raw.BaseAddress,
			AllocationBase:       raw.AllocationBase,
			AllocationProtection: MemoryProtection(raw.AllocationProtect),
			Size:                 raw.RegionSize,
			State:                MemoryState(raw.State),
			Protection:           MemoryProtection(raw.Protect),
			Type:                 MemoryType(raw.Type),
		}

		buf.off = startOff + sizeOfEntry
	}
	return infos, nil
}

// MiscInfo represents the MiscInfo stream, fields are only meaningful when
// the corresponding bit is set in Flags.
// See: https://docs.microsoft.com/en-us/windows/desktop/api/minidumpapiset/ns-minidumpapiset-_minidump_misc_info
type MiscInfo struct {
	Flags             MiscInfoFlags
	ProcessID         uint32
	ProcessCreateTime uint32
	ProcessUserTime   uint32
	ProcessKernelTime uint32
}

// MiscInfoFlags is the type of the Flags1 field of MINIDUMP_MISC_INFO.
type MiscInfoFlags uint32

const (
	MiscInfoProcessID    MiscInfoFlags = 0x1
	MiscInfoProcessTimes MiscInfoFlags = 0x2
)

type rawMiscInfo struct {
	SizeOfInfo        uint32
	Flags1            uint32
	ProcessID         uint32
	ProcessCreateTime uint32
	ProcessUserTime   uint32
	ProcessKernelTime uint32
}

// MiscInfo decodes the MiscInfo stream.
func (mdmp *Minidump) MiscInfo() (*MiscInfo, error) {
	stream, err := mdmp.Stream(MiscInfoStream)
	if err != nil {
		return nil, err
	}
	buf := mdmp.streamBuf(stream, "misc info")

	var raw rawMiscInfo
	buf.unpack(&raw)
	if buf.err != nil {
		return nil, buf.err
	}
	// there are more fields in later versions of the structure, but we don't care about them
	mi := &MiscInfo{Flags: MiscInfoFlags(raw.Flags1)}
	if mi.Flags&MiscInfoProcessID != 0 {
		mi.ProcessID = raw.ProcessID
	}
	if mi.Flags&MiscInfoProcessTimes != 0 {
		mi.ProcessCreateTime = raw.ProcessCreateTime
		mi.ProcessUserTime = raw.ProcessUserTime
		mi.ProcessKernelTime = raw.ProcessKernelTime
	}
	return mi, nil
}
