// mdmpwriter is a package to write minidump files.
// This package is incomplete, only the streams read by pkg/minidump are
// implemented, notably missing:
// - thread, module and exception streams
// - the CPU information part of the system info stream
//
// The whole file is kept in memory, Bytes returns it once all streams have
// been written.
package mdmpwriter

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/go-delve/dumpview/pkg/minidump"
)

const (
	signature  = 0x504d444d // 'MDMP'
	version    = 0xa793
	headerSize = 32
)

// Writer writes minidump files.
type Writer struct {
	order byteOrder
	buf   []byte
	dir   []dirEntry
}

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

func orderOf(endian minidump.Endian) byteOrder {
	if endian == minidump.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

type dirEntry struct {
	typ  minidump.StreamType
	size uint32
	rva  uint32
}

// Memory is a block of process memory to store in a Memory64List stream.
type Memory struct {
	Addr uint64
	Data []byte
}

// New creates a new Writer, the file header is written immediately and
// patched by Bytes.
func New(endian minidump.Endian) *Writer {
	w := &Writer{order: orderOf(endian)}
	w.u32(signature)
	w.u16(version)
	w.u16(0) // implementation specific version
	w.u32(0) // number of streams
	w.u32(0) // stream directory rva
	w.u32(0) // checksum
	w.u32(0) // timestamp
	w.u64(uint64(minidump.FileWithFullMemoryInfo))

	// Sanity check, size of file header should be the same as headerSize
	if w.Here() != headerSize {
		panic("internal error, minidump header size")
	}
	return w
}

// Here returns the current offset from the start of the file.
func (w *Writer) Here() uint32 {
	return uint32(len(w.buf))
}

// Align writes as many padding bytes as needed to make the current file
// offset a multiple of align.
func (w *Writer) Align(align uint32) {
	off := w.Here()
	alignOff := (off + (align - 1)) &^ (align - 1)
	w.Pad(alignOff)
}

// Pad writes zeroes until the current file offset is off. It does nothing
// if the file is already longer than off.
func (w *Writer) Pad(off uint32) {
	if here := w.Here(); off > here {
		w.buf = append(w.buf, make([]byte, off-here)...)
	}
}

// Write appends buf at the current offset and returns the offset it was
// written at.
func (w *Writer) Write(buf []byte) uint32 {
	rva := w.Here()
	w.buf = append(w.buf, buf...)
	return rva
}

// WriteStream writes data as a stream of type typ and adds it to the
// stream directory.
func (w *Writer) WriteStream(typ minidump.StreamType, data []byte) {
	w.Align(4)
	rva := w.Write(data)
	w.dir = append(w.dir, dirEntry{typ: typ, size: uint32(len(data)), rva: rva})
}

// WriteString writes a MINIDUMP_STRING and returns its offset.
func (w *Writer) WriteString(s string) uint32 {
	w.Align(4)
	rva := w.Here()
	codes := utf16.Encode([]rune(s))
	w.u32(uint32(len(codes) * 2))
	for _, c := range codes {
		w.u16(c)
	}
	w.u16(0)
	return rva
}

// WriteSystemInfo writes a SystemInfo stream.
func (w *Writer) WriteSystemInfo(si *minidump.SystemInfo) {
	csdRva := uint32(0)
	if si.CSDVersion != "" {
		csdRva = w.WriteString(si.CSDVersion)
	}
	s := w.record()
	s.u16(uint16(si.ProcessorArch))
	s.u16(si.ProcessorLevel)
	s.u16(si.ProcessorRevision)
	s.buf = append(s.buf, si.NumberOfProcessors, si.ProductType)
	s.u32(si.MajorVersion)
	s.u32(si.MinorVersion)
	s.u32(si.BuildNumber)
	s.u32(uint32(si.PlatformID))
	s.u32(csdRva)
	s.u16(si.SuiteMask)
	s.u16(0)
	s.buf = append(s.buf, make([]byte, 24)...) // CPU information
	w.WriteStream(minidump.SystemInfoStream, s.buf)
}

// WriteMemory writes data at the current offset and returns a memory
// descriptor for it, to be used with WriteMemoryList.
func (w *Writer) WriteMemory(addr uint64, data []byte) minidump.MemoryDescriptor {
	rva := w.Write(data)
	return minidump.MemoryDescriptor{Addr: addr, DataSize: uint32(len(data)), Rva: rva}
}

// WriteMemoryList writes a MemoryList stream.
func (w *Writer) WriteMemoryList(ranges []minidump.MemoryDescriptor) {
	s := w.record()
	s.u32(uint32(len(ranges)))
	for _, r := range ranges {
		s.u64(r.Addr)
		s.u32(r.DataSize)
		s.u32(r.Rva)
	}
	w.WriteStream(minidump.MemoryListStream, s.buf)
}

// WriteMemory64List writes a Memory64List stream whose memory starts at
// baseRva. The memory itself is not written.
func (w *Writer) WriteMemory64List(baseRva uint64, ranges []minidump.Memory64Descriptor) {
	s := w.record()
	s.u64(uint64(len(ranges)))
	s.u64(baseRva)
	for _, r := range ranges {
		s.u64(r.Addr)
		s.u64(r.DataSize)
	}
	w.WriteStream(minidump.Memory64ListStream, s.buf)
}

// WriteMemory64 writes a Memory64List stream followed by the contents of
// mem.
func (w *Writer) WriteMemory64(mem []Memory) {
	ranges := make([]minidump.Memory64Descriptor, len(mem))
	for i := range mem {
		ranges[i] = minidump.Memory64Descriptor{Addr: mem[i].Addr, DataSize: uint64(len(mem[i].Data))}
	}
	w.Align(4)
	base := uint64(w.Here()) + 16 + 16*uint64(len(mem))
	w.WriteMemory64List(base, ranges)
	for i := range mem {
		w.Write(mem[i].Data)
	}
}

// WriteMemoryInfoList writes a MemoryInfoList stream.
func (w *Writer) WriteMemoryInfoList(infos []minidump.MemoryInfo) {
	const (
		sizeOfHeader = 16
		sizeOfEntry  = 48
	)
	s := w.record()
	s.u32(sizeOfHeader)
	s.u32(sizeOfEntry)
	s.u64(uint64(len(infos)))
	for _, mi := range infos {
		s.u64(mi.Addr)
		s.u64(mi.AllocationBase)
		s.u32(uint32(mi.AllocationProtection))
		s.u32(0)
		s.u64(mi.Size)
		s.u32(uint32(mi.State))
		s.u32(uint32(mi.Protection))
		s.u32(uint32(mi.Type))
		s.u32(0)
	}
	w.WriteStream(minidump.MemoryInfoListStream, s.buf)
}

// WriteMiscInfo writes a MiscInfo stream.
func (w *Writer) WriteMiscInfo(mi *minidump.MiscInfo) {
	s := w.record()
	s.u32(24)
	s.u32(uint32(mi.Flags))
	s.u32(mi.ProcessID)
	s.u32(mi.ProcessCreateTime)
	s.u32(mi.ProcessUserTime)
	s.u32(mi.ProcessKernelTime)
	w.WriteStream(minidump.MiscInfoStream, s.buf)
}

// WriteComment writes an ASCII comment stream.
func (w *Writer) WriteComment(comment string) {
	w.WriteStream(minidump.CommentStreamA, append([]byte(comment), 0))
}

// Bytes writes the stream directory, patches the file header accordingly
// and returns the contents of the file.
// No other method should be called after Bytes.
func (w *Writer) Bytes() []byte {
	w.Align(4)
	dirRva := w.Here()
	for _, ent := range w.dir {
		w.u32(uint32(ent.typ))
		w.u32(ent.size)
		w.u32(ent.rva)
	}

	// Patch File Header
	w.order.PutUint32(w.buf[8:], uint32(len(w.dir)))
	w.order.PutUint32(w.buf[12:], dirRva)

	return w.buf
}

// record returns a scratch writer with the same byte order as w, used to
// assemble a stream before it is written.
func (w *Writer) record() *Writer {
	return &Writer{order: w.order}
}

func (w *Writer) u16(n uint16) {
	w.buf = w.order.AppendUint16(w.buf, n)
}

func (w *Writer) u32(n uint32) {
	w.buf = w.order.AppendUint32(w.buf, n)
}

func (w *Writer) u64(n uint64) {
	w.buf = w.order.AppendUint64(w.buf, n)
}
