package dumpview

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/go-delve/dumpview/pkg/addrspace"
	"github.com/go-delve/dumpview/pkg/logflags"
	"github.com/go-delve/dumpview/pkg/minidump"
)

// Segment maps the bytes of a minidump to the virtual addresses they were
// captured from.
type Segment struct {
	File    addrspace.Range
	Virtual addrspace.Range
}

// StreamSource gives access to the memory list streams of a minidump.
type StreamSource interface {
	MemoryList() ([]minidump.MemoryDescriptor, error)
	Memory64List() ([]minidump.Memory64Descriptor, error)
	RawStream(minidump.StreamType) ([]byte, error)
}

var _ StreamSource = (*minidump.Minidump)(nil)

// memory64BaseOffset is the position of BaseRva in MINIDUMP_MEMORY64_LIST.
const memory64BaseOffset = 8

// CollectSegments returns one segment for every entry of the MemoryList
// stream followed by one segment for every entry of the Memory64List
// stream, in stream order.
// A stream that is missing or can not be parsed contributes no segments, an
// error is returned only if neither stream could be read.
func CollectSegments(src StreamSource, log logflags.Logger) ([]Segment, error) {
	segs32, err32 := segments32(src, log)
	if err32 != nil {
		log.Debugf("32-bit memory list: %v", err32)
	}
	segs64, err64 := segments64(src, log)
	if err64 != nil {
		log.Debugf("64-bit memory list: %v", err64)
	}
	if err32 != nil && err64 != nil {
		return nil, errors.Wrapf(ErrMemoryListUnavailable, "memory list: %v; memory64 list: %v", err32, err64)
	}
	log.Debugf("%d segments from memory list, %d from memory64 list", len(segs32), len(segs64))
	return append(segs32, segs64...), nil
}

// overflows reports whether start+size wraps past the end of the 64-bit
// address space.
func overflows(start, size uint64) bool {
	return start+size < start
}

// segments32 converts the MemoryList stream, every entry carries its own
// file offset. Entries whose ranges wrap around are skipped.
func segments32(src StreamSource, log logflags.Logger) ([]Segment, error) {
	descs, err := src.MemoryList()
	if err != nil {
		return nil, err
	}
	segs := make([]Segment, 0, len(descs))
	for i, d := range descs {
		size := uint64(d.DataSize)
		if overflows(d.Addr, size) {
			log.Warnf("memory list entry %d: range %#x+%#x overflows, skipping", i, d.Addr, size)
			continue
		}
		segs = append(segs, Segment{
			File:    addrspace.Range{Start: uint64(d.Rva), End: uint64(d.Rva) + size},
			Virtual: addrspace.Range{Start: d.Addr, End: d.Addr + size},
		})
	}
	return segs, nil
}

// segments64 converts the Memory64List stream. Its entries are stored back
// to back starting at the base offset found in the stream header, so the
// file offset of each entry is the sum of the sizes of the entries before
// it. Once an entry overflows the file offsets of the entries after it are
// unknown and the rest of the list is dropped.
func segments64(src StreamSource, log logflags.Logger) ([]Segment, error) {
	raw, err := src.RawStream(minidump.Memory64ListStream)
	if err != nil {
		return nil, err
	}
	if len(raw) < memory64BaseOffset+8 {
		return nil, errors.Errorf("memory64 list stream too short (%d bytes)", len(raw))
	}
	rva := binary.LittleEndian.Uint64(raw[memory64BaseOffset:])

	descs, err := src.Memory64List()
	if err != nil {
		return nil, err
	}
	segs := make([]Segment, 0, len(descs))
	for i, d := range descs {
		if overflows(rva, d.DataSize) {
			log.Warnf("memory64 list entry %d: file offset %#x+%#x overflows, dropping %d entries", i, rva, d.DataSize, len(descs)-i)
			break
		}
		if overflows(d.Addr, d.DataSize) {
			log.Warnf("memory64 list entry %d: range %#x+%#x overflows, skipping", i, d.Addr, d.DataSize)
			rva += d.DataSize
			continue
		}
		segs = append(segs, Segment{
			File:    addrspace.Range{Start: rva, End: rva + d.DataSize},
			Virtual: addrspace.Range{Start: d.Addr, End: d.Addr + d.DataSize},
		})
		rva += d.DataSize
	}
	return segs, nil
}
