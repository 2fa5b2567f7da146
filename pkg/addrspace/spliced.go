package addrspace

import (
	"fmt"
)

// A splicedMemory represents an address space formed from multiple regions,
// each of which may override previously added regions. For example a
// minidump can list the same pages twice, once in its 32-bit memory list
// and once in its 64-bit one:
//
//	0x400000-0x402000 file 0x1000
//	0x401000-0x401800 file 0x9000
//
// The second region splits the first one in two and reads between
// 0x401000 and 0x401800 are served from file offset 0x9000.
type splicedMemory struct {
	regions []region
}

// region maps [addr, addr+length) to the parent source at fileOff.
type region struct {
	addr    uint64
	length  uint64
	fileOff uint64
}

func (e region) end() uint64 {
	return e.addr + e.length
}

// cut returns the part of e starting at addr, which must be inside e.
func (e region) cut(addr uint64) region {
	d := addr - e.addr
	return region{addr: addr, length: e.length - d, fileOff: e.fileOff + d}
}

// Add adds a new region, which may override existing regions. Regions stay
// sorted by address and never overlap.
func (r *splicedMemory) Add(fileOff, addr, length uint64) {
	if length == 0 {
		return
	}
	n := region{addr: addr, length: length, fileOff: fileOff}
	end := n.end()
	newRegions := make([]region, 0, len(r.regions)+2)
	add := func(e region) {
		if e.length == 0 {
			return
		}
		newRegions = append(newRegions, e)
	}
	inserted := false
	for _, e := range r.regions {
		switch {
		case e.end() <= addr:
			// Entry is completely before the new region.
			add(e)
		case end <= e.addr:
			// Entry is completely after the new region.
			if !inserted {
				add(n)
				inserted = true
			}
			add(e)
		case addr <= e.addr && e.end() <= end:
			// Entry is completely overwritten by the new region. Drop.
		case e.addr < addr && e.end() <= end:
			// New region overwrites the end of the entry.
			e.length = addr - e.addr
			add(e)
		case addr <= e.addr && end < e.end():
			// New region overwrites the beginning of the entry.
			if !inserted {
				add(n)
				inserted = true
			}
			add(e.cut(end))
		case e.addr < addr && end < e.end():
			// New region punches a hole in the entry.
			add(region{addr: e.addr, length: addr - e.addr, fileOff: e.fileOff})
			add(n)
			add(e.cut(end))
			inserted = true
		default:
			panic(fmt.Sprintf("unhandled case: existing region %#x len %#x, new is %#x len %#x", e.addr, e.length, addr, length))
		}
	}
	if !inserted {
		newRegions = append(newRegions, n)
	}
	r.regions = newRegions
}

// Read reads up to n bytes at addr, the bytes of each region are read from
// src.
func (r *splicedMemory) Read(src Source, addr, n uint64) ([]byte, error) {
	var out []byte
	for _, e := range r.regions {
		if n == 0 {
			break
		}
		if e.end() <= addr {
			continue
		}
		if e.addr > addr {
			// unmapped hole
			break
		}
		e = e.cut(addr)
		cnt := n
		if cnt > e.length {
			cnt = e.length
		}
		buf, err := src.ReadBuffer(e.fileOff, cnt)
		if err != nil {
			return out, fmt.Errorf("error while reading spliced memory at %#x: %v", addr, err)
		}
		out = append(out, buf...)
		if uint64(len(buf)) != cnt {
			break
		}
		addr += cnt
		n -= cnt
	}
	if len(out) == 0 && n > 0 {
		return nil, fmt.Errorf("address %#x did not match any regions", addr)
	}
	return out, nil
}
