// Package minidump provides a reader for Minidump files.
// Minidump files are the Windows equivalent of unix core dumps, breakpad and
// crashpad also produce them for macOS and Linux processes.
//
// The file format is described on MSDN starting at:
//
//	https://docs.microsoft.com/en-us/windows/desktop/api/minidumpapiset/ns-minidumpapiset-_minidump_header
//
// which is the structure found at offset 0 on a minidump file.
//
// Further information on the format can be found reading
// chromium-breakpad's minidump loading code, specifically:
//
//	https://chromium.googlesource.com/breakpad/breakpad/+/master/src/google_breakpad/common/minidump_format.h
//
// Only the header and the stream directory are decoded when a file is read,
// the streams themselves are decoded on request by the typed accessors
// (SystemInfo, MemoryList, Memory64List, MemoryInfoList, MiscInfo) or
// returned uninterpreted by RawStream.
package minidump

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"unicode/utf16"

	"github.com/lunixbochs/struc"
)

type minidumpBuf struct {
	buf   []byte
	order binary.ByteOrder
	kind  string
	base  int // file offset of buf[0]
	off   int
	err   error
	ctx   string
}

func (buf *minidumpBuf) truncated() {
	buf.err = fmt.Errorf("minidump %s truncated at offset %#x while %s", buf.kind, buf.base+buf.off, buf.ctx)
}

func (buf *minidumpBuf) avail(stride int) bool {
	if buf.err != nil {
		return false
	}
	if buf.off < 0 || buf.off+stride > len(buf.buf) {
		buf.truncated()
		return false
	}
	return true
}

func (buf *minidumpBuf) u16() uint16 {
	const stride = 2
	if !buf.avail(stride) {
		return 0
	}
	r := buf.order.Uint16(buf.buf[buf.off : buf.off+stride])
	buf.off += stride
	return r
}

func (buf *minidumpBuf) u32() uint32 {
	const stride = 4
	if !buf.avail(stride) {
		return 0
	}
	r := buf.order.Uint32(buf.buf[buf.off : buf.off+stride])
	buf.off += stride
	return r
}

func (buf *minidumpBuf) u64() uint64 {
	const stride = 8
	if !buf.avail(stride) {
		return 0
	}
	r := buf.order.Uint64(buf.buf[buf.off : buf.off+stride])
	buf.off += stride
	return r
}

// unpack decodes the fixed-layout record v (a pointer to a struct) at the
// current offset.
func (buf *minidumpBuf) unpack(v interface{}) {
	if buf.err != nil {
		return
	}
	sz, err := struc.Sizeof(v)
	if err != nil {
		buf.err = fmt.Errorf("minidump %s: bad record layout while %s: %v", buf.kind, buf.ctx, err)
		return
	}
	if !buf.avail(sz) {
		return
	}
	if err := struc.UnpackWithOrder(bytes.NewReader(buf.buf[buf.off:buf.off+sz]), v, buf.order); err != nil {
		buf.err = fmt.Errorf("minidump %s: could not decode record at offset %#x while %s: %v", buf.kind, buf.base+buf.off, buf.ctx, err)
		return
	}
	buf.off += sz
}

// remaining returns the number of bytes left after the current offset.
func (buf *minidumpBuf) remaining() int {
	if buf.off >= len(buf.buf) {
		return 0
	}
	return len(buf.buf) - buf.off
}

// ErrNotAMinidump is the error returned when the file being loaded is not a
// minidump file.
type ErrNotAMinidump struct {
	what string
	got  uint32
}

func (err ErrNotAMinidump) Error() string {
	return fmt.Sprintf("not a minidump, invalid %s %#x", err.what, err.got)
}

// ErrStreamNotFound is returned, wrapped, when a minidump has no stream of
// the requested type.
var ErrStreamNotFound = errors.New("stream not found")

const (
	minidumpSignature = 0x504d444d // 'MDMP'
	minidumpVersion   = 0xa793
)

// Endian is the byte order of a minidump file, decided by how its
// signature is stored.
type Endian uint8

const (
	LittleEndian Endian = iota
	BigEndian
)

// ByteOrder returns the encoding/binary byte order for e.
func (e Endian) ByteOrder() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (e Endian) String() string {
	if e == BigEndian {
		return "big"
	}
	return "little"
}

// Minidump represents a minidump file
type Minidump struct {
	Endian                Endian
	ImplementationVersion uint16
	Timestamp             uint32
	Flags                 FileFlags

	Streams []Stream

	raw []byte
}

// Stream represents one (uninterpreted) stream in a minidump file.
// See: https://docs.microsoft.com/en-us/windows/desktop/api/minidumpapiset/ns-minidumpapiset-_minidump_directory
type Stream struct {
	Type    StreamType
	Offset  int
	RawData []byte
}

// header is MINIDUMP_HEADER.
type header struct {
	Signature             uint32
	Version               uint16
	ImplementationVersion uint16
	NumberOfStreams       uint32
	StreamDirectoryRva    uint32
	CheckSum              uint32
	TimeDateStamp         uint32
	Flags                 uint64
}

// directoryEntry is MINIDUMP_DIRECTORY.
type directoryEntry struct {
	StreamType uint32
	DataSize   uint32
	Rva        uint32
}

// Open reads the minidump file at path and returns it as a Minidump structure.
func Open(path string, logfn func(fmt string, args ...interface{})) (*Minidump, error) {
	rawbuf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Read(rawbuf, logfn)
}

// Read parses the header and stream directory of the minidump contained in
// data. The returned Minidump keeps a reference to data.
func Read(data []byte, logfn func(fmt string, args ...interface{})) (*Minidump, error) {
	mdmp := Minidump{raw: data}

	if len(data) < 4 {
		return nil, ErrNotAMinidump{"signature", 0}
	}
	switch sig := binary.LittleEndian.Uint32(data); {
	case sig == minidumpSignature:
		mdmp.Endian = LittleEndian
	case binary.BigEndian.Uint32(data) == minidumpSignature:
		mdmp.Endian = BigEndian
	default:
		return nil, ErrNotAMinidump{"signature", sig}
	}

	buf := mdmp.fileBuf(0, "reading minidump header")

	var hdr header
	buf.unpack(&hdr)
	if buf.err != nil {
		return nil, buf.err
	}
	if hdr.Version != minidumpVersion {
		return nil, ErrNotAMinidump{"version", uint32(hdr.Version)}
	}
	mdmp.ImplementationVersion = hdr.ImplementationVersion
	mdmp.Timestamp = hdr.TimeDateStamp
	mdmp.Flags = FileFlags(hdr.Flags)

	if logfn != nil {
		logfn("Minidump Header\n")
		logfn("Byte order: %s endian\n", mdmp.Endian)
		logfn("Num Streams: %d\n", hdr.NumberOfStreams)
		logfn("Streams offset: %#x\n", hdr.StreamDirectoryRva)
		logfn("File flags: %s\n", mdmp.Flags)
	}

	readDirectory(&mdmp, buf, hdr)
	if buf.err != nil {
		return nil, buf.err
	}

	if logfn != nil {
		for i := range mdmp.Streams {
			stream := &mdmp.Streams[i]
			logfn("Stream %d: type:%s off:%#x size:%#x\n", i, stream.Type, stream.Offset, len(stream.RawData))
			switch stream.Type {
			case CommentStreamW:
				logfn("\t%q\n", decodeUTF16(stream.RawData, mdmp.Endian.ByteOrder()))
			case CommentStreamA:
				logfn("\t%s\n", string(stream.RawData))
			}
		}
	}

	return &mdmp, nil
}

// Stream returns the first stream of type t.
func (mdmp *Minidump) Stream(t StreamType) (*Stream, error) {
	for i := range mdmp.Streams {
		if mdmp.Streams[i].Type == t {
			return &mdmp.Streams[i], nil
		}
	}
	return nil, fmt.Errorf("%s: %w", t, ErrStreamNotFound)
}

// RawStream returns the uninterpreted contents of the first stream of type t.
func (mdmp *Minidump) RawStream(t StreamType) ([]byte, error) {
	stream, err := mdmp.Stream(t)
	if err != nil {
		return nil, err
	}
	return stream.RawData, nil
}

// Len returns the size of the minidump file in bytes.
func (mdmp *Minidump) Len() int {
	return len(mdmp.raw)
}

func (mdmp *Minidump) fileBuf(off int, ctx string) *minidumpBuf {
	return &minidumpBuf{
		buf:   mdmp.raw,
		order: mdmp.Endian.ByteOrder(),
		kind:  "file",
		off:   off,
		ctx:   ctx,
	}
}

func (mdmp *Minidump) streamBuf(stream *Stream, name string) *minidumpBuf {
	return &minidumpBuf{
		buf:   stream.RawData,
		order: mdmp.Endian.ByteOrder(),
		kind:  "stream",
		base:  stream.Offset,
		ctx:   fmt.Sprintf("reading %s stream at %#x", name, stream.Offset),
	}
}

// decodeUTF16 converts a NUL-terminated UTF16 string to (non NUL-terminated) UTF8.
func decodeUTF16(in []byte, order binary.ByteOrder) string {
	utf16encoded := []uint16{}
	for i := 0; i+1 < len(in); i += 2 {
		utf16encoded = append(utf16encoded, order.Uint16(in[i:]))
	}
	s := string(utf16.Decode(utf16encoded))
	if len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	return s
}

// readDirectory reads the list of streams (i.e. the minidump "directory")
func readDirectory(mdmp *Minidump, buf *minidumpBuf, hdr header) {
	buf.off = int(hdr.StreamDirectoryRva)

	const entrySize = 12
	if uint64(hdr.NumberOfStreams)*entrySize > uint64(buf.remaining()) {
		buf.ctx = "reading stream directory"
		buf.truncated()
		return
	}

	mdmp.Streams = make([]Stream, hdr.NumberOfStreams)
	for i := range mdmp.Streams {
		buf.ctx = fmt.Sprintf("reading stream directory entry %d", i)
		var ent directoryEntry
		buf.unpack(&ent)
		stream := &mdmp.Streams[i]
		stream.Type = StreamType(ent.StreamType)
		stream.Offset, stream.RawData = readLocationDescriptor(buf, ent.DataSize, ent.Rva)
		if buf.err != nil {
			return
		}
	}
}

// readLocationDescriptor resolves a location descriptor (a structure which
// describes a subregion of the file) and returns the destination offset and
// a slice into the minidump file's buffer.
func readLocationDescriptor(buf *minidumpBuf, sz, rva uint32) (off int, rawData []byte) {
	if buf.err != nil {
		return 0, nil
	}
	off = int(rva)
	if sz == 0 {
		return off, nil
	}
	end := uint64(rva) + uint64(sz)
	if off >= len(buf.buf) || end > uint64(len(buf.buf)) {
		buf.err = fmt.Errorf("location starting at %#x of size %#x is past the end of file, while %s", off, sz, buf.ctx)
		return 0, nil
	}
	rawData = buf.buf[off:end]
	return
}

// readString reads a MINIDUMP_STRING at the current offset.
func readString(buf *minidumpBuf) string {
	startOff := buf.off
	sz := buf.u32()
	if buf.err != nil {
		return ""
	}
	end := buf.off + int(sz)
	if buf.off >= len(buf.buf) || end > len(buf.buf) {
		buf.err = fmt.Errorf("string starting at %#x of size %#x is past the end of file, while %s", startOff, sz, buf.ctx)
		return ""
	}
	return decodeUTF16(buf.buf[buf.off:end], buf.order)
}
