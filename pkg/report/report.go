// Package report prints human readable summaries of minidumps and of the
// address spaces built from them.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"

	"github.com/go-delve/dumpview/pkg/addrspace"
	"github.com/go-delve/dumpview/pkg/minidump"
)

var (
	headerClr = color.New(color.FgGreen)
	itemClr   = color.New(color.Bold)
	execClr   = color.New(color.FgRed)
	freeClr   = color.New(color.Faint)
)

// SetColor enables or disables colored output. mode is one of "auto",
// "always" or "never", with "auto" colors are used only when out is a
// terminal.
func SetColor(mode string, out *os.File) {
	switch mode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		fd := out.Fd()
		color.NoColor = !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
	}
}

// System prints the header, the system info and the misc info streams of
// mdmp.
func System(w io.Writer, mdmp *minidump.Minidump) {
	headerClr.Fprintf(w, "MINIDUMP\n")
	fmt.Fprintf(w, "  Byte order:\t%s endian\n", mdmp.Endian)
	fmt.Fprintf(w, "  Size:\t\t%s\n", humanize.IBytes(uint64(mdmp.Len())))
	fmt.Fprintf(w, "  Streams:\t%d\n", len(mdmp.Streams))
	if mdmp.Timestamp != 0 {
		fmt.Fprintf(w, "  Timestamp:\t%s\n", time.Unix(int64(mdmp.Timestamp), 0).UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(w, "  Flags:\t%s\n", mdmp.Flags)

	si, err := mdmp.SystemInfo()
	if err != nil {
		fmt.Fprintf(w, "  System info:\t%v\n", err)
	} else {
		fmt.Fprintf(w, "  CPU:\t\t%s (%s), %d processors\n", itemClr.Sprint(si.Cpu()), si.ProcessorArch, si.NumberOfProcessors)
		fmt.Fprintf(w, "  OS:\t\t%s %d.%d.%d", itemClr.Sprint(si.OS()), si.MajorVersion, si.MinorVersion, si.BuildNumber)
		if si.CSDVersion != "" {
			fmt.Fprintf(w, " %s", si.CSDVersion)
		}
		fmt.Fprintln(w)
	}

	if mi, err := mdmp.MiscInfo(); err == nil && mi.Flags&minidump.MiscInfoProcessID != 0 {
		fmt.Fprintf(w, "  Process ID:\t%d\n", mi.ProcessID)
	}
}

// MemoryInfo prints the MemoryInfoList stream as a table.
func MemoryInfo(w io.Writer, infos []minidump.MemoryInfo) {
	headerClr.Fprintf(w, "MEMORY INFORMATION (%d regions)\n", len(infos))
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Base", "End", "Size", "State", "Protection", "Type", "Allocation Base"})
	table.SetBorder(false)
	var total uint64
	for _, mi := range infos {
		prot := mi.Protection.String()
		switch {
		case mi.State == minidump.MemoryStateFree:
			prot = freeClr.Sprint(prot)
		case mi.Protection&(minidump.MemoryProtectExecute|minidump.MemoryProtectExecuteRead|minidump.MemoryProtectExecuteReadWrite|minidump.MemoryProtectExecuteWriteCopy) != 0:
			prot = execClr.Sprint(prot)
		}
		table.Append([]string{
			fmt.Sprintf("%#016x", mi.Addr),
			fmt.Sprintf("%#016x", mi.Addr+mi.Size),
			humanize.IBytes(mi.Size),
			shortName(mi.State.String(), "MemoryState"),
			prot,
			typeName(mi),
			fmt.Sprintf("%#x", mi.AllocationBase),
		})
		if mi.State == minidump.MemoryStateCommit {
			total += mi.Size
		}
	}
	table.Render()
	fmt.Fprintf(w, "Committed: %s\n", humanize.IBytes(total))
}

// View prints the platform and the segments of v.
func View(w io.Writer, v *addrspace.View) {
	platform := "none"
	if p := v.DefaultPlatform(); p != nil {
		platform = p.Name
	}
	fmt.Fprintf(w, "Platform: %s\n", itemClr.Sprint(platform))

	segs := v.Segments()
	var total uint64
	for _, seg := range segs {
		total += seg.Virtual.Len()
	}
	headerClr.Fprintf(w, "SEGMENTS (%d, %s)\n", len(segs), humanize.IBytes(total))
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Virtual Start", "Virtual End", "File Start", "File End", "Size"})
	table.SetBorder(false)
	for _, seg := range segs {
		table.Append([]string{
			fmt.Sprintf("%#016x", seg.Virtual.Start),
			fmt.Sprintf("%#016x", seg.Virtual.End),
			fmt.Sprintf("%#x", seg.File.Start),
			fmt.Sprintf("%#x", seg.File.End),
			humanize.IBytes(seg.Virtual.Len()),
		})
	}
	table.Render()
}

func typeName(mi minidump.MemoryInfo) string {
	if mi.State == minidump.MemoryStateFree {
		// the type of free regions is undefined
		return ""
	}
	return shortName(mi.Type.String(), "MemoryType")
}

func shortName(s, prefix string) string {
	return strings.TrimPrefix(s, prefix)
}
