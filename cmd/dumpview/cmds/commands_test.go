package cmds

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/go-delve/dumpview/pkg/config"
	"github.com/go-delve/dumpview/pkg/mdmpwriter"
	"github.com/go-delve/dumpview/pkg/minidump"
)

func init() {
	color.NoColor = true
}

// writeDump writes a linux/arm64 minidump with two memory regions to a
// temporary file and returns its path.
func writeDump(t *testing.T) string {
	t.Helper()
	w := mdmpwriter.New(minidump.LittleEndian)
	w.WriteSystemInfo(&minidump.SystemInfo{
		ProcessorArch:      minidump.CpuArchitectureARM64,
		NumberOfProcessors: 8,
		PlatformID:         minidump.PlatformLinux,
	})
	d := w.WriteMemory(0x10000, []byte("hello, minidump!abc"))
	w.WriteMemoryList([]minidump.MemoryDescriptor{d})
	w.WriteMemory64([]mdmpwriter.Memory{{Addr: 0xffff0000, Data: []byte{0xde, 0xad, 0xbe, 0xef}}})
	w.WriteMemoryInfoList([]minidump.MemoryInfo{
		{Addr: 0x10000, Size: 0x1000, State: minidump.MemoryStateCommit, Protection: minidump.MemoryProtectReadOnly, Type: minidump.MemoryTypeImage},
	})
	path := filepath.Join(t.TempDir(), "test.dmp")
	if err := os.WriteFile(path, w.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func testCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	conf = &config.Config{}
	cmd := &cobra.Command{}
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	return cmd, &stdout, &stderr
}

func TestInfoCmd(t *testing.T) {
	path := writeDump(t)
	cmd, stdout, stderr := testCommand()
	if status := infoCmd(cmd, []string{path}); status != 0 {
		t.Fatalf("exit status %d: %s", status, stderr)
	}
	out := stdout.String()
	for _, want := range []string{"Platform: linux-aarch64", "SEGMENTS (2, 23 B)", "arm64 (CpuArchitectureARM64), 8 processors"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestInfoCmdDisabledPlatform(t *testing.T) {
	path := writeDump(t)
	cmd, _, stderr := testCommand()
	conf.DisabledPlatforms = []string{"linux-aarch64"}
	if status := infoCmd(cmd, []string{path}); status != 1 {
		t.Fatalf("exit status %d", status)
	}
	if !strings.Contains(stderr.String(), "unsupported platform") {
		t.Errorf("unexpected error output %q", stderr)
	}
}

func TestInfoCmdNotAMinidump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elf")
	if err := os.WriteFile(path, []byte("\x7fELF\x02\x01\x01"), 0o600); err != nil {
		t.Fatal(err)
	}
	for _, fn := range []func(*cobra.Command, []string) int{infoCmd, meminfoCmd} {
		cmd, _, stderr := testCommand()
		if status := fn(cmd, []string{path}); status != 1 {
			t.Fatalf("exit status %d", status)
		}
		if want := path + ": not a minidump\n"; stderr.String() != want {
			t.Errorf("expected %q got %q", want, stderr)
		}
	}
}

func TestMeminfoCmd(t *testing.T) {
	path := writeDump(t)
	cmd, stdout, stderr := testCommand()
	if status := meminfoCmd(cmd, []string{path}); status != 0 {
		t.Fatalf("exit status %d: %s", status, stderr)
	}
	out := stdout.String()
	for _, want := range []string{"MEMORY INFORMATION (1 regions)", "PAGE_READONLY", "Image", "Committed: 4.0 KiB"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestReadCmd(t *testing.T) {
	path := writeDump(t)

	cmd, stdout, stderr := testCommand()
	if status := readCmd(cmd, []string{path, "0x10000", "16"}); status != 0 {
		t.Fatalf("exit status %d: %s", status, stderr)
	}
	const want = "0000000000010000  68 65 6c 6c 6f 2c 20 6d  69 6e 69 64 75 6d 70 21  |hello, minidump!|\n"
	if stdout.String() != want {
		t.Errorf("expected %q got %q", want, stdout)
	}

	cmd, stdout, stderr = testCommand()
	if status := readCmd(cmd, []string{path, "0xffff0002", "8"}); status != 0 {
		t.Fatalf("exit status %d: %s", status, stderr)
	}
	if !strings.HasPrefix(stdout.String(), "00000000ffff0002  be ef ") {
		t.Errorf("unexpected output %q", stdout)
	}
	if !strings.Contains(stderr.String(), "read 2 of 8 bytes") {
		t.Errorf("short read not reported: %q", stderr)
	}

	for _, args := range [][]string{
		{path, "0x20000", "4"},
		{path, "nope", "4"},
		{path, "0x10000", "0"},
		{path, "0x10000", "-1"},
	} {
		cmd, _, _ := testCommand()
		if status := readCmd(cmd, args); status != 1 {
			t.Errorf("%v: exit status %d", args, status)
		}
	}
}

func TestColorFlag(t *testing.T) {
	var c colorFlag
	for _, s := range []string{config.ColorAuto, config.ColorAlways, config.ColorNever} {
		if err := c.Set(s); err != nil || c.String() != s {
			t.Errorf("Set(%q): %v, value %q", s, err, c.String())
		}
	}
	if err := c.Set("sometimes"); err == nil {
		t.Errorf("invalid value accepted")
	}
	if c.String() != config.ColorNever {
		t.Errorf("invalid value changed the flag to %q", c.String())
	}
}

func TestDumpMemory(t *testing.T) {
	var buf bytes.Buffer
	mem := make([]byte, 20)
	for i := range mem {
		mem[i] = byte('a' + i)
	}
	dumpMemory(&buf, 0x1000, mem)
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines got %d: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "0000000000001000  61 62") || !strings.HasSuffix(lines[0], "|abcdefghijklmnop|") {
		t.Errorf("wrong first line %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "0000000000001010  71 72 73 74") || !strings.HasSuffix(lines[1], "|qrst|") {
		t.Errorf("wrong second line %q", lines[1])
	}
}

func TestConfigCmdPrintsPath(t *testing.T) {
	want, err := config.GetConfigFilePath("config.yml")
	if err != nil {
		t.Skip(err)
	}
	disablePlatforms, enablePlatforms = nil, nil
	cmd, stdout, stderr := testCommand()
	if status := configCmd(cmd, nil); status != 0 {
		t.Fatalf("exit status %d: %s", status, stderr)
	}
	if got := strings.TrimSpace(stdout.String()); got != want {
		t.Errorf("expected %q got %q", want, got)
	}
}

func TestEditPlatforms(t *testing.T) {
	c := &config.Config{DisabledPlatforms: []string{"linux-ppc32"}}
	if err := editPlatforms(c, []string{"mac-x86", "windows-armv7"}, []string{"linux-ppc32", "windows-armv7"}); err != nil {
		t.Fatal(err)
	}
	if strings.Join(c.DisabledPlatforms, ",") != "mac-x86" {
		t.Errorf("wrong disabled platforms %v", c.DisabledPlatforms)
	}
	reg := c.Registry()
	if _, ok := reg.ByName("mac-x86"); ok {
		t.Errorf("mac-x86 still in registry")
	}
	if _, ok := reg.ByName("linux-ppc32"); !ok {
		t.Errorf("linux-ppc32 missing from registry")
	}
	if err := editPlatforms(c, []string{"plan9-mips"}, nil); err == nil {
		t.Errorf("unknown platform accepted")
	}
}
