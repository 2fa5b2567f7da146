package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v2"
)

func TestDefaultConfigParses(t *testing.T) {
	var buf bytes.Buffer
	if err := writeDefaultConfig(&buf); err != nil {
		t.Fatal(err)
	}
	var c Config
	if err := yaml.Unmarshal(buf.Bytes(), &c); err != nil {
		t.Fatalf("default config does not parse: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if c.LogOutput != "" || len(c.DisabledPlatforms) != 0 || c.Color != "" {
		t.Errorf("default config enables options: %#v", c)
	}
}

func TestLoadConfigFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFile)
	data := `log-output: minidump,addrspace
disabled-platforms: ["linux-ppc32", "mac-armv7"]
color: never
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{
		LogOutput:         "minidump,addrspace",
		DisabledPlatforms: []string{"linux-ppc32", "mac-armv7"},
		Color:             ColorNever,
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	reg := c.Registry()
	if _, ok := reg.ByName("linux-ppc32"); ok {
		t.Errorf("disabled platform linux-ppc32 still in registry")
	}
	if _, ok := reg.ByName("linux-ppc32_le"); !ok {
		t.Errorf("linux-ppc32_le missing from registry")
	}
}

func TestLoadConfigFromInvalid(t *testing.T) {
	for _, data := range []string{
		"color: sometimes\n",
		"disabled-platforms: [\"plan9-mips\"]\n",
		"disabled-platforms: {\n",
	} {
		path := filepath.Join(t.TempDir(), configFile)
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatal(err)
		}
		if c, err := LoadConfigFrom(path); err == nil {
			t.Errorf("%q: expected an error, got %#v", data, c)
		}
	}
}

func TestSaveConfigTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFile)
	conf := &Config{DisabledPlatforms: []string{"windows-x86"}, Color: ColorAlways}
	if err := SaveConfigTo(path, conf); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(conf, c); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestSetPlatformEnabled(t *testing.T) {
	c := &Config{DisabledPlatforms: []string{"linux-ppc32", "mac-armv7"}}
	if err := c.SetPlatformEnabled("windows-x86", false); err != nil {
		t.Fatal(err)
	}
	if err := c.SetPlatformEnabled("linux-ppc32", true); err != nil {
		t.Fatal(err)
	}
	// disabling twice does not duplicate the entry
	if err := c.SetPlatformEnabled("mac-armv7", false); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"windows-x86", "mac-armv7"}, c.DisabledPlatforms); diff != "" {
		t.Fatalf("disabled platforms mismatch (-want +got):\n%s", diff)
	}
	if err := c.SetPlatformEnabled("plan9-mips", false); err == nil {
		t.Fatal("unknown platform accepted")
	}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestGetConfigFilePath(t *testing.T) {
	path, err := GetConfigFilePath(configFile)
	if err != nil {
		t.Skip(err)
	}
	if filepath.Base(path) != configFile || filepath.Base(filepath.Dir(path)) != appName {
		t.Fatalf("unexpected config path %q", path)
	}
}
