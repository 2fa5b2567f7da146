package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shibukawa/configdir"
	"gopkg.in/yaml.v2"

	"github.com/go-delve/dumpview/pkg/platform"
)

const (
	vendorName string = "go-delve"
	appName    string = "dumpview"
	configFile string = "config.yml"
)

// Values accepted by the color option.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config defines all configuration options available to be set through the config file.
type Config struct {
	// LogOutput is the list of components that log when --log is passed
	// without --log-output.
	LogOutput string `yaml:"log-output,omitempty"`

	// DisabledPlatforms lists platforms that are never assigned to a
	// minidump, as if the host did not support them.
	DisabledPlatforms []string `yaml:"disabled-platforms"`

	// Color controls colored output: auto, always or never.
	Color string `yaml:"color,omitempty"`
}

// Registry returns the default platform registry without the disabled
// platforms.
func (c *Config) Registry() *platform.Table {
	return platform.Default().Without(c.DisabledPlatforms...)
}

// SetPlatformEnabled removes name from or adds it to DisabledPlatforms.
func (c *Config) SetPlatformEnabled(name string, enabled bool) error {
	if _, ok := platform.Default().ByName(name); !ok {
		return fmt.Errorf("unknown platform %q", name)
	}
	var disabled []string
	for _, n := range c.DisabledPlatforms {
		if n != name {
			disabled = append(disabled, n)
		}
	}
	if !enabled {
		disabled = append(disabled, name)
	}
	c.DisabledPlatforms = disabled
	return nil
}

// Validate checks the values of the configuration options.
func (c *Config) Validate() error {
	switch c.Color {
	case "", ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("invalid color option %q, must be one of %s, %s, %s", c.Color, ColorAuto, ColorAlways, ColorNever)
	}
	reg := platform.Default()
	for _, name := range c.DisabledPlatforms {
		if _, ok := reg.ByName(name); !ok {
			return fmt.Errorf("unknown platform %q in disabled-platforms", name)
		}
	}
	return nil
}

// LoadConfig attempts to populate a Config object from the config.yml file.
func LoadConfig() *Config {
	if _, err := createConfigPath(); err != nil {
		fmt.Printf("Could not create config directory: %v.", err)
		return &Config{}
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		fmt.Printf("%v.", err)
		return &Config{}
	}
	if _, err := os.Stat(fullConfigFile); os.IsNotExist(err) {
		if err := createDefaultConfig(fullConfigFile); err != nil {
			fmt.Printf("Error creating default config file: %v", err)
			return &Config{}
		}
	}
	c, err := LoadConfigFrom(fullConfigFile)
	if err != nil {
		fmt.Printf("%v.", err)
		return &Config{}
	}
	return c
}

// LoadConfigFrom reads the configuration file at path.
func LoadConfigFrom(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open config file: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("unable to read config data: %v", err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unable to decode config file: %v", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return &c, nil
}

// SaveConfig will marshal and save the config struct
// to disk.
func SaveConfig(conf *Config) error {
	if _, err := createConfigPath(); err != nil {
		return err
	}
	path, err := GetConfigFilePath(configFile)
	if err != nil {
		return err
	}
	return SaveConfigTo(path, conf)
}

// SaveConfigTo will marshal conf and save it to path.
func SaveConfigTo(path string, conf *Config) error {
	out, err := yaml.Marshal(*conf)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(out)
	return err
}

func createDefaultConfig(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create config file: %v", err)
	}
	defer f.Close()
	err = writeDefaultConfig(f)
	if err != nil {
		return fmt.Errorf("unable to write default configuration: %v", err)
	}
	return nil
}

func writeDefaultConfig(w io.Writer) error {
	_, err := io.WriteString(w,
		`# Configuration file for dumpview.

# This is the default configuration file. Available options are provided, but disabled.
# Delete the leading hash mark to enable an item.

# Components that log when --log is passed without --log-output.
# log-output: minidump,dumpview

# Platforms that are never assigned to a minidump, for example:
# disabled-platforms: ["linux-ppc32", "linux-ppc32_le"]
disabled-platforms: []

# Colored output: auto, always or never.
# color: auto
`)
	return err
}

// createConfigPath creates the directory at which all config files are
// saved and returns it.
func createConfigPath() (string, error) {
	dirs := configdir.New(vendorName, appName).QueryFolders(configdir.Global)
	if len(dirs) == 0 {
		return "", fmt.Errorf("no config directory")
	}
	if err := dirs[0].MkdirAll(); err != nil {
		return "", err
	}
	return dirs[0].Path, nil
}

// GetConfigFilePath gets the full path to the given config file name.
// The directory is not created.
func GetConfigFilePath(file string) (string, error) {
	dirs := configdir.New(vendorName, appName).QueryFolders(configdir.Global)
	if len(dirs) == 0 {
		return "", fmt.Errorf("no config directory")
	}
	return filepath.Join(dirs[0].Path, file), nil
}
