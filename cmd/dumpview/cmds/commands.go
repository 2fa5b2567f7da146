package cmds

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/go-delve/dumpview/pkg/addrspace"
	"github.com/go-delve/dumpview/pkg/config"
	"github.com/go-delve/dumpview/pkg/dumpview"
	"github.com/go-delve/dumpview/pkg/logflags"
	"github.com/go-delve/dumpview/pkg/minidump"
	"github.com/go-delve/dumpview/pkg/report"
	"github.com/go-delve/dumpview/pkg/version"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// logDest is the file path or file descriptor where logs should go.
	logDest string
	// colorMode selects when output is colored.
	colorMode colorFlag
	// verbose makes the version command print build information.
	verbose bool
	// disablePlatforms and enablePlatforms are edited into the
	// disabled-platforms key by the config command.
	disablePlatforms []string
	enablePlatforms  []string

	// rootCommand is the root of the command tree.
	rootCommand *cobra.Command

	conf *config.Config
)

// maxReadCount is the largest count accepted by the read command.
const maxReadCount = 1 << 20

const dumpviewCommandLongDesc = `dumpview reconstructs the address space of a crashed process from a minidump.

The platform of the dumped process is resolved from the system info stream and
every memory region captured by the memory list streams is mapped back to the
virtual addresses it occupied.`

// colorFlag is the value of the --color flag.
type colorFlag string

var _ pflag.Value = (*colorFlag)(nil)

func (c *colorFlag) String() string {
	return string(*c)
}

func (c *colorFlag) Set(s string) error {
	switch s {
	case config.ColorAuto, config.ColorAlways, config.ColorNever:
		*c = colorFlag(s)
		return nil
	}
	return fmt.Errorf("must be one of %s, %s, %s", config.ColorAuto, config.ColorAlways, config.ColorNever)
}

func (c *colorFlag) Type() string {
	return "when"
}

// New returns an initialized command tree.
func New() *cobra.Command {
	// Config setup and load.
	conf = config.LoadConfig()
	colorMode = config.ColorAuto
	if conf.Color != "" {
		colorMode = colorFlag(conf.Color)
	}

	rootCommand = &cobra.Command{
		Use:           "dumpview",
		Short:         "dumpview maps minidumps back to the address space they were taken from.",
		Long:          dumpviewCommandLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logflags.Close()
		},
	}
	rootCommand.SetOut(colorable.NewColorableStdout())

	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", `Comma separated list of components that should produce debug output (see 'dumpview help log')`)
	rootCommand.PersistentFlags().StringVarP(&logDest, "log-dest", "", "", "Writes logs to the specified file or file descriptor (see 'dumpview help log').")
	rootCommand.PersistentFlags().Var(&colorMode, "color", "Colorize output: auto, always or never.")

	rootCommand.AddCommand(&cobra.Command{
		Use:   "info <minidump>",
		Short: "Print the platform and the segments of a minidump.",
		Long: `Prints the header and system information of a minidump, the platform
resolved for it and the segments mapping the captured memory to its
virtual addresses.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(infoCmd(cmd, args))
		},
	})

	rootCommand.AddCommand(&cobra.Command{
		Use:   "meminfo <minidump>",
		Short: "Print the memory information stream of a minidump.",
		Long: `Prints the state, protection and type of every memory region listed in
the memory info list stream, including regions whose contents were not
captured.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(meminfoCmd(cmd, args))
		},
	})

	rootCommand.AddCommand(&cobra.Command{
		Use:   "read <minidump> <address> <count>",
		Short: "Print the memory of the dumped process.",
		Long: `Prints count bytes of the reconstructed address space starting at address.

Both numbers can be given in decimal, hexadecimal (0x prefix) or octal (0
prefix). The output ends early at the first address that was not captured.`,
		Args: cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(readCmd(cmd, args))
		},
	})

	configCommand := &cobra.Command{
		Use:   "config",
		Short: "Print the path of the configuration file or edit it.",
		Long: `Prints the path of the configuration file.

With --disable or --enable the named platforms are added to or removed from
the disabled-platforms key and the file is saved.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(configCmd(cmd, args))
		},
	}
	configCommand.Flags().StringSliceVar(&disablePlatforms, "disable", nil, "Platforms to disable.")
	configCommand.Flags().StringSliceVar(&enablePlatforms, "enable", nil, "Platforms to enable.")
	rootCommand.AddCommand(configCommand)

	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dumpview\n%s\n", version.DumpviewVersion)
			if verbose {
				fmt.Fprintf(cmd.OutOrStdout(), "Build Details: %s\n", version.BuildInfo())
			}
		},
	}
	versionCommand.Flags().BoolVarP(&verbose, "verbose", "v", false, "print verbose version info")
	rootCommand.AddCommand(versionCommand)

	rootCommand.AddCommand(&cobra.Command{
		Use:   "log",
		Short: "Help about logging flags.",
		Long: `Logging can be enabled by specifying the --log flag and using the
--log-output flag to select which components should produce logs.

The argument of --log-output must be a comma separated list of component
names selected from this list:


	minidump	Log the header and stream directory of minidumps
	dumpview	Log platform resolution and segment collection
	addrspace	Log segment registration

If --log-output is not given the log-output key of the configuration file
is used, and dumpview if that is not set either.

Additionally --log-dest can be used to specify where the logs should be
written.
If the argument is a number it will be interpreted as a file descriptor,
otherwise as a file path.
`,
	})

	rootCommand.DisableAutoGenTag = true

	return rootCommand
}

func setup(cmd *cobra.Command) error {
	logstr := logOutput
	if log && logstr == "" {
		logstr = conf.LogOutput
	}
	if err := logflags.Setup(log, logstr, logDest); err != nil {
		return err
	}
	report.SetColor(string(colorMode), os.Stdout)
	return nil
}

// load reads the minidump at path and builds its address space.
func load(path string) (*minidump.Minidump, *addrspace.View, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	v, err := dumpview.Open(addrspace.Bytes(buf), conf.Registry())
	if err != nil {
		return nil, nil, err
	}
	mdmp, err := minidump.Read(buf, nil)
	if err != nil {
		return nil, nil, err
	}
	return mdmp, v, nil
}

func printError(cmd *cobra.Command, path string, err error) int {
	switch {
	case errors.Is(err, dumpview.ErrNotThisFormat):
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: not a minidump\n", path)
	default:
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
	}
	return 1
}

func infoCmd(cmd *cobra.Command, args []string) int {
	mdmp, v, err := load(args[0])
	if err != nil {
		return printError(cmd, args[0], err)
	}
	out := cmd.OutOrStdout()
	report.System(out, mdmp)
	fmt.Fprintln(out)
	report.View(out, v)
	return 0
}

func meminfoCmd(cmd *cobra.Command, args []string) int {
	buf, err := os.ReadFile(args[0])
	if err != nil {
		return printError(cmd, args[0], err)
	}
	if !dumpview.IsValidFor(addrspace.Bytes(buf)) {
		return printError(cmd, args[0], dumpview.ErrNotThisFormat)
	}
	mdmp, err := minidump.Read(buf, nil)
	if err != nil {
		return printError(cmd, args[0], err)
	}
	infos, err := mdmp.MemoryInfoList()
	if err != nil {
		return printError(cmd, args[0], err)
	}
	report.MemoryInfo(cmd.OutOrStdout(), infos)
	return 0
}

func configCmd(cmd *cobra.Command, args []string) int {
	path, err := config.GetConfigFilePath("config.yml")
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
		return 1
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	if len(disablePlatforms) == 0 && len(enablePlatforms) == 0 {
		return 0
	}
	if err := editPlatforms(conf, disablePlatforms, enablePlatforms); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
		return 1
	}
	if err := config.SaveConfig(conf); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "could not save config: %v\n", err)
		return 1
	}
	return 0
}

// editPlatforms disables then enables the named platforms in c.
func editPlatforms(c *config.Config, disable, enable []string) error {
	for _, name := range disable {
		if err := c.SetPlatformEnabled(name, false); err != nil {
			return err
		}
	}
	for _, name := range enable {
		if err := c.SetPlatformEnabled(name, true); err != nil {
			return err
		}
	}
	return nil
}

func readCmd(cmd *cobra.Command, args []string) int {
	addr, err := strconv.ParseUint(args[1], 0, 64)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Invalid address: %s\n", args[1])
		return 1
	}
	count, err := strconv.ParseUint(args[2], 0, 64)
	if err != nil || count == 0 || count > maxReadCount {
		fmt.Fprintf(cmd.ErrOrStderr(), "Invalid count: %s\n", args[2])
		return 1
	}
	_, v, err := load(args[0])
	if err != nil {
		return printError(cmd, args[0], err)
	}
	mem, err := v.ReadBuffer(addr, count)
	if err != nil {
		return printError(cmd, args[0], err)
	}
	dumpMemory(cmd.OutOrStdout(), addr, mem)
	if uint64(len(mem)) < count {
		fmt.Fprintf(cmd.ErrOrStderr(), "read %d of %d bytes, %#x is not mapped\n", len(mem), count, addr+uint64(len(mem)))
	}
	return 0
}

// dumpMemory prints mem in the format of hexdump -C with addresses
// starting at addr.
func dumpMemory(w io.Writer, addr uint64, mem []byte) {
	for len(mem) > 0 {
		n := 16
		if n > len(mem) {
			n = len(mem)
		}
		// hex.Dump numbers lines from zero, only its hex and ascii
		// columns are kept.
		line := strings.TrimSuffix(hex.Dump(mem[:n]), "\n")
		fmt.Fprintf(w, "%016x%s\n", addr, line[8:])
		addr += uint64(n)
		mem = mem[n:]
	}
}
