package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/deploymenttheory/go-lfs-debug/internal/common/cryptoutil"
	"github.com/deploymenttheory/go-lfs-debug/internal/common/plistutil"
	"github.com/deploymenttheory/go-lfs-debug/internal/config"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/report"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
	"github.com/deploymenttheory/go-lfs-debug/internal/logger"
	"github.com/deploymenttheory/go-lfs-debug/pkg/tooling"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ExitError is returned when the tool itself fails (bad arguments, an
// unreadable image) as opposed to finding damage in the image
const ExitError = 16

// ConfigEnv names the environment variable holding the config file path
const ConfigEnv = "LFS_DEBUG_CONFIG"

var (
	cfgFile  string
	exitCode int
)

// rootCmd represents the base CLI command
var rootCmd = &cobra.Command{
	Use:   "lfs-debug",
	Short: "Inspect and check littlefs images",
	Long: `lfs-debug decodes the metadata log of a littlefs image, reconstructs
its directory tree and reports corruption it finds along the way.

The exit status combines one bit per problem class:
  1  corrupted metadata pair
  2  directory entry pointing at an unreadable pair
  4  inconsistent global state
  8  cycle in the metadata chain`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Start from the file on every run so flags never leak between runs
		file := cfgFile
		if file == "" {
			file = os.Getenv(ConfigEnv)
		}
		if err := config.Reload(file); err != nil {
			return err
		}
		if err := applyFlags(cmd); err != nil {
			return err
		}
		return logger.InitLogger(logger.LoggerConfig{
			Debug:     config.Instance.Debug,
			LogFormat: config.Instance.LogFormat,
			LogFile:   config.Instance.LogFile,
		})
	},
}

// Execute runs the root command and returns the process exit status
func Execute() int {
	return ExecuteArgs(os.Args[1:], os.Stdout, os.Stderr)
}

// ExecuteArgs runs the CLI with args, writing to stdout and stderr
func ExecuteArgs(args []string, stdout, stderr io.Writer) int {
	exitCode = 0
	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.Execute(); err != nil {
		logger.LogError("Command execution failed", err, nil)
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode | ExitError
	}
	return exitCode
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is search in standard locations)")
	pf.Bool("debug", false, "Enable debug logging")
	pf.String("log-format", "human", "Log format: json or human")
	pf.String("log-file", "", "Also write logs to this file")
	pf.Uint32("block-size", 4096, "Block size of the image in bytes")
	pf.Uint32("block-count", 0, "Number of blocks (default derived from the image size)")
	pf.String("root", "", "Root pair as two block numbers, e.g. 0,1")
	pf.Bool("mmap", false, "Memory-map raw images instead of reading them")
	pf.Int("max-mdirs", 0, "Stop after this many metadata pairs (0 is unlimited)")
	pf.StringP("format", "f", "text", "Output format: text, json, yaml, cbor or plist")
	pf.String("mode", "tree", "Dump granularity: tree, tags or log")
	pf.Bool("no-truncate", false, "Show full payloads and file previews")
	pf.String("color", "auto", "Color output: auto, always or never")
	pf.String("digest", "", fmt.Sprintf("Digest file contents, one of %v", cryptoutil.Algorithms()))

	rootCmd.AddCommand(treeCmd, mdirCmd, tagCmd, catCmd, gstateCmd, checkCmd, fixtureCmd, versionCmd)
}

// resetFlags restores every flag to its default so repeated executions in
// one process start clean
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// applyFlags copies explicitly set flags over the loaded configuration
func applyFlags(cmd *cobra.Command) error {
	f := cmd.Flags()
	c := &config.Instance

	if f.Changed("debug") {
		c.Debug, _ = f.GetBool("debug")
	}
	if f.Changed("log-format") {
		c.LogFormat, _ = f.GetString("log-format")
	}
	if f.Changed("log-file") {
		c.LogFile, _ = f.GetString("log-file")
	}
	if f.Changed("block-size") {
		c.Device.BlockSize, _ = f.GetUint32("block-size")
	}
	if f.Changed("block-count") {
		c.Device.BlockCount, _ = f.GetUint32("block-count")
	}
	if f.Changed("root") {
		s, _ := f.GetString("root")
		pair, err := parsePair(s)
		if err != nil {
			return err
		}
		c.Device.Roots = []uint32{uint32(pair[0]), uint32(pair[1])}
	}
	if f.Changed("mmap") {
		c.Device.Mmap, _ = f.GetBool("mmap")
	}
	if f.Changed("max-mdirs") {
		c.Walk.MaxMdirs, _ = f.GetInt("max-mdirs")
	}
	if f.Changed("format") {
		c.Report.Format, _ = f.GetString("format")
	}
	if f.Changed("mode") {
		c.Report.Mode, _ = f.GetString("mode")
	}
	if f.Changed("no-truncate") {
		noTruncate, _ := f.GetBool("no-truncate")
		c.Report.Truncate = !noTruncate
	}
	if f.Changed("color") {
		c.Report.Color, _ = f.GetString("color")
	}
	if f.Changed("digest") {
		c.Report.Digest, _ = f.GetString("digest")
	}
	return config.Validate(c)
}

// imageOptions returns the device geometry from the configuration
func imageOptions() tooling.Options {
	return tooling.OptionsFromConfig(config.Instance)
}

// reportOptions returns the rendering options from the configuration
func reportOptions(cmd *cobra.Command) (report.Options, error) {
	c := config.Instance.Report
	opts := report.DefaultOptions()

	var err error
	if opts.Format, err = report.ParseFormat(c.Format); err != nil {
		return opts, err
	}
	if opts.Mode, err = report.ParseMode(c.Mode); err != nil {
		return opts, err
	}
	opts.Truncate = c.Truncate
	if c.PreviewBytes > 0 {
		opts.PreviewBytes = c.PreviewBytes
	}
	if c.Digest != "" {
		opts.Digest = cryptoutil.HashAlgorithm(c.Digest)
		if _, err := cryptoutil.NewHasher(opts.Digest); err != nil {
			return opts, err
		}
	}
	opts.PlistFormat = plistutil.StringToFormat(c.PlistFormat)

	out, _ := cmd.OutOrStdout().(*os.File)
	opts.Color = report.ColorEnabled(c.Color, out)
	return opts, nil
}

// parsePair parses "a,b" where each block is decimal or 0x-prefixed hex
func parsePair(s string) (types.Pair, error) {
	a, b, ok := strings.Cut(s, ",")
	if !ok || a == "" || b == "" {
		return types.Pair{}, fmt.Errorf("invalid pair %q: expected two blocks such as 0,1", s)
	}
	x, err := parseBlock(strings.TrimSpace(a))
	if err != nil {
		return types.Pair{}, err
	}
	y, err := parseBlock(strings.TrimSpace(b))
	if err != nil {
		return types.Pair{}, err
	}
	return types.Pair{x, y}, nil
}

func parseBlock(s string) (types.Block, error) {
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid block %q: %w", s, err)
	}
	return types.Block(n), nil
}
