// Package tooling is the library entry point for inspecting filesystem
// images without going through the CLI.
package tooling

import (
	"fmt"
	"io"
	"sync"

	"github.com/deploymenttheory/go-lfs-debug/internal/config"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/device"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/report"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/walk"
	"github.com/deploymenttheory/go-lfs-debug/internal/logger"
)

// Version is the release version reported by the CLI
var Version = "0.1.0"

// InitOptions contains options for initializing the tooling API
type InitOptions struct {
	ConfigFile  string // Path to configuration file
	Debug       bool   // Enable debug logging
	LogFormat   string // Log format: "human" or "json"
	LogFile     string // Path to log file
	SuppressLog bool   // Suppress all logging
}

// Options describes the geometry of an image and how to traverse it
type Options struct {
	BlockSize   uint32
	BlockCount  uint32 // zero derives the count from the image size
	Roots       types.Pair
	Mmap        bool
	CacheBlocks int
	MaxMdirs    int
}

var (
	initialized bool
	initMu      sync.Mutex
)

// Initialize loads configuration and sets up logging. Calling it is
// optional; without it nothing is logged and defaults apply.
func Initialize(options InitOptions) error {
	initMu.Lock()
	defer initMu.Unlock()

	if initialized {
		return nil
	}

	configErr := config.Initialize(options.ConfigFile)

	if options.Debug {
		config.Instance.Debug = true
	}
	if options.LogFormat != "" {
		config.Instance.LogFormat = options.LogFormat
	}
	if options.LogFile != "" {
		config.Instance.LogFile = options.LogFile
	}

	if !options.SuppressLog {
		logConfig := logger.LoggerConfig{
			Debug:     config.Instance.Debug,
			LogFormat: config.Instance.LogFormat,
			LogFile:   config.Instance.LogFile,
		}
		if err := logger.InitLogger(logConfig); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		logger.LogDebug("Tooling API initialized", map[string]interface{}{
			"config_file": config.ConfigFile,
			"debug":       config.Instance.Debug,
			"log_format":  config.Instance.LogFormat,
		})
		if configErr != nil {
			logger.LogWarn("Configuration initialization warning", map[string]interface{}{
				"error": configErr.Error(),
			})
		}
	}

	initialized = true
	return nil
}

// DefaultOptions returns the standard geometry: 4 KiB blocks, root pair
// {0, 1} and a small block cache
func DefaultOptions() Options {
	return Options{
		BlockSize:   4096,
		Roots:       types.RootPair,
		CacheBlocks: 64,
	}
}

// OptionsFromConfig builds Options from the loaded configuration
func OptionsFromConfig(c config.AppConfig) Options {
	opts := DefaultOptions()
	if c.Device.BlockSize != 0 {
		opts.BlockSize = c.Device.BlockSize
	}
	opts.BlockCount = c.Device.BlockCount
	if len(c.Device.Roots) == 2 {
		opts.Roots = types.Pair{types.Block(c.Device.Roots[0]), types.Block(c.Device.Roots[1])}
	}
	opts.Mmap = c.Device.Mmap
	opts.CacheBlocks = c.Device.CacheBlocks
	opts.MaxMdirs = c.Walk.MaxMdirs
	return opts
}

// Inspection is an opened image together with its traversal result. Close
// releases the image.
type Inspection struct {
	Path   string
	Reader *device.Reader
	Result *walk.Result
}

// Open opens an image and returns a block reader for it
func Open(path string, opts Options) (*device.Reader, error) {
	dev, err := device.Open(path, device.OpenOptions{Mmap: opts.Mmap})
	if err != nil {
		return nil, err
	}
	r, err := device.NewReader(dev, opts.BlockSize, opts.BlockCount, opts.CacheBlocks)
	if err != nil {
		dev.Close()
		return nil, err
	}
	logger.LogDebug("Opened image", map[string]interface{}{
		"image":       path,
		"block_size":  r.BlockSize(),
		"block_count": r.BlockCount(),
		"mmap":        opts.Mmap,
	})
	return r, nil
}

// InspectImage opens path and walks it, keeping the image open so file
// contents can be read afterwards
func InspectImage(path string, opts Options) (*Inspection, error) {
	r, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	res := walk.Walk(r, walk.Options{Roots: opts.Roots, MaxMdirs: opts.MaxMdirs})
	return &Inspection{Path: path, Reader: r, Result: res}, nil
}

// Inspect opens path, walks it and closes it again
func Inspect(path string, opts Options) (*walk.Result, error) {
	in, err := InspectImage(path, opts)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return in.Result, nil
}

// Document builds the report document for the inspection
func (in *Inspection) Document(ropts report.Options) (*report.Document, error) {
	meta := report.Meta{
		Image:      in.Path,
		BlockSize:  in.Reader.BlockSize(),
		BlockCount: in.Reader.BlockCount(),
	}
	return report.Build(in.Result, in.Reader, meta, ropts)
}

// Close releases the image
func (in *Inspection) Close() error {
	return in.Reader.Close()
}

// Report inspects path and renders it to w, returning the walk's exit code
func Report(w io.Writer, path string, opts Options, ropts report.Options) (int, error) {
	in, err := InspectImage(path, opts)
	if err != nil {
		return walk.ExitCorrupted, err
	}
	defer in.Close()

	doc, err := in.Document(ropts)
	if err != nil {
		return walk.ExitCorrupted, err
	}
	if err := report.Render(w, doc, ropts); err != nil {
		return doc.ExitCode, err
	}
	return doc.ExitCode, nil
}

// GetVersion returns the current version of the tooling API
func GetVersion() string {
	return Version
}

// Shutdown flushes logs before the application exits
func Shutdown() error {
	initMu.Lock()
	defer initMu.Unlock()
	if initialized {
		_ = logger.Sync()
	}
	return nil
}
