package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/deploymenttheory/go-lfs-debug/internal/common/fsutil"
	"github.com/deploymenttheory/go-lfs-debug/internal/common/osutil"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name used for config files and directories
	AppName = "lfs-debug"

	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "LFS_DEBUG"
)

// AppConfig holds the application configuration
type AppConfig struct {
	// Core settings
	Debug     bool   `mapstructure:"debug"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`

	// Device geometry and access
	Device struct {
		BlockSize   uint32   `mapstructure:"block_size"`
		BlockCount  uint32   `mapstructure:"block_count"` // 0 derives the count from the image size
		Roots       []uint32 `mapstructure:"roots"`
		Mmap        bool     `mapstructure:"mmap"`
		CacheBlocks int      `mapstructure:"cache_blocks"`
	} `mapstructure:"device"`

	// Traversal limits
	Walk struct {
		MaxMdirs int `mapstructure:"max_mdirs"`
	} `mapstructure:"walk"`

	// Report rendering
	Report struct {
		Format       string `mapstructure:"format"` // text, json, yaml, cbor, plist
		Mode         string `mapstructure:"mode"`   // tree, tags, log
		Truncate     bool   `mapstructure:"truncate"`
		PreviewBytes int    `mapstructure:"preview_bytes"`
		Color        string `mapstructure:"color"`  // auto, always, never
		Digest       string `mapstructure:"digest"` // "", blake2b, blake3, sha256
		PlistFormat  string `mapstructure:"plist_format"`
	} `mapstructure:"report"`
}

// Global variables
var (
	// Global configuration instance
	Instance AppConfig

	// Status indicators
	ConfigLoaded bool
	ConfigFile   string

	// Viper instance
	v *viper.Viper

	initOnce sync.Once
)

// Initialize sets up the configuration system. Only the first call has
// any effect; use Reload to read a different file afterwards.
func Initialize(cfgFile string) error {
	var err error
	initOnce.Do(func() {
		err = load(cfgFile)
	})
	return err
}

// Reload discards the current configuration and loads cfgFile.
func Reload(cfgFile string) error {
	Instance = AppConfig{}
	return load(cfgFile)
}

// Viper returns the viper instance backing Instance, so command flags can
// be bound to it.
func Viper() *viper.Viper {
	if v == nil {
		v = newViper()
	}
	return v
}

func newViper() *viper.Viper {
	nv := viper.New()
	setDefaults(nv)
	nv.SetEnvPrefix(EnvPrefix)
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	nv.AutomaticEnv()
	return nv
}

func load(cfgFile string) error {
	nv := newViper()

	if cfgFile != "" {
		nv.SetConfigFile(cfgFile)
	} else {
		nv.SetConfigName(AppName)
		nv.SetConfigType("yaml")
		addSearchPaths(nv)
	}

	if readErr := nv.ReadInConfig(); readErr != nil {
		if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", readErr)
		}
		ConfigLoaded = false
		ConfigFile = ""
	} else {
		ConfigLoaded = true
		ConfigFile = nv.ConfigFileUsed()
	}

	v = nv
	return Refresh()
}

// Refresh re-reads Instance from viper, picking up bound flags.
func Refresh() error {
	if err := Viper().Unmarshal(&Instance); err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}
	if err := Validate(&Instance); err != nil {
		return err
	}
	ensureDirectories()
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "human")
	v.SetDefault("log_file", "")

	v.SetDefault("device.block_size", 4096)
	v.SetDefault("device.block_count", 0)
	v.SetDefault("device.roots", []uint32{0, 1})
	v.SetDefault("device.mmap", false)
	v.SetDefault("device.cache_blocks", 64)

	v.SetDefault("walk.max_mdirs", 0)

	v.SetDefault("report.format", "text")
	v.SetDefault("report.mode", "tree")
	v.SetDefault("report.truncate", true)
	v.SetDefault("report.preview_bytes", 16)
	v.SetDefault("report.color", "auto")
	v.SetDefault("report.digest", "")
	v.SetDefault("report.plist_format", "xml")
}

// Validate checks settings that would otherwise fail deep inside a walk.
func Validate(c *AppConfig) error {
	if c.Device.BlockSize < 32 {
		return fmt.Errorf("invalid device.block_size %d: must be at least 32", c.Device.BlockSize)
	}
	if len(c.Device.Roots) != 2 {
		return fmt.Errorf("invalid device.roots %v: expected two blocks", c.Device.Roots)
	}
	if c.Device.CacheBlocks < 0 {
		return fmt.Errorf("invalid device.cache_blocks %d", c.Device.CacheBlocks)
	}
	if c.Walk.MaxMdirs < 0 {
		return fmt.Errorf("invalid walk.max_mdirs %d", c.Walk.MaxMdirs)
	}
	switch c.LogFormat {
	case "human", "json":
	default:
		return fmt.Errorf("invalid log_format %q: expected human or json", c.LogFormat)
	}
	return nil
}

// addSearchPaths adds config search paths
func addSearchPaths(v *viper.Viper) {
	v.AddConfigPath(".")

	if osutil.IsDevEnvironment() {
		if configDir, err := fsutil.GetConfigDir(AppName); err == nil {
			v.AddConfigPath(configDir)
		}
		return
	}

	// In CI only the working directory and explicit system paths count
	if osutil.IsRunningInPipeline() {
		v.AddConfigPath("/etc/" + AppName)
		return
	}

	if configDir, err := fsutil.GetConfigDir(AppName); err == nil {
		v.AddConfigPath(configDir)
	}
	if systemConfigDir, err := fsutil.GetSystemConfigDir(AppName); err == nil {
		v.AddConfigPath(systemConfigDir)
	}
}

// ensureDirectories creates the log directory when a log file is configured
func ensureDirectories() {
	if osutil.IsRunningInPipeline() && os.Getenv("CREATE_DIRS") != "true" {
		return
	}
	if Instance.LogFile != "" {
		_ = fsutil.CreateDirIfNotExists(filepath.Dir(Instance.LogFile))
	}
}

// DefaultLogFile returns the log file location used when logging to a file
// is requested without a path.
func DefaultLogFile() string {
	logDir, err := fsutil.GetLogDir(AppName)
	if err != nil {
		return filepath.Join("logs", AppName+".log")
	}
	return filepath.Join(logDir, AppName+".log")
}
