package main

import (
	"fmt"
	"os"

	"github.com/deploymenttheory/go-lfs-debug/cmd"
	"github.com/deploymenttheory/go-lfs-debug/internal/config"
	"github.com/deploymenttheory/go-lfs-debug/internal/logger"
	"github.com/deploymenttheory/go-lfs-debug/pkg/tooling"
)

func main() {
	// 1. Initialize application configuration
	if err := config.Initialize(os.Getenv(cmd.ConfigEnv)); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing configuration: %v\n", err)
		os.Exit(cmd.ExitError)
	}

	// 2. Initialize logging; commands re-initialize it once flags are parsed
	if err := logger.InitLogger(logger.LoggerConfig{
		Debug:     config.Instance.Debug,
		LogFormat: config.Instance.LogFormat,
		LogFile:   config.Instance.LogFile,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(cmd.ExitError)
	}

	logger.LogDebug("Application started", map[string]interface{}{
		"version":     tooling.GetVersion(),
		"config_file": config.ConfigFile,
	})

	// 3. Run the CLI
	code := cmd.Execute()

	// Ensure logs are flushed before exit
	_ = logger.Sync()
	os.Exit(code)
}
