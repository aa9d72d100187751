package composition

// Plan is a batch of images checked in one run
type Plan struct {
	// Name of the plan (required)
	Name string `mapstructure:"name"`

	// Optional description of the plan
	Description string `mapstructure:"description,omitempty"`

	// Geometry applied to every image that does not set its own
	Defaults ImageSpec `mapstructure:"defaults,omitempty"`

	// Images to check, in order
	Images []ImageSpec `mapstructure:"images"`

	// Variables that can be referenced in image paths and conditions
	Variables map[string]interface{} `mapstructure:"variables,omitempty"`
}

// ImageSpec is one image of a plan. Zero fields fall back to the plan
// defaults and then to the global configuration.
type ImageSpec struct {
	// Display name; defaults to the path
	Name string `mapstructure:"name,omitempty"`

	// Image path, relative paths resolve against the plan file
	Path string `mapstructure:"path"`

	BlockSize  uint32   `mapstructure:"block_size,omitempty"`
	BlockCount uint32   `mapstructure:"block_count,omitempty"`
	Roots      []uint32 `mapstructure:"roots,omitempty"`
	Mmap       *bool    `mapstructure:"mmap,omitempty"`
	MaxMdirs   int      `mapstructure:"max_mdirs,omitempty"`

	// Optional template evaluated against the variables; the image is
	// skipped unless it renders to true, yes or 1
	Condition string `mapstructure:"condition,omitempty"`
}

// ImageResult is the outcome of checking one image
type ImageResult struct {
	Name        string   `json:"name" yaml:"name"`
	Path        string   `json:"path" yaml:"path"`
	Skipped     bool     `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	ExitCode    int      `json:"exit_code" yaml:"exit_code"`
	Diagnostics []string `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Error       string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// PlanResult is the outcome of a whole plan. ExitCode is the bitwise OR of
// every checked image's exit code.
type PlanResult struct {
	Plan     string        `json:"plan" yaml:"plan"`
	Images   []ImageResult `json:"images" yaml:"images"`
	ExitCode int           `json:"exit_code" yaml:"exit_code"`
}
