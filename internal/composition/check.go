package composition

import (
	"strings"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/walk"
	"github.com/deploymenttheory/go-lfs-debug/internal/logger"
	"github.com/deploymenttheory/go-lfs-debug/pkg/tooling"
)

// Options is the geometry used for images that set none
type Options = tooling.Options

// merge layers spec over defaults over base
func merge(spec, defaults ImageSpec, base Options) Options {
	opts := base
	for _, s := range []ImageSpec{defaults, spec} {
		if s.BlockSize != 0 {
			opts.BlockSize = s.BlockSize
		}
		if s.BlockCount != 0 {
			opts.BlockCount = s.BlockCount
		}
		if len(s.Roots) == 2 {
			opts.Roots = types.Pair{types.Block(s.Roots[0]), types.Block(s.Roots[1])}
		}
		if s.Mmap != nil {
			opts.Mmap = *s.Mmap
		}
		if s.MaxMdirs != 0 {
			opts.MaxMdirs = s.MaxMdirs
		}
	}
	return opts
}

// checkImage walks one image. An image that cannot be opened counts as
// corrupted.
func checkImage(img, defaults ImageSpec, base Options) ImageResult {
	ir := ImageResult{Name: img.Name, Path: img.Path}

	res, err := tooling.Inspect(img.Path, merge(img, defaults, base))
	if err != nil {
		logger.LogError("Failed to check image", err, map[string]interface{}{
			"image": img.Path,
		})
		ir.Error = err.Error()
		ir.ExitCode = walk.ExitCorrupted
		return ir
	}

	ir.ExitCode = res.ExitCode()
	for _, d := range res.Diagnostics {
		ir.Diagnostics = append(ir.Diagnostics, d.String())
	}
	if ir.ExitCode != 0 {
		logger.LogWarn("Image has diagnostics", map[string]interface{}{
			"image":       img.Path,
			"exit_code":   ir.ExitCode,
			"diagnostics": len(ir.Diagnostics),
		})
	}
	return ir
}

// evaluateCondition renders condition and checks whether it reads as true
func evaluateCondition(condition string, variables map[string]interface{}) (bool, error) {
	result, err := processTemplate(condition, variables)
	if err != nil {
		return false, err
	}

	result = strings.TrimSpace(strings.ToLower(result))
	return result == "true" || result == "yes" || result == "1", nil
}
