package composition

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/deploymenttheory/go-lfs-debug/internal/logger"
	"github.com/spf13/viper"
)

// LoadPlan loads a check plan from a YAML, JSON or TOML file
func LoadPlan(filePath string) (*Plan, error) {
	v := viper.New()

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("plan file not found: %s", filePath)
	}

	v.SetConfigFile(filePath)
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext != "" {
		v.SetConfigType(ext[1:])
	} else {
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading plan file: %w", err)
	}

	plan := &Plan{}
	if err := v.Unmarshal(plan); err != nil {
		return nil, fmt.Errorf("error parsing plan: %w", err)
	}

	if plan.Variables == nil {
		plan.Variables = make(map[string]interface{})
	}
	addSystemVariables(plan, filePath)

	if err := processTemplates(plan); err != nil {
		return nil, fmt.Errorf("error processing templates: %w", err)
	}
	resolvePaths(plan, filepath.Dir(filePath))

	return plan, nil
}

// addSystemVariables adds the plan location and working directory
func addSystemVariables(plan *Plan, filePath string) {
	if abs, err := filepath.Abs(filepath.Dir(filePath)); err == nil {
		plan.Variables["plan_dir"] = abs
	}
	if cwd, err := os.Getwd(); err == nil {
		plan.Variables["current_dir"] = cwd
	}
}

// processTemplates expands templates in image names and paths
func processTemplates(plan *Plan) error {
	for i, img := range plan.Images {
		for _, field := range []*string{&plan.Images[i].Name, &plan.Images[i].Path} {
			processed, err := processTemplate(*field, plan.Variables)
			if err != nil {
				return fmt.Errorf("error processing template in image %d (%s): %w", i+1, img.Path, err)
			}
			*field = processed
		}
	}
	return nil
}

// processTemplate processes a single template string
func processTemplate(templateString string, variables map[string]interface{}) (string, error) {
	if !strings.Contains(templateString, "{{") {
		return templateString, nil
	}

	tmpl, err := template.New("inline").Option("missingkey=error").Parse(templateString)
	if err != nil {
		return "", err
	}

	var buffer bytes.Buffer
	if err := tmpl.Execute(&buffer, variables); err != nil {
		return "", err
	}
	return buffer.String(), nil
}

// resolvePaths makes relative image paths relative to the plan file
func resolvePaths(plan *Plan, dir string) {
	for i := range plan.Images {
		p := plan.Images[i].Path
		if p != "" && !filepath.IsAbs(p) {
			plan.Images[i].Path = filepath.Join(dir, p)
		}
		if plan.Images[i].Name == "" {
			plan.Images[i].Name = p
		}
	}
}

// ValidatePlan validates the plan structure
func ValidatePlan(plan *Plan) []error {
	var errs []error

	if plan.Name == "" {
		errs = append(errs, fmt.Errorf("plan name is required"))
	}
	if len(plan.Images) == 0 {
		errs = append(errs, fmt.Errorf("plan must contain at least one image"))
	}
	errs = append(errs, validateSpec("defaults", plan.Defaults)...)

	for i, img := range plan.Images {
		label := fmt.Sprintf("image %d (%s)", i+1, img.Name)
		if img.Path == "" {
			errs = append(errs, fmt.Errorf("%s: path is required", label))
		}
		errs = append(errs, validateSpec(label, img)...)
	}
	return errs
}

func validateSpec(label string, img ImageSpec) []error {
	var errs []error
	if img.BlockSize != 0 && img.BlockSize < 32 {
		errs = append(errs, fmt.Errorf("%s: block_size %d is too small", label, img.BlockSize))
	}
	if len(img.Roots) != 0 && len(img.Roots) != 2 {
		errs = append(errs, fmt.Errorf("%s: roots must name two blocks", label))
	}
	if img.MaxMdirs < 0 {
		errs = append(errs, fmt.Errorf("%s: max_mdirs must not be negative", label))
	}
	return errs
}

// ExecutePlan checks every image of the plan. A failure to open one image
// is recorded on its result and does not stop the others.
func ExecutePlan(plan *Plan, base Options) (*PlanResult, error) {
	logger.LogInfo("Starting plan execution", map[string]interface{}{
		"plan":   plan.Name,
		"images": len(plan.Images),
	})

	result := &PlanResult{Plan: plan.Name, Images: make([]ImageResult, 0, len(plan.Images))}
	for i, img := range plan.Images {
		logger.LogDebug(fmt.Sprintf("Checking image %d/%d: %s", i+1, len(plan.Images), img.Name), map[string]interface{}{
			"path": img.Path,
		})

		if img.Condition != "" {
			run, err := evaluateCondition(img.Condition, plan.Variables)
			if err != nil {
				return nil, fmt.Errorf("error evaluating condition for image '%s': %w", img.Name, err)
			}
			if !run {
				logger.LogInfo(fmt.Sprintf("Skipping image %d/%d: %s (condition not met)", i+1, len(plan.Images), img.Name), nil)
				result.Images = append(result.Images, ImageResult{Name: img.Name, Path: img.Path, Skipped: true})
				continue
			}
		}

		ir := checkImage(img, plan.Defaults, base)
		result.ExitCode |= ir.ExitCode
		result.Images = append(result.Images, ir)
	}

	logger.LogInfo("Plan execution completed", map[string]interface{}{
		"plan":      plan.Name,
		"exit_code": result.ExitCode,
	})
	return result, nil
}
