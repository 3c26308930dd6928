package config

import (
	"fmt"
	"path"
	"strings"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// Validate checks the configuration for values a sync cannot work with.
func (c Config) Validate() []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateLayout()...)
	results = append(results, c.validateArchive()...)
	results = append(results, c.validateTransfer()...)
	return results
}

// HasErrors reports whether any result is an error.
func HasErrors(results []ValidationResult) bool {
	for _, r := range results {
		if r.Level == "error" {
			return true
		}
	}
	return false
}

func (c Config) validateLayout() []ValidationResult {
	var results []ValidationResult
	if c.RepositoryID == "" {
		results = append(results, ValidationResult{
			Level:   "warning",
			Message: "repository_id is empty; the repository package is detected by its extension point only",
		})
	}
	if strings.ContainsAny(c.OutputDir, `/\`) {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("output_dir %q must be a single directory name", c.OutputDir),
		})
	}
	seen := map[string]bool{}
	for _, rel := range c.Releases {
		name := strings.TrimSpace(rel)
		switch {
		case name == "":
			results = append(results, ValidationResult{Level: "error", Message: "releases contains an empty entry"})
		case escapes(name):
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("release %q points outside the site root", rel),
			})
		case seen[name]:
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("release %q listed more than once", rel),
			})
		}
		seen[name] = true
	}
	return results
}

func (c Config) validateArchive() []ValidationResult {
	var results []ValidationResult
	check := func(key string, items []string) {
		if len(items) == 0 {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("archive.%s is empty", key),
			})
			return
		}
		hasDescriptor := false
		for _, item := range items {
			if escapes(item) {
				results = append(results, ValidationResult{
					Level:   "error",
					Message: fmt.Sprintf("archive.%s entry %q points outside the plugin folder", key, item),
				})
			}
			if path.Clean(item) == c.DescriptorName {
				hasDescriptor = true
			}
		}
		if !hasDescriptor {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("archive.%s does not include %s", key, c.DescriptorName),
			})
		}
	}
	check("repository_include", c.Archive.RepositoryInclude)
	check("plugin_include", c.Archive.PluginInclude)
	return results
}

func (c Config) validateTransfer() []ValidationResult {
	t := c.Transfer
	if t.Host == "" {
		return nil
	}
	var results []ValidationResult
	if t.User == "" {
		results = append(results, ValidationResult{Level: "error", Message: "transfer.user is required when transfer.host is set"})
	}
	if t.Password == "" && t.KeyFile == "" {
		results = append(results, ValidationResult{Level: "warning", Message: "transfer has neither password nor key_file; the SSH agent is not consulted"})
	}
	if t.Insecure {
		results = append(results, ValidationResult{Level: "warning", Message: "transfer.insecure disables host key verification"})
	}
	if t.Port < 1 || t.Port > 65535 {
		results = append(results, ValidationResult{Level: "error", Message: fmt.Sprintf("transfer.port %d out of range", t.Port)})
	}
	return results
}

func escapes(p string) bool {
	clean := path.Clean(strings.ReplaceAll(p, `\`, "/"))
	return path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../")
}
