/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

package transcribe

import (
	"path/filepath"
	"sort"
	"strings"
)

// ModelInfo describes a whisper model variant
type ModelInfo struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Memory    string `json:"memory"`
	Speed     string `json:"speed"`
	Quality   string `json:"quality"`
}

const mb = 1024 * 1024

// catalog holds the known local whisper model variants
var catalog = map[string]ModelInfo{
	"tiny":      {Name: "tiny", SizeBytes: 37 * mb, Memory: "~200 MB RAM", Speed: "Very Fast", Quality: "Low"},
	"tiny.en":   {Name: "tiny.en", SizeBytes: 37 * mb, Memory: "~200 MB RAM", Speed: "Very Fast", Quality: "Low (English only)"},
	"base":      {Name: "base", SizeBytes: 113 * mb, Memory: "~500 MB RAM", Speed: "Fast", Quality: "Medium"},
	"base.en":   {Name: "base.en", SizeBytes: 113 * mb, Memory: "~500 MB RAM", Speed: "Fast", Quality: "Medium (English only)"},
	"small":     {Name: "small", SizeBytes: 340 * mb, Memory: "~1.2 GB RAM", Speed: "Medium", Quality: "Good"},
	"small.en":  {Name: "small.en", SizeBytes: 340 * mb, Memory: "~1.2 GB RAM", Speed: "Medium", Quality: "Good (English only)"},
	"medium":    {Name: "medium", SizeBytes: 1100 * mb, Memory: "~3.0 GB RAM", Speed: "Slow", Quality: "High"},
	"medium.en": {Name: "medium.en", SizeBytes: 1100 * mb, Memory: "~3.0 GB RAM", Speed: "Slow", Quality: "High (English only)"},
	"large-v1":  {Name: "large-v1", SizeBytes: 2300 * mb, Memory: "~5.2 GB RAM", Speed: "Very Slow", Quality: "Highest"},
	"large-v2":  {Name: "large-v2", SizeBytes: 2300 * mb, Memory: "~5.2 GB RAM", Speed: "Very Slow", Quality: "Highest"},
	"large-v3":  {Name: "large-v3", SizeBytes: 2300 * mb, Memory: "~5.2 GB RAM", Speed: "Very Slow", Quality: "Highest"},

	"large-v3-turbo": {Name: "large-v3-turbo", SizeBytes: 2300 * mb, Memory: "~5.0 GB RAM", Speed: "Fast", Quality: "Highest"},
	"turbo":          {Name: "turbo", SizeBytes: 2300 * mb, Memory: "~5.0 GB RAM", Speed: "Very Fast", Quality: "Highest"},

	"distil-small.en":   {Name: "distil-small.en", SizeBytes: 240 * mb, Memory: "~900 MB RAM", Speed: "Medium", Quality: "Good (English only)"},
	"distil-medium.en":  {Name: "distil-medium.en", SizeBytes: 800 * mb, Memory: "~2.5 GB RAM", Speed: "Medium", Quality: "High (English only)"},
	"distil-large-v2":   {Name: "distil-large-v2", SizeBytes: 1500 * mb, Memory: "~3.5 GB RAM", Speed: "Medium", Quality: "Highest"},
	"distil-large-v3":   {Name: "distil-large-v3", SizeBytes: 1500 * mb, Memory: "~3.5 GB RAM", Speed: "Medium", Quality: "Highest"},
	"distil-large-v3.5": {Name: "distil-large-v3.5", SizeBytes: 1500 * mb, Memory: "~3.5 GB RAM", Speed: "Medium", Quality: "Highest"},
}

// legacyModelNames maps historical ggml filenames to canonical model names
var legacyModelNames = map[string]string{
	"ggml-tiny.bin":      "tiny",
	"ggml-tiny.en.bin":   "tiny.en",
	"ggml-base.bin":      "base",
	"ggml-base.en.bin":   "base.en",
	"ggml-small.bin":     "small",
	"ggml-small.en.bin":  "small.en",
	"ggml-medium.bin":    "medium",
	"ggml-medium.en.bin": "medium.en",
	"ggml-large.bin":     "large-v2",
	"ggml-large-v1.bin":  "large-v1",
	"ggml-large-v2.bin":  "large-v2",
	"ggml-large-v3.bin":  "large-v3",
}

// NormalizeModelName maps legacy ggml filenames to their canonical names.
// Already-canonical names pass through unchanged.
func NormalizeModelName(name string) string {
	trimmed := strings.TrimSpace(name)
	if canonical, ok := legacyModelNames[trimmed]; ok {
		return canonical
	}
	return trimmed
}

// KnownModel reports whether the name is a catalog model
func KnownModel(name string) bool {
	_, ok := catalog[NormalizeModelName(name)]
	return ok
}

// GetModelInfo returns catalog information for a model name
func GetModelInfo(name string) (ModelInfo, bool) {
	info, ok := catalog[NormalizeModelName(name)]
	return info, ok
}

// ListModels returns all catalog models sorted by size, smallest first
func ListModels() []ModelInfo {
	models := make([]ModelInfo, 0, len(catalog))
	for _, info := range catalog {
		models = append(models, info)
	}
	sort.Slice(models, func(i, j int) bool {
		if models[i].SizeBytes != models[j].SizeBytes {
			return models[i].SizeBytes < models[j].SizeBytes
		}
		return models[i].Name < models[j].Name
	})
	return models
}

// ModelCategories returns the categories available for filtering
func ModelCategories() []string {
	return []string{"All", "Tiny", "Base", "Small", "Medium", "Large", "Distilled"}
}

// ModelsByCategory returns catalog models matching the category. "Large"
// includes the turbo variants and "Distilled" the distil-* models; the
// distil-large names show up under both, like their size classes suggest.
func ModelsByCategory(category string) []ModelInfo {
	all := ListModels()
	if category == "All" {
		return all
	}

	match := func(name string) bool {
		switch category {
		case "Large":
			return strings.Contains(name, "large") || name == "turbo"
		case "Distilled":
			return strings.Contains(name, "distil")
		default:
			return strings.Contains(name, strings.ToLower(category))
		}
	}

	var matched []ModelInfo
	for _, info := range all {
		if match(info.Name) {
			matched = append(matched, info)
		}
	}
	return matched
}

// ModelFileName returns the on-disk ggml filename for a canonical model name
func ModelFileName(name string) string {
	return "ggml-" + NormalizeModelName(name) + ".bin"
}

// ModelPath returns the full path to a model file inside the model directory
func ModelPath(dir, name string) string {
	return filepath.Join(dir, ModelFileName(name))
}
