// Package models discovers, downloads and tracks the local whisper
// model files.
package models

import (
	"os"
	"path/filepath"
)

// Model describes one catalog entry plus its on-disk state.
type Model struct {
	Name        string  `json:"name"`
	FileName    string  `json:"file_name"`
	SizeMB      int64   `json:"size_mb"`
	Description string  `json:"description"`
	DownloadURL string  `json:"download_url"`
	LocalPath   string  `json:"local_path,omitempty"`
	Downloaded  bool    `json:"downloaded"`
	InProgress  bool    `json:"in_progress"`
	Progress    float64 `json:"progress"`
}

// The catalog is baked in; adding a model is a code change.
var catalog = []Model{
	{
		Name:        "large-v3-turbo",
		FileName:    "ggml-large-v3-turbo.bin",
		SizeMB:      1570,
		Description: "Whisper large-v3-turbo, fast with near large-v3 quality",
		DownloadURL: "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3-turbo.bin",
	},
	{
		Name:        "large-v2",
		FileName:    "ggml-large-v2.bin",
		SizeMB:      1550,
		Description: "Whisper large-v2, best multilingual accuracy",
		DownloadURL: "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v2.bin",
	},
}

// Catalog returns the model list with downloaded state discovered by
// stat of each file under modelDir. The estimated size is replaced by
// the actual file size once present.
func Catalog(modelDir string) []Model {
	out := make([]Model, len(catalog))
	copy(out, catalog)
	for i := range out {
		path := filepath.Join(modelDir, out[i].FileName)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		out[i].LocalPath = path
		out[i].Downloaded = true
		out[i].SizeMB = info.Size() / (1024 * 1024)
	}
	return out
}

// Lookup returns the catalog entry with the given logical name.
func Lookup(name string) (Model, bool) {
	for _, m := range catalog {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}

// smallestModel returns the entry with the smallest estimated size,
// used for mirror probing.
func smallestModel() Model {
	best := catalog[0]
	for _, m := range catalog[1:] {
		if m.SizeMB < best.SizeMB {
			best = m
		}
	}
	return best
}
