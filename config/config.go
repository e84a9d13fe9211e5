// Package config resolves the user-data layout and the environment
// overrides recognized by the engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

const appDirName = "com.voxkey.app"

// Env holds the recognized environment overrides. Endpoint and key
// values empty when unset; the boolean formatting flags default true.
type Env struct {
	LocalASRURL string
	LocalASRKey string

	SiliconFlowAPIKey string
	GroqAPIKey        string

	OllamaURL   string
	OllamaModel string

	WhisperModelPath   string
	WhisperEnableVAD   bool
	WhisperUseGPU      bool
	WhisperGPUDeviceID int

	ConvertToSimplified bool
	AddSymbol           bool
	OptimizeResult      bool
}

// LoadEnv reads the environment.
func LoadEnv() Env {
	return Env{
		LocalASRURL:         os.Getenv("LOCAL_ASR_URL"),
		LocalASRKey:         os.Getenv("LOCAL_ASR_KEY"),
		SiliconFlowAPIKey:   os.Getenv("SILICONFLOW_API_KEY"),
		GroqAPIKey:          os.Getenv("GROQ_API_KEY"),
		OllamaURL:           os.Getenv("OLLAMA_URL"),
		OllamaModel:         os.Getenv("OLLAMA_MODEL"),
		WhisperModelPath:    os.Getenv("WHISPER_MODEL_PATH"),
		WhisperEnableVAD:    boolEnv("WHISPER_ENABLE_VAD", false),
		WhisperUseGPU:       boolEnv("WHISPER_USE_GPU", true),
		WhisperGPUDeviceID:  intEnv("WHISPER_GPU_DEVICE_ID", 0),
		ConvertToSimplified: boolEnv("CONVERT_TO_SIMPLIFIED", true),
		AddSymbol:           boolEnv("ADD_SYMBOL", true),
		OptimizeResult:      boolEnv("OPTIMIZE_RESULT", true),
	}
}

func boolEnv(name string, def bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func intEnv(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// DataDir returns the platform user-data directory:
// %APPDATA%\com.voxkey.app on Windows,
// $HOME/.local/share/com.voxkey.app elsewhere.
func DataDir() (string, error) {
	if runtime.GOOS == "windows" {
		appdata := os.Getenv("APPDATA")
		if appdata == "" {
			return "", fmt.Errorf("APPDATA not set")
		}
		return filepath.Join(appdata, appDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", appDirName), nil
}

// ModelsDir returns (creating on demand) the models subdirectory.
func ModelsDir() (string, error) {
	return ensureSubdir("models")
}

// DatabasesDir returns (creating on demand) the databases subdirectory.
func DatabasesDir() (string, error) {
	return ensureSubdir("databases")
}

// AudioDir returns (creating on demand) the saved-recordings directory.
func AudioDir() (string, error) {
	return ensureSubdir("audio")
}

func ensureSubdir(name string) (string, error) {
	base, err := DataDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s dir: %w", name, err)
	}
	return dir, nil
}
