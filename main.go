// Command voxkey is a push-to-talk voice input daemon: hold a chord,
// speak, release, and the recognized (or translated) text is typed
// into the focused application.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"voxkey/asr"
	"voxkey/audiocapture"
	"voxkey/cache"
	"voxkey/config"
	"voxkey/coordinator"
	"voxkey/hotkey"
	"voxkey/inject"
	"voxkey/models"
	"voxkey/store"
	"voxkey/translate"
	"voxkey/whisper"
)

var version = "dev"

const (
	defaultTranscribeKey = "ctrl + alt + space"
	defaultTranslateKey  = "ctrl + alt + shift + space"

	defaultLocalEndpoint = "http://127.0.0.1:8080/inference"
	groqTranscribeURL    = "https://api.groq.com/openai/v1/audio/transcriptions"
	groqTranslateURL     = "https://api.groq.com/openai/v1/audio/translations"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	download := flag.String("download-model", "", "download a whisper model into the models dir and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *showVersion {
		fmt.Println("voxkey", version)
		return
	}
	if *download != "" {
		if err := downloadModel(*download); err != nil {
			slog.Error("download model", "name", *download, "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	env := config.LoadEnv()

	dbDir, err := config.DatabasesDir()
	if err != nil {
		return fmt.Errorf("prepare data dir: %w", err)
	}
	db, err := store.Open(filepath.Join(dbDir, "voxkey.db"))
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer db.Close()

	var translationCache *cache.Cache
	if c, err := cache.New(filepath.Join(dbDir, "translation-cache")); err != nil {
		slog.Warn("translation cache disabled", "error", err)
	} else {
		translationCache = c
		defer c.Close()
	}

	hk := loadHotkeyConfig(db)
	transcribeBinding, err := hotkey.Parse(hk.TranscribeKey)
	if err != nil {
		return fmt.Errorf("transcribe hotkey %q: %w", hk.TranscribeKey, err)
	}
	var translateBinding *hotkey.Binding
	if hk.TranslateKey != "" {
		translateBinding, err = hotkey.Parse(hk.TranslateKey)
		if err != nil {
			return fmt.Errorf("translate hotkey %q: %w", hk.TranslateKey, err)
		}
	}

	capture, err := audiocapture.Open()
	if err != nil {
		return fmt.Errorf("open audio input: %w", err)
	}
	defer capture.Close()

	injector := inject.New(delaysFrom(hk))
	registry := whisper.NewRegistry()
	defer registry.Clear()

	backend, processorType, err := buildBackend(env, db, registry, translationCache)
	if err != nil {
		return fmt.Errorf("build asr backend: %w", err)
	}

	audioDir := ""
	if hk.SaveWavFiles {
		if audioDir, err = config.AudioDir(); err != nil {
			slog.Warn("recordings dir unavailable", "error", err)
			audioDir = ""
		}
	}

	coord := coordinator.New(coordinator.Config{
		TranscribeBinding: transcribeBinding,
		TranslateBinding:  translateBinding,
		TriggerDelay:      time.Duration(hk.TriggerDelayMS) * time.Millisecond,
		AntiMistouch:      hk.AntiMistouchEnabled,
		SaveWAVFiles:      hk.SaveWavFiles,
		AudioDir:          audioDir,
		ProcessorType:     processorType,
		OptimizeResult:    env.OptimizeResult,
		Notify:            true,
	}, capture, injector, backend, db, coordinator.Events{})
	defer coord.Stop()

	if mp, ok := backend.(*asr.Multipart); ok && mp.SupportsHealth() {
		go probeHealth(coord, mp)
	}

	listener := hotkey.NewListener(coord.HandleKeys)
	listener.Start()
	defer listener.Stop()

	slog.Info("voxkey ready",
		"version", version,
		"transcribe", transcribeBinding.String(),
		"translate", bindingDisplay(translateBinding),
		"processor", processorType)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	slog.Info("shutting down")
	return nil
}

// loadHotkeyConfig returns the stored hotkey row, or defaults when the
// store is empty.
func loadHotkeyConfig(db *store.Store) *store.HotkeyConfig {
	hk, err := db.HotkeyConfig()
	if err == nil {
		return hk
	}
	if !errors.Is(err, sql.ErrNoRows) {
		slog.Warn("load hotkey config", "error", err)
	}
	d := inject.DefaultDelays()
	return &store.HotkeyConfig{
		TranscribeKey:          defaultTranscribeKey,
		TranslateKey:           defaultTranslateKey,
		TriggerDelayMS:         300,
		AntiMistouchEnabled:    true,
		ClipboardUpdateMS:      d.ClipboardUpdate,
		KeyboardEventsSettleMS: d.KeyboardEventsSettle,
		TypingCompleteMS:       d.TypingComplete,
		CharacterIntervalMS:    d.CharacterInterval,
		ShortOperationMS:       d.ShortOperation,
	}
}

func delaysFrom(hk *store.HotkeyConfig) inject.Delays {
	d := inject.DefaultDelays()
	if hk.ClipboardUpdateMS > 0 {
		d.ClipboardUpdate = hk.ClipboardUpdateMS
	}
	if hk.KeyboardEventsSettleMS > 0 {
		d.KeyboardEventsSettle = hk.KeyboardEventsSettleMS
	}
	if hk.TypingCompleteMS > 0 {
		d.TypingComplete = hk.TypingCompleteMS
	}
	if hk.CharacterIntervalMS > 0 {
		d.CharacterInterval = hk.CharacterIntervalMS
	}
	if hk.ShortOperationMS > 0 {
		d.ShortOperation = hk.ShortOperationMS
	}
	return d
}

// buildBackend assembles the ASR pipeline from the stored provider
// selection plus environment overrides. The returned label tags
// history rows.
func buildBackend(env config.Env, db *store.Store, registry *whisper.Registry, tcache *cache.Cache) (asr.Backend, string, error) {
	cfg, err := db.ASRConfig()
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, "", fmt.Errorf("load asr config: %w", err)
		}
		cfg = &store.ASRConfig{ServiceProvider: "local"}
	}

	if cfg.ServiceProvider == "cloud" {
		apiKey := cfg.CloudAPIKey
		if apiKey == "" {
			apiKey = env.GroqAPIKey
		}
		endpoint := cfg.CloudEndpoint
		if endpoint == "" {
			endpoint = groqTranscribeURL
		}
		backend := asr.NewMultipart(asr.MultipartConfig{
			Endpoint:          endpoint,
			APIKey:            apiKey,
			BearerAuth:        true,
			Model:             "whisper-large-v3-turbo",
			ResponseFormat:    "json",
			TranslateEndpoint: groqTranslateURL,
			TranslateModel:    "whisper-large-v3",
		}, nil)
		return backend, "cloud", nil
	}

	// Local provider: prefer the in-process whisper runtime when a
	// model file is on disk, else talk to a local inference server.
	if path := localModelPath(env, cfg); path != "" {
		opts := whisper.Options{EnableVAD: env.WhisperEnableVAD}
		if opts.EnableVAD {
			opts.VADModelPath = whisper.FindVADModel(path)
		}
		rt, err := registry.GetOrCreate(path, opts)
		if err != nil {
			slog.Warn("local whisper runtime unavailable", "model", path, "error", err)
		} else {
			return asr.NewLocal(rt), "local", nil
		}
	}

	endpoint := cfg.LocalEndpoint
	if endpoint == "" {
		endpoint = env.LocalASRURL
	}
	if endpoint == "" {
		endpoint = defaultLocalEndpoint
	}
	apiKey := cfg.LocalAPIKey
	if apiKey == "" {
		apiKey = env.LocalASRKey
	}
	backend := asr.NewMultipart(asr.MultipartConfig{
		Endpoint: endpoint,
		APIKey:   apiKey,
	}, buildTranslator(env, db, tcache))
	return backend, "local", nil
}

// localModelPath resolves the whisper model file, env override first,
// then the configured (or any downloaded) catalog model.
func localModelPath(env config.Env, cfg *store.ASRConfig) string {
	if env.WhisperModelPath != "" {
		return env.WhisperModelPath
	}
	dir, err := config.ModelsDir()
	if err != nil {
		return ""
	}
	for _, m := range models.Catalog(dir) {
		if !m.Downloaded {
			continue
		}
		if cfg.LocalModelName == "" || cfg.LocalModelName == m.Name {
			return m.LocalPath
		}
	}
	return ""
}

// buildTranslator picks the chat-completion translator used when the
// ASR provider has no native translation route.
func buildTranslator(env config.Env, db *store.Store, tcache *cache.Cache) asr.Translator {
	var inner translate.Backend
	provider := "ollama"
	model := env.OllamaModel

	if tcfg, err := db.TranslationConfig("siliconflow"); err == nil && tcfg.APIKey != "" {
		provider = "siliconflow"
		model = tcfg.Model
		inner = translate.NewSiliconFlow(tcfg.APIKey, tcfg.Endpoint, tcfg.Model)
	} else if env.SiliconFlowAPIKey != "" {
		provider = "siliconflow"
		model = ""
		inner = translate.NewSiliconFlow(env.SiliconFlowAPIKey, "", "")
	} else {
		inner = translate.NewOllama(env.OllamaURL, env.OllamaModel)
	}

	if tcache == nil {
		return inner
	}
	return translate.NewCached(inner, tcache, provider, model)
}

// probeHealth checks the remote ASR service once at startup and
// surfaces a warning when it is unreachable or degraded.
func probeHealth(coord *coordinator.Coordinator, mp *asr.Multipart) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, err := mp.Health(ctx)
	if err != nil {
		coord.ReportServiceStatus(false, "speech service unreachable")
		return
	}
	if !status.Healthy() {
		coord.ReportServiceStatus(false, "speech service degraded: "+status.Status)
		return
	}
	coord.ReportServiceStatus(true, "")
	slog.Info("speech service healthy", "backends", status.TotalBackends)
}

func downloadModel(name string) error {
	dir, err := config.ModelsDir()
	if err != nil {
		return err
	}
	acquirer := models.NewAcquirer(dir)
	slog.Info("downloading model", "name", name, "mirror", acquirer.SelectMirror())

	lastPct := -1
	path, err := acquirer.Download(name, func(fraction float64) {
		pct := int(fraction * 100)
		if pct/10 != lastPct/10 {
			lastPct = pct
			slog.Info("download progress", "name", name, "percent", pct)
		}
	})
	if err != nil {
		return err
	}
	slog.Info("model ready", "path", path)
	return nil
}

func bindingDisplay(b *hotkey.Binding) string {
	if b == nil {
		return "disabled"
	}
	return b.String()
}
