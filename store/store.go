// Package store persists configuration and history in an embedded
// SQLite database.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store wraps the SQLite handle. All timestamps are RFC3339 UTC.
type Store struct {
	db *sql.DB
}

// ASRConfig selects the transcription backend.
type ASRConfig struct {
	ID              string
	ServiceProvider string // "local" or "cloud"
	LocalEndpoint   string
	LocalAPIKey     string
	CloudEndpoint   string
	CloudAPIKey     string
	LocalModelName  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TranslationConfig selects and configures a translation provider.
type TranslationConfig struct {
	ID        string
	Provider  string
	APIKey    string
	Endpoint  string
	Model     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HotkeyConfig holds the chords, debounce and typing pacing.
type HotkeyConfig struct {
	ID                     string
	TranscribeKey          string
	TranslateKey           string
	TriggerDelayMS         int
	AntiMistouchEnabled    bool
	SaveWavFiles           bool
	ClipboardUpdateMS      int
	KeyboardEventsSettleMS int
	TypingCompleteMS       int
	CharacterIntervalMS    int
	ShortOperationMS       int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// HistoryRecord is one completed (or failed) request.
type HistoryRecord struct {
	ID               string
	RecordType       string // "transcribe", "translate" or "asr"
	InputText        string
	OutputText       string
	AudioFilePath    string
	ProcessorType    string
	ProcessingTimeMS int64
	Success          bool
	ErrorMessage     string
	CreatedAt        time.Time
}

// Open opens (creating if needed) the database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initDB(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initDB() error {
	schema := `
	CREATE TABLE IF NOT EXISTS asr_configs (
		id TEXT PRIMARY KEY,
		service_provider TEXT NOT NULL,
		local_endpoint TEXT NOT NULL DEFAULT '',
		local_api_key TEXT NOT NULL DEFAULT '',
		cloud_endpoint TEXT NOT NULL DEFAULT '',
		cloud_api_key TEXT NOT NULL DEFAULT '',
		local_model_name TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS translation_configs (
		id TEXT PRIMARY KEY,
		provider TEXT NOT NULL,
		api_key TEXT NOT NULL DEFAULT '',
		endpoint TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS hotkey_configs (
		id TEXT PRIMARY KEY,
		transcribe_key TEXT NOT NULL,
		translate_key TEXT NOT NULL,
		trigger_delay_ms INTEGER NOT NULL DEFAULT 300,
		anti_mistouch_enabled INTEGER NOT NULL DEFAULT 1,
		save_wav_files INTEGER NOT NULL DEFAULT 0,
		clipboard_update_ms INTEGER NOT NULL DEFAULT 100,
		keyboard_events_settle_ms INTEGER NOT NULL DEFAULT 300,
		typing_complete_ms INTEGER NOT NULL DEFAULT 500,
		character_interval_ms INTEGER NOT NULL DEFAULT 100,
		short_operation_ms INTEGER NOT NULL DEFAULT 100,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS history_records (
		id TEXT PRIMARY KEY,
		record_type TEXT NOT NULL,
		input_text TEXT NOT NULL DEFAULT '',
		output_text TEXT NOT NULL DEFAULT '',
		audio_file_path TEXT NOT NULL DEFAULT '',
		processor_type TEXT NOT NULL DEFAULT '',
		processing_time_ms INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_created_at ON history_records(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// ASRConfig returns the active ASR config, chosen by latest updated_at.
// sql.ErrNoRows surfaces when no row exists.
func (s *Store) ASRConfig() (*ASRConfig, error) {
	row := s.db.QueryRow(`
		SELECT id, service_provider, local_endpoint, local_api_key,
		       cloud_endpoint, cloud_api_key, local_model_name,
		       created_at, updated_at
		FROM asr_configs ORDER BY updated_at DESC LIMIT 1`)

	var cfg ASRConfig
	var created, updated string
	err := row.Scan(&cfg.ID, &cfg.ServiceProvider, &cfg.LocalEndpoint,
		&cfg.LocalAPIKey, &cfg.CloudEndpoint, &cfg.CloudAPIKey,
		&cfg.LocalModelName, &created, &updated)
	if err != nil {
		return nil, err
	}
	cfg.CreatedAt, _ = time.Parse(time.RFC3339, created)
	cfg.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &cfg, nil
}

// SaveASRConfig inserts a new config row; the latest row wins on read.
func (s *Store) SaveASRConfig(cfg *ASRConfig) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`
		INSERT INTO asr_configs
			(id, service_provider, local_endpoint, local_api_key,
			 cloud_endpoint, cloud_api_key, local_model_name,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			service_provider = excluded.service_provider,
			local_endpoint = excluded.local_endpoint,
			local_api_key = excluded.local_api_key,
			cloud_endpoint = excluded.cloud_endpoint,
			cloud_api_key = excluded.cloud_api_key,
			local_model_name = excluded.local_model_name,
			updated_at = excluded.updated_at`,
		cfg.ID, cfg.ServiceProvider, cfg.LocalEndpoint, cfg.LocalAPIKey,
		cfg.CloudEndpoint, cfg.CloudAPIKey, cfg.LocalModelName, now, now)
	if err != nil {
		return fmt.Errorf("save asr config: %w", err)
	}
	return nil
}

// TranslationConfig returns the latest config for the given provider.
func (s *Store) TranslationConfig(provider string) (*TranslationConfig, error) {
	row := s.db.QueryRow(`
		SELECT id, provider, api_key, endpoint, model, created_at, updated_at
		FROM translation_configs
		WHERE provider = ? ORDER BY updated_at DESC LIMIT 1`, provider)

	var cfg TranslationConfig
	var created, updated string
	err := row.Scan(&cfg.ID, &cfg.Provider, &cfg.APIKey, &cfg.Endpoint,
		&cfg.Model, &created, &updated)
	if err != nil {
		return nil, err
	}
	cfg.CreatedAt, _ = time.Parse(time.RFC3339, created)
	cfg.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &cfg, nil
}

// SaveTranslationConfig inserts or updates a provider's config.
func (s *Store) SaveTranslationConfig(cfg *TranslationConfig) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`
		INSERT INTO translation_configs
			(id, provider, api_key, endpoint, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			provider = excluded.provider,
			api_key = excluded.api_key,
			endpoint = excluded.endpoint,
			model = excluded.model,
			updated_at = excluded.updated_at`,
		cfg.ID, cfg.Provider, cfg.APIKey, cfg.Endpoint, cfg.Model, now, now)
	if err != nil {
		return fmt.Errorf("save translation config: %w", err)
	}
	return nil
}

// HotkeyConfig returns the active hotkey config by latest updated_at.
func (s *Store) HotkeyConfig() (*HotkeyConfig, error) {
	row := s.db.QueryRow(`
		SELECT id, transcribe_key, translate_key, trigger_delay_ms,
		       anti_mistouch_enabled, save_wav_files,
		       clipboard_update_ms, keyboard_events_settle_ms,
		       typing_complete_ms, character_interval_ms,
		       short_operation_ms, created_at, updated_at
		FROM hotkey_configs ORDER BY updated_at DESC LIMIT 1`)

	var cfg HotkeyConfig
	var created, updated string
	err := row.Scan(&cfg.ID, &cfg.TranscribeKey, &cfg.TranslateKey,
		&cfg.TriggerDelayMS, &cfg.AntiMistouchEnabled, &cfg.SaveWavFiles,
		&cfg.ClipboardUpdateMS, &cfg.KeyboardEventsSettleMS,
		&cfg.TypingCompleteMS, &cfg.CharacterIntervalMS,
		&cfg.ShortOperationMS, &created, &updated)
	if err != nil {
		return nil, err
	}
	cfg.CreatedAt, _ = time.Parse(time.RFC3339, created)
	cfg.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &cfg, nil
}

// SaveHotkeyConfig inserts or updates the hotkey config.
func (s *Store) SaveHotkeyConfig(cfg *HotkeyConfig) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`
		INSERT INTO hotkey_configs
			(id, transcribe_key, translate_key, trigger_delay_ms,
			 anti_mistouch_enabled, save_wav_files, clipboard_update_ms,
			 keyboard_events_settle_ms, typing_complete_ms,
			 character_interval_ms, short_operation_ms, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			transcribe_key = excluded.transcribe_key,
			translate_key = excluded.translate_key,
			trigger_delay_ms = excluded.trigger_delay_ms,
			anti_mistouch_enabled = excluded.anti_mistouch_enabled,
			save_wav_files = excluded.save_wav_files,
			clipboard_update_ms = excluded.clipboard_update_ms,
			keyboard_events_settle_ms = excluded.keyboard_events_settle_ms,
			typing_complete_ms = excluded.typing_complete_ms,
			character_interval_ms = excluded.character_interval_ms,
			short_operation_ms = excluded.short_operation_ms,
			updated_at = excluded.updated_at`,
		cfg.ID, cfg.TranscribeKey, cfg.TranslateKey, cfg.TriggerDelayMS,
		cfg.AntiMistouchEnabled, cfg.SaveWavFiles, cfg.ClipboardUpdateMS,
		cfg.KeyboardEventsSettleMS, cfg.TypingCompleteMS,
		cfg.CharacterIntervalMS, cfg.ShortOperationMS, now, now)
	if err != nil {
		return fmt.Errorf("save hotkey config: %w", err)
	}
	return nil
}

// AddHistoryRecord appends one history row.
func (s *Store) AddHistoryRecord(rec *HistoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO history_records
			(id, record_type, input_text, output_text, audio_file_path,
			 processor_type, processing_time_ms, success, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RecordType, rec.InputText, rec.OutputText,
		rec.AudioFilePath, rec.ProcessorType, rec.ProcessingTimeMS,
		rec.Success, rec.ErrorMessage, rec.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("add history record: %w", err)
	}
	return nil
}

// RecentHistory returns up to limit records, newest first.
func (s *Store) RecentHistory(limit int) ([]HistoryRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, record_type, input_text, output_text, audio_file_path,
		       processor_type, processing_time_ms, success, error_message, created_at
		FROM history_records ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []HistoryRecord
	for rows.Next() {
		var rec HistoryRecord
		var created string
		if err := rows.Scan(&rec.ID, &rec.RecordType, &rec.InputText,
			&rec.OutputText, &rec.AudioFilePath, &rec.ProcessorType,
			&rec.ProcessingTimeMS, &rec.Success, &rec.ErrorMessage, &created); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, rec)
	}
	return out, rows.Err()
}
