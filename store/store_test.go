package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "voxkey.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestASRConfigRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.ASRConfig(); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("empty table: err = %v, want ErrNoRows", err)
	}

	cfg := &ASRConfig{
		ServiceProvider: "local",
		LocalEndpoint:   "http://localhost:8080/inference",
		LocalAPIKey:     "API_KEY=abc",
		LocalModelName:  "large-v3-turbo",
	}
	if err := s.SaveASRConfig(cfg); err != nil {
		t.Fatalf("SaveASRConfig: %v", err)
	}

	got, err := s.ASRConfig()
	if err != nil {
		t.Fatalf("ASRConfig: %v", err)
	}
	if got.ServiceProvider != "local" || got.LocalEndpoint != cfg.LocalEndpoint {
		t.Errorf("got %+v", got)
	}
	if got.ID == "" {
		t.Error("no id assigned")
	}
}

func TestASRConfigLatestWins(t *testing.T) {
	s := openTestStore(t)

	first := &ASRConfig{ServiceProvider: "local"}
	if err := s.SaveASRConfig(first); err != nil {
		t.Fatal(err)
	}
	// updated_at has one-second resolution in RFC3339.
	time.Sleep(1100 * time.Millisecond)
	second := &ASRConfig{ServiceProvider: "cloud", CloudEndpoint: "https://api.example.com"}
	if err := s.SaveASRConfig(second); err != nil {
		t.Fatal(err)
	}

	got, err := s.ASRConfig()
	if err != nil {
		t.Fatal(err)
	}
	if got.ServiceProvider != "cloud" {
		t.Errorf("provider = %q, want the newer row", got.ServiceProvider)
	}
}

func TestTranslationConfigPerProvider(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveTranslationConfig(&TranslationConfig{
		Provider: "siliconflow", APIKey: "sk-1", Endpoint: "https://api.siliconflow.cn/v1",
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveTranslationConfig(&TranslationConfig{
		Provider: "ollama", Endpoint: "http://localhost:11434/api/chat", Model: "gpt-oss:latest",
	}); err != nil {
		t.Fatal(err)
	}

	sf, err := s.TranslationConfig("siliconflow")
	if err != nil {
		t.Fatal(err)
	}
	if sf.APIKey != "sk-1" {
		t.Errorf("siliconflow key = %q", sf.APIKey)
	}

	ol, err := s.TranslationConfig("ollama")
	if err != nil {
		t.Fatal(err)
	}
	if ol.Model != "gpt-oss:latest" {
		t.Errorf("ollama model = %q", ol.Model)
	}

	if _, err := s.TranslationConfig("unknown"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("unknown provider: err = %v", err)
	}
}

func TestHotkeyConfigRoundTrip(t *testing.T) {
	s := openTestStore(t)

	cfg := &HotkeyConfig{
		TranscribeKey:          "F4",
		TranslateKey:           "Shift + F4",
		TriggerDelayMS:         300,
		AntiMistouchEnabled:    true,
		SaveWavFiles:           false,
		ClipboardUpdateMS:      100,
		KeyboardEventsSettleMS: 300,
		TypingCompleteMS:       500,
		CharacterIntervalMS:    100,
		ShortOperationMS:       100,
	}
	if err := s.SaveHotkeyConfig(cfg); err != nil {
		t.Fatalf("SaveHotkeyConfig: %v", err)
	}

	got, err := s.HotkeyConfig()
	if err != nil {
		t.Fatalf("HotkeyConfig: %v", err)
	}
	if got.TranscribeKey != "F4" || got.TranslateKey != "Shift + F4" {
		t.Errorf("chords = %q / %q", got.TranscribeKey, got.TranslateKey)
	}
	if !got.AntiMistouchEnabled || got.TriggerDelayMS != 300 {
		t.Errorf("got %+v", got)
	}
	if got.TypingCompleteMS != 500 || got.KeyboardEventsSettleMS != 300 {
		t.Errorf("typing delays = %+v", got)
	}
}

func TestHistoryRecords(t *testing.T) {
	s := openTestStore(t)

	recs := []*HistoryRecord{
		{RecordType: "transcribe", OutputText: "hello world", ProcessorType: "multipart", ProcessingTimeMS: 812, Success: true},
		{RecordType: "translate", InputText: "你好", OutputText: "Hello", ProcessorType: "ollama", ProcessingTimeMS: 1200, Success: true},
		{RecordType: "transcribe", Success: false, ErrorMessage: "network timeout"},
	}
	for _, rec := range recs {
		if err := s.AddHistoryRecord(rec); err != nil {
			t.Fatalf("AddHistoryRecord: %v", err)
		}
	}

	got, err := s.RecentHistory(10)
	if err != nil {
		t.Fatalf("RecentHistory: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}

	var failures int
	for _, rec := range got {
		if !rec.Success {
			failures++
			if rec.ErrorMessage == "" {
				t.Error("failed record with no error message")
			}
		}
	}
	if failures != 1 {
		t.Errorf("failures = %d, want 1", failures)
	}
}

func TestRecentHistoryLimit(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 5; i++ {
		if err := s.AddHistoryRecord(&HistoryRecord{RecordType: "transcribe", Success: true}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.RecentHistory(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}
