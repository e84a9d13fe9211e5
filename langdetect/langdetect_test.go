package langdetect

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		text string
		code string
	}{
		{"Hello, how are you doing today?", "en"},
		{"你好，今天过得怎么样？", "zh"},
		{"Bonjour, comment allez-vous aujourd'hui ?", "fr"},
	}
	for _, tt := range tests {
		code, name := Detect(tt.text)
		if code != tt.code {
			t.Errorf("Detect(%q) = %q (%s), want %q", tt.text, code, name, tt.code)
		}
		if name == "" {
			t.Errorf("Detect(%q) returned empty name", tt.text)
		}
	}
}

func TestDetectEmpty(t *testing.T) {
	if code, name := Detect("   "); code != "" || name != "" {
		t.Errorf("Detect(blank) = %q, %q", code, name)
	}
}

func TestIsEnglish(t *testing.T) {
	if !IsEnglish("The quick brown fox jumps over the lazy dog.") {
		t.Error("English text not detected as English")
	}
	if IsEnglish("这是一段中文文本，不是英文。") {
		t.Error("Chinese text detected as English")
	}
}
