// Package langdetect identifies the language of transcribed text. The
// coordinator uses it to skip the translation hop for English input and
// to tag history records.
package langdetect

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
	_ "github.com/pemistahl/lingua-go/language-models/af"
	_ "github.com/pemistahl/lingua-go/language-models/ar"
	_ "github.com/pemistahl/lingua-go/language-models/az"
	_ "github.com/pemistahl/lingua-go/language-models/be"
	_ "github.com/pemistahl/lingua-go/language-models/bg"
	_ "github.com/pemistahl/lingua-go/language-models/bn"
	_ "github.com/pemistahl/lingua-go/language-models/bs"
	_ "github.com/pemistahl/lingua-go/language-models/ca"
	_ "github.com/pemistahl/lingua-go/language-models/cs"
	_ "github.com/pemistahl/lingua-go/language-models/cy"
	_ "github.com/pemistahl/lingua-go/language-models/da"
	_ "github.com/pemistahl/lingua-go/language-models/de"
	_ "github.com/pemistahl/lingua-go/language-models/el"
	_ "github.com/pemistahl/lingua-go/language-models/en"
	_ "github.com/pemistahl/lingua-go/language-models/eo"
	_ "github.com/pemistahl/lingua-go/language-models/es"
	_ "github.com/pemistahl/lingua-go/language-models/et"
	_ "github.com/pemistahl/lingua-go/language-models/eu"
	_ "github.com/pemistahl/lingua-go/language-models/fa"
	_ "github.com/pemistahl/lingua-go/language-models/fi"
	_ "github.com/pemistahl/lingua-go/language-models/fr"
	_ "github.com/pemistahl/lingua-go/language-models/ga"
	_ "github.com/pemistahl/lingua-go/language-models/gu"
	_ "github.com/pemistahl/lingua-go/language-models/he"
	_ "github.com/pemistahl/lingua-go/language-models/hi"
	_ "github.com/pemistahl/lingua-go/language-models/hr"
	_ "github.com/pemistahl/lingua-go/language-models/hu"
	_ "github.com/pemistahl/lingua-go/language-models/hy"
	_ "github.com/pemistahl/lingua-go/language-models/id"
	_ "github.com/pemistahl/lingua-go/language-models/is"
	_ "github.com/pemistahl/lingua-go/language-models/it"
	_ "github.com/pemistahl/lingua-go/language-models/ja"
	_ "github.com/pemistahl/lingua-go/language-models/ka"
	_ "github.com/pemistahl/lingua-go/language-models/kk"
	_ "github.com/pemistahl/lingua-go/language-models/ko"
	_ "github.com/pemistahl/lingua-go/language-models/la"
	_ "github.com/pemistahl/lingua-go/language-models/lg"
	_ "github.com/pemistahl/lingua-go/language-models/lt"
	_ "github.com/pemistahl/lingua-go/language-models/lv"
	_ "github.com/pemistahl/lingua-go/language-models/mi"
	_ "github.com/pemistahl/lingua-go/language-models/mk"
	_ "github.com/pemistahl/lingua-go/language-models/mn"
	_ "github.com/pemistahl/lingua-go/language-models/mr"
	_ "github.com/pemistahl/lingua-go/language-models/ms"
	_ "github.com/pemistahl/lingua-go/language-models/nb"
	_ "github.com/pemistahl/lingua-go/language-models/nl"
	_ "github.com/pemistahl/lingua-go/language-models/nn"
	_ "github.com/pemistahl/lingua-go/language-models/pa"
	_ "github.com/pemistahl/lingua-go/language-models/pl"
	_ "github.com/pemistahl/lingua-go/language-models/pt"
	_ "github.com/pemistahl/lingua-go/language-models/ro"
	_ "github.com/pemistahl/lingua-go/language-models/ru"
	_ "github.com/pemistahl/lingua-go/language-models/sk"
	_ "github.com/pemistahl/lingua-go/language-models/sl"
	_ "github.com/pemistahl/lingua-go/language-models/sn"
	_ "github.com/pemistahl/lingua-go/language-models/so"
	_ "github.com/pemistahl/lingua-go/language-models/sq"
	_ "github.com/pemistahl/lingua-go/language-models/sr"
	_ "github.com/pemistahl/lingua-go/language-models/st"
	_ "github.com/pemistahl/lingua-go/language-models/sv"
	_ "github.com/pemistahl/lingua-go/language-models/sw"
	_ "github.com/pemistahl/lingua-go/language-models/ta"
	_ "github.com/pemistahl/lingua-go/language-models/te"
	_ "github.com/pemistahl/lingua-go/language-models/th"
	_ "github.com/pemistahl/lingua-go/language-models/tl"
	_ "github.com/pemistahl/lingua-go/language-models/tn"
	_ "github.com/pemistahl/lingua-go/language-models/tr"
	_ "github.com/pemistahl/lingua-go/language-models/ts"
	_ "github.com/pemistahl/lingua-go/language-models/uk"
	_ "github.com/pemistahl/lingua-go/language-models/ur"
	_ "github.com/pemistahl/lingua-go/language-models/vi"
	_ "github.com/pemistahl/lingua-go/language-models/xh"
	_ "github.com/pemistahl/lingua-go/language-models/yo"
	_ "github.com/pemistahl/lingua-go/language-models/zh"
	_ "github.com/pemistahl/lingua-go/language-models/zu"
)

var (
	once     sync.Once
	detector lingua.LanguageDetector
)

// The detector loads language models lazily; building it is expensive.
func get() lingua.LanguageDetector {
	once.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}

// Detect returns the ISO 639-1 code and English name of the text's
// language. Empty or undetectable text returns ("", "").
func Detect(text string) (code, name string) {
	if strings.TrimSpace(text) == "" {
		return "", ""
	}
	lang, ok := get().DetectLanguageOf(text)
	if !ok {
		return "", ""
	}
	return strings.ToLower(lang.IsoCode639_1().String()), lang.String()
}

// IsEnglish reports whether the text is already English.
func IsEnglish(text string) bool {
	code, _ := Detect(text)
	return code == "en"
}
