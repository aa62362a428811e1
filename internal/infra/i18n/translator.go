package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var LocalesFS embed.FS

// FallbackLanguage is used for keys a locale does not translate.
const FallbackLanguage = "en"

// Translator renders message keys into text for one language.
type Translator struct {
	lang         string
	translations map[string]string
	fallback     map[string]string
}

// NewTranslator loads locales/<lang>.yaml from fsys. Keys missing from the
// locale fall back to the English file.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	primary, err := readLocale(fsys, langCode)
	if err != nil {
		return nil, err
	}
	t := &Translator{lang: langCode, translations: primary}
	if langCode != FallbackLanguage {
		if fb, err := readLocale(fsys, FallbackLanguage); err == nil {
			t.fallback = fb
		}
	}
	return t, nil
}

func readLocale(fsys fs.FS, langCode string) (map[string]string, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	return parseLocale(data)
}

func parseLocale(data []byte) (map[string]string, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return translations, nil
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	translations, err := parseLocale(data)
	if err != nil {
		return nil, err
	}
	return &Translator{translations: translations}, nil
}

// T returns the key itself when no locale knows it.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		if format, ok = t.fallback[key]; !ok {
			return key
		}
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}
