// internal/i18n/i18n.go
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
)

//go:embed locales/*.json
var localeFS embed.FS

type I18n struct {
	mu           sync.RWMutex
	translations map[string]map[string]string
	defaultLang  string
}

var instance *I18n
var once sync.Once

// Initialize loads the embedded locale bundles. defaultLang is used when a
// key is missing from the requested language.
func Initialize(defaultLang string) error {
	var err error
	once.Do(func() {
		if defaultLang == "" {
			defaultLang = "en"
		}
		instance = &I18n{
			translations: make(map[string]map[string]string),
			defaultLang:  defaultLang,
		}
		err = instance.LoadTranslations(localeFS, "locales")
	})
	return err
}

// LoadTranslations reads every <lang>.json bundle under localesPath.
func (i *I18n) LoadTranslations(fsys fs.FS, localesPath string) error {
	files, err := fs.Glob(fsys, path.Join(localesPath, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to list locale files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no locale files found in %s", localesPath)
	}

	loaded := make(map[string]map[string]string, len(files))
	for _, filePath := range files {
		lang := strings.TrimSuffix(path.Base(filePath), ".json")

		data, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			return fmt.Errorf("failed to read locale file %s: %w", filePath, err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return fmt.Errorf("failed to unmarshal locale file %s: %w", filePath, err)
		}
		loaded[lang] = translations
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	for lang, translations := range loaded {
		i.translations[lang] = translations
	}
	return nil
}

// lookup returns the formatted translation of key in lang, if present.
func (i *I18n) lookup(lang, key string, args []interface{}) (string, bool) {
	text, ok := i.translations[lang][key]
	if !ok {
		return "", false
	}
	if len(args) > 0 {
		return fmt.Sprintf(text, args...), true
	}
	return text, true
}

// T translates key into lang, falling back to the default language and
// finally to the key itself.
func (i *I18n) T(lang, key string, args ...interface{}) string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if text, ok := i.lookup(lang, key, args); ok {
		return text
	}
	if text, ok := i.lookup(i.defaultLang, key, args); ok {
		return text
	}
	return key
}

// Global functions
func T(lang, key string, args ...interface{}) string {
	if instance != nil {
		return instance.T(lang, key, args...)
	}
	return key
}

func GetSupportedLanguages() []string {
	if instance == nil {
		return []string{"en"}
	}

	instance.mu.RLock()
	defer instance.mu.RUnlock()

	langs := make([]string, 0, len(instance.translations))
	for lang := range instance.translations {
		langs = append(langs, lang)
	}
	return langs
}
