package i18n

import (
	"embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"

	"portal-notifier/internal/common/logger"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var embeddedLocales embed.FS

const (
	QueryParam = "lang"
	CookieName = "language"
)

// Translator resolves dotted keys ("notifications.templates.reminder.title")
// against per-language JSON documents.
type Translator struct {
	defaultLang string
	supported   []string
	log         logger.Logger

	mu           sync.RWMutex
	translations map[string]map[string]interface{}
}

func New(defaultLang string, supported []string, log logger.Logger) *Translator {
	if len(supported) == 0 {
		supported = []string{defaultLang}
	}
	return &Translator{
		defaultLang:  defaultLang,
		supported:    supported,
		log:          log,
		translations: make(map[string]map[string]interface{}),
	}
}

// NewDefault returns a translator loaded from the embedded locale files,
// overlaid with <dir>/<lang>.json when dir is set.
func NewDefault(defaultLang string, supported []string, dir string, log logger.Logger) (*Translator, error) {
	t := New(defaultLang, supported, log)
	if err := t.LoadFS(embeddedLocales, "locales"); err != nil {
		return nil, err
	}
	if dir != "" {
		if err := t.LoadFS(os.DirFS(dir), "."); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// LoadFS reads <dir>/<lang>.json for every supported language. A missing file
// is logged and skipped, invalid JSON is an error. Loaded documents replace
// any previously loaded document for the same language.
func (t *Translator) LoadFS(fsys fs.FS, dir string) error {
	for _, lang := range t.supported {
		data, err := fs.ReadFile(fsys, path.Join(dir, lang+".json"))
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				t.log.Warn("translation file not found", map[string]interface{}{"lang": lang, "dir": dir})
				continue
			}
			return fmt.Errorf("read %s translations: %w", lang, err)
		}

		var doc map[string]interface{}
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("invalid JSON in %s translations: %w", lang, err)
		}

		t.mu.Lock()
		t.translations[lang] = doc
		t.mu.Unlock()
	}
	return nil
}

func (t *Translator) DefaultLanguage() string { return t.defaultLang }

func (t *Translator) Supports(lang string) bool {
	for _, s := range t.supported {
		if s == lang {
			return true
		}
	}
	return false
}

// ResolveLanguage returns lang when it is supported and loaded, else the default.
func (t *Translator) ResolveLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" || !t.Supports(lang) {
		return t.defaultLang
	}
	t.mu.RLock()
	_, ok := t.translations[lang]
	t.mu.RUnlock()
	if !ok {
		return t.defaultLang
	}
	return lang
}

// Lookup returns the raw string at key in lang. It reports false when the key
// is absent or points at a nested object.
func (t *Translator) Lookup(key, lang string) (string, bool) {
	lang = t.ResolveLanguage(lang)

	t.mu.RLock()
	defer t.mu.RUnlock()

	var node interface{} = t.translations[lang]
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]interface{})
		if !ok {
			return "", false
		}
		node, ok = m[part]
		if !ok {
			return "", false
		}
	}

	s, ok := node.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Text looks up key and formats it with params. An unknown key yields def,
// or the key itself when def is empty. Formatting failures return the
// unformatted text.
func (t *Translator) Text(key, lang, def string, params map[string]interface{}) string {
	s, ok := t.Lookup(key, lang)
	if !ok {
		if def != "" {
			return def
		}
		return key
	}

	out, err := Format(s, params)
	if err != nil {
		t.log.Debug("translation formatting failed", map[string]interface{}{"key": key, "lang": lang, "error": err})
	}
	return out
}

// Translations returns the whole document for lang, or nil.
func (t *Translator) Translations(lang string) map[string]interface{} {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.translations[lang]
}

// DetectLanguage picks the request language: the lang query parameter, then
// the primary subtag of each Accept-Language entry in preference order, then
// the language cookie, then the default.
func (t *Translator) DetectLanguage(r *http.Request) string {
	if lang := r.URL.Query().Get(QueryParam); t.Supports(lang) {
		return lang
	}

	if header := r.Header.Get("Accept-Language"); header != "" {
		tags, _, err := language.ParseAcceptLanguage(header)
		if err == nil {
			for _, tag := range tags {
				base, _ := tag.Base()
				if lang := base.String(); t.Supports(lang) {
					return lang
				}
			}
		}
	}

	if c, err := r.Cookie(CookieName); err == nil && t.Supports(c.Value) {
		return c.Value
	}

	return t.defaultLang
}
