package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"portal-notifier/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTranslator(t *testing.T) *Translator {
	t.Helper()
	tr := New("en", []string{"en", "ka"}, logger.NewTestLogger(t))
	require.NoError(t, tr.LoadFS(fstest.MapFS{
		"en.json": {Data: []byte(`{
			"common": {"loading": "Loading..."},
			"greeting": "Hello {{name}}",
			"nested": {"deep": {"key": "found"}}
		}`)},
		"ka.json": {Data: []byte(`{"common": {"loading": "იტვირთება..."}}`)},
	}, "."))
	return tr
}

func TestTranslator_Lookup(t *testing.T) {
	tr := newTestTranslator(t)

	tests := []struct {
		name   string
		key    string
		lang   string
		want   string
		wantOK bool
	}{
		{name: "english", key: "common.loading", lang: "en", want: "Loading...", wantOK: true},
		{name: "georgian", key: "common.loading", lang: "ka", want: "იტვირთება...", wantOK: true},
		{name: "unsupported falls back to default", key: "common.loading", lang: "fr", want: "Loading...", wantOK: true},
		{name: "empty lang uses default", key: "nested.deep.key", want: "found", wantOK: true},
		{name: "object is not a string", key: "nested.deep", lang: "en"},
		{name: "missing key", key: "common.nope", lang: "en"},
		{name: "path through a string", key: "greeting.x", lang: "en"},
		{name: "missing in loaded language, no cross fallback", key: "greeting", lang: "ka"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tr.Lookup(tt.key, tt.lang)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslator_Text(t *testing.T) {
	tr := newTestTranslator(t)

	assert.Equal(t, "Hello Nino", tr.Text("greeting", "en", "", map[string]interface{}{"name": "Nino"}))
	assert.Equal(t, "Hello {{name}}", tr.Text("greeting", "en", "", nil), "format failure returns unformatted text")
	assert.Equal(t, "fallback", tr.Text("missing.key", "en", "fallback", nil))
	assert.Equal(t, "missing.key", tr.Text("missing.key", "en", "", nil))
}

func TestTranslator_LoadFS(t *testing.T) {
	tr := New("en", []string{"en", "ka"}, logger.NewNoOpLogger())

	t.Run("missing file is skipped", func(t *testing.T) {
		require.NoError(t, tr.LoadFS(fstest.MapFS{"en.json": {Data: []byte(`{}`)}}, "."))
		assert.NotNil(t, tr.Translations("en"))
		assert.Nil(t, tr.Translations("ka"))
		assert.Equal(t, "en", tr.ResolveLanguage("ka"), "unloaded language resolves to default")
	})

	t.Run("invalid json is an error", func(t *testing.T) {
		err := tr.LoadFS(fstest.MapFS{"en.json": {Data: []byte(`{`)}}, ".")
		assert.Error(t, err)
	})
}

func TestNewDefault_EmbeddedTemplates(t *testing.T) {
	tr, err := NewDefault("en", []string{"en", "ka"}, "", logger.NewNoOpLogger())
	require.NoError(t, err)

	title, ok := tr.Lookup("notifications.templates.project_created.title", "en")
	require.True(t, ok)
	assert.Equal(t, "New Project Created", title)

	_, ok = tr.Lookup("notifications.templates.reminder.message", "ka")
	assert.True(t, ok)
}

func TestTranslator_DetectLanguage(t *testing.T) {
	tr := newTestTranslator(t)

	tests := []struct {
		name   string
		target string
		header string
		cookie string
		want   string
	}{
		{name: "query wins", target: "/?lang=ka", header: "en-US", cookie: "en", want: "ka"},
		{name: "unsupported query ignored", target: "/?lang=fr", header: "ka-GE", want: "ka"},
		{name: "accept-language primary subtag", target: "/", header: "ka-GE,en;q=0.8", want: "ka"},
		{name: "accept-language honours q order", target: "/", header: "fr;q=0.9,en;q=0.8,ka;q=0.1", want: "en"},
		{name: "cookie after header", target: "/", header: "de-DE", cookie: "ka", want: "ka"},
		{name: "default", target: "/", want: "en"},
		{name: "malformed header falls through", target: "/", header: ";;;", cookie: "ka", want: "ka"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				r.Header.Set("Accept-Language", tt.header)
			}
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			assert.Equal(t, tt.want, tr.DetectLanguage(r))
		})
	}
}
