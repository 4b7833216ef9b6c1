package notifier

import (
	"fmt"

	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/i18n"
	"portal-notifier/internal/models"
)

// TextSource is the locale text collaborator. *i18n.Translator implements it.
type TextSource interface {
	Lookup(key, locale string) (string, bool)
	ResolveLanguage(locale string) string
	DefaultLanguage() string
}

// Rendered is the text shared by every channel task of one request.
type Rendered struct {
	Title     string
	Message   string
	Locale    string
	Templated bool
}

// TemplateResolver turns a kind and its payload into display text. It holds
// no mutable state after construction and is shared across batches.
type TemplateResolver struct {
	texts         TextSource
	builtin       map[models.NotificationKind]Template
	defaultLocale string
	log           logger.Logger
}

// NewTemplateResolver builds a resolver over texts (may be nil) and the
// compiled-in English templates.
func NewTemplateResolver(texts TextSource, defaultLocale string, log logger.Logger) *TemplateResolver {
	if texts != nil {
		defaultLocale = texts.DefaultLanguage()
	}
	if defaultLocale == "" {
		defaultLocale = "en"
	}
	return &TemplateResolver{
		texts:         texts,
		builtin:       BuiltinTemplates(),
		defaultLocale: defaultLocale,
		log:           log,
	}
}

func (r *TemplateResolver) resolveLocale(locale string) string {
	if r.texts != nil {
		return r.texts.ResolveLanguage(locale)
	}
	if locale == "" {
		return r.defaultLocale
	}
	return locale
}

// Render picks the template for kind in locale and fills it from payload.
// Fields without a template keep the caller's title and message. A
// placeholder with no payload value leaves that field unformatted.
func (r *TemplateResolver) Render(kind models.NotificationKind, payload map[string]interface{}, locale, title, message string) Rendered {
	locale = r.resolveLocale(locale)
	out := Rendered{Title: title, Message: message, Locale: locale}

	if tmpl, ok := r.lookup(kind, "title", locale); ok {
		out.Title = r.format(kind, "title", tmpl, payload)
		out.Templated = true
	}
	if tmpl, ok := r.lookup(kind, "message", locale); ok {
		out.Message = r.format(kind, "message", tmpl, payload)
		out.Templated = true
	}

	return out
}

func (r *TemplateResolver) lookup(kind models.NotificationKind, field, locale string) (string, bool) {
	if r.texts != nil {
		key := fmt.Sprintf("notifications.templates.%s.%s", kind, field)
		if s, ok := r.texts.Lookup(key, locale); ok {
			return s, true
		}
		if locale != r.defaultLocale {
			if s, ok := r.texts.Lookup(key, r.defaultLocale); ok {
				return s, true
			}
		}
	}

	tmpl, ok := r.builtin[kind]
	if !ok {
		return "", false
	}
	if field == "title" {
		return tmpl.Title, tmpl.Title != ""
	}
	return tmpl.Message, tmpl.Message != ""
}

func (r *TemplateResolver) format(kind models.NotificationKind, field, tmpl string, payload map[string]interface{}) string {
	out, err := i18n.Format(tmpl, payload)
	if err != nil {
		r.log.Warn("template rendering fell back to unformatted text", map[string]interface{}{
			"kind":  string(kind),
			"field": field,
			"error": err,
		})
	}
	return out
}
