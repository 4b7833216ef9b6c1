package notifier

import (
	"context"
	"sync"

	"portal-notifier/internal/models"
)

type fakeInApp struct {
	SendPersonalFunc func(ctx context.Context, recipientID int64, n models.InAppNotification) error

	mu   sync.Mutex
	sent []models.InAppNotification
}

func (f *fakeInApp) SendPersonal(ctx context.Context, recipientID int64, n models.InAppNotification) error {
	f.mu.Lock()
	f.sent = append(f.sent, n)
	f.mu.Unlock()
	if f.SendPersonalFunc == nil {
		return nil
	}
	return f.SendPersonalFunc(ctx, recipientID, n)
}

type fakeEmail struct {
	SendEmailFunc func(ctx context.Context, msg EmailMessage) error

	mu   sync.Mutex
	sent []EmailMessage
}

func (f *fakeEmail) SendEmail(ctx context.Context, msg EmailMessage) error {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
	if f.SendEmailFunc == nil {
		return nil
	}
	return f.SendEmailFunc(ctx, msg)
}

type fakeDirectory struct {
	GetEmailFunc func(ctx context.Context, recipientID int64) (string, error)
}

func (f *fakeDirectory) GetEmail(ctx context.Context, recipientID int64) (string, error) {
	return f.GetEmailFunc(ctx, recipientID)
}

// fakeTexts is a flat key → text table per locale.
type fakeTexts struct {
	defaultLang string
	texts       map[string]map[string]string
}

func (f *fakeTexts) Lookup(key, locale string) (string, bool) {
	s, ok := f.texts[locale][key]
	return s, ok
}

func (f *fakeTexts) ResolveLanguage(locale string) string {
	if _, ok := f.texts[locale]; ok {
		return locale
	}
	return f.defaultLang
}

func (f *fakeTexts) DefaultLanguage() string { return f.defaultLang }

// recordingRenderer counts Render calls.
type recordingRenderer struct {
	mu    sync.Mutex
	calls int
}

func (r *recordingRenderer) Render(kind models.NotificationKind, payload map[string]interface{}, locale, title, message string) Rendered {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return Rendered{Title: title, Message: message, Locale: locale}
}
