// Package i18n provides localization for wordmap display strings.
//
// The package has three pieces:
//
//   - Bundle: static message tables per language with fallback lookup
//   - Translator: a bundle bound to one language, plus locale-aware number
//     formatting via golang.org/x/text
//   - Setting: the mutable "active language" with change subscriptions, so
//     visualizations can re-render localized labels when the language switches
//
// Lookups never fail: an unknown key is returned verbatim so a missing
// translation shows up on screen instead of crashing or hiding content.
package i18n

import (
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/lexatlas/wordmap/pkg/errors"
)

// Translator resolves message keys and formats numbers for one language.
type Translator interface {
	// T returns the localized string for key, falling back to the default
	// language and finally to the key itself.
	T(key string) string

	// FormatNumber formats n with locale-appropriate digit grouping.
	FormatNumber(n int) string

	// Language returns the language code this translator is bound to.
	Language() string
}

// translator binds a Bundle to a single language.
type translator struct {
	bundle  *Bundle
	code    string
	printer *message.Printer
}

// T implements Translator.
func (t *translator) T(key string) string {
	return t.bundle.lookup(t.code, key)
}

// FormatNumber implements Translator.
func (t *translator) FormatNumber(n int) string {
	return t.printer.Sprint(number.Decimal(n))
}

// Language implements Translator.
func (t *translator) Language() string {
	return t.code
}

// Setting is the mutable active-language state.
// Subscribers are notified after the language actually changes; setting the
// same language twice notifies once.
type Setting struct {
	mu     sync.RWMutex
	bundle *Bundle
	code   string
	subs   map[int]func()
	nextID int
}

// NewSetting creates a language setting backed by bundle.
// An empty or invalid initial code falls back to the bundle's default language.
func NewSetting(bundle *Bundle, code string) *Setting {
	if bundle == nil {
		bundle = NewBundle()
	}
	if errors.ValidateLanguage(code) != nil {
		code = bundle.defaultLang
	}
	return &Setting{
		bundle: bundle,
		code:   code,
		subs:   make(map[int]func()),
	}
}

// Language returns the active language code.
func (s *Setting) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.code
}

// Translator returns a translator bound to the active language.
func (s *Setting) Translator() Translator {
	return s.bundle.Translator(s.Language())
}

// Set switches the active language and notifies subscribers.
// Setting the current language again is a no-op (no notifications).
func (s *Setting) Set(code string) error {
	if err := errors.ValidateLanguage(code); err != nil {
		return err
	}

	s.mu.Lock()
	if code == s.code {
		s.mu.Unlock()
		return nil
	}
	s.code = code
	subs := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	// Notify outside the lock; subscribers typically call back into Language().
	for _, fn := range subs {
		fn()
	}
	return nil
}

// Subscribe registers a change notification and returns a cancel function.
// The callback carries no payload; subscribers read Language() themselves.
func (s *Setting) Subscribe(fn func()) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// newPrinter builds a message printer for a language code, falling back to
// English for tags x/text cannot parse.
func newPrinter(code string) *message.Printer {
	tag, err := language.Parse(code)
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag)
}
