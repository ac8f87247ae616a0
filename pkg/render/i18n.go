package render

import (
	"errors"
	"strings"
)

// ErrMissingTranslation is passed to OnMissing when a catalogue has no entry.
var ErrMissingTranslation = errors.New("render: missing translation")

// Translator resolves a message for a locale. Messages are keyed by their
// English text, so guard and rule messages translate without extra metadata.
type Translator interface {
	Translate(locale, key string) (string, error)
}

// MissingTranslationHandler returns the text shown when key has no
// translation for locale.
type MissingTranslationHandler func(locale, key string, err error) string

func missingTranslationDefault(_ string, key string, _ error) string {
	return key
}

// Catalog is an in-memory Translator: locale -> message -> translation.
type Catalog map[string]map[string]string

// Translate implements Translator.
func (c Catalog) Translate(locale, key string) (string, error) {
	if messages, ok := c[locale]; ok {
		if msg, ok := messages[key]; ok && strings.TrimSpace(msg) != "" {
			return msg, nil
		}
	}
	return "", ErrMissingTranslation
}

// LocalizeView returns a copy of view with slot labels, slot messages and
// panel lines translated. Panel lines keep their leading path: only the
// message after it is looked up.
func LocalizeView(view PageView, opts RenderOptions) PageView {
	if opts.Translator == nil {
		return view
	}
	onMissing := opts.OnMissing
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}
	tr := func(text string) string {
		return translate(opts.Locale, text, opts.Translator, onMissing)
	}

	view.Title = tr(view.Title)
	slots := make([]SlotView, len(view.Slots))
	for i, slot := range view.Slots {
		slot.Label = tr(slot.Label)
		slot.Errors = mapStrings(slot.Errors, tr)
		slots[i] = slot
	}
	view.Slots = slots

	lines := make([]string, len(view.Panel.Lines))
	for i, line := range view.Panel.Lines {
		lines[i] = localizeLine(opts.Locale, line, opts.Translator, tr)
	}
	if len(lines) == 0 {
		lines = nil
	}
	view.Panel.Lines = lines
	return view
}

// localizeLine translates "path message" lines. An exact entry for the
// whole line wins; otherwise a leading field path is kept and the rest is
// looked up.
func localizeLine(locale, line string, t Translator, tr func(string) string) string {
	if msg, err := t.Translate(locale, line); err == nil && strings.TrimSpace(msg) != "" {
		return msg
	}
	path, message, ok := strings.Cut(line, " ")
	if !ok || message == "" || !looksLikePath(path) {
		return tr(line)
	}
	return path + " " + tr(message)
}

func looksLikePath(token string) bool {
	if strings.HasPrefix(token, "/") {
		return true
	}
	return token != "" && strings.ToLower(token) == token && !strings.ContainsAny(token, ".,:;!?")
}

func translate(locale, key string, t Translator, onMissing MissingTranslationHandler) string {
	if strings.TrimSpace(key) == "" {
		return key
	}
	result, err := t.Translate(locale, key)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}
	return onMissing(locale, key, err)
}

func mapStrings(in []string, fn func(string) string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = fn(s)
	}
	return out
}
