package render

// RenderOptions describe per-request choices that do not belong in the page
// snapshot itself.
type RenderOptions struct {
	// Locale selects the catalogue used to translate labels and messages.
	Locale string
	// Translator resolves messages. A nil Translator leaves text untouched.
	Translator Translator
	// OnMissing decides what is shown when a message has no translation. The
	// default keeps the original text.
	OnMissing MissingTranslationHandler
	// Indent pretty-prints structured output.
	Indent bool
}
