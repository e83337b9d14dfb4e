package transform

import (
	"log/slog"

	"github.com/poiesic/cruisekb/core"
)

// languageOrder is the preference order for localized values.
var languageOrder = []string{"en", "de", "ru", "uk", "pl", "hy"}

// Translator renders text in a non-English language as English.
type Translator interface {
	ToEnglish(text, lang string) (string, error)
}

// localizer resolves *_i18n objects to English text.
type localizer struct {
	translator Translator
	logger     *slog.Logger
}

// text returns the first non-empty value in language order. English is
// returned as-is; anything else is translated, or dropped without a translator.
func (l localizer) text(node core.Tree) string {
	if !node.Object() {
		return ""
	}
	for _, lang := range languageOrder {
		value := node.Get(lang).String()
		if value == "" {
			continue
		}
		if lang == "en" {
			return value
		}
		if l.translator == nil {
			return ""
		}
		translated, err := l.translator.ToEnglish(value, lang)
		if err != nil {
			l.logger.Warn("translation failed", "lang", lang, "err", err)
			return ""
		}
		return translated
	}
	return ""
}
