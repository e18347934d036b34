package fortune

import "strings"

// Locale is the active display language.
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleZH Locale = "zh"
)

// ParseLocale accepts the locale code and a few chat-friendly aliases.
func ParseLocale(s string) (Locale, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en", "eng", "english", "영어":
		return LocaleEN, true
	case "zh", "cn", "chinese", "中文", "중국어":
		return LocaleZH, true
	default:
		return "", false
	}
}

// Toggle flips between the two supported locales.
func (l Locale) Toggle() Locale {
	if l == LocaleZH {
		return LocaleEN
	}
	return LocaleZH
}

// DisplayName is the locale's own name for itself.
func (l Locale) DisplayName() string {
	if l == LocaleZH {
		return "中文"
	}
	return "English"
}
