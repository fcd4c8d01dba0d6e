package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// wordForms maps spelled-out language names to the codes the worker
// expects. Clients frequently send these instead of BCP 47 tags.
var wordForms = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"dutch":      "nl",
	"swedish":    "sv",
	"norwegian":  "no",
	"danish":     "da",
	"finnish":    "fi",
	"polish":     "pl",
	"ukrainian":  "uk",
	"russian":    "ru",
	"turkish":    "tr",
	"arabic":     "ar",
	"hindi":      "hi",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
}

// Normalize converts a client language hint into a two-letter base code.
// Empty, "auto", and unrecognizable hints normalize to "" so the worker
// auto-detects.
func Normalize(hint string) string {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" || hint == "auto" {
		return ""
	}
	if code, ok := wordForms[hint]; ok {
		return code
	}

	tag, err := language.Parse(hint)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}

// Name renders a human-readable English name for a language code.
// Unknown codes are returned unchanged.
func Name(code string) string {
	if code == "" {
		return "auto"
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}
