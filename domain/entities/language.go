package entities

import "strings"

// Language describes a language code accepted in the tgt_lang connection
// parameter. Codes are the three-letter ISO 639-3 identifiers used by the
// speech translation models.
type Language struct {
	Code  string
	Name  string
	BCP47 string
}

var languages = map[string]Language{
	"arb": {Code: "arb", Name: "Arabic", BCP47: "ar-SA"},
	"cmn": {Code: "cmn", Name: "Mandarin Chinese", BCP47: "zh-CN"},
	"deu": {Code: "deu", Name: "German", BCP47: "de-DE"},
	"eng": {Code: "eng", Name: "English", BCP47: "en-US"},
	"fra": {Code: "fra", Name: "French", BCP47: "fr-FR"},
	"hin": {Code: "hin", Name: "Hindi", BCP47: "hi-IN"},
	"ind": {Code: "ind", Name: "Indonesian", BCP47: "id-ID"},
	"ita": {Code: "ita", Name: "Italian", BCP47: "it-IT"},
	"jpn": {Code: "jpn", Name: "Japanese", BCP47: "ja-JP"},
	"kor": {Code: "kor", Name: "Korean", BCP47: "ko-KR"},
	"nld": {Code: "nld", Name: "Dutch", BCP47: "nl-NL"},
	"pol": {Code: "pol", Name: "Polish", BCP47: "pl-PL"},
	"por": {Code: "por", Name: "Portuguese", BCP47: "pt-BR"},
	"rus": {Code: "rus", Name: "Russian", BCP47: "ru-RU"},
	"spa": {Code: "spa", Name: "Spanish", BCP47: "es-ES"},
	"tur": {Code: "tur", Name: "Turkish", BCP47: "tr-TR"},
	"ukr": {Code: "ukr", Name: "Ukrainian", BCP47: "uk-UA"},
	"vie": {Code: "vie", Name: "Vietnamese", BCP47: "vi-VN"},
}

// LookupLanguage returns the language registered for code. Lookup is case
// insensitive.
func LookupLanguage(code string) (Language, bool) {
	lang, ok := languages[strings.ToLower(strings.TrimSpace(code))]
	return lang, ok
}
