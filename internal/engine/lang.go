package engine

import "strings"

// paddleToTesseract maps PaddleOCR language codes to Tesseract traineddata names.
var paddleToTesseract = map[string]string{
	"en":          "eng",
	"ch":          "chi_sim",
	"chinese_cht": "chi_tra",
	"fr":          "fra",
	"french":      "fra",
	"german":      "deu",
	"de":          "deu",
	"japan":       "jpn",
	"korean":      "kor",
	"es":          "spa",
	"pt":          "por",
	"it":          "ita",
	"ru":          "rus",
	"ar":          "ara",
	"hi":          "hin",
	"nl":          "nld",
	"tr":          "tur",
	"vi":          "vie",
	"fa":          "fas",
	"uk":          "ukr",
	"pl":          "pol",
}

// TesseractLanguage translates a PaddleOCR language code for OCR.
// Codes already in Tesseract form (three letters or "a+b" combos) pass through.
// Unknown codes fall back to English.
func TesseractLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return "eng"
	}
	if mapped, ok := paddleToTesseract[lang]; ok {
		return mapped
	}
	if strings.Contains(lang, "+") || len(lang) == 3 || strings.Contains(lang, "_") {
		return lang
	}
	return "eng"
}
