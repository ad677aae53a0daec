package model

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// QueryLanguage selects which query template table applies to a bank.
type QueryLanguage string

const (
	QueryLanguageEnglish QueryLanguage = ""
	QueryLanguageSpanish QueryLanguage = "spanish_only"
	QueryLanguageFrench  QueryLanguage = "french_only"
)

// Bank is one central-bank website from the roster.
type Bank struct {
	Name      string        `json:"name"`
	URL       string        `json:"url"`
	Countries []string      `json:"countries,omitempty"`
	Language  QueryLanguage `json:"language,omitempty"`
}

// NormalizedName lowercases and trims the bank name for roster dedup.
func (b Bank) NormalizedName() string {
	return strings.ToLower(strings.TrimSpace(b.Name))
}

var unsafeNameChars = regexp.MustCompile(`[^\w\- ]`)

// foldDiacritics strips combining marks so accented names (Banque, Banco)
// produce stable ASCII artifact filenames.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// ArtifactName returns the filesystem-safe form of the bank name used to
// key per-bank artifacts: diacritics folded, unsafe characters removed,
// spaces replaced with underscores.
func (b Bank) ArtifactName() string {
	name, _, err := transform.String(foldDiacritics, b.Name)
	if err != nil {
		name = b.Name
	}
	name = unsafeNameChars.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	return strings.ReplaceAll(name, " ", "_")
}
