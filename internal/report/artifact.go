// Package report renders selected parcels into downloadable artifacts:
// per-borough letters, the spreadsheet table and map exports.
package report

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Content types of generated artifacts.
const (
	ContentTypeText    = "text/plain; charset=utf-8"
	ContentTypeCSV     = "text/csv; charset=utf-8"
	ContentTypeZip     = "application/zip"
	ContentTypeGeoJSON = "application/geo+json"
)

// Artifact is one downloadable file.
type Artifact struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Content     []byte `json:"-"`
}

// Text returns the content as a string.
func (a Artifact) Text() string {
	return string(a.Content)
}

// ContentDisposition builds an attachment header carrying an ASCII fallback name and
// the exact UTF-8 name, so "WAiB_Żoliborz_2024-05-01.txt" downloads intact.
func (a Artifact) ContentDisposition() string {
	encoded := strings.ReplaceAll(url.QueryEscape(a.Filename), "+", "%20")
	return `attachment; filename="` + ASCIIName(a.Filename) + `"; filename*=UTF-8''` + encoded
}

var polishLetters = runes.Map(func(r rune) rune {
	switch r {
	case 'ł':
		return 'l'
	case 'Ł':
		return 'L'
	}
	return r
})

// ASCIIName folds diacritics and replaces anything else outside printable ASCII.
func ASCIIName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), polishLetters, norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var sb strings.Builder
	for _, r := range folded {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			sb.WriteByte('_')
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// SafeName replaces path separators, characters reserved on Windows and control
// characters with "_", so a borough name can never leave the download or zip root.
func SafeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return '_'
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, name)
}

// nameSet hands out filenames that are unique within one download.
type nameSet map[string]int

// unique returns name the first time and name_2, name_3, ... before the extension after.
func (s nameSet) unique(name string) string {
	s[name]++
	n := s[name]
	if n == 1 {
		return name
	}

	ext := filepath.Ext(name)
	candidate := fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), n, ext)
	if _, taken := s[candidate]; taken {
		return s.unique(name)
	}
	s[candidate]++
	return candidate
}
