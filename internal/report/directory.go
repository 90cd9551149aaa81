package report

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DefaultBoroughPrefix is stripped from municipality names for display and file names.
const DefaultBoroughPrefix = "Dzielnica "

// AddressNotFound replaces the recipient of a borough missing from the directory.
const AddressNotFound = "address not found"

// DefaultRecipients returns the architecture and construction department mailboxes
// of the 18 Warsaw boroughs, keyed by borough name without the prefix.
func DefaultRecipients() map[string]string {
	return map[string]string{
		"Bemowo":         "wab.bemowo@um.warszawa.pl",
		"Białołęka":      "wab.bialoleka@um.warszawa.pl",
		"Bielany":        "wab.bielany@um.warszawa.pl",
		"Mokotów":        "wab.mokotow@um.warszawa.pl",
		"Ochota":         "wab.ochota@um.warszawa.pl",
		"Praga-Południe": "wab.pragapoludnie@um.warszawa.pl",
		"Praga-Północ":   "wab.pragapolnoc@um.warszawa.pl",
		"Rembertów":      "wab.rembertow@um.warszawa.pl",
		"Śródmieście":    "wab.srodmiescie@um.warszawa.pl",
		"Targówek":       "wab.targowek@um.warszawa.pl",
		"Ursus":          "wab.ursus@um.warszawa.pl",
		"Ursynów":        "wab.ursynow@um.warszawa.pl",
		"Wawer":          "wab.wawer@um.warszawa.pl",
		"Wesoła":         "wab.wesola@um.warszawa.pl",
		"Wilanów":        "wab.wilanow@um.warszawa.pl",
		"Włochy":         "wab.wlochy@um.warszawa.pl",
		"Wola":           "wab.wola@um.warszawa.pl",
		"Żoliborz":       "wab.zoliborz@um.warszawa.pl",
	}
}

// Directory resolves a borough to the mailbox of its architecture department.
// It is immutable after construction and safe to share.
type Directory struct {
	prefix string
	emails map[string]string
}

// NewDirectory copies emails into a Directory. Keys may be given with or without prefix.
func NewDirectory(prefix string, emails map[string]string) Directory {
	d := Directory{prefix: prefix, emails: make(map[string]string, len(emails))}
	for name, email := range emails {
		d.emails[d.key(name)] = strings.TrimSpace(email)
	}
	return d
}

// DisplayName strips the borough prefix, e.g. "Dzielnica Wola" -> "Wola".
func (d Directory) DisplayName(borough string) string {
	return strings.TrimPrefix(borough, d.prefix)
}

// Resolve returns the mailbox for borough. Matching ignores the prefix, case and
// Unicode normalisation form, so "dzielnica wola" and "Wola" are the same key.
func (d Directory) Resolve(borough string) (string, bool) {
	email, ok := d.emails[d.key(borough)]
	return email, ok && email != ""
}

// RecipientOrPlaceholder resolves borough, falling back to AddressNotFound.
func (d Directory) RecipientOrPlaceholder(borough string) string {
	if email, ok := d.Resolve(borough); ok {
		return email
	}
	return AddressNotFound
}

// Len is the number of known boroughs.
func (d Directory) Len() int {
	return len(d.emails)
}

func (d Directory) key(name string) string {
	fold := cases.Fold()
	name = fold.String(strings.TrimSpace(norm.NFC.String(name)))
	prefix := fold.String(norm.NFC.String(d.prefix))
	return strings.TrimSpace(strings.TrimPrefix(name, prefix))
}
