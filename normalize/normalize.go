// Package normalize derives stable identifiers and search labels from the
// raw place and crop names found in agricultural source tables.
package normalize

import (
	"strings"
	"unicode"
)

var accentFolder = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ä", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"í", "i", "ì", "i", "î", "i", "ï", "i",
	"ó", "o", "ò", "o", "ô", "o", "ö", "o",
	"ú", "u", "ù", "u", "û", "u", "ü", "u",
	"ñ", "n",
)

// Definite articles that Spanish and Valencian gazetteers shift into a
// trailing parenthetical, as in "Campello (El)".
var articles = map[string]bool{
	"el":  true,
	"la":  true,
	"los": true,
	"las": true,
	"l'":  true,
	"els": true,
	"les": true,
}

// CleanName reduces raw text to a lowercase identifier: accents are folded,
// punctuation is dropped, and each run of spaces or hyphens becomes a single
// underscore. Spelling variants of the same name collapse to one identifier,
// so CleanName output is what place and crop IRIs are built from.
func CleanName(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = accentFolder.Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		switch {
		case r == '-' || unicode.IsSpace(r):
			pending = true
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			if pending {
				b.WriteByte('_')
				pending = false
			}
			b.WriteRune(r)
		}
	}
	if pending {
		b.WriteByte('_')
	}
	return b.String()
}

// SearchLabel derives the label sent to entity search from a raw name.
// Alternate spellings after a slash are dropped, a parenthesized definite
// article is moved back in front ("Campello (El)" and "El Campello" yield
// the same label), other parentheticals are discarded, and a leading article
// is lowercased. Empty input yields an empty label, which callers treat as
// not resolvable rather than an error.
func SearchLabel(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if open := strings.IndexByte(s, '('); open > 0 {
		if n := strings.IndexByte(s[open:], ')'); n > 0 {
			body := strings.TrimSpace(s[:open])
			inner := strings.TrimSpace(s[open+1 : open+n])
			switch {
			case articles[strings.ToLower(inner)]:
				s = joinArticle(inner, body)
			case body != "":
				s = body
			}
		}
	}
	return lowerLeadingArticle(s)
}

// joinArticle puts a parenthesized article back in front of the name body.
// Elided articles ("l'") attach without a space.
func joinArticle(article, body string) string {
	article = strings.ToLower(article)
	if strings.HasSuffix(article, "'") {
		return article + body
	}
	return article + " " + body
}

// lowerLeadingArticle canonicalizes the case of a leading definite article
// so that "El Campello" and "Campello (El)" normalize identically.
func lowerLeadingArticle(s string) string {
	if len(s) > 2 && (s[0] == 'l' || s[0] == 'L') && s[1] == '\'' {
		return "l'" + s[2:]
	}
	if first, rest, ok := strings.Cut(s, " "); ok && articles[strings.ToLower(first)] {
		return strings.ToLower(first) + " " + rest
	}
	return s
}
