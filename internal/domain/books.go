// internal/domain/books.go
package domain

import (
	"regexp"
	"strings"

	"shopping-agent/internal/models"
)

const BooksName = "books"

var (
	isbnPattern        = regexp.MustCompile(`\b(97[89][-\s]?(?:\d[-\s]?){9}\d|(?:\d[-\s]?){9}[\dx])\b`)
	bookFormatPattern  = regexp.MustCompile(`\b(paperback|hardcover|hardback|kindle|ebook|e-book|audiobook|audio\s*cd|board\s+book|mass\s+market)\b`)
	bookAuthorPattern  = regexp.MustCompile(`\bby\s+([a-z][a-z.'-]*(?:\s+[a-z][a-z.'-]*){0,2})`)
	bookNoisePattern   = regexp.MustCompile(`\b(books?|novels?|isbn|edition|the\s+book|copy|new|latest)\b`)
	bookAccessory      = regexp.MustCompile(`\b(bookmarks?|book\s*lights?|reading\s*lights?|book\s*(?:covers?|sleeves?|stands?|ends?)|bookends?|summary\s+of|study\s+guide|workbook\s+for|analysis\s+of|sparknotes|cliffsnotes|colou?ring\s+book\s+for)\b`)
	bookBadCondition   = regexp.MustCompile(`\b(poor|acceptable|ex-?library|damaged|water\s*damage[d]?|missing\s+pages|heavily\s+annotated)\b`)
	bookFormatSynonyms = map[string]string{"hardback": "hardcover", "e-book": "ebook", "kindle": "ebook", "audio cd": "audiobook"}
)

type booksProfile struct {
	baseProfile
}

func newBooksProfile() *booksProfile {
	return &booksProfile{baseProfile{
		name: BooksName,
		signals: []signal{
			{"isbn", isbnPattern, 4},
			{"book", regexp.MustCompile(`\b(books?|novels?|paperback|hardcover|hardback|kindle|ebook|audiobook|isbn)\b`), 2.5},
			{"author", bookAuthorPattern, 1},
			{"edition", regexp.MustCompile(`\b(\d+(st|nd|rd|th)\s+edition|box\s+set|series|volume|vol\.?\s*\d)\b`), 1},
		},
		badCondition: bookBadCondition,
		accessory:    bookAccessory,
		fallbacks:    newFallbackSet(FallbackRelaxModelSuffix),
	}}
}

func normalizeISBN(s string) string {
	return strings.ToLower(strings.NewReplacer("-", "", " ", "").Replace(s))
}

func (p *booksProfile) EntityExtract(text string) Entities {
	lower := strings.ToLower(text)
	e := Entities{}
	rest := lower
	if isbn := firstMatch(isbnPattern, lower); isbn != "" {
		e["isbn"] = normalizeISBN(isbn)
		rest = isbnPattern.ReplaceAllString(rest, " ")
	}
	if format := firstMatch(bookFormatPattern, lower); format != "" {
		format = spacesPattern.ReplaceAllString(format, " ")
		if canonical, ok := bookFormatSynonyms[format]; ok {
			format = canonical
		}
		e["format"] = format
		rest = bookFormatPattern.ReplaceAllString(rest, " ")
	}
	if author := firstMatch(bookAuthorPattern, rest); author != "" {
		e["author"] = author
		rest = bookAuthorPattern.ReplaceAllString(rest, " ")
	}
	rest = bookNoisePattern.ReplaceAllString(rest, " ")
	if title := strings.Join(keywords(rest), " "); title != "" {
		e["title"] = title
	}
	return e
}

func (p *booksProfile) PreprocessQueries(text string, _ models.Prefs) []string {
	e := p.EntityExtract(text)
	var byISBN, titleAuthor string
	if e["isbn"] != "" {
		byISBN = "ISBN " + e["isbn"]
	}
	if e["title"] != "" {
		titleAuthor = strings.TrimSpace(e["title"] + " " + e["author"] + " book")
	}
	return uniqueQueries(byISBN, cleanQuery(text), titleAuthor)
}

func (p *booksProfile) listingISBN(l models.RawListing) string {
	if isbn := l.Str("isbn", "isbn13", "isbn10", "gtin"); isbn != "" {
		return normalizeISBN(isbn)
	}
	if isbn := firstMatch(isbnPattern, strings.ToLower(l.Title()+" "+l.URL())); isbn != "" {
		return normalizeISBN(isbn)
	}
	return ""
}

// FilterModel matches by ISBN when one was given, otherwise by title words
// (all of them when strict, at least half when relaxed) and author surname.
func (p *booksProfile) FilterModel(l models.RawListing, e Entities, strict bool) bool {
	if e["isbn"] != "" {
		if p.listingISBN(l) == e["isbn"] {
			return true
		}
		if strict {
			return false
		}
	}
	text := l.Text()
	if author := e["author"]; author != "" {
		names := strings.Fields(author)
		if !containsPhrase(text+" "+strings.ToLower(l.Str("author", "authors")), names[len(names)-1]) && strict {
			return false
		}
	}
	words := strings.Fields(e["title"])
	if len(words) == 0 {
		return e["author"] != "" || !strict
	}
	hits := 0
	for _, w := range words {
		if containsPhrase(text, w) {
			hits++
		}
	}
	if strict {
		return hits == len(words)
	}
	return hits*2 >= len(words)
}

func (p *booksProfile) DedupKey(title string, l models.RawListing, e Entities) string {
	if isbn := p.listingISBN(l); isbn != "" {
		format := firstMatch(bookFormatPattern, strings.ToLower(title))
		if canonical, ok := bookFormatSynonyms[format]; ok {
			format = canonical
		}
		return p.idOrSignature(l, "isbn:"+isbn+"|"+format+"|"+strings.ToLower(l.Provider()))
	}
	return p.baseProfile.DedupKey(title, l, e)
}
