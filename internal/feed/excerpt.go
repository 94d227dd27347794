package feed

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxExcerptRunes = 280

// Excerpt extracts a plain-text teaser from an item's HTML content: the text
// of the first non-empty paragraph, falling back to the document text when
// the content has no <p> elements. Returns "" when nothing usable is found.
func Excerpt(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var text string
	doc.Find("p").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if t := strings.TrimSpace(sel.Text()); t != "" {
			text = t
			return false
		}
		return true
	})
	if text == "" {
		text = strings.TrimSpace(doc.Text())
	}
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) > maxExcerptRunes {
		text = strings.TrimSpace(string(runes[:maxExcerptRunes])) + "..."
	}
	return text
}
