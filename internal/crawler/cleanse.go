package crawler

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"newsquarter/internal/config"
)

var (
	// 2024.01.15. and the like.
	numericDatePattern = regexp.MustCompile(`\d+\.\d+\.\d+\.`)
	// "<word> <token>" such as "언론사 3시간"; \w is spelled out so Hangul counts as a word character.
	relativeDatePattern = regexp.MustCompile(`[\p{L}\p{N}_]* (\d[\p{L}\p{N}_]*)`)
)

// DefaultBoilerplate lists the sub-trees removed from article markup before flattening.
var DefaultBoilerplate = config.Default().Crawler.Selectors.Boilerplate

// CleanDate reduces a raw date label to a YYYY.MM.DD. token, or to the token
// following the first word when no numeric date is present. Anything else is
// returned unchanged.
func CleanDate(text string) string {
	if m := numericDatePattern.FindString(text); m != "" {
		return m
	}

	if m := relativeDatePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}

	return text
}

// CleanArticleFragment removes boilerplate sub-trees from markup and returns
// the remaining visible text. Without selectors DefaultBoilerplate is used.
func CleanArticleFragment(markup string, boilerplate ...string) string {
	if len(boilerplate) == 0 {
		boilerplate = DefaultBoilerplate
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return strings.TrimSpace(markup)
	}

	// Structural removal must run before the tree is flattened to text.
	stripBoilerplate(doc.Selection, boilerplate)

	return visibleText(doc.Selection)
}

func stripBoilerplate(sel *goquery.Selection, boilerplate []string) {
	for _, s := range boilerplate {
		if strings.TrimSpace(s) == "" {
			continue
		}

		sel.Find(s).Remove()
	}
}

// visibleText joins the trimmed text nodes under sel with single spaces,
// skipping script, style and comments.
func visibleText(sel *goquery.Selection) string {
	var parts []string

	var walk func(*html.Node)

	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				parts = append(parts, t)
			}

			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" || n.Data == "noscript" {
				return
			}
		case html.CommentNode:
			return
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range sel.Nodes {
		walk(n)
	}

	return strings.Join(parts, " ")
}

// stripQuery drops everything from the first '?'.
func stripQuery(href string) string {
	href, _, _ = strings.Cut(href, "?")

	return strings.TrimSpace(href)
}
