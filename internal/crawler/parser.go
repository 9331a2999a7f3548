// Package crawler provides news search crawling: URL building, polite fetching,
// result and article page extraction, and paginated crawl sessions.
package crawler

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"newsquarter/internal/config"
	"newsquarter/internal/logger"
	"newsquarter/internal/models"
)

type extractMode int

const (
	modeText extractMode = iota
	modeAttr
)

// fieldRule describes how one record field is read from a card.
type fieldRule struct {
	column   string
	selector string
	mode     extractMode
	attr     string
	// index prefers the n-th match, falling back to the first.
	index int
	clean func(string) string
}

// fieldValue distinguishes an absent field from one that is present but empty.
type fieldValue struct {
	value   string
	present bool
}

// Parser extracts records from result pages and body text from article pages.
type Parser struct {
	selectors   config.SelectorsConfig
	linkPattern *regexp.Regexp
	fields      []fieldRule
	fetcher     Fetcher
	log         *logger.Logger
}

// NewParser builds a parser from the selector table. fetcher is used to
// retrieve article pages; a nil fetcher leaves contents empty.
func NewParser(sel config.SelectorsConfig, linkPattern string, fetcher Fetcher, log *logger.Logger) (*Parser, error) {
	re, err := regexp.Compile(linkPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid article link pattern: %w", err)
	}

	if log == nil {
		log = logger.Discard()
	}

	return &Parser{
		selectors:   sel,
		linkPattern: re,
		fetcher:     fetcher,
		log:         log,
		fields: []fieldRule{
			{column: models.ColumnTitle, selector: sel.Title, mode: modeText},
			{column: models.ColumnLink, selector: sel.Link, mode: modeAttr, attr: "href", clean: stripQuery},
			{column: models.ColumnSource, selector: sel.Source, mode: modeText},
			{column: models.ColumnDate, selector: sel.Date, mode: modeText, index: sel.DateIndex, clean: CleanDate},
		},
	}, nil
}

// candidate is an article card found through an article link inside it.
type candidate struct {
	card *goquery.Selection
	href string
}

// ExtractResults returns one record per distinct article card on a results
// page, in document order. It never fails: unparsable input yields no records
// and missing elements yield empty fields.
func (p *Parser) ExtractResults(ctx context.Context, pageBody string) []models.Record {
	if strings.TrimSpace(pageBody) == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageBody))
	if err != nil {
		p.log.Warn("failed to parse results page", "error", err)

		return nil
	}

	candidates := p.findCandidates(doc)
	records := make([]models.Record, 0, len(candidates))
	seenLinks := make(map[string]bool)

	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}

		rec := p.extractCard(ctx, c)
		if seenLinks[rec.Link] {
			continue
		}

		seenLinks[rec.Link] = true
		records = append(records, rec)
	}

	return records
}

// findCandidates scans anchors pointing at article pages, de-duplicates them
// by href and maps each to its enclosing card. A card is visited once even
// when it holds several article anchors.
func (p *Parser) findCandidates(doc *goquery.Document) []candidate {
	var out []candidate

	seenHref := make(map[string]bool)
	seenCard := make(map[*html.Node]bool)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		raw, _ := a.Attr("href")

		href := stripQuery(raw)
		if !p.linkPattern.MatchString(href) || seenHref[href] {
			return
		}

		if strings.TrimSpace(a.Text()) == "" {
			return
		}

		seenHref[href] = true

		card := a.Closest(p.selectors.Card)
		if card.Length() == 0 || seenCard[card.Get(0)] {
			return
		}

		seenCard[card.Get(0)] = true
		out = append(out, candidate{card: card, href: href})
	})

	return out
}

func (p *Parser) extractCard(ctx context.Context, c candidate) models.Record {
	var rec models.Record

	for _, rule := range p.fields {
		if v := p.extractField(c.card, rule); v.present {
			rec.SetField(rule.column, v.value)
		}
	}

	// The scanned article link stands in when the headline carries no href.
	if rec.Link == "" {
		rec.Link = c.href
	}

	rec.Contents = p.extractContents(ctx, c.card)

	return rec
}

func (p *Parser) extractField(card *goquery.Selection, rule fieldRule) fieldValue {
	if strings.TrimSpace(rule.selector) == "" {
		return fieldValue{}
	}

	matches := card.Find(rule.selector)
	if matches.Length() == 0 {
		return fieldValue{}
	}

	node := matches.First()
	if rule.index > 0 && matches.Length() > rule.index {
		node = matches.Eq(rule.index)
	}

	var value string

	switch rule.mode {
	case modeAttr:
		v, ok := node.Attr(rule.attr)
		if !ok {
			return fieldValue{}
		}

		value = v
	default:
		value = strings.TrimSpace(node.Text())
	}

	if rule.clean != nil {
		value = rule.clean(value)
	}

	return fieldValue{value: value, present: true}
}

// extractContents follows the card's read-more link and extracts the article body.
func (p *Parser) extractContents(ctx context.Context, card *goquery.Selection) string {
	if p.fetcher == nil || strings.TrimSpace(p.selectors.ReadMore) == "" {
		return ""
	}

	href, ok := card.Find(p.selectors.ReadMore).First().Attr("href")
	if !ok {
		return ""
	}

	articleURL := stripQuery(href)
	if articleURL == "" {
		return ""
	}

	body, err := p.fetcher.Fetch(ctx, articleURL)
	if err != nil {
		p.log.Debug("article fetch failed", "url", articleURL, "error", err)

		return ""
	}

	return p.ExtractArticle(body)
}

// ExtractArticle returns the whitespace-normalized text of the article body
// container, or "" when the page has no such container. Boilerplate is only
// removed when the selectors opt in with CleanArticleBody.
func (p *Parser) ExtractArticle(articleBody string) string {
	if strings.TrimSpace(articleBody) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(articleBody))
	if err != nil {
		return ""
	}

	node := doc.Find(p.selectors.ArticleBody).First()
	if node.Length() == 0 {
		return ""
	}

	if !p.selectors.CleanArticleBody {
		return visibleText(node)
	}

	markup, err := goquery.OuterHtml(node)
	if err != nil {
		return visibleText(node)
	}

	return CleanArticleFragment(markup, p.selectors.Boilerplate...)
}
