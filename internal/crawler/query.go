package crawler

import (
	"strconv"
	"strings"

	"newsquarter/internal/config"
)

// QueryBuilder composes search result page URLs. It holds no mutable state.
type QueryBuilder struct {
	baseURL string
	sort    int
}

// NewQueryBuilder creates a builder for the configured search portal.
func NewQueryBuilder(cfg config.SearchConfig) *QueryBuilder {
	return &QueryBuilder{baseURL: cfg.BaseURL, sort: cfg.Sort}
}

// WithSort returns a copy of the builder that requests the given sort order.
func (q *QueryBuilder) WithSort(sort int) *QueryBuilder {
	return &QueryBuilder{baseURL: q.baseURL, sort: sort}
}

// BuildResultsURL returns the results URL for the page starting at item
// pageStart (1-based). encodedQuery must already be percent-encoded;
// fromCompact and toCompact are the dates without separators.
func (q *QueryBuilder) BuildResultsURL(pageStart int, encodedQuery, startDate, endDate, fromCompact, toCompact string) string {
	var b strings.Builder

	b.WriteString(q.baseURL)
	b.WriteString("?ssc=tab.news.all&query=")
	b.WriteString(encodedQuery)
	b.WriteString("&sm=tab_opt&sort=")
	b.WriteString(strconv.Itoa(q.sort))
	b.WriteString("&photo=3&field=0&pd=3&ds=")
	b.WriteString(startDate)
	b.WriteString("&de=")
	b.WriteString(endDate)
	b.WriteString("&docid=&related=0&mynews=0&office_type=0&office_section_code=0&news_office_checked=")
	b.WriteString("&nso=so%3Ar%2Cp%3Afrom")
	b.WriteString(fromCompact)
	b.WriteString("to")
	b.WriteString(toCompact)
	b.WriteString("&is_sug_officeid=0&office_category=0&service_area=0&start=")
	b.WriteString(strconv.Itoa(pageStart))

	return b.String()
}
