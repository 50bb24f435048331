package fetcher

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/docfoundry/docfoundry/internal/docsync"
)

// mainContentSelectors is the prioritized chain of structural selectors
// tried when locating the main content container. Documentation sites
// vary in markup; a fallback chain is more robust than a single
// selector and avoids indexing navigation chrome when nothing matches.
var mainContentSelectors = []string{
	"main",
	"article",
	`div[role="main"]`,
	"#main-content",
	".main-content",
	"#content",
	".content",
	".documentation",
	".docs-body",
}

// chromeSelector matches non-content elements stripped before text
// extraction.
const chromeSelector = "script, style, noscript, iframe, nav, header, footer, aside, " +
	".nav, .navbar, .sidebar, .toc, .breadcrumb, .breadcrumbs, " +
	".advertisement, .ads, [role=\"navigation\"], [role=\"banner\"], [role=\"contentinfo\"]"

// ExtractText strips non-content elements and returns the visible text
// of the first matching main-content container, falling back to the
// full document body.
func ExtractText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find(chromeSelector).Remove()

	sel := findMainContent(doc)
	return collapseWhitespace(sel.Text())
}

// ExtractMainHTML returns the serialized HTML of the main content
// container, for handoff to the markdown converter. Falls back to the
// whole body when no selector matches.
func ExtractMainHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find(chromeSelector).Remove()

	sel := findMainContent(doc)
	out, err := goquery.OuterHtml(sel)
	if err != nil {
		return ""
	}
	return out
}

// ExtractMetadata pulls page metadata out of the document head and
// body. Extraction is best effort: absent fields are simply omitted.
func ExtractMetadata(html string) docsync.DocumentMetadata {
	var meta docsync.DocumentMetadata
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return meta
	}

	meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if meta.Title == "" {
		meta.Title, _ = doc.Find(`meta[property="og:title"]`).Attr("content")
	}
	meta.Description, _ = doc.Find(`meta[name="description"]`).Attr("content")
	if meta.Description == "" {
		meta.Description, _ = doc.Find(`meta[property="og:description"]`).Attr("content")
	}
	meta.Description = strings.TrimSpace(meta.Description)

	if keywords, ok := doc.Find(`meta[name="keywords"]`).Attr("content"); ok {
		for _, k := range strings.Split(keywords, ",") {
			if k = strings.TrimSpace(k); k != "" {
				meta.Keywords = append(meta.Keywords, k)
			}
		}
	}
	meta.Canonical, _ = doc.Find(`link[rel="canonical"]`).Attr("href")
	meta.LinkCount = doc.Find("a[href]").Length()

	text := ExtractText(html)
	if text != "" {
		meta.WordCount = len(strings.Fields(text))
	}
	return meta
}

func findMainContent(doc *goquery.Document) *goquery.Selection {
	for _, selector := range mainContentSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			return sel
		}
	}
	return doc.Find("body")
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
