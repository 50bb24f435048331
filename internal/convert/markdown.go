// Package convert transforms fetched HTML into normalized markdown
// suitable for long-term storage.
package convert

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Selectors for decoration nodes that must not survive conversion.
// Documentation generators attach permalink anchors and icon glyphs to
// headings; converted verbatim they turn into noise like "[#](#title)".
const (
	permalinkSelector = "a.anchor, a.headerlink, a.permalink, a.anchor-link, a.hash-link"
	iconSelector      = "h1 svg, h2 svg, h3 svg, h4 svg, h5 svg, h6 svg, " +
		"h1 .icon, h2 .icon, h3 .icon, h4 .icon, h5 .icon, h6 .icon"
	residualSelector = "script, style, noscript"
)

var excessBlankLines = regexp.MustCompile(`\n{3,}`)

// Markdown implements docsync.Converter using html-to-markdown.
type Markdown struct {
	logger *zap.Logger
}

// New builds a Markdown converter.
func New(logger *zap.Logger) *Markdown {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Markdown{logger: logger}
}

// ToMarkdown converts an HTML fragment to normalized markdown. On any
// internal failure it returns an empty string; callers treat empty
// output as "no usable content" for the item, never as a fatal error.
func (c *Markdown) ToMarkdown(html string) string {
	cleaned, err := c.clean(html)
	if err != nil {
		c.logger.Warn("html cleanup failed", zap.Error(err))
		return ""
	}

	md, err := htmltomarkdown.ConvertString(cleaned)
	if err != nil {
		c.logger.Warn("markdown conversion failed", zap.Error(err))
		return ""
	}
	return normalize(md)
}

// ToMarkdownSelection converts the first element matching selector. A
// selector that matches nothing falls back to converting the entire
// document rather than silently returning empty.
func (c *Markdown) ToMarkdownSelection(html, selector string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		c.logger.Warn("html parse failed", zap.Error(err))
		return ""
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return c.ToMarkdown(html)
	}
	fragment, err := goquery.OuterHtml(sel)
	if err != nil {
		c.logger.Warn("selection serialize failed", zap.String("selector", selector), zap.Error(err))
		return c.ToMarkdown(html)
	}
	return c.ToMarkdown(fragment)
}

func (c *Markdown) clean(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find(residualSelector).Remove()
	doc.Find(permalinkSelector).Remove()
	doc.Find(iconSelector).Remove()

	// Permalink anchors without a class: empty-text anchors pointing at
	// a page fragment inside a heading.
	doc.Find("h1 a, h2 a, h3 a, h4 a, h5 a, h6 a").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if strings.HasPrefix(href, "#") && strings.TrimSpace(a.Text()) == "" {
			a.Remove()
		}
	})

	return doc.Html()
}

// normalize collapses runs of more than two consecutive blank lines to
// exactly one blank line and keeps code fences on their own lines,
// separated from surrounding text.
func normalize(md string) string {
	md = padFences(md)
	md = excessBlankLines.ReplaceAllString(md, "\n\n")
	return strings.TrimSpace(md)
}

func padFences(md string) string {
	lines := strings.Split(md, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		idx := strings.Index(line, "```")
		if idx > 0 && strings.TrimSpace(line[:idx]) != "" && !strings.Contains(line[:idx], "`") {
			out = append(out, strings.TrimRight(line[:idx], " \t"), line[idx:])
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
