package render

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/dshills/simcheck/internal/schema"
)

// RenderHTML renders the Markdown report as a standalone HTML page.
func RenderHTML(report *schema.Report) []byte {
	if report == nil {
		return nil
	}
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{
		Title: "Simulation Batch Report",
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML([]byte(RenderMarkdown(report)), p, r)
}
