package extract

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/xxxsen/kbase/internal/model"
)

// markdownText keeps the raw markdown as the indexed content (the chunker
// handles it fine) and walks the AST only for file metadata: first level-1
// heading as title, heading count.
func markdownText(data []byte, meta *model.FileMetadata) string {
	md := goldmark.New()
	reader := text.NewReader(data)
	doc := md.Parser().Parse(reader)

	headings := 0
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		heading, ok := node.(*ast.Heading)
		if !ok {
			continue
		}
		headings++
		if heading.Level == 1 && meta.Title == "" {
			meta.Title = string(heading.Text(data))
		}
	}
	meta.Headings = headings
	return string(data)
}
