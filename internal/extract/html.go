package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/xxxsen/kbase/internal/model"
)

func htmlText(data []byte, meta *model.FileMetadata) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		meta.Description = strings.TrimSpace(desc)
	}
	meta.Headings = doc.Find("h1, h2, h3").Length()

	doc.Find("script, style, noscript").Remove()
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}

	var sb strings.Builder
	body.Find("p, h1, h2, h3, h4, h5, h6, li, td, pre, blockquote").Each(func(_ int, sel *goquery.Selection) {
		line := strings.TrimSpace(sel.Text())
		if line == "" {
			return
		}
		sb.WriteString(line)
		sb.WriteString("\n\n")
	})
	content := strings.TrimSpace(sb.String())
	if content == "" {
		content = strings.TrimSpace(body.Text())
	}
	return content, nil
}
