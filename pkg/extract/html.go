package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func extractHTML(content []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	// Keep block boundaries as newlines so the chunker can still see
	// paragraph structure.
	var sb strings.Builder
	root.Find("p, h1, h2, h3, h4, h5, h6, li, td, blockquote, pre").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			sb.WriteString(text)
			sb.WriteString("\n\n")
		}
	})
	if sb.Len() == 0 {
		return strings.TrimSpace(root.Text()), nil
	}
	return strings.TrimSpace(sb.String()), nil
}
