// Package extract converts raw uploaded document bytes into plain text.
package extract

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/AnvinX1/Firm-ai-sub000/pkg/apperr"
)

var pdfMagic = []byte("%PDF-")

// Extractor detects the uploaded format and pulls plain text out of it.
// Extraction failures are permanent for a given input and are never retried.
type Extractor struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{log: log}
}

// Extract returns the plain text of data. Supported formats: PDF, HTML, and
// UTF-8 plain text. The filename is only a hint; content sniffing wins.
func (e *Extractor) Extract(data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", apperr.Newf(apperr.KindExtraction, "extract", "document is empty")
	}

	var (
		text string
		err  error
	)
	switch {
	case bytes.HasPrefix(data, pdfMagic):
		text, err = e.extractPDF(data)
	case looksLikeHTML(data, filename):
		text, err = extractHTML(data)
	case utf8.Valid(data):
		text = string(data)
	default:
		return "", apperr.Newf(apperr.KindExtraction, "extract",
			"unsupported document format for %q", filepath.Base(filename))
	}
	if err != nil {
		return "", apperr.New(apperr.KindExtraction, "extract", err)
	}

	if strings.TrimSpace(text) == "" {
		return "", apperr.Newf(apperr.KindExtraction, "extract",
			"document contains no extractable text")
	}
	return text, nil
}

func looksLikeHTML(data []byte, filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm":
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(data[:min(len(data), 256)]))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}
