package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"

	"github.com/mkolsari/streamrag/internal/adapter/utils"
	"github.com/mkolsari/streamrag/internal/domain/commonModels"
	"github.com/mkolsari/streamrag/pkg/logger_i"
)

type docType string

const (
	typePDF      docType = "pdf"
	typeTextLike docType = "docx"
	typePlain    docType = "plain"
	typeErr      docType = "unsupported"
)

var logger *logger_i.Logger

// ExtractDocument reads an uploaded file from disk and returns it as a
// plain-text document, ready for chunking and indexing.
func ExtractDocument(path string, name string) (commonModels.Document, error) {
	logger = logger_i.NewLogger("Document Extraction")

	contentType := getDocType(path)
	logger.Debug("extractDocument", "file", name, "type", contentType)

	var content string
	var err error
	switch contentType {
	case typePDF:
		content, err = extractPDF(path)
	case typeTextLike:
		content, err = extractDocxTxtRtf(path)
	case typePlain:
		content, err = extractPlain(path)
	default:
		err = fmt.Errorf("unsupported content type for %s", name)
	}
	if err != nil {
		return commonModels.Document{}, err
	}

	return commonModels.Document{
		Id:      utils.GetNewUUID(),
		Name:    name,
		Size:    len(content),
		Content: content,
	}, nil
}

func getDocType(docPath string) docType {
	ext := strings.ToLower(filepath.Ext(docPath))
	switch ext {
	case ".pdf":
		return typePDF
	case ".docx", ".rtf", ".odt":
		return typeTextLike
	case ".md", ".markdown", ".txt":
		return typePlain
	default:
		return typeErr
	}
}

func extractPDF(path string) (string, error) {
	f, err := pdf.Open(path)
	if err != nil {
		logger.Error("failed opening of pdf file", "error", err)
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []string
	numPages := f.NumPage()
	logger.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := protectExtract(page)
		if err != nil {
			// Log warning but continue with other pages
			logger.Error("Error parsing page content", "page", i, "error", err)
			continue
		}
		pages = append(pages, content)
	}
	return strings.Join(pages, "\n\n"), nil
}

// File reads a .odt, .docx or .rtf file and returns the content as a string
func extractDocxTxtRtf(path string) (string, error) {
	text, err := cat.File(path)
	if err != nil {
		logger.Error("Error extracting content from doc", "error", err)
		return "", fmt.Errorf("failed to extract document: %w", err)
	}
	return text, nil
}

// Markdown and plain text pass through untouched so headings survive
// for the section-aware splitter.
func extractPlain(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Error("Error reading text file", "error", err)
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(raw), nil
}

func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(time.Second * 10):
		logger.Error("pageExtract", "timeout", true)
		return "", errors.New("timeout")
	}
}
