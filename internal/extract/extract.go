package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xxxsen/kbase/internal/model"
	appErr "github.com/xxxsen/kbase/internal/pkg/errors"
)

// Text turns raw file bytes into plain text plus file-level metadata.
// Dispatch is by extension; an unsupported extension fails before any other
// ingestion work happens.
func Text(path string, data []byte) (string, model.FileMetadata, error) {
	ext := strings.ToLower(filepath.Ext(path))
	meta := model.FileMetadata{
		FileName: filepath.Base(path),
		FileType: strings.TrimPrefix(ext, "."),
		FileSize: int64(len(data)),
	}
	switch ext {
	case ".txt", ".text":
		return string(data), meta, nil
	case ".md", ".markdown":
		return markdownText(data, &meta), meta, nil
	case ".html", ".htm":
		content, err := htmlText(data, &meta)
		if err != nil {
			return "", meta, fmt.Errorf("%w: parse html: %v", appErr.ErrInputUnavailable, err)
		}
		return content, meta, nil
	case ".json":
		content, err := jsonText(data, &meta)
		if err != nil {
			return "", meta, fmt.Errorf("%w: parse json: %v", appErr.ErrInputUnavailable, err)
		}
		return content, meta, nil
	case ".pdf":
		content, err := pdfText(data, &meta)
		if err != nil {
			return "", meta, fmt.Errorf("%w: parse pdf: %v", appErr.ErrInputUnavailable, err)
		}
		return content, meta, nil
	default:
		return "", meta, fmt.Errorf("%w: unsupported file type %q", appErr.ErrInputUnavailable, ext)
	}
}
