package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"github.com/spf13/afero"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrNoText          = errors.New("no extractable text")
)

// Extractor turns a stored document into plain text, dispatching on extension.
type Extractor struct {
	fs afero.Fs
}

func New(fs afero.Fs) *Extractor {
	return &Extractor{fs: fs}
}

func (e *Extractor) Extract(ctx context.Context, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := e.fs.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".pdf":
		fi, err := f.Stat()
		if err != nil {
			return "", err
		}
		return extractPDF(f, fi.Size())
	case ".html", ".htm":
		return extractHTML(f)
	case ".txt", ".md":
		b, err := io.ReadAll(f)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
}

func extractPDF(r io.ReaderAt, size int64) (text string, err error) {
	// The pdf package panics on some malformed xref tables.
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", p)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func extractHTML(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	sel := doc.Find("main")
	if sel.Length() == 0 {
		sel = doc.Find("body")
	}

	text := strings.Join(strings.Fields(sel.Text()), " ")
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
