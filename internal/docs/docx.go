// Package docs extracts plain text from client onboarding documents.
package docs

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Extractor extracts text content from a document file.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// ErrDocNotFound is returned when the document path does not exist.
var ErrDocNotFound = eris.New("docs: document not found")

// fileExtractor handles the formats onboarding documents arrive in: DOCX and
// plain text.
type fileExtractor struct {
	root string
}

// NewExtractor creates an Extractor resolving relative paths under root
// (the uploads directory). An empty root resolves against the working
// directory.
func NewExtractor(root string) Extractor {
	return &fileExtractor{root: root}
}

func (e *fileExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	resolved := e.resolve(path)

	if _, err := os.Stat(resolved); err != nil {
		if os.IsNotExist(err) {
			return "", eris.Wrap(ErrDocNotFound, path)
		}
		return "", eris.Wrap(err, "docs: stat document")
	}

	switch strings.ToLower(filepath.Ext(resolved)) {
	case ".docx":
		return extractDocx(resolved)
	case ".txt", ".md", "":
		data, err := os.ReadFile(resolved)
		if err != nil {
			return "", eris.Wrap(err, "docs: read document")
		}
		return normalize(string(data)), nil
	default:
		return "", eris.Errorf("docs: unsupported document type %q", filepath.Ext(resolved))
	}
}

// resolve strips the upload-URL prefix the tracker stores and joins the
// remainder under the extractor root.
func (e *fileExtractor) resolve(path string) string {
	cleaned := strings.TrimPrefix(strings.TrimPrefix(path, "/"), "uploads/")
	if e.root == "" {
		return cleaned
	}
	return filepath.Join(e.root, cleaned)
}

// extractDocx pulls the main document part out of the DOCX archive and
// strips the WordprocessingML markup, keeping only text runs.
func extractDocx(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", eris.Wrap(err, "docs: open docx archive")
	}
	defer r.Close()

	var doc *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", eris.New("docs: docx archive has no word/document.xml")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", eris.Wrap(err, "docs: open document part")
	}
	defer rc.Close()

	text, err := stripXML(rc)
	if err != nil {
		return "", eris.Wrap(err, "docs: parse document part")
	}
	return normalize(text), nil
}

// stripXML walks the XML token stream collecting character data, inserting a
// space at each paragraph boundary so adjacent paragraphs don't concatenate.
func stripXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" {
				sb.WriteByte(' ')
			}
		}
	}

	return sb.String(), nil
}

// normalize collapses newlines and runs of whitespace into single spaces, the
// shape the product-stage prompt embeds verbatim.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
