package extraction

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ProgressFunc is called by a backend after each page it finishes.
type ProgressFunc func(done, total int)

// Backend extracts page text from PDF bytes.
type Backend interface {
	// Name identifies the backend in results and progress messages.
	Name() string

	// Extract returns the text of every page. progress may be nil.
	Extract(ctx context.Context, content []byte, progress ProgressFunc) (*Document, error)
}

// PDFTextBackend reads the document structure with github.com/ledongthuc/pdf
// and returns the plain text of each page.
type PDFTextBackend struct{}

// Name implements Backend.
func (PDFTextBackend) Name() string { return "pdf_text" }

// Extract implements Backend.
func (b PDFTextBackend) Extract(ctx context.Context, content []byte, progress ProgressFunc) (doc *Document, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("%w: %s: parser panic: %v", ErrExtractionFailed, b.Name(), r)
		}
	}()

	if !bytes.HasPrefix(content, []byte("%PDF")) {
		return nil, ErrInvalidDocument
	}

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtractionFailed, b.Name(), err)
	}

	total := r.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrInvalidDocument)
	}

	doc = &Document{Pages: make([]string, 0, total)}
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := r.Page(i)
		if page.V.IsNull() {
			doc.Pages = append(doc.Pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: page %d: %v", ErrExtractionFailed, b.Name(), i, err)
		}
		doc.Pages = append(doc.Pages, text)
		doc.Images = append(doc.Images, pageImages(page, i)...)

		if progress != nil {
			progress(i, total)
		}
	}
	return doc, nil
}

// pageImages lists the image XObjects in a page's resources.
func pageImages(page pdf.Page, number int) []Image {
	xobjects := page.Resources().Key("XObject")
	var images []Image
	for _, name := range xobjects.Keys() {
		if xobjects.Key(name).Key("Subtype").Name() != "Image" {
			continue
		}
		idx := len(images)
		images = append(images, Image{
			Page:        number,
			ImageIndex:  idx,
			Name:        name,
			Description: fmt.Sprintf("Image %d on page %d", idx+1, number),
		})
	}
	return images
}
