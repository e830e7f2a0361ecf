package extraction

import (
	"strings"
	"unicode/utf8"
)

// Document is the raw output of a backend: the text of each page in order
// and the images found along the way.
type Document struct {
	Pages  []string
	Images []Image
}

// Image describes an image XObject. Page is 1-based, or 0 when the backend
// could not tell which page uses the image.
type Image struct {
	Page        int    `json:"page"`
	ImageIndex  int    `json:"image_index"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description"`
}

// Table is a table recovered from the document.
type Table struct {
	Page    int    `json:"page"`
	Content string `json:"content"`
}

// Page is the per-page section of a Result.
type Page struct {
	PageNumber     int    `json:"page_number"`
	Content        string `json:"content"`
	LineCount      int    `json:"line_count"`
	WordCount      int    `json:"word_count"`
	CharacterCount int    `json:"character_count"`
}

// Data holds the extracted content. Tables is always empty: both backends
// work from text runs and neither recovers table structure.
type Data struct {
	FullText       string  `json:"full_text"`
	Pages          []Page  `json:"pages"`
	Tables         []Table `json:"tables"`
	Images         []Image `json:"images"`
	WordCount      int     `json:"word_count"`
	CharacterCount int     `json:"character_count"`
}

// Metadata summarises a Result.
type Metadata struct {
	TotalPages      int  `json:"total_pages"`
	TotalTextLength int  `json:"total_text_length"`
	HasTables       bool `json:"has_tables"`
	HasImages       bool `json:"has_images"`
}

// Result is the payload stored on a completed task.
type Result struct {
	Filename             string   `json:"filename"`
	ExtractionSuccessful bool     `json:"extraction_successful"`
	ExtractionMethod     string   `json:"extraction_method"`
	Data                 Data     `json:"data"`
	Metadata             Metadata `json:"metadata"`
	Warning              string   `json:"warning,omitempty"`
}

// NewResult builds a successful Result from a backend Document.
func NewResult(filename, method string, doc *Document) *Result {
	pages := make([]Page, 0, len(doc.Pages))
	var full strings.Builder
	for i, text := range doc.Pages {
		pages = append(pages, Page{
			PageNumber:     i + 1,
			Content:        text,
			LineCount:      len(strings.Split(text, "\n")),
			WordCount:      len(strings.Fields(text)),
			CharacterCount: utf8.RuneCountInString(text),
		})
		full.WriteString(text)
		full.WriteString("\n")
	}

	fullText := strings.TrimSpace(full.String())
	chars := utf8.RuneCountInString(fullText)
	images := append([]Image{}, doc.Images...)

	return &Result{
		Filename:             filename,
		ExtractionSuccessful: true,
		ExtractionMethod:     method,
		Data: Data{
			FullText:       fullText,
			Pages:          pages,
			Tables:         []Table{},
			Images:         images,
			WordCount:      len(strings.Fields(fullText)),
			CharacterCount: chars,
		},
		Metadata: Metadata{
			TotalPages:      len(pages),
			TotalTextLength: chars,
			HasImages:       len(images) > 0,
		},
	}
}
