package testutils

import (
	"bytes"
	"fmt"
	"strings"
)

// BuildPDF assembles a minimal uncompressed PDF with one text line per page.
// Page text must not contain unbalanced parentheses.
func BuildPDF(pages ...string) []byte {
	return BuildPDFWithImages(0, pages...)
}

// BuildPDFWithImages is BuildPDF with imagesPerPage 1x1 image XObjects in
// the resources of every page, named /Im1, /Im2 and so on.
func BuildPDFWithImages(imagesPerPage int, pages ...string) []byte {
	pageCount := len(pages)

	// 1: catalog, 2: page tree, 3: font, then a page and content pair per
	// page, then the images of every page in order.
	firstImage := 4 + 2*pageCount
	kids := make([]string, pageCount)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pageCount),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	for i, text := range pages {
		resources := "/Font << /F1 3 0 R >>"
		if imagesPerPage > 0 {
			refs := make([]string, imagesPerPage)
			for j := range refs {
				refs[j] = fmt.Sprintf("/Im%d %d 0 R", j+1, firstImage+i*imagesPerPage+j)
			}
			resources += fmt.Sprintf(" /XObject << %s >>", strings.Join(refs, " "))
		}

		stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << %s >> /Contents %d 0 R >>", resources, 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}
	for i := 0; i < pageCount*imagesPerPage; i++ {
		objects = append(objects,
			"<< /Type /XObject /Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceGray /BitsPerComponent 8 /Length 1 >>\nstream\nA\nendstream")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}
