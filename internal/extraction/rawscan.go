package extraction

import (
	"bytes"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	pageObjectPattern  = regexp.MustCompile(`/Type\s*/Page(?:[^s]|$)`)
	streamPattern      = regexp.MustCompile(`(?s)stream\r?\n(.*?)\r?\nendstream`)
	textShowPattern    = regexp.MustCompile(`(?s)\[(.*?)\]\s*TJ|\(((?:\\.|[^\\)])*)\)\s*(?:Tj|'|")`)
	literalPattern     = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)
	imageObjectPattern = regexp.MustCompile(`/Subtype\s*/Image\b`)
)

// maxInflatedStream caps the size of a single decompressed stream.
const maxInflatedStream = 16 << 20

// RawScanBackend recovers text without a full PDF parse. It counts page
// objects, inflates content streams where possible and collects the
// strings shown by text operators. It tolerates broken cross-reference
// tables that defeat a structural reader.
type RawScanBackend struct{}

// Name implements Backend.
func (RawScanBackend) Name() string { return "raw_scan" }

// Extract implements Backend.
func (b RawScanBackend) Extract(ctx context.Context, content []byte, progress ProgressFunc) (*Document, error) {
	if !bytes.HasPrefix(content, []byte("%PDF")) {
		return nil, ErrInvalidDocument
	}

	total := len(pageObjectPattern.FindAllIndex(content, -1))
	if total == 0 {
		return nil, fmt.Errorf("%w: no page objects found", ErrInvalidDocument)
	}

	var texts []string
	for _, m := range streamPattern.FindAllSubmatch(content, -1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if text := showText(inflate(m[1])); text != "" {
			texts = append(texts, text)
		}
	}

	doc := &Document{Pages: make([]string, total)}
	for i := 0; i < total; i++ {
		if i < len(texts) {
			doc.Pages[i] = texts[i]
		}
		if progress != nil {
			progress(i+1, total)
		}
	}
	// Streams beyond the page count belong to the last page.
	if len(texts) > total {
		doc.Pages[total-1] = strings.Join(append([]string{doc.Pages[total-1]}, texts[total:]...), "\n")
	}

	// Image objects are counted without resolving which page draws them.
	for i := range imageObjectPattern.FindAllIndex(content, -1) {
		doc.Images = append(doc.Images, Image{
			ImageIndex:  i,
			Description: fmt.Sprintf("Image %d (page unknown)", i+1),
		})
	}
	return doc, nil
}

// inflate returns the zlib-decoded stream, or the raw bytes when the
// stream is not zlib data.
func inflate(raw []byte) []byte {
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return raw
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, maxInflatedStream))
	if err != nil && len(out) == 0 {
		return raw
	}
	return out
}

// showText joins the strings of Tj, TJ, ' and " operators, one line per
// operator.
func showText(stream []byte) string {
	var lines []string
	for _, m := range textShowPattern.FindAllSubmatch(stream, -1) {
		var line strings.Builder
		if m[1] != nil {
			for _, lit := range literalPattern.FindAllSubmatch(m[1], -1) {
				line.WriteString(unescape(lit[1]))
			}
		} else {
			line.WriteString(unescape(m[2]))
		}
		if s := strings.TrimSpace(line.String()); s != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n")
}

// unescape decodes PDF literal string escapes and drops non-printable bytes.
func unescape(lit []byte) string {
	var sb strings.Builder
	for i := 0; i < len(lit); i++ {
		c := lit[i]
		if c == '\\' && i+1 < len(lit) {
			i++
			switch e := lit[i]; e {
			case 'n':
				sb.WriteByte('\n')
			case 'r', 'b', 'f':
			case 't':
				sb.WriteByte('\t')
			case '(', ')', '\\':
				sb.WriteByte(e)
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for j := 0; j < 2 && i+1 < len(lit) && lit[i+1] >= '0' && lit[i+1] <= '7'; j++ {
						i++
						v = v*8 + int(lit[i]-'0')
					}
					if v >= 0x20 && v < 0x7f {
						sb.WriteByte(byte(v))
					}
				}
			}
			continue
		}
		if c >= 0x20 && c < 0x7f {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
