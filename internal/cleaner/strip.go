package cleaner

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"

	"github.com/klauspost/compress/zip"
	"golang.org/x/net/html"

	"github.com/nao1215/metahunter/internal/metadata"
)

// StripPDF blanks every Info dictionary and XMP value. Literal strings
// become spaces and hex strings become encoded spaces, both keeping
// their length.
//
// Values inside FlateDecode streams (object streams, compressed XMP
// packets) cannot be blanked without rewriting the cross-reference
// table, so such files fail with ErrCompressedMetadata instead of being
// reported as cleaned.
func StripPDF(data []byte) ([]byte, []string, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return nil, nil, fmt.Errorf("%w: no PDF header", metadata.ErrMalformed)
	}
	if keys := metadata.CompressedPDFMetadata(data); len(keys) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrCompressedMetadata, strings.Join(keys, ", "))
	}

	out := bytes.Clone(data)
	var removed []string
	for _, span := range metadata.PDFMetadataSpans(out) {
		value := out[span.Start:span.End]
		if len(bytes.TrimSpace(value)) == 0 {
			continue
		}
		for i := range value {
			switch {
			case !span.Hex:
				value[i] = ' '
			case i%2 == 0:
				value[i] = '2'
			default:
				value[i] = '0'
			}
		}
		if !slices.Contains(removed, span.Key) {
			removed = append(removed, span.Key)
		}
	}
	return out, removed, nil
}

// jpegDroppedMarkers are the segments removed from JPEG streams.
var jpegDroppedMarkers = map[byte]string{
	0xE1: "APP1",
	0xEC: "APP12",
	0xED: "APP13",
	0xFE: "COM",
}

// StripJPEG drops metadata segments from a JPEG stream. Everything from
// the start-of-scan marker on is copied unchanged.
func StripJPEG(data []byte) ([]byte, []string, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil, nil, fmt.Errorf("%w: missing JPEG start of image", metadata.ErrMalformed)
	}

	out := bytes.NewBuffer(make([]byte, 0, len(data)))
	out.Write(data[:2])
	var removed []string

	pos := 2
	for pos < len(data) {
		if data[pos] != 0xFF {
			return nil, nil, fmt.Errorf("%w: expected JPEG marker at offset %d", metadata.ErrMalformed, pos)
		}
		// Fill bytes may precede a marker.
		for pos+1 < len(data) && data[pos+1] == 0xFF {
			pos++
		}
		if pos+1 >= len(data) {
			return nil, nil, fmt.Errorf("%w: truncated JPEG marker", metadata.ErrMalformed)
		}
		marker := data[pos+1]

		switch {
		case marker == 0xD9:
			out.Write(data[pos:])
			return out.Bytes(), removed, nil
		case marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7):
			out.Write(data[pos : pos+2])
			pos += 2
			continue
		}

		if pos+4 > len(data) {
			return nil, nil, fmt.Errorf("%w: truncated JPEG segment", metadata.ErrMalformed)
		}
		end := pos + 2 + int(binary.BigEndian.Uint16(data[pos+2:pos+4]))
		if end > len(data) {
			return nil, nil, fmt.Errorf("%w: JPEG segment overruns file", metadata.ErrMalformed)
		}

		if marker == 0xDA {
			out.Write(data[pos:])
			return out.Bytes(), removed, nil
		}
		if name, drop := jpegDroppedMarkers[marker]; drop {
			removed = append(removed, name)
		} else {
			out.Write(data[pos:end])
		}
		pos = end
	}
	return out.Bytes(), removed, nil
}

// StripPNG drops text, time and EXIF chunks from a PNG stream.
func StripPNG(data []byte) ([]byte, []string, error) {
	chunks, err := metadata.ReadPNGChunks(data)
	if err != nil {
		return nil, nil, err
	}

	out := bytes.NewBuffer(make([]byte, 0, len(data)))
	out.Write(metadata.PNGSignature)
	var removed []string
	for _, c := range chunks {
		if metadata.IsPNGMetadataChunk(c.Type) {
			removed = append(removed, c.Type)
			continue
		}
		if err := metadata.WritePNGChunk(out, c); err != nil {
			return nil, nil, err
		}
	}
	return out.Bytes(), removed, nil
}

// ooxmlRule empties one kind of identifying value in a package part.
type ooxmlRule struct {
	// label names the value in Result.Removed.
	label   string
	pattern *regexp.Regexp
	// replace keeps the surrounding markup and drops the value.
	replace string
	// groups are the submatches that hold the value.
	groups []int
}

// ooxmlElementRule empties the text of the element name.
func ooxmlElementRule(name string) ooxmlRule {
	return ooxmlNamedElementRule(name, name)
}

func ooxmlNamedElementRule(label, name string) ooxmlRule {
	return ooxmlRule{
		label:   label,
		pattern: regexp.MustCompile(`(<(?:[\w.-]+:)?` + name + `(?:\s[^>]*)?>)([^<]*)(</(?:[\w.-]+:)?` + name + `>)`),
		replace: "${1}${3}",
		groups:  []int{2},
	}
}

// ooxmlAttributeRule empties the attribute name wherever it appears.
func ooxmlAttributeRule(name string) ooxmlRule {
	return ooxmlRule{
		label:   name,
		pattern: regexp.MustCompile(`(\s` + regexp.QuoteMeta(name) + `\s*=\s*)(?:"([^"]*)"|'([^']*)')`),
		replace: `${1}""`,
		groups:  []int{2, 3},
	}
}

// ooxmlRules are the values emptied, keyed by part. Custom properties
// lose their string values only, so typed numbers and dates stay valid.
var ooxmlRules = map[string][]ooxmlRule{
	metadata.OOXMLCorePart: {
		ooxmlElementRule("creator"), ooxmlElementRule("lastModifiedBy"),
		ooxmlElementRule("lastPrinted"), ooxmlElementRule("keywords"),
		ooxmlElementRule("description"), ooxmlElementRule("subject"),
		ooxmlElementRule("category"), ooxmlElementRule("contentStatus"),
	},
	metadata.OOXMLAppPart: {
		ooxmlElementRule("Application"), ooxmlElementRule("AppVersion"),
		ooxmlElementRule("Company"), ooxmlElementRule("Manager"),
		ooxmlElementRule("Template"), ooxmlElementRule("HyperlinkBase"),
	},
	metadata.OOXMLCustomPart: {
		ooxmlNamedElementRule("custom", "lpwstr"),
		ooxmlNamedElementRule("custom", "lpstr"),
		ooxmlNamedElementRule("custom", "bstr"),
	},
	"word/document.xml": {
		ooxmlAttributeRule("w:author"),
	},
	"word/comments.xml": {
		ooxmlAttributeRule("w:author"), ooxmlAttributeRule("w:initials"),
	},
}

// StripOOXML empties identifying document properties, custom property
// values and the authors of comments and tracked changes. All other
// parts are copied without recompression.
func StripOOXML(data []byte) ([]byte, []string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", metadata.ErrMalformed, err)
	}

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	var removed []string

	for _, f := range zr.File {
		rules, rewrite := ooxmlRules[f.Name]
		if !rewrite {
			if err := zw.Copy(f); err != nil {
				return nil, nil, fmt.Errorf("failed to copy %s: %w", f.Name, err)
			}
			continue
		}

		part, err := readZipFile(f)
		if err != nil {
			return nil, nil, err
		}
		for _, r := range rules {
			if !r.matchesValue(part) {
				continue
			}
			part = r.pattern.ReplaceAll(part, []byte(r.replace))
			if !slices.Contains(removed, r.label) {
				removed = append(removed, r.label)
			}
		}

		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: f.Method, Modified: f.Modified})
		if err != nil {
			return nil, nil, err
		}
		if _, err := w.Write(part); err != nil {
			return nil, nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, nil, err
	}
	return out.Bytes(), removed, nil
}

// matchesValue reports whether the rule finds a non-blank value in part.
func (r ooxmlRule) matchesValue(part []byte) bool {
	for _, m := range r.pattern.FindAllSubmatch(part, -1) {
		for _, g := range r.groups {
			if len(bytes.TrimSpace(m[g])) > 0 {
				return true
			}
		}
	}
	return false
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, metadata.DefaultMaxFileSize))
}

// StripHTML removes identifying <meta> elements and re-renders the page.
func StripHTML(data []byte) ([]byte, []string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}

	var doomed []*html.Node
	var removed []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			if name, _ := metadata.MetaNameContent(n); metadata.IsIdentifyingMeta(name) {
				doomed = append(doomed, n)
				removed = append(removed, name)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, n := range doomed {
		n.Parent.RemoveChild(n)
	}

	var out bytes.Buffer
	if err := html.Render(&out, doc); err != nil {
		return nil, nil, err
	}
	return out.Bytes(), removed, nil
}
