package metadata

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/text/encoding/unicode"

	"github.com/nao1215/metahunter/internal/model"
)

// pdfInfoKeys are the Info dictionary entries read, in report order.
var pdfInfoKeys = []string{
	"Author", "Creator", "Producer", "Title", "Subject", "Keywords",
	"Company", "SourceModified", "CreationDate", "ModDate",
}

// PDFInfoKeys returns the Info dictionary keys metahunter treats as
// metadata. The cleaner blanks exactly these.
func PDFInfoKeys() []string {
	return append([]string(nil), pdfInfoKeys...)
}

// pdfInfoKeyPatterns match `/Key` up to the delimiter opening its
// string value. The value itself is read by pdfStringAt.
var pdfInfoKeyPatterns = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(pdfInfoKeys))
	for _, k := range pdfInfoKeys {
		m[k] = regexp.MustCompile(`/` + k + `\s*[(<]`)
	}
	return m
}()

// pdfStreamStart matches the end of a stream dictionary and the stream
// keyword that follows it.
var pdfStreamStart = regexp.MustCompile(`>>\s*stream(?:\r\n|\n|\r)`)

const (
	// maxInflatedStream bounds the decompressed size of one stream.
	maxInflatedStream = 8 << 20

	// pdfDictLookback bounds how far before a stream keyword its
	// dictionary is searched for the filter name.
	pdfDictLookback = 1024
)

// pdfXMPPatterns match the XMP properties that duplicate or extend the
// Info dictionary.
var pdfXMPPatterns = []struct {
	key     string
	pattern *regexp.Regexp
}{
	{"xmp_creator", regexp.MustCompile(`(?s)<dc:creator[^>]*>.*?<rdf:li[^>]*>([^<]+)</rdf:li>`)},
	{"xmp_creator_tool", regexp.MustCompile(`xmp:CreatorTool>([^<]+)<`)},
	{"xmp_producer", regexp.MustCompile(`pdf:Producer>([^<]+)<`)},
	{"xmp_create_date", regexp.MustCompile(`xmp:CreateDate>([^<]+)<`)},
	{"xmp_modify_date", regexp.MustCompile(`xmp:ModifyDate>([^<]+)<`)},
	{"xmp_document_id", regexp.MustCompile(`xmpMM:DocumentID>([^<]+)<`)},
	{"xmp_instance_id", regexp.MustCompile(`xmpMM:InstanceID>([^<]+)<`)},
}

// PDFExtractor reads the Info dictionary and the XMP packet of PDF files.
//
// The file is scanned textually rather than parsed as an object graph, so
// incremental updates and damaged cross-reference tables do not matter.
// The first occurrence of a key wins.
type PDFExtractor struct {
	maxSize int64
}

// NewPDFExtractor returns a PDFExtractor reading at most maxSize bytes.
func NewPDFExtractor(maxSize int64) *PDFExtractor {
	return &PDFExtractor{maxSize: maxSize}
}

// Name returns "pdf".
func (e *PDFExtractor) Name() string {
	return "pdf"
}

// Supports reports whether path is a PDF.
func (e *PDFExtractor) Supports(path string) bool {
	return hasExtension(path, ".pdf")
}

// Extract returns the metadata of the PDF at path.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (*model.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := readLimited(path, e.maxSize)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return nil, fmt.Errorf("%w: %s has no PDF header", ErrMalformed, path)
	}
	return ParsePDF(data), nil
}

// ParsePDF maps PDF content to metadata.
//
// Values in the file body win over values found in FlateDecode streams,
// which is where object streams (PDF 1.5+) keep the Info dictionary.
func ParsePDF(data []byte) *model.Metadata {
	text := data
	if streams := InflatePDFStreams(data); len(streams) > 0 {
		text = bytes.Join(append([][]byte{data}, streams...), []byte("\n"))
	}

	md := &model.Metadata{}
	info := make(map[string]string, len(pdfInfoKeys))
	for _, k := range pdfInfoKeys {
		for _, span := range pdfInfoSpans(text, k) {
			var v string
			if span.Hex {
				v = decodePDFHexString(string(text[span.Start:span.End]))
			} else {
				v = decodePDFLiteral(text[span.Start:span.End])
			}
			if v = strings.TrimSpace(v); v != "" {
				info[k] = v
				break
			}
		}
	}

	md.Author = info["Author"]
	md.CreatorTool = info["Creator"]
	md.Software = info["Producer"]
	md.Title = info["Title"]
	md.Company = info["Company"]
	md.CreatedAt = info["CreationDate"]
	md.ModifiedAt = info["ModDate"]
	for _, k := range []string{"Subject", "Keywords", "SourceModified"} {
		md.AddExtra(k, info[k])
	}

	for _, p := range pdfXMPPatterns {
		m := p.pattern.FindSubmatch(text)
		if m == nil {
			continue
		}
		v := strings.TrimSpace(string(m[1]))
		switch p.key {
		case "xmp_creator":
			if md.Author == "" {
				md.Author = v
				continue
			}
		case "xmp_creator_tool":
			if md.CreatorTool == "" {
				md.CreatorTool = v
				continue
			}
		case "xmp_producer":
			if md.Software == "" {
				md.Software = v
				continue
			}
		case "xmp_create_date":
			if md.CreatedAt == "" {
				md.CreatedAt = v
				continue
			}
		case "xmp_modify_date":
			if md.ModifiedAt == "" {
				md.ModifiedAt = v
				continue
			}
		}
		md.AddExtra(p.key, v)
	}
	return md
}

var utf16Decoder = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)

// decodePDFHexString decodes a <...> string. A leading FEFF marks UTF-16BE.
func decodePDFHexString(s string) string {
	s = strings.Join(strings.Fields(s), "")
	if len(s)%2 == 1 {
		s += "0"
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ""
	}
	return decodePDFText(raw)
}

// decodePDFLiteral decodes the escapes of a (...) string.
func decodePDFLiteral(b []byte) string {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c != '\\' || i+1 >= len(b) {
			out = append(out, c)
			continue
		}
		i++
		switch b[i] {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case '\r', '\n':
			// line continuation
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(b) && j < i+3 && b[j] >= '0' && b[j] <= '7' {
				j++
			}
			n, _ := strconv.ParseUint(string(b[i:j]), 8, 8)
			out = append(out, byte(n))
			i = j - 1
		default:
			out = append(out, b[i])
		}
	}
	return decodePDFText(out)
}

// decodePDFText converts PDF text string bytes to UTF-8.
func decodePDFText(raw []byte) string {
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		decoded, err := utf16Decoder.NewDecoder().Bytes(raw)
		if err == nil {
			return string(decoded)
		}
	}
	return string(raw)
}

// PDFSpan locates one metadata value inside a PDF byte stream.
type PDFSpan struct {
	Key   string
	Start int
	End   int
	// Hex is set for <...> strings, whose bytes are hex digits.
	Hex bool
}

// PDFMetadataSpans returns the location of every Info and XMP value in
// data, in file order. Unlike ParsePDF it reports every occurrence, since
// incremental updates repeat the Info dictionary.
func PDFMetadataSpans(data []byte) []PDFSpan {
	var spans []PDFSpan
	for _, k := range pdfInfoKeys {
		spans = append(spans, pdfInfoSpans(data, k)...)
	}
	for _, p := range pdfXMPPatterns {
		for _, m := range p.pattern.FindAllSubmatchIndex(data, -1) {
			spans = append(spans, PDFSpan{Key: p.key, Start: m[2], End: m[3]})
		}
	}
	slices.SortFunc(spans, func(a, b PDFSpan) int { return a.Start - b.Start })
	return spans
}

// pdfInfoSpans returns the value spans of every string-valued /key entry
// in data, in file order.
func pdfInfoSpans(data []byte, key string) []PDFSpan {
	var spans []PDFSpan
	for _, loc := range pdfInfoKeyPatterns[key].FindAllIndex(data, -1) {
		start, end, isHex, ok := pdfStringAt(data, loc[1]-1)
		if ok {
			spans = append(spans, PDFSpan{Key: key, Start: start, End: end, Hex: isHex})
		}
	}
	return spans
}

// pdfStringAt returns the content bounds of the string object whose
// opening delimiter is data[open]. Literal strings may nest balanced
// parentheses and escape any byte with a backslash. ok is false for
// unterminated strings and for dictionaries ("<<").
func pdfStringAt(data []byte, open int) (start, end int, isHex, ok bool) {
	start = open + 1
	if data[open] == '<' {
		for i := start; i < len(data); i++ {
			switch c := data[i]; {
			case c == '>':
				return start, i, true, true
			case isHexDigit(c) || isPDFWhitespace(c):
			default:
				return 0, 0, false, false
			}
		}
		return 0, 0, false, false
	}

	depth := 1
	for i := start; i < len(data); i++ {
		switch data[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return start, i, false, true
			}
		}
	}
	return 0, 0, false, false
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func isPDFWhitespace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

// InflatePDFStreams returns the decompressed content of every FlateDecode
// stream in data, in file order. Streams that do not inflate are skipped
// and a truncated stream yields what could be read.
func InflatePDFStreams(data []byte) [][]byte {
	var out [][]byte
	for _, loc := range pdfStreamStart.FindAllIndex(data, -1) {
		if !isFlateStream(data[:loc[0]]) {
			continue
		}
		body := data[loc[1]:]
		if end := bytes.Index(body, []byte("endstream")); end >= 0 {
			body = body[:end]
		}
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			continue
		}
		inflated, _ := io.ReadAll(io.LimitReader(zr, maxInflatedStream))
		_ = zr.Close()
		if len(inflated) > 0 {
			out = append(out, inflated)
		}
	}
	return out
}

// isFlateStream reports whether the object dictionary ending at the end of
// head names the FlateDecode filter.
func isFlateStream(head []byte) bool {
	dict := head[max(0, len(head)-pdfDictLookback):]
	if i := bytes.LastIndex(dict, []byte("obj")); i >= 0 {
		dict = dict[i:]
	}
	return bytes.Contains(dict, []byte("/FlateDecode"))
}

// CompressedPDFMetadata returns the keys of the non-blank Info and XMP
// values stored inside FlateDecode streams. These cannot be blanked in
// place.
func CompressedPDFMetadata(data []byte) []string {
	var keys []string
	for _, stream := range InflatePDFStreams(data) {
		for _, span := range PDFMetadataSpans(stream) {
			if pdfValueIsBlank(stream[span.Start:span.End], span.Hex) || slices.Contains(keys, span.Key) {
				continue
			}
			keys = append(keys, span.Key)
		}
	}
	return keys
}

// pdfValueIsBlank reports whether a value holds nothing but spaces, which
// is how the cleaner leaves the values it blanks.
func pdfValueIsBlank(v []byte, isHex bool) bool {
	if !isHex {
		return len(bytes.TrimSpace(v)) == 0
	}
	return strings.TrimSpace(decodePDFHexString(string(v))) == ""
}
