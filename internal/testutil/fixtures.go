// Package testutil builds small, well-formed documents carrying known
// metadata for the tests of the extractor, cleaner and pipeline packages.
package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zlib"
)

// WriteFile writes data to dir/name and returns the path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// EXIFFields are the tags written by EXIF. Empty strings are omitted.
type EXIFFields struct {
	Make     string
	Model    string
	Software string
	Artist   string
	DateTime string
	// GPS is written when HasGPS is set.
	HasGPS    bool
	Latitude  float64
	Longitude float64
}

type tiffEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

const (
	tiffASCII    = 2
	tiffLong     = 4
	tiffRational = 5
)

func asciiEntry(tag uint16, s string) tiffEntry {
	data := append([]byte(s), 0)
	return tiffEntry{tag: tag, typ: tiffASCII, count: uint32(len(data)), data: data} //nolint:gosec // test values are short
}

func rationalEntry(tag uint16, vals ...[2]uint32) tiffEntry {
	data := make([]byte, 0, 8*len(vals))
	for _, v := range vals {
		data = binary.LittleEndian.AppendUint32(data, v[0])
		data = binary.LittleEndian.AppendUint32(data, v[1])
	}
	return tiffEntry{tag: tag, typ: tiffRational, count: uint32(len(vals)), data: data} //nolint:gosec // at most three values
}

// dms converts decimal degrees to degree, minute and centisecond rationals.
func dms(v float64) [][2]uint32 {
	v = math.Abs(v)
	deg := math.Floor(v)
	minutes := math.Floor((v - deg) * 60)
	seconds := math.Round(((v-deg)*60-minutes)*60*100) / 100
	return [][2]uint32{
		{uint32(deg), 1},
		{uint32(minutes), 1},
		{uint32(seconds * 100), 100},
	}
}

// ifdLength is the size of an IFD including its out-of-line values.
func ifdLength(entries []tiffEntry) int {
	n := 2 + 12*len(entries) + 4
	for _, e := range entries {
		if len(e.data) > 4 {
			n += len(e.data) + len(e.data)%2
		}
	}
	return n
}

// encodeIFD serializes entries as an IFD located at offset.
func encodeIFD(entries []tiffEntry, offset int) []byte {
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	var head, tail []byte
	head = binary.LittleEndian.AppendUint16(head, uint16(len(entries))) //nolint:gosec // few entries
	dataOffset := offset + 2 + 12*len(entries) + 4
	for _, e := range entries {
		head = binary.LittleEndian.AppendUint16(head, e.tag)
		head = binary.LittleEndian.AppendUint16(head, e.typ)
		head = binary.LittleEndian.AppendUint32(head, e.count)
		if len(e.data) <= 4 {
			var inline [4]byte
			copy(inline[:], e.data)
			head = append(head, inline[:]...)
			continue
		}
		head = binary.LittleEndian.AppendUint32(head, uint32(dataOffset+len(tail))) //nolint:gosec // small fixture
		tail = append(tail, e.data...)
		if len(e.data)%2 == 1 {
			tail = append(tail, 0)
		}
	}
	head = binary.LittleEndian.AppendUint32(head, 0)
	return append(head, tail...)
}

// EXIF returns a little-endian TIFF block holding f, as embedded after
// the "Exif\0\0" marker of a JPEG APP1 segment.
func EXIF(f EXIFFields) []byte {
	var ifd0 []tiffEntry
	for _, e := range []struct {
		tag uint16
		val string
	}{
		{0x010f, f.Make},
		{0x0110, f.Model},
		{0x0131, f.Software},
		{0x0132, f.DateTime},
		{0x013b, f.Artist},
	} {
		if e.val != "" {
			ifd0 = append(ifd0, asciiEntry(e.tag, e.val))
		}
	}

	var gps []tiffEntry
	if f.HasGPS {
		latRef, lonRef := "N", "E"
		if f.Latitude < 0 {
			latRef = "S"
		}
		if f.Longitude < 0 {
			lonRef = "W"
		}
		gps = []tiffEntry{
			{tag: 0x0000, typ: 1, count: 4, data: []byte{2, 2, 0, 0}},
			asciiEntry(0x0001, latRef),
			rationalEntry(0x0002, dms(f.Latitude)...),
			asciiEntry(0x0003, lonRef),
			rationalEntry(0x0004, dms(f.Longitude)...),
		}
		// The pointer value is patched once IFD0's size is known.
		ifd0 = append(ifd0, tiffEntry{tag: 0x8825, typ: tiffLong, count: 1, data: make([]byte, 4)})
	}

	const ifd0Offset = 8
	if f.HasGPS {
		gpsOffset := ifd0Offset + ifdLength(ifd0)
		for i := range ifd0 {
			if ifd0[i].tag == 0x8825 {
				binary.LittleEndian.PutUint32(ifd0[i].data, uint32(gpsOffset)) //nolint:gosec // small fixture
			}
		}
	}

	out := []byte{'I', 'I', 0x2a, 0x00}
	out = binary.LittleEndian.AppendUint32(out, ifd0Offset)
	out = append(out, encodeIFD(ifd0, ifd0Offset)...)
	if f.HasGPS {
		out = append(out, encodeIFD(gps, len(out))...)
	}
	return out
}

func jpegSegment(marker byte, payload []byte) []byte {
	seg := []byte{0xFF, marker}
	seg = binary.BigEndian.AppendUint16(seg, uint16(len(payload)+2)) //nolint:gosec // fixture payloads are small
	return append(seg, payload...)
}

// JPEGScanData is the entropy-coded stand-in written after SOS by JPEG.
var JPEGScanData = []byte{0x12, 0x34, 0xFF, 0x00, 0x56, 0x78}

// JPEG returns a structurally valid JPEG stream. exif, when non-nil, is
// stored in an APP1 segment and comment, when set, in a COM segment.
func JPEG(exif []byte, comment string) []byte {
	var b bytes.Buffer
	b.Write([]byte{0xFF, 0xD8})
	b.Write(jpegSegment(0xE0, []byte("JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")))
	if exif != nil {
		b.Write(jpegSegment(0xE1, append([]byte("Exif\x00\x00"), exif...)))
	}
	if comment != "" {
		b.Write(jpegSegment(0xFE, []byte(comment)))
	}
	b.Write(jpegSegment(0xDB, make([]byte, 65)))
	b.Write(jpegSegment(0xC0, []byte{8, 0, 1, 0, 1, 1, 1, 0x11, 0}))
	b.Write(jpegSegment(0xDA, []byte{1, 1, 0, 0, 0x3f, 0}))
	b.Write(JPEGScanData)
	b.Write([]byte{0xFF, 0xD9})
	return b.Bytes()
}

// Chunk is a raw PNG chunk.
type Chunk struct {
	Type string
	Data []byte
}

// TextChunk returns a tEXt chunk.
func TextChunk(key, value string) Chunk {
	return Chunk{Type: "tEXt", Data: []byte(key + "\x00" + value)}
}

// CompressedTextChunk returns a zTXt chunk.
func CompressedTextChunk(key, value string) Chunk {
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	_, _ = zw.Write([]byte(value))
	_ = zw.Close()
	return Chunk{Type: "zTXt", Data: append([]byte(key+"\x00\x00"), z.Bytes()...)}
}

// InternationalTextChunk returns an uncompressed iTXt chunk.
func InternationalTextChunk(key, value string) Chunk {
	return Chunk{Type: "iTXt", Data: []byte(key + "\x00\x00\x00en\x00\x00" + value)}
}

// TimeChunk returns a tIME chunk.
func TimeChunk(year int, month, day, hour, minute, second byte) Chunk {
	data := binary.BigEndian.AppendUint16(nil, uint16(year)) //nolint:gosec // four-digit year
	return Chunk{Type: "tIME", Data: append(data, month, day, hour, minute, second)}
}

// PNGSignature opens every PNG stream.
var PNGSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// PNG returns a 1x1 PNG with extra chunks placed between IHDR and IDAT.
func PNG(extra ...Chunk) []byte {
	var b bytes.Buffer
	b.Write(PNGSignature)
	writeChunk(&b, Chunk{Type: "IHDR", Data: []byte{0, 0, 0, 1, 0, 0, 0, 1, 8, 0, 0, 0, 0}})
	for _, c := range extra {
		writeChunk(&b, c)
	}

	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	_, _ = zw.Write([]byte{0, 0})
	_ = zw.Close()
	writeChunk(&b, Chunk{Type: "IDAT", Data: z.Bytes()})
	writeChunk(&b, Chunk{Type: "IEND"})
	return b.Bytes()
}

func writeChunk(b *bytes.Buffer, c Chunk) {
	_ = binary.Write(b, binary.BigEndian, uint32(len(c.Data))) //nolint:gosec // fixture chunks are small
	b.WriteString(c.Type)
	b.Write(c.Data)
	crc := crc32.NewIEEE()
	crc.Write([]byte(c.Type))
	crc.Write(c.Data)
	_ = binary.Write(b, binary.BigEndian, crc.Sum32())
}

// PDFEntry is one Info dictionary entry.
type PDFEntry struct {
	Key   string
	Value string
	// UTF16 writes the value as a <FEFF...> hex string.
	UTF16 bool
	// Raw writes the value between parentheses without escaping.
	Raw bool
}

// PDF returns a minimal PDF whose Info dictionary holds info. A non-empty
// xmp is embedded as a metadata stream.
func PDF(info []PDFEntry, xmp string) []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.7\n")
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [] /Count 0 >>\nendobj\n")
	b.WriteString("3 0 obj\n<<")
	for _, e := range info {
		if e.UTF16 {
			fmt.Fprintf(&b, " /%s <FEFF", e.Key)
			for _, u := range utf16.Encode([]rune(e.Value)) {
				fmt.Fprintf(&b, "%04X", u)
			}
			b.WriteString(">")
			continue
		}
		if e.Raw {
			fmt.Fprintf(&b, " /%s (%s)", e.Key, e.Value)
			continue
		}
		r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
		fmt.Fprintf(&b, " /%s (%s)", e.Key, r.Replace(e.Value))
	}
	b.WriteString(" >>\nendobj\n")
	if xmp != "" {
		fmt.Fprintf(&b, "4 0 obj\n<< /Type /Metadata /Subtype /XML /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(xmp), xmp)
	}
	b.WriteString("trailer\n<< /Root 1 0 R /Info 3 0 R >>\n%%EOF\n")
	return []byte(b.String())
}

// CompressedPDF returns a PDF whose only stream is object stream content
// compressed with FlateDecode, the way PDF 1.5 writers store the Info
// dictionary.
func CompressedPDF(content string) []byte {
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	if _, err := zw.Write([]byte(content)); err != nil {
		panic(err)
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}

	var b bytes.Buffer
	b.WriteString("%PDF-1.7\n")
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	fmt.Fprintf(&b, "5 0 obj\n<< /Type /ObjStm /N 1 /First 4 /Filter /FlateDecode /Length %d >>\nstream\n", z.Len())
	b.Write(z.Bytes())
	b.WriteString("\nendstream\nendobj\n")
	b.WriteString("trailer\n<< /Root 1 0 R /Info 3 0 R >>\n%%EOF\n")
	return b.Bytes()
}

// XMP returns an XMP packet naming creator and creatorTool.
func XMP(creator, creatorTool string) string {
	return `<?xpacket begin="" id="W5M0MpCehiHzreSzNTczkc9d"?>` +
		`<x:xmpmeta xmlns:x="adobe:ns:meta/"><rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">` +
		`<rdf:Description xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:xmp="http://ns.adobe.com/xap/1.0/">` +
		`<dc:creator><rdf:Seq><rdf:li>` + creator + `</rdf:li></rdf:Seq></dc:creator>` +
		`<xmp:CreatorTool>` + creatorTool + `</xmp:CreatorTool>` +
		`</rdf:Description></rdf:RDF></x:xmpmeta><?xpacket end="w"?>`
}

// OOXMLProps are the document properties written by OOXML.
type OOXMLProps struct {
	Creator        string
	LastModifiedBy string
	Title          string
	Created        string
	Modified       string
	Application    string
	AppVersion     string
	Company        string
	Manager        string

	// Custom adds docProps/custom.xml with string properties, in order.
	Custom [][2]string
	// Reviewer adds word/comments.xml and a tracked insertion authored by
	// this name.
	Reviewer string
}

// OOXML returns a minimal word-processing package carrying props.
func OOXML(props OOXMLProps) []byte {
	core := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" ` +
		`xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" ` +
		`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">` +
		`<dc:title>` + props.Title + `</dc:title>` +
		`<dc:creator>` + props.Creator + `</dc:creator>` +
		`<cp:lastModifiedBy>` + props.LastModifiedBy + `</cp:lastModifiedBy>` +
		`<dcterms:created xsi:type="dcterms:W3CDTF">` + props.Created + `</dcterms:created>` +
		`<dcterms:modified xsi:type="dcterms:W3CDTF">` + props.Modified + `</dcterms:modified>` +
		`</cp:coreProperties>`
	app := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">` +
		`<Application>` + props.Application + `</Application>` +
		`<AppVersion>` + props.AppVersion + `</AppVersion>` +
		`<Company>` + props.Company + `</Company>` +
		`<Manager>` + props.Manager + `</Manager>` +
		`</Properties>`

	const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`
	document := `<?xml version="1.0" encoding="UTF-8"?><w:document ` + wordNS + `/>`
	if props.Reviewer != "" {
		document = `<?xml version="1.0" encoding="UTF-8"?><w:document ` + wordNS + `><w:body><w:p>` +
			`<w:ins w:id="1" w:author="` + props.Reviewer + `" w:date="2024-01-01T00:00:00Z"><w:r><w:t>added</w:t></w:r></w:ins>` +
			`</w:p></w:body></w:document>`
	}

	parts := []struct{ name, body string }{
		{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`},
		{"word/document.xml", document},
		{"docProps/core.xml", core},
		{"docProps/app.xml", app},
	}
	if props.Reviewer != "" {
		parts = append(parts, struct{ name, body string }{"word/comments.xml",
			`<?xml version="1.0" encoding="UTF-8"?><w:comments ` + wordNS + `>` +
				`<w:comment w:id="0" w:author="` + props.Reviewer + `" w:initials="RV"><w:p><w:r><w:t>ok</w:t></w:r></w:p></w:comment>` +
				`</w:comments>`})
	}
	if len(props.Custom) > 0 {
		var custom strings.Builder
		custom.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` +
			`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/custom-properties" ` +
			`xmlns:vt="http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes">`)
		for i, kv := range props.Custom {
			fmt.Fprintf(&custom, `<property fmtid="{D5CDD505-2E9C-101B-9397-08002B2CF9AE}" pid="%d" name="%s"><vt:lpwstr>%s</vt:lpwstr></property>`,
				i+2, kv[0], kv[1])
		}
		custom.WriteString(`</Properties>`)
		parts = append(parts, struct{ name, body string }{"docProps/custom.xml", custom.String()})
	}

	var b bytes.Buffer
	zw := zip.NewWriter(&b)
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return b.Bytes()
}
