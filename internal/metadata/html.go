package metadata

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/metahunter/internal/model"
)

// HTMLMetaNames are the <meta name=...> values treated as identifying.
// The cleaner removes exactly these.
var HTMLMetaNames = []string{
	"author", "generator", "creator", "publisher", "copyright", "owner",
	"reply-to", "designer", "created", "date", "last-modified", "dc.creator",
	"dcterms.creator", "progid", "originator",
}

// HTMLExtractor reads the title and identifying meta tags of HTML pages.
type HTMLExtractor struct {
	maxSize int64
}

// NewHTMLExtractor returns an HTMLExtractor.
func NewHTMLExtractor(maxSize int64) *HTMLExtractor {
	return &HTMLExtractor{maxSize: maxSize}
}

// Name returns "html".
func (e *HTMLExtractor) Name() string {
	return "html"
}

// Supports reports whether path is an HTML page.
func (e *HTMLExtractor) Supports(path string) bool {
	return hasExtension(path, ".html", ".htm", ".xhtml")
}

// Extract parses the page at path.
func (e *HTMLExtractor) Extract(ctx context.Context, path string) (*model.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := readLimited(path, e.maxSize)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return ParseHTML(doc), nil
}

// ParseHTML maps a parsed document to metadata.
func ParseHTML(doc *html.Node) *model.Metadata {
	md := &model.Metadata{}
	walkHTML(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch n.Data {
		case "title":
			if md.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				md.Title = strings.TrimSpace(n.FirstChild.Data)
			}
		case "meta":
			name, content := MetaNameContent(n)
			if name == "" || content == "" {
				return
			}
			switch name {
			case "author", "dc.creator", "dcterms.creator", "creator":
				if md.Author == "" {
					md.Author = content
					return
				}
			case "generator", "progid":
				if md.Software == "" {
					md.Software = content
					return
				}
			case "created", "date":
				if md.CreatedAt == "" {
					md.CreatedAt = content
					return
				}
			case "last-modified":
				if md.ModifiedAt == "" {
					md.ModifiedAt = content
					return
				}
			case "publisher", "owner":
				if md.Company == "" {
					md.Company = content
					return
				}
			}
			if IsIdentifyingMeta(name) {
				md.AddExtra(name, content)
			}
		}
	})
	return md
}

// MetaNameContent returns the lowercased name (or http-equiv) and the
// content of a <meta> element.
func MetaNameContent(n *html.Node) (string, string) {
	var name, content string
	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "name", "http-equiv", "property":
			if name == "" {
				name = strings.ToLower(strings.TrimSpace(attr.Val))
			}
		case "content":
			content = strings.TrimSpace(attr.Val)
		}
	}
	return name, content
}

// IsIdentifyingMeta reports whether a meta name is one of HTMLMetaNames.
func IsIdentifyingMeta(name string) bool {
	for _, n := range HTMLMetaNames {
		if n == name {
			return true
		}
	}
	return false
}

// walkHTML visits n and its descendants depth first.
func walkHTML(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(c, visit)
	}
}
