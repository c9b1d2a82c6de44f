package metadata

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"fortio.org/safecast"
	"github.com/klauspost/compress/zip"

	"github.com/nao1215/metahunter/internal/model"
)

// OOXML package parts holding document properties.
const (
	OOXMLCorePart = "docProps/core.xml"
	OOXMLAppPart  = "docProps/app.xml"

	// OOXMLCustomPart holds user-defined document properties.
	OOXMLCustomPart = "docProps/custom.xml"
)

// ooxmlCore is docProps/core.xml. Element names match in any namespace.
type ooxmlCore struct {
	Creator        string `xml:"creator"`
	LastModifiedBy string `xml:"lastModifiedBy"`
	Title          string `xml:"title"`
	Subject        string `xml:"subject"`
	Keywords       string `xml:"keywords"`
	Description    string `xml:"description"`
	Created        string `xml:"created"`
	Modified       string `xml:"modified"`
	LastPrinted    string `xml:"lastPrinted"`
	Revision       string `xml:"revision"`
}

// ooxmlApp is docProps/app.xml.
type ooxmlApp struct {
	Application string `xml:"Application"`
	AppVersion  string `xml:"AppVersion"`
	Company     string `xml:"Company"`
	Manager     string `xml:"Manager"`
	Template    string `xml:"Template"`
	TotalTime   string `xml:"TotalTime"`
}

// OOXMLExtractor reads document properties from Office Open XML packages
// (docx, xlsx, pptx and their macro-enabled variants).
type OOXMLExtractor struct {
	maxSize int64
}

// NewOOXMLExtractor returns an OOXMLExtractor.
// Parts larger than maxSize are not read.
func NewOOXMLExtractor(maxSize int64) *OOXMLExtractor {
	return &OOXMLExtractor{maxSize: maxSize}
}

// Name returns "ooxml".
func (e *OOXMLExtractor) Name() string {
	return "ooxml"
}

// Supports reports whether path is an OOXML package.
func (e *OOXMLExtractor) Supports(path string) bool {
	return IsOOXML(path)
}

// IsOOXML reports whether path has an Office Open XML extension.
func IsOOXML(path string) bool {
	return hasExtension(path, ".docx", ".docm", ".dotx", ".xlsx", ".xlsm", ".xltx", ".pptx", ".pptm", ".potx")
}

// Extract returns the document properties of the package at path.
func (e *OOXMLExtractor) Extract(ctx context.Context, path string) (*model.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a zip package: %v", ErrMalformed, path, err)
	}
	defer zr.Close()

	var core ooxmlCore
	var app ooxmlApp
	for _, f := range zr.File {
		switch f.Name {
		case OOXMLCorePart:
			err = e.decodePart(f, &core)
		case OOXMLAppPart:
			err = e.decodePart(f, &app)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
	}

	md := &model.Metadata{
		Author:      strings.TrimSpace(core.Creator),
		Title:       strings.TrimSpace(core.Title),
		CreatedAt:   strings.TrimSpace(core.Created),
		ModifiedAt:  strings.TrimSpace(core.Modified),
		Company:     strings.TrimSpace(app.Company),
		CreatorTool: strings.TrimSpace(app.Application),
	}
	if v := strings.TrimSpace(app.AppVersion); v != "" && md.CreatorTool != "" {
		md.Software = md.CreatorTool + " " + v
	}
	md.AddExtra("lastModifiedBy", core.LastModifiedBy)
	md.AddExtra("subject", core.Subject)
	md.AddExtra("keywords", core.Keywords)
	md.AddExtra("description", core.Description)
	md.AddExtra("lastPrinted", core.LastPrinted)
	md.AddExtra("revision", core.Revision)
	md.AddExtra("manager", app.Manager)
	md.AddExtra("template", app.Template)
	md.AddExtra("totalTime", app.TotalTime)
	return md, nil
}

func (e *OOXMLExtractor) decodePart(f *zip.File, v any) error {
	size, err := safecast.Conv[int64](f.UncompressedSize64)
	if err != nil || size > e.maxSize {
		return fmt.Errorf("%w: %s", ErrFileTooLarge, f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return xml.NewDecoder(io.LimitReader(rc, e.maxSize)).Decode(v)
}
