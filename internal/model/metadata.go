package model

import (
	"strconv"
	"strings"
)

// Field is a raw metadata key/value pair as found in the file.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Metadata is the normalized view of the metadata embedded in one file.
// Extractors fill the typed fields they understand and keep everything
// else in Extra, in the order it was read.
type Metadata struct {
	Author       string   `json:"author,omitempty"`
	Company      string   `json:"company,omitempty"`
	CreatorTool  string   `json:"creator_tool,omitempty"`
	Software     string   `json:"software,omitempty"`
	CameraMake   string   `json:"camera_make,omitempty"`
	CameraModel  string   `json:"camera_model,omitempty"`
	Device       string   `json:"device,omitempty"`
	Title        string   `json:"title,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
	ModifiedAt   string   `json:"modified_at,omitempty"`
	GPSLatitude  *float64 `json:"gps_latitude,omitempty"`
	GPSLongitude *float64 `json:"gps_longitude,omitempty"`
	Extra        []Field  `json:"extra,omitempty"`
}

// HasGPS reports whether both coordinates are present.
func (m *Metadata) HasGPS() bool {
	return m != nil && m.GPSLatitude != nil && m.GPSLongitude != nil
}

// IsEmpty reports whether nothing was extracted.
func (m *Metadata) IsEmpty() bool {
	if m == nil {
		return true
	}
	return m.Author == "" && m.Company == "" && m.CreatorTool == "" &&
		m.Software == "" && m.CameraMake == "" && m.CameraModel == "" &&
		m.Device == "" && m.Title == "" && m.CreatedAt == "" &&
		m.ModifiedAt == "" && m.GPSLatitude == nil && m.GPSLongitude == nil &&
		len(m.Extra) == 0
}

// AddExtra appends a raw field, ignoring empty values.
func (m *Metadata) AddExtra(key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	m.Extra = append(m.Extra, Field{Key: key, Value: value})
}

// Fields returns every populated field as key/value pairs, typed fields first.
func (m *Metadata) Fields() []Field {
	if m == nil {
		return nil
	}
	typed := []Field{
		{"author", m.Author},
		{"company", m.Company},
		{"creator_tool", m.CreatorTool},
		{"software", m.Software},
		{"camera_make", m.CameraMake},
		{"camera_model", m.CameraModel},
		{"device", m.Device},
		{"title", m.Title},
		{"created_at", m.CreatedAt},
		{"modified_at", m.ModifiedAt},
	}
	out := make([]Field, 0, len(typed)+len(m.Extra)+2)
	for _, f := range typed {
		if f.Value != "" {
			out = append(out, f)
		}
	}
	if m.HasGPS() {
		out = append(out,
			Field{"gps_latitude", formatCoordinate(*m.GPSLatitude)},
			Field{"gps_longitude", formatCoordinate(*m.GPSLongitude)},
		)
	}
	return append(out, m.Extra...)
}

// Merge fills the empty fields of m from other and appends other's extras.
func (m *Metadata) Merge(other *Metadata) {
	if other == nil {
		return
	}
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&m.Author, other.Author)
	fill(&m.Company, other.Company)
	fill(&m.CreatorTool, other.CreatorTool)
	fill(&m.Software, other.Software)
	fill(&m.CameraMake, other.CameraMake)
	fill(&m.CameraModel, other.CameraModel)
	fill(&m.Device, other.Device)
	fill(&m.Title, other.Title)
	fill(&m.CreatedAt, other.CreatedAt)
	fill(&m.ModifiedAt, other.ModifiedAt)
	if !m.HasGPS() && other.HasGPS() {
		m.GPSLatitude = other.GPSLatitude
		m.GPSLongitude = other.GPSLongitude
	}
	m.Extra = append(m.Extra, other.Extra...)
}

// formatCoordinate renders a decimal degree value without trailing zeros.
func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatCoordinate is the exported form used by timelines and reports.
func FormatCoordinate(v float64) string {
	return formatCoordinate(v)
}
