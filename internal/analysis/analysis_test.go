package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/nao1215/metahunter/internal/digest"
	"github.com/nao1215/metahunter/internal/model"
	"github.com/nao1215/metahunter/internal/testutil"
)

func ptr(v float64) *float64 { return &v }

func TestComputeRisk(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		analysis  model.FileAnalysis
		wantScore int
		wantLevel model.RiskLevel
		wantCount int
	}{
		{
			name:      "nothing to report",
			analysis:  model.FileAnalysis{Path: "out/a.txt", MimeType: "text/plain"},
			wantScore: 0,
			wantLevel: model.RiskLow,
			wantCount: 0,
		},
		{
			name:      "metadata prone format only",
			analysis:  model.FileAnalysis{Path: "out/a.pdf", MimeType: "application/pdf"},
			wantScore: 5,
			wantLevel: model.RiskLow,
			wantCount: 1,
		},
		{
			name: "gps on a jpeg is medium",
			analysis: model.FileAnalysis{
				Path:     "out/a.jpg",
				MimeType: "image/jpeg",
				Metadata: &model.Metadata{GPSLatitude: ptr(1), GPSLongitude: ptr(2)},
			},
			wantScore: 45,
			wantLevel: model.RiskMedium,
			wantCount: 2,
		},
		{
			name: "one coordinate is not gps",
			analysis: model.FileAnalysis{
				Path:     "out/a.bin",
				Metadata: &model.Metadata{GPSLatitude: ptr(1)},
			},
			wantScore: 0,
			wantLevel: model.RiskLow,
		},
		{
			name: "placeholder author is ignored",
			analysis: model.FileAnalysis{
				Path:     "out/a.bin",
				Metadata: &model.Metadata{Author: "  Unknown "},
			},
			wantScore: 0,
			wantLevel: model.RiskLow,
		},
		{
			name: "corporate word document",
			analysis: model.FileAnalysis{
				Path:     "/home/ana/Desktop/plan.docx",
				MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
				Metadata: &model.Metadata{Author: "Ana", Company: "ACME", CreatorTool: "Microsoft Office Word"},
			},
			wantScore: 60,
			wantLevel: model.RiskMedium,
			wantCount: 5,
		},
		{
			name: "everything at once is clamped",
			analysis: model.FileAnalysis{
				Path:     `C:\Users\ana\Documentos\foto.jpg`,
				MimeType: "image/jpeg",
				Metadata: &model.Metadata{
					Author: "Ana", Company: "ACME", Software: "Adobe Photoshop",
					GPSLatitude: ptr(1), GPSLongitude: ptr(2),
				},
			},
			wantScore: 100,
			wantLevel: model.RiskHigh,
			wantCount: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			score, level, reasons := ComputeRisk(&tt.analysis)
			if score != tt.wantScore {
				t.Errorf("score = %d, want %d (reasons %v)", score, tt.wantScore, reasons)
			}
			if level != tt.wantLevel {
				t.Errorf("level = %s, want %s", level, tt.wantLevel)
			}
			if len(reasons) != tt.wantCount {
				t.Errorf("reasons = %v, want %d", reasons, tt.wantCount)
			}
		})
	}
}

func TestComputeRisk_ReasonNamesValue(t *testing.T) {
	t.Parallel()

	_, _, reasons := ComputeRisk(&model.FileAnalysis{Metadata: &model.Metadata{Author: "Jane Doe"}})
	if len(reasons) != 1 || !strings.Contains(reasons[0], "'Jane Doe'") {
		t.Errorf("reasons = %v", reasons)
	}
}

func TestBuildTimeline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		md   *model.Metadata
		want []string
	}{
		{
			name: "nil metadata",
			md:   nil,
			want: []string{TimelineFallback},
		},
		{
			name: "empty metadata",
			md:   &model.Metadata{},
			want: []string{TimelineFallback},
		},
		{
			name: "photo",
			md: &model.Metadata{
				CreatedAt: "2023:01:01 10:00:00", ModifiedAt: "2023:01:02 10:00:00",
				CameraModel: "EOS 5D", Software: "Lightroom", Device: "studio-mac",
				GPSLatitude: ptr(19.4326), GPSLongitude: ptr(-99.1332),
			},
			want: []string{
				"2023:01:01 10:00:00: File created (captured with 'EOS 5D').",
				"2023:01:02 10:00:00: Last recorded modification.",
				"Creation/editing tool: Lightroom.",
				"Associated device: studio-mac.",
				"EXIF coordinates: lat=19.4326, lon=-99.1332.",
			},
		},
		{
			name: "unchanged modification date is not repeated",
			md:   &model.Metadata{CreatedAt: "D:2023", ModifiedAt: "D:2023", CreatorTool: "Word", Software: "PDF maker"},
			want: []string{"D:2023: File created.", "Creation/editing tool: Word."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := BuildTimeline(tt.md); !slices.Equal(got, tt.want) {
				t.Errorf("BuildTimeline() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAIDetector(t *testing.T) {
	t.Parallel()

	t.Run("keyword in metadata", func(t *testing.T) {
		t.Parallel()

		ok, evidence := NewAIDetector().Detect(&model.FileAnalysis{
			Path:     "out/img.png",
			Metadata: &model.Metadata{Software: "Adobe Firefly"},
		})
		if !ok {
			t.Fatal("expected detection")
		}
		want := []string{"Match for 'firefly' in metadata.", "Match for 'adobe firefly' in metadata."}
		if !slices.Equal(evidence, want) {
			t.Errorf("evidence = %q, want %q", evidence, want)
		}
	})

	t.Run("keyword in file name", func(t *testing.T) {
		t.Parallel()

		ok, _ := NewAIDetector().Detect(&model.FileAnalysis{Path: "out/Canva-poster.pdf", Name: "Canva-poster.pdf"})
		if !ok {
			t.Error("expected detection from the file name")
		}
	})

	t.Run("nothing found", func(t *testing.T) {
		t.Parallel()

		ok, evidence := NewAIDetector().Detect(&model.FileAnalysis{Path: "out/a.pdf", Metadata: &model.Metadata{Author: "Ana"}})
		if ok || len(evidence) != 0 {
			t.Errorf("unexpected detection: %v", evidence)
		}
	})

	t.Run("extra keywords", func(t *testing.T) {
		t.Parallel()

		d := NewAIDetector(" Sora ", "", "openai")
		if got := len(d.Keywords()); got != len(DefaultAIKeywords)+1 {
			t.Errorf("keywords = %d, want %d", got, len(DefaultAIKeywords)+1)
		}
		ok, _ := d.Detect(&model.FileAnalysis{Metadata: &model.Metadata{Title: "made with SORA"}})
		if !ok {
			t.Error("expected detection by extra keyword")
		}
	})
}

func TestDetectMIMEType(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"a.PDF":   "application/pdf",
		"b.jpeg":  "image/jpeg",
		"c.docx":  "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"d.html":  "text/html",
		"e":       DefaultMIMEType,
		"f.zzzzz": DefaultMIMEType,
	}
	for path, want := range tests {
		if got := DetectMIMEType(path); got != want {
			t.Errorf("DetectMIMEType(%s) = %q, want %q", path, got, want)
		}
	}
}

func TestAnalyzer_AnalyzeFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "report.pdf", testutil.PDF([]testutil.PDFEntry{
		{Key: "Author", Value: "Jane Doe"},
		{Key: "Producer", Value: "Microsoft Word"},
	}, ""))

	a := New(WithFingerprints(digest.BLAKE3))
	fa, err := a.AnalyzeFile(t.Context(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantHash, err := digest.File(path)
	if err != nil {
		t.Fatal(err)
	}
	if fa.SHA256 != wantHash {
		t.Errorf("sha256 = %s, want %s", fa.SHA256, wantHash)
	}
	if fa.Name != "report.pdf" || fa.Extension != ".pdf" || fa.MimeType != "application/pdf" {
		t.Errorf("technical fields = %+v", fa)
	}
	if fa.Extractor != "pdf" || fa.Metadata == nil || fa.Metadata.Author != "Jane Doe" {
		t.Errorf("metadata = %+v (extractor %q)", fa.Metadata, fa.Extractor)
	}
	if _, ok := fa.Fingerprints["blake3"]; !ok {
		t.Errorf("fingerprints = %v", fa.Fingerprints)
	}
	// author 15 + office software 15 + pdf 5
	if fa.Advanced.RiskScore != 35 || fa.Advanced.RiskLevel != model.RiskLow {
		t.Errorf("advanced = %+v", fa.Advanced)
	}

	t.Run("broken metadata is recorded", func(t *testing.T) {
		t.Parallel()

		path := testutil.WriteFile(t, t.TempDir(), "broken.png", []byte("not a png"))
		fa, err := New().AnalyzeFile(t.Context(), path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fa.MetadataError == "" || fa.Metadata != nil {
			t.Errorf("metadata = %+v, error = %q", fa.Metadata, fa.MetadataError)
		}
		if fa.Advanced.RiskScore != 5 {
			t.Errorf("score = %d, want 5", fa.Advanced.RiskScore)
		}
	})
}

func TestAnalyzer_AnalyzeFiles(t *testing.T) {
	t.Parallel()

	t.Run("results follow input order", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		var paths []string
		for i := range 20 {
			paths = append(paths, testutil.WriteFile(t, dir, fmt.Sprintf("f%02d.txt", 19-i), []byte(fmt.Sprint(i))))
		}
		if err := os.Mkdir(filepath.Join(dir, "sub"), 0o750); err != nil {
			t.Fatal(err)
		}
		withDir := append(slices.Clone(paths[:3]), filepath.Join(dir, "sub"))
		withDir = append(withDir, paths[3:]...)

		stats, err := New(WithWorkers(3)).AnalyzeFiles(t.Context(), withDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats.Len() != len(paths) {
			t.Fatalf("Len() = %d, want %d", stats.Len(), len(paths))
		}
		for i, fa := range stats.All() {
			if fa.Path != paths[i] {
				t.Errorf("entry %d = %s, want %s", i, fa.Path, paths[i])
			}
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		path := testutil.WriteFile(t, t.TempDir(), "a.txt", []byte("x"))
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		if _, err := New().AnalyzeFiles(ctx, []string{path}); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		stats, err := New().AnalyzeFiles(t.Context(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats.Len() != 0 {
			t.Errorf("Len() = %d, want 0", stats.Len())
		}
	})
}
