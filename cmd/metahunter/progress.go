package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/nao1215/metahunter/internal/model"
)

// progressPrinter writes one line per pipeline outcome, prefixed with the
// component that produced it.
type progressPrinter struct {
	out    io.Writer
	ok     *color.Color
	failed *color.Color
	tag    *color.Color
}

// newProgressPrinter returns a printer writing to out.
func newProgressPrinter(out io.Writer, colored bool) *progressPrinter {
	p := &progressPrinter{
		out:    out,
		ok:     color.New(color.FgGreen),
		failed: color.New(color.FgRed, color.Bold),
		tag:    color.New(color.FgCyan),
	}
	for _, c := range []*color.Color{p.ok, p.failed, p.tag} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *progressPrinter) line(component, format string, args ...any) {
	fmt.Fprintf(p.out, "%s %s\n", p.tag.Sprintf("[%s]", component), fmt.Sprintf(format, args...))
}

// printRun reports what a finished run did. integrityRequested tells a
// failed integrity report apart from one that was never asked for.
func (p *progressPrinter) printRun(run *model.Run, useAI, integrityRequested bool) {
	if len(run.InputFiles) == 0 {
		p.line("metahunter", "No files found in %s", run.InputDir)
		return
	}

	for _, c := range run.Cleaned {
		p.line("cleaner", "%s %s -> %s", p.ok.Sprint("OK "), c.Input, c.Output)
	}
	for _, e := range run.CleanErrors {
		p.line("cleaner", "%s %s: %s", p.failed.Sprint("ERR"), e.Path, e.Error)
	}

	if path, ok := run.Artifacts[model.ArtifactStats]; ok {
		p.line("analyzer", "Stats saved to %s", path)
	}

	if useAI {
		summary, hasSummary := run.Artifacts[model.ArtifactAISummary]
		aiReport, hasReport := run.Artifacts[model.ArtifactAIReport]
		if hasSummary && hasReport {
			p.line("ai_client", "AI summary in %s", summary)
			p.line("ai_client", "AI report in %s", aiReport)
		} else {
			p.line("ai_client", "%s the AI summary could not be written", p.failed.Sprint("ERROR"))
		}
	}

	if integrityRequested {
		if path, ok := run.Artifacts[model.ArtifactIntegrityReport]; ok && run.Integrity != nil {
			p.line("integrity", "Integrity report: %s (merkle root %s)", path, run.Integrity.MerkleRoot)
		} else {
			p.line("integrity", "%s the integrity report could not be generated", p.failed.Sprint("ERROR"))
		}
	}

	p.line("metahunter", "Run complete. Files processed: %d", len(run.Cleaned))
}
