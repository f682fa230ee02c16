package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/popweight/internal/attribution"
	"github.com/abelbrown/popweight/internal/model"
	"github.com/abelbrown/popweight/internal/otel"
)

var (
	colorAccent = lipgloss.Color("86")
	colorGood   = lipgloss.Color("42")
	colorBad    = lipgloss.Color("203")
	colorWarn   = lipgloss.Color("227")
	colorDim    = lipgloss.Color("242")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	leaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorGood)
	posStyle     = lipgloss.NewStyle().Foreground(colorGood)
	negStyle     = lipgloss.NewStyle().Foreground(colorBad)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarn)
	dimStyle     = lipgloss.NewStyle().Foreground(colorDim)
	sectionStyle = lipgloss.NewStyle().MarginTop(1)
)

type reportOptions struct {
	ledger  bool
	docs    bool
	metrics map[string]float64
	recent  []otel.Event
	events  eventSummary
}

func renderReport(r *attribution.Report, order []model.Candidate, opts reportOptions) string {
	var sections []string

	sections = append(sections, titleStyle.Render(fmt.Sprintf(
		"popweight: %d documents, reference %s", r.Quality.Documents, r.Now.Format("2006-01-02 15:04 MST"))))

	sections = append(sections, renderTotals(r, order))

	if opts.ledger {
		sections = append(sections, renderLedger(r.Fields, order))
	}
	if opts.docs {
		sections = append(sections, renderDocuments(r.Documents, order))
	}

	sections = append(sections, renderQuality(r.Quality, opts.metrics))

	if len(opts.events.counts) > 0 {
		sections = append(sections, renderEvents(opts.events))
	}
	if len(opts.recent) > 0 {
		sections = append(sections, renderRecent(opts.recent))
	}

	for i := 1; i < len(sections); i++ {
		sections[i] = sectionStyle.Render(sections[i])
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func renderTotals(r *attribution.Report, order []model.Candidate) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Candidate popularity"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %-8s %14s %9s %6s", "", "weight", "share", "tops")))
	for _, c := range order {
		line := fmt.Sprintf("  %-8s %14.4f %8.2f%% %6d", c, r.Totals[c], r.Percentages[c], r.TopCounts[c])
		switch {
		case c == r.Leader:
			line = leaderStyle.Render(line + "  <- leader")
		case r.Totals[c] < 0:
			line = negStyle.Render(line)
		}
		b.WriteString("\n" + line)
	}
	if r.Leader == "" {
		b.WriteString("\n" + dimStyle.Render("  no leader: every total is zero"))
	}
	return b.String()
}

func renderLedger(fields attribution.Ledger, order []model.Candidate) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Contribution ledger"))
	for _, c := range order {
		b.WriteString("\n" + string(c))
		names := make([]string, 0, len(fields[c]))
		for name := range fields[c] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v := fields[c][name]
			line := fmt.Sprintf("  %-26s %14.4f", name, v)
			if attribution.IsDetailField(name) {
				line = dimStyle.Render(line)
			} else {
				line = signed(v).Render(line)
			}
			b.WriteString("\n" + line)
		}
	}
	return b.String()
}

func renderDocuments(results []attribution.DocumentResult, order []model.Candidate) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Documents"))
	for _, res := range results {
		id := truncate(res.ID, 24)
		if id == "" {
			id = "(no id)"
		}
		if res.Failed() {
			b.WriteString("\n" + negStyle.Render(fmt.Sprintf("  %-24s failed: %s", id, res.Error)))
			continue
		}
		parts := []string{fmt.Sprintf("  %-24s", id)}
		for _, c := range order {
			parts = append(parts, fmt.Sprintf("%s=%+.3f", c, res.Weights[c]))
		}
		b.WriteString("\n" + strings.Join(parts, " "))
	}
	return b.String()
}

func renderQuality(q attribution.Quality, snap map[string]float64) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Data quality"))

	row := func(label string, n int) {
		line := fmt.Sprintf("  %-22s %d", label, n)
		if n > 0 {
			line = warnStyle.Render(line)
		}
		b.WriteString("\n" + line)
	}
	row("failed documents", q.FailedDocuments)
	row("missing timestamps", q.MissingTimestamps)
	row("malformed timestamps", q.MalformedTimestamps)
	row("invalid values", q.InvalidValues)
	row("skipped comments", q.SkippedComments)

	if len(snap) > 0 {
		names := make([]string, 0, len(snap))
		for name := range snap {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			b.WriteString("\n" + dimStyle.Render(fmt.Sprintf("  %-44s %g", name, snap[name])))
		}
	}
	return b.String()
}

func renderEvents(s eventSummary) string {
	var b strings.Builder
	title := "Events"
	if s.truncated {
		title += " (most recent only)"
	}
	b.WriteString(headerStyle.Render(title))

	kinds := make([]string, 0, len(s.counts))
	for kind := range s.counts {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		b.WriteString("\n" + dimStyle.Render(fmt.Sprintf("  %-22s %d", kind, s.counts[otel.EventKind(kind)])))
	}
	return b.String()
}

func renderRecent(events []otel.Event) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Recent warnings"))
	for _, ev := range events {
		parts := []string{fmt.Sprintf("  %-20s", ev.Kind)}
		if ev.DocID != "" {
			parts = append(parts, "doc="+truncate(ev.DocID, 24))
		}
		if ev.Field != "" {
			parts = append(parts, "field="+ev.Field)
		}
		if ev.Raw != "" {
			parts = append(parts, fmt.Sprintf("raw=%q", truncate(ev.Raw, 40)))
		}
		b.WriteString("\n" + warnStyle.Render(strings.Join(parts, " ")))
	}
	return b.String()
}

func signed(v float64) lipgloss.Style {
	if v < 0 {
		return negStyle
	}
	return posStyle
}
