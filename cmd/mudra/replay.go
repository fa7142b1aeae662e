package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/replay"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FFFF"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).Width(12)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	confirmStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00"))
	firedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

func handleReplay(args []string) {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("MUDRA_CONFIG"), "Tuning file (.json)")
	verbose := fs.Bool("v", false, "Print every confirmation and fired action")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: replay needs an exported frame log"))
		fmt.Fprintln(os.Stderr, "Usage: mudra replay [-config file] [-v] <session.json>")
		os.Exit(1)
	}

	opts := replay.Options{}
	if *configPath != "" {
		cfg, err := loadConfig(*configPath, "")
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
			os.Exit(1)
		}
		opts.Classifier = cfg.ClassifierConfig()
		opts.Stabilizer = cfg.StabilizerConfig()
	}

	session, err := replay.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}

	sum := replay.Run(session, opts)
	fmt.Println(renderSummary(fs.Arg(0), sum))
	if *verbose {
		fmt.Println(renderTimeline(sum))
	}
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

func renderSummary(name string, sum replay.Summary) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Replay "+name) + "\n\n")
	b.WriteString(row("Frames", fmt.Sprintf("%d (%d with a hand)", sum.Frames, sum.HandFrames)) + "\n")
	b.WriteString(row("Duration", sum.Duration().Round(time.Millisecond).String()) + "\n")

	labels := make([]gesture.Label, 0, len(sum.Labels))
	for l := range sum.Labels {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	for _, l := range labels {
		b.WriteString(row("  "+l.String(), fmt.Sprintf("%d", sum.Labels[l])) + "\n")
	}

	b.WriteString(row("Confirmed", confirmStyle.Render(fmt.Sprintf("%d", len(sum.Confirmed)))) + "\n")
	b.WriteString(row("Fired", firedStyle.Render(fmt.Sprintf("%d", len(sum.Fired)))))
	return boxStyle.Render(b.String())
}

// renderTimeline lists confirmations and fired actions relative to the
// first record.
func renderTimeline(sum replay.Summary) string {
	type entry struct {
		at   time.Duration
		line string
	}
	var entries []entry
	for _, c := range sum.Confirmed {
		entries = append(entries, entry{
			at:   c.Timestamp.Sub(sum.Start),
			line: confirmStyle.Render(fmt.Sprintf("confirmed %s (%.2f)", c.Label, c.Score)),
		})
	}
	for _, f := range sum.Fired {
		entries = append(entries, entry{
			at:   f.Timestamp.Sub(sum.Start),
			line: firedStyle.Render(fmt.Sprintf("fired %s <- %s", f.Action, f.Label)),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].at < entries[j].at })

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(labelStyle.Render(e.at.Round(time.Millisecond).String()) + e.line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
