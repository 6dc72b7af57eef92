package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/Humphrey-He/propview/internal/controller"
	"github.com/Humphrey-He/propview/pkg/format"
	"github.com/Humphrey-He/propview/pkg/listing"
)

const cardWidth = 64

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#9CA3AF")).
			Padding(0, 1).
			Width(cardWidth)
	titleStyle   = lipgloss.NewStyle().Bold(true)
	priceStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2563EB"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#B91C1C"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#047857"))
)

// card renders one listing as a bordered block.
func card(f *format.Formatter, l listing.Listing, long bool) string {
	lines := []string{
		titleStyle.Render(fmt.Sprintf("#%d  %s", l.ID, l.Title)),
		priceStyle.Render(f.Price(l.Price)) + "  " + mutedStyle.Render(l.Location),
		fmt.Sprintf("%s beds · %s baths · %s", f.Count(l.Bedrooms), f.Count(l.Bathrooms), f.Area(l.Area)),
	}
	if long {
		if l.Description != "" {
			lines = append(lines, "", l.Description)
		}
		if l.ImageURL != "" {
			lines = append(lines, "", mutedStyle.Render(l.ImageURL))
		}
		if l.CreatedAt != "" {
			lines = append(lines, mutedStyle.Render("Listed "+f.Date(l.CreatedAt)))
		}
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

// writeListings prints listings in the requested format.
func writeListings(w io.Writer, f *format.Formatter, items []listing.Listing, output string) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	case "yaml":
		return yaml.NewEncoder(w).Encode(items)
	case "text", "":
		cards := make([]string, 0, len(items))
		for _, l := range items {
			cards = append(cards, card(f, l, false))
		}
		if len(cards) > 0 {
			fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, cards...))
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", output)
	}
}

// writeSummary prints the "Showing N of M" line under a list.
func writeSummary(w io.Writer, v controller.ListView) {
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("Showing %d of %d properties (%s)", v.Shown, v.Total, v.Summary)))
}

func writeStatus(w io.Writer, st controller.StatusState) {
	switch st.Status {
	case controller.StatusConnected:
		fmt.Fprintf(w, "%s %s (%d listings, %s)\n", successStyle.Render("● API Connected"), st.BaseURL, st.Listings, st.Latency.Round(time.Millisecond))
	default:
		fmt.Fprintf(w, "%s %s\n", errorStyle.Render("● API Error"), st.Error)
	}
}
