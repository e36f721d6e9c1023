package ui

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// SessionSummary is printed when a host or join session ends.
type SessionSummary struct {
	RoomID      string
	Role        string
	Duration    time.Duration
	PeersSeen   int
	Connected   int
	HostChanges int
	EndedBy     string
}

func SessionSummaryView(title string, s SessionSummary) string {
	t := table.NewWriter()
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.Style().Color.Header = text.Colors{text.FgCyan, text.Bold}

	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Room", s.RoomID},
		{"Role", s.Role},
		{"Duration", s.Duration.Round(time.Second).String()},
		{"Participants seen", s.PeersSeen},
		{"Peer connections", s.Connected},
		{"Host changes", s.HostChanges},
		{"Ended", s.EndedBy},
	})
	return t.Render()
}

func RenderSessionSummary(title string, s SessionSummary) {
	fmt.Fprintln(Output)
	fmt.Fprintln(Output, SessionSummaryView(title, s))
}
