package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/BioHazard786/Studyhall/internal/protocol"
)

// ParticipantsView renders the members of a video room. self is marked.
func ParticipantsView(participants []protocol.Participant, self string) string {
	if len(participants) == 0 {
		return MutedStyle.Render("Nobody else is here yet")
	}

	rows := make([][]string, 0, len(participants))
	for i, p := range participants {
		role := ""
		if p.IsHost {
			role = IconHost + " host"
		}
		name := p.Name
		if p.ID == self {
			name += " (you)"
		}
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), name, p.ID, role})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("#", "Name", "ID", "Role").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

// RoomView is the box shown once a room is created or joined.
func RoomView(title, roomID, selfID string) string {
	content := fmt.Sprintf("%s %s\n\n%s Room ID:  %s\n%s Your ID:  %s",
		IconRoom, TitleStyle.Render(title),
		IconCopy, BoldStyle.Foreground(Primary).Render(roomID),
		IconPeer, MutedStyle.Render(selfID),
	)
	return RoomBoxStyle.Render(content)
}
