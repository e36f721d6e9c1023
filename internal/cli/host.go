package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Studyhall/internal/protocol"
	"github.com/BioHazard786/Studyhall/internal/ui"
)

var flagHandOver bool

var hostCmd = &cobra.Command{
	Use:     "host <room-id>",
	Aliases: []string{"h"},
	Short:   "Create a video room and host it",
	Long: `Create a video room and wait for participants. Every joiner calls the
members already present, so the host answers incoming offers.

Press Ctrl-C to end the room for everyone, or pass --hand-over to leave and
let the server promote the earliest joiner.

Examples:
  studyhall host algebra-101
  studyhall host --hand-over --server wss://hall.example.com/ws algebra-101`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostRoom(cmd.Context(), args[0])
	},
}

func init() {
	hostCmd.Flags().BoolVar(&flagHandOver, "hand-over", false, "Leave without ending the room, the next participant becomes host")
}

func hostRoom(ctx context.Context, roomID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sess, err := Connect(ctx, cfg, flagUserID, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := createRoom(ctx, sess, roomID); err != nil {
		return err
	}

	fmt.Fprintln(ui.Output, ui.RoomView("Room created", roomID, sess.ID()))
	ui.PrintInfo("Share the room ID. Waiting for participants...")

	room := newRoomSession(sess, roomID, sess.ID())
	room.endOnExit = !flagHandOver

	endedBy, err := room.run(ctx)
	if err != nil {
		return err
	}
	ui.RenderSessionSummary("Session", room.summary(endedBy))
	return nil
}

func createRoom(ctx context.Context, sess *Session, roomID string) error {
	req := protocol.RoomRequest{RoomID: roomID, UserID: sess.ID()}
	if err := sess.Client.Send(protocol.EventCreateRoom, req); err != nil {
		return WrapError("create room", err, roomID)
	}
	if _, err := sess.Await(ctx, nil, protocol.EventRoomCreated); err != nil {
		return WrapError("create room", err, roomID)
	}
	return nil
}
