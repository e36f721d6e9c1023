package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Studyhall/internal/protocol"
	"github.com/BioHazard786/Studyhall/internal/ui"
)

var joinCmd = &cobra.Command{
	Use:     "join <room-id>",
	Aliases: []string{"j"},
	Short:   "Join an existing video room",
	Long: `Join a video room and open a peer connection to every participant
already in it. If the host leaves, the earliest joiner takes over.

Examples:
  studyhall join algebra-101
  studyhall join --codec msgpack --user ada algebra-101`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return joinRoom(cmd.Context(), args[0])
	},
}

func joinRoom(ctx context.Context, roomID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sess, err := Connect(ctx, cfg, flagUserID, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := enterRoom(ctx, sess, roomID); err != nil {
		return err
	}
	ui.PrintSuccess("Joined room " + roomID + " as " + shortID(sess.ID()))

	// existing-participants follows room-joined and is handled by the room
	// loop, which calls everyone listed.
	room := newRoomSession(sess, roomID, "")
	endedBy, err := room.run(ctx)
	if err != nil {
		return err
	}
	ui.RenderSessionSummary("Session", room.summary(endedBy))
	return nil
}

func enterRoom(ctx context.Context, sess *Session, roomID string) error {
	req := protocol.RoomRequest{RoomID: roomID, UserID: sess.ID()}
	if err := sess.Client.Send(protocol.EventJoinRoom, req); err != nil {
		return WrapError("join room", err, roomID)
	}
	if _, err := sess.Await(ctx, nil, protocol.EventRoomJoined); err != nil {
		return WrapError("join room", err, roomID)
	}
	return nil
}
