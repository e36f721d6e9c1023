package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Studyhall/internal/config"
	"github.com/BioHazard786/Studyhall/internal/ui"
	"github.com/BioHazard786/Studyhall/internal/version"
)

var (
	flagServer   string
	flagCodec    string
	flagUserID   string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
)

var rootCmd = &cobra.Command{
	Use:   "studyhall",
	Short: "Join Studyhall video rooms and collaboration chats from the terminal",
	Long: `studyhall talks to a Studyhall signaling server. It can host or join a
video room (negotiating WebRTC connections with every participant) and take
part in a room's collaboration chat.`,
	Version: version.Version,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagServer, "server", "s", "", "Signaling server URL (env: SERVER_URL)")
	pf.StringVar(&flagCodec, "codec", "", "Wire codec, json or msgpack (env: CODEC)")
	pf.StringVarP(&flagUserID, "user", "u", "", "Preferred user id, a random one is used if taken")
	pf.StringVar(&flagSTUN, "stun", "", "STUN server URL (env: STUN_SERVER)")
	pf.StringVar(&flagTURN, "turn", "", "TURN server URL (env: TURN_SERVER)")
	pf.StringVar(&flagTURNUser, "turn-user", "", "TURN username (env: TURN_USERNAME)")
	pf.StringVar(&flagTURNPass, "turn-pass", "", "TURN password (env: TURN_PASSWORD)")
	pf.BoolVar(&flagRelay, "relay", false, "Force media through the TURN server (env: FORCE_RELAY)")

	rootCmd.AddCommand(hostCmd, joinCmd, chatCmd)
}

func loadConfig() (*config.Client, error) {
	cfg, err := config.LoadClient(config.ClientOptions{
		ServerURL:  flagServer,
		Codec:      flagCodec,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		ForceRelay: flagRelay,
	})
	if err != nil {
		return nil, WrapError("load config", err, "")
	}
	return cfg, nil
}

// Execute runs the root command. Ctrl-C cancels the command's context so
// sessions can leave their rooms cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}
