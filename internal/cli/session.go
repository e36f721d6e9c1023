package cli

import (
	"context"
	"slices"

	"github.com/BioHazard786/Studyhall/internal/client"
	"github.com/BioHazard786/Studyhall/internal/config"
	"github.com/BioHazard786/Studyhall/internal/dns"
	"github.com/BioHazard786/Studyhall/internal/protocol"
	"github.com/BioHazard786/Studyhall/internal/ui"
)

// Session is a signaling connection plus frames that were read ahead while
// waiting for a specific event.
type Session struct {
	Client  *client.Client
	Config  *config.Client
	backlog []protocol.Frame
}

// Connect dials the server named in cfg.
func Connect(ctx context.Context, cfg *config.Client, userID string, quiet bool) (*Session, error) {
	codec, err := protocol.CodecByName(cfg.Codec)
	if err != nil {
		return nil, WrapError("connect", err, "")
	}

	var sp *ui.Spinner
	if !quiet {
		sp = ui.NewConnectionSpinner("Connecting to " + cfg.ServerURL + "...")
		sp.Start()
		defer sp.Stop()
	}

	c, err := client.Dial(ctx, client.Options{
		ServerURL: cfg.ServerURL,
		UserID:    userID,
		Codec:     codec,
		Resolver:  dns.NewResolver(),
	})
	if err != nil {
		return nil, WrapError("connect to server", err, "")
	}
	return &Session{Client: c, Config: cfg}, nil
}

func (s *Session) ID() string {
	return s.Client.ID()
}

func (s *Session) Close() {
	s.Client.Close()
}

// Next returns the next frame, read-ahead frames first. ok is false once the
// connection is gone.
func (s *Session) Next(ctx context.Context) (protocol.Frame, bool, error) {
	if len(s.backlog) > 0 {
		f := s.backlog[0]
		s.backlog = s.backlog[1:]
		return f, true, nil
	}

	select {
	case f, ok := <-s.Client.Incoming():
		return f, ok, nil
	case <-ctx.Done():
		return protocol.Frame{}, false, ctx.Err()
	}
}

// Await reads until one of events arrives and decodes it into v. An error
// event from the server is returned as *ServerError. Other frames are kept
// for Next.
func (s *Session) Await(ctx context.Context, v any, events ...string) (string, error) {
	for {
		select {
		case f, ok := <-s.Client.Incoming():
			if !ok {
				return "", ErrConnectionLost
			}
			switch {
			case f.Event == protocol.EventError:
				var e protocol.ErrorPayload
				if err := s.Client.Decode(f, &e); err != nil {
					return "", err
				}
				return "", &ServerError{Message: e.Message}
			case slices.Contains(events, f.Event):
				if v != nil {
					if err := s.Client.Decode(f, v); err != nil {
						return "", err
					}
				}
				return f.Event, nil
			default:
				s.backlog = append(s.backlog, f)
			}

		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// shortID trims generated uuids for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
