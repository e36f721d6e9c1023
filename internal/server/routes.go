package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/BioHazard786/Studyhall/internal/config"
	"github.com/BioHazard786/Studyhall/internal/protocol"
	"github.com/BioHazard786/Studyhall/internal/signaling"
	"github.com/BioHazard786/Studyhall/internal/version"
)

// NewRouter wires the HTTP surface of the signaling server.
func NewRouter(hub *signaling.Hub, cfg *config.Server) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	router.HandleFunc("/stats", stats(hub)).Methods(http.MethodGet)
	router.HandleFunc(cfg.WSPath, ServeWs(hub, cfg)).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(router)
}

// NewHTTPServer returns an http.Server for the router. Read and write
// deadlines of upgraded connections are managed by the pumps.
func NewHTTPServer(handler http.Handler, cfg *config.Server) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling server is healthy."))
}

type statsResponse struct {
	signaling.Stats
	Version string `json:"version"`
}

func stats(hub *signaling.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(statsResponse{Stats: hub.Stats(), Version: version.Version}); err != nil {
			slog.Error("failed to write stats", "err", err)
		}
	}
}

// checkOrigin accepts requests without an Origin header (native clients) and
// browser requests from an allowed origin.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}

// ServeWs upgrades the request, registers the connection with the hub and
// starts its pumps. A userId query parameter is used as the connection id
// when it is free.
func ServeWs(hub *signaling.Hub, cfg *config.Server) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 4 * 1024,
		Subprotocols:    protocol.Subprotocols,
		CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
	}

	opts := signaling.DefaultTransport()
	opts.PingPeriod = cfg.PingInterval
	opts.PongWait = cfg.PongWait
	opts.MaxMessageSize = cfg.MaxMessageSize
	opts.SendBuffer = cfg.SendBuffer

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("failed to upgrade connection", "remote", r.RemoteAddr, "err", err)
			return
		}

		codec := protocol.CodecFor(conn.Subprotocol())
		client := signaling.NewClient(hub, conn, codec, opts)
		client.ID = hub.Attach(r.URL.Query().Get("userId"), client)

		slog.Debug("connection upgraded", "conn", client.ID, "remote", r.RemoteAddr, "codec", codec.Name())

		go client.WritePump()
		go client.ReadPump()
	}
}
