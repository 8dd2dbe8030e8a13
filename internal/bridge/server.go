package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"eyenav/internal/core/activation"
	"eyenav/internal/core/dwell"
	"eyenav/internal/core/gaze"
	"eyenav/internal/core/model"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	clientBuffer   = 64
	maxMessageSize = 4096
	writeTimeout   = 2 * time.Second
)

// Source is the pointer pipeline the bridge feeds, watches and configures.
type Source interface {
	Ingest(gaze.Sample) error
	CurrentPoint() (model.Point, bool)
	Config() model.DwellConfig
	UpdateConfig(model.DwellConfig) error
}

// Options configures the bridge.
type Options struct {
	// AllowedOrigins lists browser origins (scheme://host[:port]) that may
	// call the bridge. Requests without an Origin header are always allowed.
	AllowedOrigins []string
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Server exposes the pipeline to external eye trackers over HTTP and websocket.
// It also streams dwell feedback and activations back to connected clients.
type Server struct {
	mu       sync.Mutex
	source   Source
	handler  http.Handler
	upgrader websocket.Upgrader
	clients  map[string]*client
	origins  map[string]bool
	lastGaze model.Point
	hasGaze  bool
	logger   *zap.Logger
	now      func() time.Time
}

// NewServer creates a bridge for source.
func NewServer(source Source, options Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := &Server{
		source:  source,
		clients: make(map[string]*client),
		logger:  logger.Named("bridge"),
		now:     time.Now,
	}
	server.SetAllowedOrigins(options.AllowedOrigins)
	server.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     server.checkOrigin,
	}

	router := mux.NewRouter()
	router.Use(server.guardOrigin)
	router.HandleFunc("/health", server.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/config", server.handleGetConfig).Methods(http.MethodGet)
	router.HandleFunc("/config", server.handlePutConfig).Methods(http.MethodPut)
	router.HandleFunc("/gaze", server.handleGaze).Methods(http.MethodPost)
	router.HandleFunc("/ws", server.handleSocket)

	accessLog, err := zap.NewStdLogAt(server.logger, zapcore.DebugLevel)
	if err != nil {
		accessLog = zap.NewStdLog(server.logger)
	}
	cors := handlers.CORS(
		handlers.AllowedOriginValidator(server.originAllowed),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPut, http.MethodPost}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	server.handler = cors(handlers.LoggingHandler(accessLog.Writer(), router))
	return server
}

// Handler returns the HTTP handler serving every bridge route.
func (server *Server) Handler() http.Handler {
	return server.handler
}

// SetAllowedOrigins replaces the browser origins allowed to use the bridge.
func (server *Server) SetAllowedOrigins(origins []string) {
	allowed := make(map[string]bool, len(origins))
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin != "" {
			allowed[strings.ToLower(origin)] = true
		}
	}
	server.mu.Lock()
	server.origins = allowed
	server.mu.Unlock()
}

func (server *Server) originAllowed(origin string) bool {
	server.mu.Lock()
	defer server.mu.Unlock()
	return server.origins[strings.ToLower(origin)]
}

func (server *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || server.originAllowed(origin)
}

// guardOrigin refuses browser requests from origins outside the allow list,
// including simple requests that skip the CORS preflight.
func (server *Server) guardOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !server.checkOrigin(r) {
			server.logger.Warn("origin refused", zap.String("origin", r.Header.Get("Origin")), zap.String("path", r.URL.Path))
			writeJSON(w, http.StatusForbidden, errorPayload{Error: "origin not allowed"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe serves on addr until ctx is cancelled.
func (server *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		server.closeClients()
	}()

	server.logger.Info("bridge listening", zap.String("addr", addr))
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-done
		return nil
	}
	return fmt.Errorf("bridge listen on %s: %w", addr, err)
}

// ClientCount returns the number of connected websocket clients.
func (server *Server) ClientCount() int {
	server.mu.Lock()
	defer server.mu.Unlock()
	return len(server.clients)
}

// Report implements dwell.FeedbackPort by broadcasting the event.
func (server *Server) Report(event dwell.Event) {
	message := outboundMessage{
		Target:   event.TargetID(),
		Progress: event.Progress,
		At:       event.At.UnixMilli(),
	}
	switch event.Kind {
	case dwell.EventProgress:
		message.Type = messageProgress
	case dwell.EventCancel:
		message.Type = messageCancel
	case dwell.EventFire:
		message.Type = messageFire
	default:
		return
	}
	server.broadcast(message)
}

// RunGazeFeed streams the smoothed pointer to clients every interval until
// ctx is done. Unchanged points are not repeated.
func (server *Server) RunGazeFeed(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case tickTime := <-ticker.C:
			server.publishGaze(tickTime)
		}
	}
}

func (server *Server) publishGaze(now time.Time) {
	point, ok := server.source.CurrentPoint()
	server.mu.Lock()
	if len(server.clients) == 0 {
		server.hasGaze = false
		server.mu.Unlock()
		return
	}
	unchanged := ok == server.hasGaze && point == server.lastGaze
	server.lastGaze, server.hasGaze = point, ok
	server.mu.Unlock()
	if !ok || unchanged {
		return
	}
	x, y := point.X, point.Y
	server.broadcast(outboundMessage{Type: messageGaze, X: &x, Y: &y, At: now.UnixMilli()})
}

// OnActivate implements activation.Observer.
func (server *Server) OnActivate(activated activation.Activation) {
	message := outboundMessage{Type: messageActivate, Progress: 1, At: activated.At.UnixMilli()}
	if activated.Target != nil {
		message.Target = activated.Target.ID()
	}
	server.broadcast(message)
}

func (server *Server) broadcast(message outboundMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		server.logger.Error("encode message", zap.Error(err))
		return
	}
	server.mu.Lock()
	defer server.mu.Unlock()
	for _, conn := range server.clients {
		select {
		case conn.send <- payload:
		default:
		}
	}
}

func (server *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": server.ClientCount(),
	})
}

func (server *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toPayload(server.source.Config()))
}

func (server *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var patch configPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: "malformed config: " + err.Error()})
		return
	}
	config, err := patch.apply(server.source.Config())
	if err == nil {
		err = server.source.UpdateConfig(config)
	}
	if err != nil {
		var configErr *model.ConfigurationError
		if errors.As(err, &configErr) {
			writeJSON(w, http.StatusBadRequest, errorPayload{Error: configErr.Error(), Field: configErr.Field})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorPayload{Error: err.Error()})
		return
	}
	server.logger.Info("configuration updated", zap.Duration("dwell", config.DwellTime), zap.Float64("snap_radius", config.SnapRadius))
	writeJSON(w, http.StatusOK, toPayload(server.source.Config()))
}

func (server *Server) handleGaze(w http.ResponseWriter, r *http.Request) {
	var inbound inboundSample
	if err := json.NewDecoder(r.Body).Decode(&inbound); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: "malformed sample: " + err.Error()})
		return
	}
	err := server.ingest(inbound)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusAccepted)
	case errors.Is(err, gaze.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, errorPayload{Error: err.Error()})
	default:
		writeJSON(w, http.StatusBadRequest, errorPayload{Error: err.Error()})
	}
}

func (server *Server) ingest(inbound inboundSample) error {
	if inbound.X == nil || inbound.Y == nil {
		return fmt.Errorf("%w: missing coordinate", gaze.ErrInvalidSample)
	}
	return server.source.Ingest(gaze.Sample{
		X:          *inbound.X,
		Y:          *inbound.Y,
		At:         server.now(),
		Normalized: inbound.Normalized,
	})
}

func (server *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.upgrader.Upgrade(w, r, nil)
	if err != nil {
		server.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(maxMessageSize)

	peer := &client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, clientBuffer),
	}
	logger := server.logger.With(zap.String("client", peer.id), zap.String("remote", r.RemoteAddr))

	server.mu.Lock()
	server.clients[peer.id] = peer
	server.mu.Unlock()
	logger.Info("tracker connected")

	go server.writeLoop(peer, logger)
	server.sendTo(peer, outboundMessage{Type: messageHello, Client: peer.id})
	server.readLoop(peer, logger)

	server.unregister(peer.id)
	logger.Info("tracker disconnected")
}

func (server *Server) readLoop(peer *client, logger *zap.Logger) {
	for {
		_, data, err := peer.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		var inbound inboundSample
		if err := json.Unmarshal(data, &inbound); err != nil {
			server.sendTo(peer, outboundMessage{Type: messageError, Error: "malformed sample"})
			continue
		}
		err = server.ingest(inbound)
		if err != nil && !errors.Is(err, gaze.ErrRateLimited) {
			server.sendTo(peer, outboundMessage{Type: messageError, Error: err.Error()})
		}
	}
}

func (server *Server) writeLoop(peer *client, logger *zap.Logger) {
	defer peer.conn.Close()
	for payload := range peer.send {
		_ = peer.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := peer.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logger.Debug("websocket write failed", zap.Error(err))
			return
		}
	}
	_ = peer.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
}

func (server *Server) sendTo(peer *client, message outboundMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		return
	}
	server.mu.Lock()
	defer server.mu.Unlock()
	if _, ok := server.clients[peer.id]; !ok {
		return
	}
	select {
	case peer.send <- payload:
	default:
	}
}

func (server *Server) unregister(id string) {
	server.mu.Lock()
	defer server.mu.Unlock()
	if peer, ok := server.clients[id]; ok {
		delete(server.clients, id)
		close(peer.send)
	}
}

func (server *Server) closeClients() {
	server.mu.Lock()
	defer server.mu.Unlock()
	for id, peer := range server.clients {
		delete(server.clients, id)
		close(peer.send)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

var (
	_ dwell.FeedbackPort  = (*Server)(nil)
	_ activation.Observer = (*Server)(nil)
)
