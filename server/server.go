package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/strangeindustries/scrumpoker/config"
	"github.com/strangeindustries/scrumpoker/logger"
	"github.com/strangeindustries/scrumpoker/monitor"
	"github.com/strangeindustries/scrumpoker/network"
	"github.com/strangeindustries/scrumpoker/room"
	"github.com/strangeindustries/scrumpoker/session"
)

// DefaultHeartbeat is the ping interval for idle sockets.
const DefaultHeartbeat = 30 * time.Second

// Reject reasons reported on the events_rejected metric.
const (
	rejectMalformed      = "malformed"
	rejectInvalidPayload = "invalid_payload"
	rejectUnknownType    = "unknown_type"
)

var errUnknownEvent = errors.New("unknown event type")

type handlerFunc func(sess *session.Session, frame *network.Frame) ([]room.Outbound, error)

type PokerServer struct {
	addr           string
	httpServer     *http.Server
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	monitor        *monitor.Monitor
	handlers       map[string]handlerFunc
	heartbeat      time.Duration
	idleTimeout    time.Duration
	connections    sync.WaitGroup
	stop           chan struct{}
	stopOnce       sync.Once
}

// NewPokerServer serves roomManager over WebSocket. Room output is delivered
// by the manager's sink; the server only reports it.
func NewPokerServer(cfg config.ServerConfig, roomManager *room.Manager, sessionManager *session.Manager,
	mon *monitor.Monitor) *PokerServer {
	s := &PokerServer{
		addr:           cfg.HTTPAddress,
		roomManager:    roomManager,
		sessionManager: sessionManager,
		monitor:        mon,
		heartbeat:      DefaultHeartbeat,
		idleTimeout:    cfg.IdleTimeout,
		stop:           make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}

	s.handlers = map[string]handlerFunc{
		network.MsgTypeJoinRoom:          s.handleJoinRoom,
		network.MsgTypeUpdateName:        s.handleUpdateName,
		network.MsgTypeToggleScrumMaster: s.handleToggleScrumMaster,
		network.MsgTypeCastVote:          s.handleCastVote,
		network.MsgTypeStartNewRound:     s.handleStartNewRound,
	}

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// SetHeartbeat changes the ping interval for connections accepted afterwards.
// Zero disables pings and read deadlines.
func (s *PokerServer) SetHeartbeat(interval time.Duration) {
	s.heartbeat = interval
}

// originChecker accepts requests without an Origin header (non-browser
// clients), any origin when "*" is configured, and otherwise only exact
// case-insensitive matches.
func originChecker(allowed []string) func(r *http.Request) bool {
	allowAll := lo.Contains(allowed, "*")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		return lo.ContainsBy(allowed, func(o string) bool {
			return strings.EqualFold(o, origin)
		})
	}
}

// Handler returns the HTTP routes: the socket, health, metrics and room list.
func (s *PokerServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	mux.Handle("GET /metrics", s.monitor.Handler())
	return mux
}

// Start serves until Shutdown. It returns nil after a clean shutdown.
func (s *PokerServer) Start() error {
	if s.idleTimeout > 0 {
		go s.reapIdle(s.stop)
	}
	logger.Log.Infof("Poker server listening on %s", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, closes every open socket and waits
// for their disconnect handling to finish or ctx to expire.
func (s *PokerServer) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	err := s.httpServer.Shutdown(ctx)
	s.sessionManager.CloseAll()

	done := make(chan struct{})
	go func() {
		s.connections.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		err = errors.Join(err, ctx.Err())
	}
	return err
}

func (s *PokerServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"status": "ok", "rooms": s.roomManager.Count()})
}

func (s *PokerServer) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.roomManager.List())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Warnw("write response failed", "error", err)
	}
}

func (s *PokerServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.connections.Add(1)
	defer s.connections.Done()
	s.handleConnection(conn)
}

func (s *PokerServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(room.ParticipantID(uuid.NewString()), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncConnectedSessions()

	logger.Log.Infow("connection opened", "remote", wsConn.RemoteAddr().String(), "participant", sess.GetID())

	stopPing := make(chan struct{})
	if s.heartbeat > 0 {
		wsConn.SetHeartbeat(s.heartbeat)
		go s.keepAlive(sess, stopPing)
	}

	defer func() {
		close(stopPing)
		s.sessionManager.Remove(sess.GetID())
		s.record(s.roomManager.Disconnect(sess.GetID()))
		_ = wsConn.Close()
		s.monitor.DecConnectedSessions()
		s.monitor.SetActiveRooms(s.roomManager.Count())
		logger.Log.Infow("connection closed", "remote", wsConn.RemoteAddr().String(), "participant", sess.GetID())
	}()

	for {
		frame, err := wsConn.ReadFrame()
		if err != nil {
			if errors.Is(err, network.ErrMalformedFrame) {
				s.reject(sess, rejectMalformed, err)
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Debugw("read failed", "participant", sess.GetID(), "error", err)
			}
			return
		}
		sess.Touch()
		s.handleFrame(sess, frame)
	}
}

func (s *PokerServer) keepAlive(sess *session.Session, stop <-chan struct{}) {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := sess.Conn.Ping(); err != nil {
				return
			}
		}
	}
}

// reapIdle closes sessions that have sent nothing for idleTimeout. Their read
// loops then leave every room as on any other disconnect.
func (s *PokerServer) reapIdle(stop <-chan struct{}) {
	ticker := time.NewTicker(s.idleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if n := s.sessionManager.CloseIdle(now.Add(-s.idleTimeout)); n > 0 {
				logger.Log.Infow("closed idle sessions", "count", n, "idle_timeout", s.idleTimeout.String())
			}
		}
	}
}

func (s *PokerServer) handleFrame(sess *session.Session, frame *network.Frame) {
	start := time.Now()

	handler, ok := s.handlers[frame.Type]
	if !ok {
		s.reject(sess, rejectUnknownType, fmt.Errorf("%w: %q", errUnknownEvent, frame.Type))
		return
	}
	s.monitor.IncEventsReceived(frame.Type)

	out, err := handler(sess, frame)
	if err != nil {
		s.reject(sess, rejectInvalidPayload, err)
		return
	}

	s.record(out)
	s.monitor.SetActiveRooms(s.roomManager.Count())
	s.monitor.ObserveEventLatency(time.Since(start))
}

// reject tells the sender its frame was refused. Room state is untouched.
func (s *PokerServer) reject(sess *session.Session, reason string, cause error) {
	s.monitor.IncEventsRejected(reason)
	logger.Log.Debugw("frame rejected", "participant", sess.GetID(), "reason", reason, "error", cause)

	data, err := network.EncodeFrame(network.MsgTypeError, network.ErrorMessage{Message: cause.Error()})
	if err != nil {
		return
	}
	if err := sess.Send(data); err != nil {
		logger.Log.Debugw("send error frame failed", "participant", sess.GetID(), "error", err)
	}
}

// record counts delivered room output.
func (s *PokerServer) record(out []room.Outbound) {
	for _, o := range out {
		s.monitor.AddMessagesSent(o.Message.Type(), len(o.Recipients))
		switch o.Message.(type) {
		case room.VotesRevealed:
			s.monitor.IncRoundsRevealed()
		case room.RoomFull:
			s.monitor.IncRoomFull()
		}
	}
}

func (s *PokerServer) handleJoinRoom(sess *session.Session, frame *network.Frame) ([]room.Outbound, error) {
	var req network.JoinRoomRequest
	if err := network.DecodePayload(frame, &req); err != nil {
		return nil, err
	}
	out, err := s.roomManager.Join(req.RoomID, sess.GetID(), req.Name)
	if errors.Is(err, room.ErrRoomFull) {
		logger.Log.Infow("join rejected", "room", req.RoomID, "participant", sess.GetID(), "error", err)
		return out, nil
	}
	return out, err
}

func (s *PokerServer) handleUpdateName(sess *session.Session, frame *network.Frame) ([]room.Outbound, error) {
	var req network.UpdateNameRequest
	if err := network.DecodePayload(frame, &req); err != nil {
		return nil, err
	}
	return s.roomManager.UpdateName(req.RoomID, sess.GetID(), req.NewName), nil
}

func (s *PokerServer) handleToggleScrumMaster(sess *session.Session, frame *network.Frame) ([]room.Outbound, error) {
	var req network.ToggleScrumMasterRequest
	if err := network.DecodePayload(frame, &req); err != nil {
		return nil, err
	}
	return s.roomManager.ToggleScrumMaster(req.RoomID, sess.GetID()), nil
}

func (s *PokerServer) handleCastVote(sess *session.Session, frame *network.Frame) ([]room.Outbound, error) {
	var req network.CastVoteRequest
	if err := network.DecodePayload(frame, &req); err != nil {
		return nil, err
	}
	return s.roomManager.CastVote(req.RoomID, sess.GetID(), req.Vote), nil
}

func (s *PokerServer) handleStartNewRound(_ *session.Session, frame *network.Frame) ([]room.Outbound, error) {
	var req network.StartNewRoundRequest
	if err := network.DecodePayload(frame, &req); err != nil {
		return nil, err
	}
	return s.roomManager.StartNewRound(req.RoomID), nil
}
