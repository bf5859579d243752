// internal/handlers/game_ws.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/middleware"
	"github.com/sirupsen/logrus"
)

// GameMessage is an incoming websocket message. Index is used by play_card, Color by choose_color.
type GameMessage struct {
	Type  string `json:"type"`
	Index *int   `json:"index,omitempty"`
	Color string `json:"color,omitempty"`
}

// StateMessage carries a full snapshot to the client.
type StateMessage struct {
	Type  string         `json:"type"`
	State game.GameState `json:"state"`
}

var errMissingIndex = errors.New("play_card requires an index")

// GameWSHandler upgrades the HTTP connection to WebSocket for a specific game instance.
// One connection drives both seats. The handler pushes a snapshot on connect, after every
// message, and whenever the frame ticker changes the state.
func GameWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, ok := gs.lookupGame(w, strings.TrimPrefix(r.URL.Path, "/game/ws/"))
		if !ok || !gs.authorize(w, r, g.ID) {
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"game"},
			OriginPatterns: originPatterns(gs.AllowedOrigins),
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for game %s: %v", g.ID, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "game" {
			logger.Warnf("Client for game %s connected with invalid subprotocol: %q", g.ID, c.Subprotocol())
			c.Close(websocket.StatusCode(BadSubprotocolError), "Client must use the 'game' subprotocol.")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sess := &wsSession{
			conn:   c,
			g:      g,
			gs:     gs,
			logger: logger.WithField("game_id", g.ID),
		}
		if err := sess.pushState(ctx, true); err != nil {
			middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)
			return
		}

		rate := gs.TickRate
		if rate <= 0 {
			rate = DefaultTickRate
		}
		go sess.runFrames(ctx, rate)

		err = sess.readLoop(ctx)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)
		if err == nil {
			c.Close(websocket.StatusNormalClosure, "")
		}
	}
}

// wsSession is one websocket connection driving one game.
type wsSession struct {
	conn   *websocket.Conn
	g      *game.UnoGame
	gs     *GameServer
	logger *logrus.Entry

	// mu orders snapshot writes; it is always taken before g.Mu.
	mu       sync.Mutex
	lastSent []byte
}

// runFrames is the frame loop: it advances the game clock and pushes the state when it changes.
func (s *wsSession) runFrames(ctx context.Context, rate time.Duration) {
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, ok := s.gs.GameStore.GetGame(s.g.ID); !ok {
				s.logger.Info("game removed, closing websocket")
				s.conn.Close(websocket.StatusCode(InvalidGameIDError), "Game no longer exists.")
				return
			}
			s.gs.Touch(s.g.ID)

			s.g.Mu.Lock()
			s.g.Tick(now)
			s.g.Mu.Unlock()

			if err := s.pushState(ctx, false); err != nil {
				s.logger.WithError(err).Debug("frame loop stopped")
				return
			}
		}
	}
}

// readLoop reads client messages and routes them to the game until the connection closes.
// It returns nil on a normal closure.
func (s *wsSession) readLoop(ctx context.Context) error {
	for {
		msgType, data, err := s.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if msgType != websocket.MessageText {
			s.logger.Warnf("Received non-text message type %d. Ignoring.", msgType)
			continue
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warnf("Invalid JSON received: %v. Data: %s", err, string(data))
			s.sendError(ctx, "Invalid JSON format.")
			continue
		}
		s.logger.Debugf("Received action '%s'", msg.Type)

		if msg.Type == "ping" {
			s.send(ctx, map[string]string{"type": "pong"})
			continue
		}

		s.gs.Touch(s.g.ID)
		if err := s.apply(msg); err != nil {
			s.sendError(ctx, err.Error())
		}
		if err := s.pushState(ctx, false); err != nil {
			return err
		}
	}
}

// apply routes one action to the game under its lock.
func (s *wsSession) apply(msg GameMessage) error {
	s.g.Mu.Lock()
	defer s.g.Mu.Unlock()

	switch msg.Type {
	case "play_card":
		if msg.Index == nil {
			return errMissingIndex
		}
		return s.g.PlayCard(*msg.Index)
	case "draw_card":
		return s.g.DrawCard()
	case "choose_color":
		return s.g.ChooseColor(game.Color(strings.ToLower(strings.TrimSpace(msg.Color))))
	case "reset":
		s.g.Reset()
		return nil
	default:
		return fmt.Errorf("unknown action type: %s", msg.Type)
	}
}

// pushState sends the current snapshot unless it is identical to the last one sent.
func (s *wsSession) pushState(ctx context.Context, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.g.Mu.Lock()
	state := s.g.Snapshot()
	s.g.Mu.Unlock()

	data, err := json.Marshal(StateMessage{Type: "state", State: state})
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if !force && bytes.Equal(data, s.lastSent) {
		return nil
	}
	if err := s.write(ctx, data); err != nil {
		return err
	}
	s.lastSent = data
	return nil
}

// send marshals a message and writes it, logging failures.
func (s *wsSession) send(ctx context.Context, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		s.logger.Errorf("Error marshaling WebSocket message: %v", err)
		return
	}
	if err := s.write(ctx, data); err != nil {
		s.logger.Warnf("Error writing WebSocket message: %v", err)
	}
}

// sendError sends a structured error message to the client.
func (s *wsSession) sendError(ctx context.Context, errorMsg string) {
	s.send(ctx, map[string]interface{}{
		"type":    "error",
		"message": errorMsg,
	})
}

// write sends data with a 5s timeout.
func (s *wsSession) write(ctx context.Context, data []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// originPatterns turns CORS origins ("https://ui.example") into the host patterns websocket.Accept matches.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" || !strings.Contains(o, "://") {
			patterns = append(patterns, o)
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		patterns = append(patterns, u.Host)
	}
	return patterns
}
