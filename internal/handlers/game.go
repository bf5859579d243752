// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/middleware"
)

const (
	defaultResultsLimit = 20
	maxResultsLimit     = 100
)

// CreateGameRequest is the body of POST /game/create.
type CreateGameRequest struct {
	Players    []string               `json:"players"`
	HouseRules map[string]interface{} `json:"houseRules,omitempty"`
}

// Routes registers the game endpoints on a new mux, each wrapped with the request logger.
func (gs *GameServer) Routes() http.Handler {
	logged := middleware.LogMiddleware(gs.Logger)

	mux := http.NewServeMux()
	mux.Handle("/game/create", logged(http.HandlerFunc(gs.handleCreateGame)))
	mux.Handle("/game/state/", logged(http.HandlerFunc(gs.handleGameState)))
	mux.Handle("/game/results", logged(http.HandlerFunc(gs.handleListResults)))
	mux.Handle("/game/ws/", logged(GameWSHandler(gs.Logger, gs)))
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})
	return mux
}

// handleCreateGame creates a new in-memory game for two players.
func (gs *GameServer) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateGameRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
	}

	names, err := playerNames(req.Players)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rules, err := game.ParseRules(req.HouseRules, game.DefaultHouseRules())
	if err != nil {
		http.Error(w, "invalid house rules: "+err.Error(), http.StatusBadRequest)
		return
	}

	g := gs.NewUnoGame(names, rules)
	resp := map[string]interface{}{
		"game_id": g.ID,
	}
	if gs.Tokens != nil {
		token, err := gs.Tokens.Issue(g.ID)
		if err != nil {
			gs.GameStore.DeleteGame(g.ID)
			gs.Logger.WithError(err).Error("failed to issue game token")
			http.Error(w, "failed to issue game token", http.StatusInternalServerError)
			return
		}
		resp["token"] = token
	}
	writeJSON(w, http.StatusOK, resp)
}

// playerNames validates the requested names, defaulting to "Player 1" and "Player 2".
func playerNames(in []string) ([2]string, error) {
	names := [2]string{"Player 1", "Player 2"}
	if len(in) == 0 {
		return names, nil
	}
	if len(in) != 2 {
		return names, errors.New("exactly two players are required")
	}
	for i, n := range in {
		n = strings.TrimSpace(n)
		if n == "" {
			return names, errors.New("player names must not be empty")
		}
		if len(n) > 32 {
			return names, errors.New("player names must be at most 32 characters")
		}
		names[i] = n
	}
	return names, nil
}

// handleGameState returns a snapshot of /game/state/{id}. Polling clients drive the clock through it.
func (gs *GameServer) handleGameState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	g, ok := gs.lookupGame(w, strings.TrimPrefix(r.URL.Path, "/game/state/"))
	if !ok || !gs.authorize(w, r, g.ID) {
		return
	}

	gs.Touch(g.ID)
	g.Mu.Lock()
	g.Tick(time.Now())
	state := g.Snapshot()
	g.Mu.Unlock()

	writeJSON(w, http.StatusOK, state)
}

// handleListResults returns the most recent archived results.
func (gs *GameServer) handleListResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if gs.Archive == nil {
		http.Error(w, "results archive unavailable", http.StatusServiceUnavailable)
		return
	}

	limit := defaultResultsLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxResultsLimit)
	}

	results, err := gs.Archive.RecentResults(r.Context(), limit)
	if err != nil {
		gs.Logger.WithError(err).Error("failed to list results")
		http.Error(w, "failed to list results", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
	})
}

// lookupGame parses id and finds the live game, writing the HTTP error itself when it cannot.
func (gs *GameServer) lookupGame(w http.ResponseWriter, id string) (*game.UnoGame, bool) {
	id = strings.Trim(id, "/")
	if id == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return nil, false
	}
	gameID, err := uuid.Parse(id)
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return nil, false
	}
	g, ok := gs.GameStore.GetGame(gameID)
	if !ok {
		http.Error(w, "game not found", http.StatusNotFound)
		return nil, false
	}
	return g, true
}

// authorize checks the game token from ?token= or an Authorization bearer header.
// Every request passes when the server issues no tokens.
func (gs *GameServer) authorize(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) bool {
	if gs.Tokens == nil {
		return true
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		http.Error(w, "missing game token", http.StatusUnauthorized)
		return false
	}
	if err := gs.Tokens.Verify(token, gameID); err != nil {
		gs.Logger.WithError(err).WithField("game_id", gameID).Debug("rejected game token")
		http.Error(w, "invalid game token", http.StatusForbidden)
		return false
	}
	return true
}
