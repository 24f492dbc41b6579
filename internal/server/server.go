// Package server exposes the status service over HTTP and WebSocket.
// All control routes require a bearer token; only the liveness and
// health endpoints are open.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	apperrors "discord-statuskeeper/internal/errors"
	"discord-statuskeeper/internal/interfaces"
	"discord-statuskeeper/internal/status"

	"github.com/gorilla/websocket"
)

type Config struct {
	Addr      string
	AuthToken string
	Service   interfaces.StatusService

	// BotStatus reports the chat client's connection state for /health.
	BotStatus func() string

	StartedAt time.Time
}

type Server struct {
	cfg      Config
	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

func New(cfg Config) *Server {
	s := &Server{cfg: cfg}
	s.httpSrv = &http.Server{
		Addr:    cfg.Addr,
		Handler: s.Handler(),
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleGetStatus)
	mux.HandleFunc("/set-status", s.handleSetStatus)
	mux.HandleFunc("/remove-status", s.handleRemoveStatus)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Start runs the HTTP server in a background goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("🌐 HTTP server listening on %s", s.cfg.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("❌ HTTP server error: %v", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// authorize checks the bearer token. An empty configured token means the
// control surface is disabled entirely rather than running open.
func (s *Server) authorize(r *http.Request) bool {
	if s.cfg.AuthToken == "" {
		return false
	}
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
	return token != "" && token == s.cfg.AuthToken
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	fmt.Fprint(w, "Discord status keeper is running.")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	botStatus := "unknown"
	if s.cfg.BotStatus != nil {
		botStatus = s.cfg.BotStatus()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"message":   "Discord status keeper is running.",
		"botStatus": botStatus,
		"uptime":    time.Since(s.cfg.StartedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	st, ok := s.cfg.Service.Desired()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"set": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"set": true, "status": st})
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var payload statusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid JSON body"})
		return
	}
	st, err := payload.toStatus()
	if err == nil {
		err = s.cfg.Service.SetDesired(st)
	}
	if err != nil {
		writeJSON(w, statusCodeFor(err), map[string]any{"ok": false, "error": errorMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": st})
}

func (s *Server) handleRemoveStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := s.cfg.Service.Clear(); err != nil {
		writeJSON(w, statusCodeFor(err), map[string]any{"ok": false, "error": errorMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": status.Cleared()})
}

// --- WebSocket surface ---

type wsRequest struct {
	Action string         `json:"action"`
	Status *statusPayload `json:"status,omitempty"`
}

type wsResponse struct {
	OK     bool                  `json:"ok"`
	Action string                `json:"action,omitempty"`
	Status *status.DesiredStatus `json:"status,omitempty"`
	Error  string                `json:"error,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Println("🔗 ws: client connected")
	defer func() {
		log.Println("🔗 ws: client disconnecting")
		_ = conn.Close()
	}()

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		resp := s.handleWSMessage(req)
		if err := conn.WriteJSON(resp); err != nil {
			log.Printf("❌ ws: write error: %v", err)
			return
		}
	}
}

func (s *Server) handleWSMessage(req wsRequest) wsResponse {
	switch req.Action {
	case "setStatus":
		if req.Status == nil {
			return wsResponse{Action: req.Action, Error: "status is required"}
		}
		st, err := req.Status.toStatus()
		if err == nil {
			err = s.cfg.Service.SetDesired(st)
		}
		if err != nil {
			return wsResponse{Action: req.Action, Error: errorMessage(err)}
		}
		return wsResponse{OK: true, Action: req.Action, Status: &st}
	case "removeStatus":
		if err := s.cfg.Service.Clear(); err != nil {
			return wsResponse{Action: req.Action, Error: errorMessage(err)}
		}
		cleared := status.Cleared()
		return wsResponse{OK: true, Action: req.Action, Status: &cleared}
	case "getStatus":
		st, ok := s.cfg.Service.Desired()
		if !ok {
			return wsResponse{OK: true, Action: req.Action}
		}
		return wsResponse{OK: true, Action: req.Action, Status: &st}
	default:
		return wsResponse{Action: req.Action, Error: fmt.Sprintf("unknown action %q", req.Action)}
	}
}

// --- helpers ---

// statusPayload is the wire shape shared by the HTTP body and WS message.
type statusPayload struct {
	ActivityType string `json:"activityType"`
	Text         string `json:"text,omitempty"`
	URL          string `json:"url,omitempty"`
	AboutMeText  string `json:"aboutMeText,omitempty"`
}

func (p statusPayload) toStatus() (status.DesiredStatus, error) {
	activityType, err := status.ParseActivityType(p.ActivityType)
	if err != nil {
		return status.DesiredStatus{}, err
	}
	return status.DesiredStatus{
		ActivityType: activityType,
		Text:         p.Text,
		URL:          p.URL,
		AboutMeText:  p.AboutMeText,
	}, nil
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func statusCodeFor(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case apperrors.ErrTypeValidation:
			return http.StatusBadRequest
		case apperrors.ErrTypeRemote:
			return http.StatusBadGateway
		}
	}
	return http.StatusInternalServerError
}

func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Type == apperrors.ErrTypeRemote && appErr.Cause != nil {
			return fmt.Sprintf("%s (%v)", appErr.UserFriendly, appErr.Cause)
		}
		return appErr.UserFriendly
	}
	return err.Error()
}
