package api

import (
	"cmp"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lewisedginton/mood_mate/internal/chat"
	"github.com/lewisedginton/mood_mate/pkg/logger"
)

const (
	socketWriteTimeout = 10 * time.Second
	socketReadLimit    = 64 << 10
)

// socketFrame is one inbound chat message. SessionID defaults to the sessionId
// query parameter of the upgrade request.
type socketFrame struct {
	SessionID string          `json:"sessionId,omitempty"`
	Message   string          `json:"message"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

// chatSocket answers every text frame the same way POST /api/chat/message would.
// Errors are sent back as {error} frames and the connection stays open.
func (a *API) chatSocket(w http.ResponseWriter, r *http.Request) {
	if !a.trackSocket() {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Server is shutting down"})
		return
	}
	defer a.sockets.Done()

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client
		logger.FromContext(r.Context(), a.log).Warn("WebSocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	querySession := r.URL.Query().Get("sessionId")
	log := logger.FromContext(r.Context(), a.log).WithFields(logger.SessionIDField(querySession))
	log.Debug("WebSocket connected")

	var writeMu sync.Mutex
	send := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
		return conn.WriteJSON(v)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-a.done:
			writeMu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"),
				time.Now().Add(time.Second))
			writeMu.Unlock()
			_ = conn.Close()
		case <-stop:
		}
	}()

	conn.SetReadLimit(socketReadLimit)
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("WebSocket closed unexpectedly", logger.ErrorField(err))
			}
			log.Debug("WebSocket disconnected")
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var reply any
		var frame socketFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			reply = errorResponse{Error: msgInvalidJSON}
		} else {
			reply = a.socketReply(r, frame, querySession)
		}
		if err := send(reply); err != nil {
			log.Warn("WebSocket write failed", logger.ErrorField(err))
			return
		}
	}
}

// trackSocket registers a connection unless CloseSockets has already run.
func (a *API) trackSocket() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	select {
	case <-a.done:
		return false
	default:
	}
	a.sockets.Add(1)
	return true
}

func (a *API) socketReply(r *http.Request, frame socketFrame, querySession string) any {
	result, err := a.chat.SendMessage(r.Context(), chat.SendRequest{
		SessionID: cmp.Or(frame.SessionID, querySession),
		Message:   frame.Message,
		Timestamp: frame.Timestamp,
	})
	if err != nil {
		status, body := errorStatus(err)
		if status == http.StatusInternalServerError {
			a.log.Error("WebSocket message failed", logger.ErrorField(err))
		}
		return body
	}
	return sendMessageResponse{Success: true, SendResult: result}
}
