package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/roi-insights/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// startTimeout bounds the wait for the client's start message
const startTimeout = 10 * time.Second

// Analysis stream message types
const (
	MessageStart    = "start"
	MessageProgress = "progress"
	MessageResult   = "result"
	MessageError    = "error"
)

// AnalysisMessage is exchanged over the analysis websocket. The client sends
// one start message, optionally carrying responses; the server answers with
// progress messages followed by a single result or error.
type AnalysisMessage struct {
	Type      string                  `json:"type"`
	Responses models.AnswerSet        `json:"responses,omitempty"`
	Stage     string                  `json:"stage,omitempty"`
	Message   string                  `json:"message,omitempty"`
	Code      string                  `json:"code,omitempty"`
	Result    *models.AnalyzeResponse `json:"result,omitempty"`
}

func (s *Server) handleAnalysisWS(w http.ResponseWriter, r *http.Request) {
	name := surveyName(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("analysis websocket connected", "survey", name)

	conn.SetReadDeadline(time.Now().Add(startTimeout))
	var start AnalysisMessage
	if err := conn.ReadJSON(&start); err != nil || start.Type != MessageStart {
		s.sendAnalysisMessage(conn, &sync.Mutex{}, AnalysisMessage{
			Type:    MessageError,
			Code:    "invalid_request",
			Message: "expected a start message",
		})
		return
	}
	conn.SetReadDeadline(time.Time{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var writeMu sync.Mutex
	var wg sync.WaitGroup

	// A closed socket cancels the analysis
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	resp, err := s.surveys.Analyze(ctx, name, start.Responses, func(p models.AnalysisProgress) {
		s.sendAnalysisMessage(conn, &writeMu, AnalysisMessage{
			Type:    MessageProgress,
			Stage:   p.Stage,
			Message: p.Message,
		})
	})

	if err != nil {
		_, code, message := classifyError(err)
		if message == "" {
			slog.Error("analysis stream failed", "survey", name, "error", err)
			message = "failed to analyze survey"
		}
		s.sendAnalysisMessage(conn, &writeMu, AnalysisMessage{Type: MessageError, Code: code, Message: message})
	} else {
		s.sendAnalysisMessage(conn, &writeMu, AnalysisMessage{Type: MessageResult, Result: resp})
	}

	writeMu.Lock()
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	writeMu.Unlock()

	// unblock the reader if the peer never answers the close
	conn.SetReadDeadline(time.Now().Add(time.Second))
	wg.Wait()
	slog.Info("analysis websocket disconnected", "survey", name)
}

func (s *Server) sendAnalysisMessage(conn *websocket.Conn, mu *sync.Mutex, msg AnalysisMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal analysis message", "error", err)
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send analysis message", "error", err)
		return err
	}
	return nil
}
