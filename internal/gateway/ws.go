package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/flemzord/tdsta/internal/knowledge"
	"github.com/flemzord/tdsta/internal/security"
)

const wsWriteTimeout = 10 * time.Second

// Websocket frame types sent by the server.
const (
	wsTypeAnswer = "answer"
	wsTypeError  = "error"
)

// Request frames use the POST /api/ body plus an optional "id" echoed back
// in the reply.
type wsAnswer struct {
	Type   string           `json:"type"`
	ID     string           `json:"id,omitempty"`
	Answer string           `json:"answer"`
	Links  []knowledge.Link `json:"links"`
}

type wsError struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Detail string `json:"detail"`
}

// handleWebSocket answers one question per text frame until the client
// closes the connection.
func (g *Gateway) handleWebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns(g.config.CORS.AllowedOrigins),
		})
		if err != nil {
			g.logger.Warn("websocket accept failed", "error", err)
			return
		}
		defer func() {
			_ = conn.Close(websocket.StatusInternalError, "unexpected close")
		}()
		conn.SetReadLimit(g.config.MaxBodySize)

		g.logger.Debug("websocket connected", "remote_addr", r.RemoteAddr)
		g.readLoop(r.Context(), conn, clientIP(r))
	}
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, remote string) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && !errors.Is(err, context.Canceled) {
				g.logger.Debug("websocket read ended", "remote_addr", remote, "error", err)
			}
			return
		}
		if typ != websocket.MessageText {
			g.send(ctx, conn, wsError{Type: wsTypeError, Detail: "text frames only"})
			continue
		}

		var envelope struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(data, &envelope)

		if err := g.limiter.AllowKey(security.BucketQuestion, remote); err != nil {
			g.audit.Log(security.AuditEvent{
				Type:       security.EventRateLimit,
				RemoteAddr: remote,
				Path:       "/ws",
				Detail:     security.BucketQuestion,
			})
			g.send(ctx, conn, wsError{Type: wsTypeError, ID: envelope.ID, Detail: "Too many requests"})
			continue
		}

		question, image, err := g.parseQuestion(data)
		if err != nil {
			g.send(ctx, conn, wsError{Type: wsTypeError, ID: envelope.ID, Detail: err.Error()})
			continue
		}

		ans := g.answerer.Process(ctx, question, image)
		links := ans.Links
		if links == nil {
			links = []knowledge.Link{}
		}
		g.send(ctx, conn, wsAnswer{Type: wsTypeAnswer, ID: envelope.ID, Answer: ans.Answer, Links: links})
	}
}

func (g *Gateway) send(ctx context.Context, conn *websocket.Conn, reply any) {
	data, err := json.Marshal(reply)
	if err != nil {
		g.logger.Error("websocket encode failed", "error", err)
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		g.logger.Debug("websocket write failed", "error", err)
	}
}

// originPatterns turns CORS origins into host patterns for the websocket
// origin check.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if _, host, ok := strings.Cut(o, "://"); ok {
			o = host
		}
		out = append(out, o)
	}
	return out
}
