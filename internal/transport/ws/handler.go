package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"e2ee-chat/internal/domain"
	"e2ee-chat/internal/dto"
	"e2ee-chat/internal/observability/metrics"
	"e2ee-chat/internal/relay"
	"e2ee-chat/internal/service"

	"github.com/gorilla/websocket"
)

// SessionCookie carries the signed session token issued at login.
const SessionCookie = "session_id"

type Handler struct {
	router     *relay.Router
	auth       *service.AuthService
	handshakes *service.HandshakeService
	messages   *service.MessageService
	upgrader   websocket.Upgrader
}

func NewHandler(router *relay.Router, auth *service.AuthService, handshakes *service.HandshakeService, messages *service.MessageService, allowedOrigins []string) *Handler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return &Handler{
		router:     router,
		auth:       auth,
		handshakes: handshakes,
		messages:   messages,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
	}
}

// HandleWS authenticates the session cookie and, only then, upgrades the
// connection and binds it to the user's inbox room. There is no
// unauthenticated relay state to linger in: no cookie, no connection.
func (h *Handler) HandleWS(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	usr, err := h.auth.ResolveSession(r.Context(), cookie.Value)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws: upgrade failed", "error", err)
		return
	}

	client := relay.NewClient(h.router, conn, usr.ID)
	h.router.Register(client)
	client.Join(domain.UserRoom(usr.ID))

	go client.WritePump()
	go client.ReadPump(h.dispatch)

	// Rehydrate the inbox: pending key exchanges are replayed on every
	// connect so a reconnecting client misses nothing.
	if err := h.handshakes.AnnouncePending(context.Background(), client); err != nil {
		slog.Error("ws: announce pending exchanges", "user_id", usr.ID, "error", err)
	}
	slog.Info("ws: connection established", "user_id", usr.ID)
}

// dispatch routes one inbound frame. Malformed frames and duplicate
// handshake operations are dropped without a reply; authorization
// violations cost the connection its life.
func (h *Handler) dispatch(c *relay.Client, raw []byte) {
	var env dto.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		metrics.WSEventsTotal.WithLabelValues("invalid", "malformed").Inc()
		return
	}

	ctx := context.Background()
	var err error

	switch env.Event {
	case dto.EventConnectedChats:
		err = h.handshakes.ConnectedChats(ctx, c)

	case dto.EventConnectChat:
		err = h.connectChat(ctx, c, env.Data)

	case dto.EventKeyExchangeRequest:
		var req dto.KeyExchangeRequest
		if err = decode(env.Data, &req); err == nil {
			err = h.handshakes.Request(ctx, c, req)
		}

	case dto.EventKeyExchangeSuccess:
		var req dto.KeyExchangeAccept
		if err = decode(env.Data, &req); err == nil {
			err = h.handshakes.Accept(ctx, c, req)
		}

	case dto.EventKeyExchangeRequests:
		err = h.handshakes.AnnouncePending(ctx, c)

	case dto.EventGetHistory:
		var req dto.GetHistory
		if err = decode(env.Data, &req); err == nil {
			var history dto.MessageHistory
			if history, err = h.messages.History(ctx, c, req.ChatID); err == nil {
				c.Send(dto.EventMessageHistory, history)
			}
		}

	case dto.EventSendMessage:
		var req dto.SendMessage
		if err = decode(env.Data, &req); err == nil {
			err = h.messages.Send(ctx, c, req)
		}

	default:
		metrics.WSEventsTotal.WithLabelValues("unknown", "ignored").Inc()
		return
	}

	switch {
	case err == nil:
		metrics.WSEventsTotal.WithLabelValues(env.Event, "success").Inc()
	case service.Ignorable(err):
		metrics.WSEventsTotal.WithLabelValues(env.Event, "ignored").Inc()
	case service.Violation(err):
		metrics.WSEventsTotal.WithLabelValues(env.Event, "forbidden").Inc()
		slog.Warn("ws: authorization violation, closing connection",
			"user_id", c.UserID(), "event", env.Event, "error", err)
		c.Close()
	default:
		metrics.WSEventsTotal.WithLabelValues(env.Event, "error").Inc()
		slog.Error("ws: event failed", "user_id", c.UserID(), "event", env.Event, "error", err)
	}
}

// connectChat proves membership, joins the chat room, and replays the
// room's history into it.
func (h *Handler) connectChat(ctx context.Context, c *relay.Client, data json.RawMessage) error {
	var req dto.ConnectChat
	if err := decode(data, &req); err != nil {
		return err
	}
	history, err := h.messages.History(ctx, c, req.ChatID)
	if err != nil {
		return err
	}
	c.Join(domain.ChatRoom(req.ChatID))
	h.router.Publish(domain.ChatRoom(req.ChatID), dto.EventMessageHistory, history)
	return nil
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return service.ErrMalformedRequest
	}
	if err := json.Unmarshal(data, v); err != nil {
		return service.ErrMalformedRequest
	}
	return nil
}
