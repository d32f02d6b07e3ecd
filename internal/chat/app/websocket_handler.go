package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"social_chat_sync/internal/chat/domain"
	"social_chat_sync/pkg/logger"
	"social_chat_sync/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const pingInterval = 10 * time.Minute

// ChatWebsocketHandler local UI bridge: every websocket connection is one signed-in session
type ChatWebsocketHandler struct {
	deps Dependencies
	opts []SessionOption
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(deps Dependencies, opts ...SessionOption) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		deps: deps,
		opts: opts,
	}
}

// wsWriter serializes writes; the dispatcher, the ping loop and the read loop all write
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) send(resp domain.WSResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Error("marshal websocket response", zap.Error(err))
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		logger.Log.Errorf("write message error:", err)
	}
}

func (w *wsWriter) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.PingMessage, []byte("ping message"))
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	actorID, _ := conn.Locals(middlewares.TokenActorID).(string)
	writer := &wsWriter{conn: conn}

	session, err := NewSession(actorID, h.deps, h.opts...)
	if err != nil {
		writer.send(errorResponse(err.Error()))
		conn.Close()
		return
	}

	ctxClose, cancel := context.WithCancel(ctx)
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
		cancel()
		session.Close()
		logger.Log.Info("websocket close", zap.String("actor", actorID))
		conn.Close()
	}()

	if err := session.Start(ctxClose); err != nil {
		logger.Log.Error("start session", zap.String("actor", actorID), zap.Error(err))
		writer.send(errorResponse(err.Error()))
		return
	}
	logger.Log.Info("websocket session started", zap.String("actor", actorID))

	// 目前對話畫面有變動就推送 snapshot
	unsubscribe := session.OnChange(func(key domain.ConversationKey) {
		if cur, ok := session.CurrentConversation(); ok && cur == key {
			writer.send(snapshotResponse(domain.ConversationUpdated, key, session.Load(key)))
		}
	})
	defer unsubscribe()

	//client發出ping
	//fiber會自動處理ping,故需要SetPingHandler另外接出
	conn.SetPingHandler(func(appData string) error {
		writer.mu.Lock()
		defer writer.mu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	// 定期發送 Ping
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := writer.ping(); err != nil {
					logger.Log.Errorf("Ping error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Info("connection closed", zap.String("actor", actorID))
			} else {
				//直接斷線 1006
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}

		if mt != websocket.TextMessage {
			writer.send(errorResponse("unsupported message type"))
			continue
		}

		var req domain.WSRequest
		if err := json.Unmarshal(message, &req); err != nil {
			writer.send(errorResponse("invalid json"))
			continue
		}
		writer.send(handleRequest(ctxClose, session, req))
	}
}

// handleRequest maps one UI action onto the session
func handleRequest(ctx context.Context, session *Session, req domain.WSRequest) domain.WSResponse {
	resp := domain.WSResponse{Action: req.Action, Payload: map[string]interface{}{}}

	key, hasKey := req.Key()
	if !hasKey {
		key, hasKey = session.CurrentConversation()
	}

	var err error
	switch domain.Action(req.Action) {
	//開啟對話：同步歷史訊息並標記已讀
	case domain.OpenConversation:
		if !hasKey {
			err = domain.ErrInvalidInput
			break
		}
		err = session.SetCurrentConversation(ctx, key)
		resp.Payload["conversation"] = key.String()
		resp.Payload["messages"] = session.Load(key)

	case domain.CloseConversation:
		session.ClearCurrentConversation()

	case domain.LoadConversation:
		if !hasKey {
			err = domain.ErrInvalidInput
			break
		}
		resp.Payload["conversation"] = key.String()
		resp.Payload["messages"] = session.Load(key)

	//傳送訊息
	case domain.SendMessage:
		if !hasKey {
			err = domain.ErrInvalidInput
			break
		}
		var msg domain.Message
		msg, err = session.Send(ctx, key, req.Content, req.MediaRef)
		if err == nil {
			resp.Payload["message"] = msg
		}

	case domain.DeleteMessage:
		err = session.Delete(ctx, req.MessageID)
		resp.Payload["message_id"] = req.MessageID

	case domain.ToggleReaction:
		var reactions domain.Reactions
		reactions, err = session.ToggleReaction(ctx, req.MessageID, req.Emoji)
		if err == nil {
			resp.Payload["message_id"] = req.MessageID
			resp.Payload["reactions"] = reactions
		}

	//讀取訊息 將未讀訊息改為已讀
	case domain.ReadMessage:
		err = session.SyncReadState(ctx)

	default:
		return errorResponse("unknown action " + req.Action)
	}

	if err != nil {
		logger.Log.Error("websocket err", zap.String("actor", session.ActorID()), zap.String("action", req.Action), zap.Error(err))
		resp.Error = err.Error()
		return resp
	}
	resp.Success = true
	return resp
}

func snapshotResponse(action domain.Action, key domain.ConversationKey, msgs []domain.Message) domain.WSResponse {
	return domain.WSResponse{
		Action:  string(action),
		Success: true,
		Payload: map[string]interface{}{
			"conversation": key.String(),
			"messages":     msgs,
		},
	}
}

func errorResponse(errorMsg string) domain.WSResponse {
	return domain.WSResponse{
		Action:  "error",
		Success: false,
		Payload: map[string]interface{}{
			"error": errorMsg,
		},
	}
}
