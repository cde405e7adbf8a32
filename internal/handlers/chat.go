package handlers

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/example/unimart/internal/data"
	"github.com/example/unimart/internal/hub"
	"github.com/example/unimart/internal/middleware"
	"github.com/example/unimart/internal/models"
)

const wsUserKey = "ws_user_id"

// ChatHandler relays chat messages between connected users and serves
// conversation history.
type ChatHandler struct {
	messages *data.MessagesStore
	hub      *hub.Hub
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(messages *data.MessagesStore, h *hub.Hub) *ChatHandler {
	return &ChatHandler{messages: messages, hub: h}
}

// chatEvent is the inbound websocket payload.
type chatEvent struct {
	Receiver  string `json:"receiver"`
	Content   string `json:"content"`
	ProductID string `json:"product_id,omitempty"`
}

// chatPush is the outbound websocket payload.
type chatPush struct {
	Type string          `json:"type"`
	Data *models.Message `json:"data"`
}

// UpgradeGate rejects plain HTTP requests on the websocket route and
// pins the authenticated user onto the connection before the upgrade.
func (h *ChatHandler) UpgradeGate(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	}

	c.Locals(wsUserKey, user.ID.Hex())
	return c.Next()
}

// Websocket handles a chat connection: joining binds the connection to
// the authenticated user's room, then each inbound event persists a
// message and relays it to the receiver's and sender's connections.
func (h *ChatHandler) Websocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userHex, _ := conn.Locals(wsUserKey).(string)
		senderID, err := bson.ObjectIDFromHex(userHex)
		if err != nil {
			_ = conn.Close()
			return
		}

		connID := h.hub.Join(userHex, conn)
		defer h.hub.Leave(userHex, connID)

		for {
			var evt chatEvent
			if err := conn.ReadJSON(&evt); err != nil {
				return
			}
			h.relay(senderID, &evt)
		}
	})
}

// relay persists the message, then delivers it at most once per active
// connection. Offline receivers read it later from the history endpoint.
func (h *ChatHandler) relay(senderID bson.ObjectID, evt *chatEvent) {
	receiverID, err := bson.ObjectIDFromHex(evt.Receiver)
	if err != nil || evt.Content == "" {
		return
	}

	msg := &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    evt.Content,
	}
	if evt.ProductID != "" {
		if productID, err := bson.ObjectIDFromHex(evt.ProductID); err == nil {
			msg.ProductID = productID
		}
	}

	if err := h.messages.Create(context.Background(), msg); err != nil {
		log.Printf("failed to persist message from %s: %v", senderID.Hex(), err)
		return
	}

	push := chatPush{Type: "message", Data: msg}
	if err := h.hub.SendToUser(receiverID.Hex(), push); err != nil {
		log.Printf("receiver %s offline: %v", receiverID.Hex(), err)
	}
	if senderID != receiverID {
		// Echo to the sender's other devices.
		if err := h.hub.SendToUser(senderID.Hex(), push); err != nil {
			log.Printf("sender echo to %s failed: %v", senderID.Hex(), err)
		}
	}
}

// Conversation returns the message history between the caller and
// another user, oldest first.
func (h *ChatHandler) Conversation(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	}

	otherID, err := bson.ObjectIDFromHex(c.Params("userId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	messages, err := h.messages.Conversation(c.Context(), user.ID, otherID, 50)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": messages})
}
