package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	chat "github.com/dddd2356/sunhan-websocket-backend/domain/chat"
	"github.com/dddd2356/sunhan-websocket-backend/modules/attachments"
	"github.com/dddd2356/sunhan-websocket-backend/modules/broadcast"
	"github.com/dddd2356/sunhan-websocket-backend/modules/directory"
	"github.com/dddd2356/sunhan-websocket-backend/modules/messages"
)

const (
	maxRoomNameLength = 100
	maxMessageLength  = 4096
	defaultPageSize   = 20
	maxPageSize       = 100
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes() {
	// Health check
	m.app.Get("/health", m.healthHandler)

	// Token issuance (demo-grade: no credential check)
	m.app.Post("/api/v1/auth/token", m.issueToken)

	// WebSocket endpoint
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handleWebSocket))

	// Chat API v1
	api := m.app.Group("/api/v1/chat", AuthMiddleware(m.identity))

	api.Get("/rooms", m.listRooms)
	api.Post("/rooms", m.createRoom)
	api.Post("/direct", m.createDirectRoom)
	api.Post("/direct/message", m.sendDirectMessage)
	api.Post("/group", m.createGroupRoom)
	api.Get("/rooms/:id", m.getRoom)
	api.Get("/rooms/:id/participants", m.listParticipants)
	api.Post("/rooms/:id/participants", m.addParticipant)
	api.Delete("/rooms/:id/participants/me", m.leaveRoom)
	api.Get("/rooms/:id/messages", m.getMessages)
	api.Post("/rooms/:id/messages", m.sendMessage)
	api.Post("/rooms/:id/messages/:messageID/read", m.markRead)
	api.Delete("/rooms/:id/messages/:messageID", m.deleteMessage)
	api.Post("/rooms/:id/read", m.markAllRead)
	api.Get("/rooms/:id/unread-count", m.unreadCount)
	api.Post("/rooms/:id/attachments", m.uploadAttachment)
	api.Get("/attachments/:name", m.downloadAttachment)
}

// serviceError maps a failed cross-module call to an HTTP response.
// Sentinel errors cross the service boundary as text, so matching is on
// the message rather than errors.Is.
func serviceError(c *fiber.Ctx, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Resource not found",
		})
	case strings.Contains(msg, "permission denied"):
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   "permission_denied",
			Message: "Operation not permitted",
		})
	case strings.Contains(msg, "not a direct"), strings.Contains(msg, "not a group"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_state",
			Message: "Operation does not apply to this room type",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "Request failed",
		})
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "validation_error",
		Message: message,
	})
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":            "api",
			"connected_clients": m.hub.ClientCount(),
		},
	})
}

// issueToken handles POST /api/v1/auth/token. The member is registered in
// the directory on first issuance.
func (m *APIModule) issueToken(c *fiber.Ctx) error {
	var req TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.MemberID == "" || req.MemberName == "" {
		return badRequest(c, "member_id and member_name are required")
	}

	if err := m.directory.Upsert(c.UserContext(), directory.MemberInfo{
		MemberID:   req.MemberID,
		Name:       req.MemberName,
		Department: req.Department,
		Position:   req.Position,
	}); err != nil {
		return serviceError(c, err)
	}

	token, err := m.identity.IssueToken(c.UserContext(), req.MemberID, req.MemberName)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(TokenResponse{
		Token:     token.Token,
		ExpiresIn: token.ExpiresIn,
	})
}

// listRooms handles GET /api/v1/chat/rooms. Every room is paired with the
// caller's unread count.
func (m *APIModule) listRooms(c *fiber.Ctx) error {
	caller := currentIdentity(c)

	roomList, err := m.rooms.ListRooms(c.UserContext(), caller.MemberID)
	if err != nil {
		return serviceError(c, err)
	}

	response := RoomListResponse{
		Rooms: make([]RoomSummary, 0, len(roomList)),
	}
	for _, room := range roomList {
		count, err := m.messages.UnreadCount(c.UserContext(), room.ID, caller.MemberID)
		if err != nil {
			log.Printf("[api] Failed to count unread for room %s: %v", room.ID, err)
		}
		response.Rooms = append(response.Rooms, RoomSummary{
			Room:        room,
			UnreadCount: count,
		})
	}

	return c.JSON(response)
}

// createRoom handles POST /api/v1/chat/rooms.
func (m *APIModule) createRoom(c *fiber.Ctx) error {
	caller := currentIdentity(c)

	var req CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Name == "" {
		return badRequest(c, "Room name is required")
	}
	if len(req.Name) > maxRoomNameLength {
		return badRequest(c, "Room name too long (max 100 characters)")
	}

	room, err := m.rooms.CreateRoom(c.UserContext(), req.Name, caller.MemberID, req.GroupChat)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(room)
}

// createDirectRoom handles POST /api/v1/chat/direct. The 1:1 room between
// the caller and the target is reused when it already exists.
func (m *APIModule) createDirectRoom(c *fiber.Ctx) error {
	caller := currentIdentity(c)

	var req DirectRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.MemberID == "" {
		return badRequest(c, "member_id is required")
	}

	result, err := m.rooms.GetOrCreateDirectRoom(c.UserContext(), caller.MemberID, req.MemberID)
	if err != nil {
		return serviceError(c, err)
	}

	status := fiber.StatusOK
	if result.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(result)
}

// createGroupRoom handles POST /api/v1/chat/group.
func (m *APIModule) createGroupRoom(c *fiber.Ctx) error {
	caller := currentIdentity(c)

	var req GroupRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Name == "" {
		return badRequest(c, "Room name is required")
	}
	if len(req.Name) > maxRoomNameLength {
		return badRequest(c, "Room name too long (max 100 characters)")
	}

	room, err := m.rooms.CreateGroupRoom(c.UserContext(), req.Name, caller.MemberID, req.MemberIDs)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(room)
}

// getRoom handles GET /api/v1/chat/rooms/:id.
func (m *APIModule) getRoom(c *fiber.Ctx) error {
	room, err := m.rooms.GetRoom(c.UserContext(), c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(room)
}

// listParticipants handles GET /api/v1/chat/rooms/:id/participants.
func (m *APIModule) listParticipants(c *fiber.Ctx) error {
	room, err := m.rooms.GetRoom(c.UserContext(), c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(ParticipantListResponse{
		RoomID:       room.ID,
		Participants: room.Participants,
	})
}

// addParticipant handles POST /api/v1/chat/rooms/:id/participants. A join
// notice is appended when the membership actually changed.
func (m *APIModule) addParticipant(c *fiber.Ctx) error {
	roomID := c.Params("id")

	var req AddParticipantRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.MemberID == "" {
		return badRequest(c, "member_id is required")
	}

	member, err := m.directory.Lookup(c.UserContext(), req.MemberID)
	if err != nil {
		return serviceError(c, err)
	}

	changed, err := m.rooms.AddParticipant(c.UserContext(), roomID, req.MemberID, true)
	if err != nil {
		return serviceError(c, err)
	}

	if changed {
		notice := fmt.Sprintf("%s joined.", member.Name)
		if _, err := m.messages.CreateSystemMessage(c.UserContext(), roomID, chat.KindSystemJoin, notice); err != nil {
			log.Printf("[api] Failed to append join notice for room %s: %v", roomID, err)
		}
	}

	return c.Status(fiber.StatusNoContent).Send(nil)
}

// leaveRoom handles DELETE /api/v1/chat/rooms/:id/participants/me. When the
// room survives the exit, a leave notice is appended.
func (m *APIModule) leaveRoom(c *fiber.Ctx) error {
	caller := currentIdentity(c)
	roomID := c.Params("id")

	roomDeleted, err := m.rooms.RemoveParticipant(c.UserContext(), roomID, caller.MemberID)
	if err != nil {
		return serviceError(c, err)
	}

	if !roomDeleted {
		notice := fmt.Sprintf("%s left.", caller.MemberName)
		if _, err := m.messages.CreateSystemMessage(c.UserContext(), roomID, chat.KindSystemLeave, notice); err != nil {
			log.Printf("[api] Failed to append leave notice for room %s: %v", roomID, err)
		}
	}

	return c.JSON(LeaveRoomResponse{
		RoomID:      roomID,
		RoomDeleted: roomDeleted,
	})
}

// getMessages handles GET /api/v1/chat/rooms/:id/messages. Fetching a page
// marks its unread messages as read for the caller.
func (m *APIModule) getMessages(c *fiber.Ctx) error {
	caller := currentIdentity(c)
	roomID := c.Params("id")

	page := 0
	if p := c.Query("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed >= 0 {
			page = parsed
		}
	}
	size := defaultPageSize
	if s := c.Query("size"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed > 0 && parsed <= maxPageSize {
			size = parsed
		}
	}

	result, err := m.messages.GetPage(c.UserContext(), roomID, caller.MemberID, page, size)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(MessagePageResponse{
		RoomID:   roomID,
		Messages: result.Messages,
		Total:    result.Total,
		Page:     result.Page,
		Size:     result.Size,
	})
}

// sendMessage handles POST /api/v1/chat/rooms/:id/messages.
func (m *APIModule) sendMessage(c *fiber.Ctx) error {
	caller := currentIdentity(c)
	roomID := c.Params("id")

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Content == "" && req.AttachmentURL == "" {
		return badRequest(c, "Message content is required")
	}
	if len(req.Content) > maxMessageLength {
		return badRequest(c, "Message too long")
	}

	message, err := m.messages.Send(c.UserContext(), messages.SendMessageRequest{
		RoomID:         roomID,
		SenderID:       caller.MemberID,
		Content:        req.Content,
		AttachmentType: req.AttachmentType,
		AttachmentURL:  req.AttachmentURL,
		AttachmentName: req.AttachmentName,
	})
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(message)
}

// sendDirectMessage handles POST /api/v1/chat/direct/message.
func (m *APIModule) sendDirectMessage(c *fiber.Ctx) error {
	caller := currentIdentity(c)

	var req SendDirectRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.RoomID == "" {
		return badRequest(c, "room_id is required")
	}
	if req.Content == "" {
		return badRequest(c, "Message content is required")
	}
	if len(req.Content) > maxMessageLength {
		return badRequest(c, "Message too long")
	}

	message, err := m.messages.SendDirect(c.UserContext(), messages.SendDirectMessageRequest{
		RoomID:   req.RoomID,
		SenderID: caller.MemberID,
		Content:  req.Content,
		Invite:   req.Invite,
	})
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(message)
}

// markRead handles POST /api/v1/chat/rooms/:id/messages/:messageID/read.
func (m *APIModule) markRead(c *fiber.Ctx) error {
	caller := currentIdentity(c)

	if err := m.messages.MarkRead(c.UserContext(), c.Params("messageID"), caller.MemberID); err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusNoContent).Send(nil)
}

// markAllRead handles POST /api/v1/chat/rooms/:id/read.
func (m *APIModule) markAllRead(c *fiber.Ctx) error {
	caller := currentIdentity(c)
	roomID := c.Params("id")

	changed, err := m.messages.MarkAllRead(c.UserContext(), roomID, caller.MemberID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(MarkAllReadResponse{
		RoomID:  roomID,
		Changed: changed,
	})
}

// deleteMessage handles DELETE /api/v1/chat/rooms/:id/messages/:messageID.
func (m *APIModule) deleteMessage(c *fiber.Ctx) error {
	caller := currentIdentity(c)

	message, err := m.messages.Delete(c.UserContext(), c.Params("messageID"), caller.MemberID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(message)
}

// unreadCount handles GET /api/v1/chat/rooms/:id/unread-count.
func (m *APIModule) unreadCount(c *fiber.Ctx) error {
	caller := currentIdentity(c)
	roomID := c.Params("id")

	count, err := m.messages.UnreadCount(c.UserContext(), roomID, caller.MemberID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(UnreadCountResponse{
		RoomID:   roomID,
		MemberID: caller.MemberID,
		Count:    count,
	})
}

// uploadAttachment handles POST /api/v1/chat/rooms/:id/attachments. The
// file is stored and immediately sent as an attachment message.
func (m *APIModule) uploadAttachment(c *fiber.Ctx) error {
	caller := currentIdentity(c)
	roomID := c.Params("id")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file field is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return badRequest(c, "Failed to open uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return badRequest(c, "Failed to read uploaded file")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	stored, err := m.attachments.Upload(c.UserContext(), fileHeader.Filename, data, contentType)
	if err != nil {
		return serviceError(c, err)
	}

	attachmentType := chat.AttachmentFile
	if strings.HasPrefix(stored.ContentType, "image/") {
		attachmentType = chat.AttachmentImage
	}

	message, err := m.messages.Send(c.UserContext(), messages.SendMessageRequest{
		RoomID:         roomID,
		SenderID:       caller.MemberID,
		Content:        c.FormValue("content"),
		AttachmentType: attachmentType,
		AttachmentURL:  stored.Reference,
		AttachmentName: stored.Name,
	})
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(message)
}

// downloadAttachment handles GET /api/v1/chat/attachments/:name.
func (m *APIModule) downloadAttachment(c *fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return badRequest(c, "Attachment name is required")
	}

	fetched, err := m.attachments.Fetch(c.UserContext(), attachments.ReferencePrefix+name)
	if err != nil {
		return serviceError(c, err)
	}

	if fetched.ContentType != "" {
		c.Set(fiber.HeaderContentType, fetched.ContentType)
	}
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fetched.Name))
	return c.Send(fetched.Data)
}

// WSCommand is the inbound WebSocket message shape.
type WSCommand struct {
	Action string `json:"action"`
	RoomID string `json:"room_id,omitempty"`
}

// WSReply is the outbound WebSocket reply shape for command results.
type WSReply struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// handleWebSocket handles WebSocket connections at /ws. Clients authenticate
// with a token query parameter and then subscribe to rooms they belong to.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	token := c.Query("token")
	caller, err := m.identity.ResolveIdentity(context.Background(), token)
	if err != nil {
		_ = c.WriteJSON(WSReply{Type: "error", Error: "Invalid or expired token"})
		_ = c.Close()
		return
	}

	client := &broadcast.Client{
		ID:       uuid.New().String(),
		MemberID: caller.MemberID,
		Conn:     c,
	}

	m.hub.Register(client)
	defer func() {
		m.hub.Unregister(client)
		log.Printf("[api] WebSocket client disconnected: %s (member %s)", client.ID, caller.MemberID)
	}()

	log.Printf("[api] WebSocket client connected: %s (member %s)", client.ID, caller.MemberID)

	if err := c.WriteJSON(WSReply{Type: "connected"}); err != nil {
		log.Printf("[api] Failed to send welcome: %v", err)
		return
	}

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[api] Client %s closed connection", client.ID)
			} else {
				log.Printf("[api] Read error from %s: %v", client.ID, err)
			}
			break
		}

		var cmd WSCommand
		if err := json.Unmarshal(msgBytes, &cmd); err != nil {
			_ = c.WriteJSON(WSReply{Type: "error", Error: "Invalid message format"})
			continue
		}

		switch cmd.Action {
		case "subscribe":
			m.handleSubscribe(c, client, cmd)
		case "unsubscribe":
			m.handleUnsubscribe(c, client, cmd)
		default:
			_ = c.WriteJSON(WSReply{Type: "error", Error: "Unknown action: " + cmd.Action})
		}
	}
}

// handleSubscribe attaches the client to a room's broadcast feed. Only
// active participants may subscribe.
func (m *APIModule) handleSubscribe(c *websocket.Conn, client *broadcast.Client, cmd WSCommand) {
	if cmd.RoomID == "" {
		_ = c.WriteJSON(WSReply{Type: "error", Error: "room_id is required"})
		return
	}

	participant, err := m.rooms.GetParticipant(context.Background(), cmd.RoomID, client.MemberID)
	if err != nil || !participant.Active {
		_ = c.WriteJSON(WSReply{Type: "error", RoomID: cmd.RoomID, Error: "Not a participant of this room"})
		return
	}

	m.hub.Subscribe(client.ID, cmd.RoomID)
	_ = c.WriteJSON(WSReply{Type: "subscribed", RoomID: cmd.RoomID})
}

func (m *APIModule) handleUnsubscribe(c *websocket.Conn, client *broadcast.Client, cmd WSCommand) {
	if cmd.RoomID == "" {
		_ = c.WriteJSON(WSReply{Type: "error", Error: "room_id is required"})
		return
	}

	m.hub.Unsubscribe(client.ID, cmd.RoomID)
	_ = c.WriteJSON(WSReply{Type: "unsubscribed", RoomID: cmd.RoomID})
}
