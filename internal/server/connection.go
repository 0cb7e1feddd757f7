package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lox/packdraft/internal/cards"
	"github.com/lox/packdraft/internal/draft"
)

// Connection represents a WebSocket connection to a client.
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	id        string
	userID    string
	sessionID string
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	registry  *Registry
}

// NewConnection creates a new connection wrapper.
func NewConnection(conn *websocket.Conn, logger *log.Logger, registry *Registry) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:     conn,
		send:     make(chan *Message, 256),
		id:       uuid.NewString(),
		logger:   logger.WithPrefix("conn"),
		ctx:      ctx,
		cancel:   cancel,
		registry: registry,
	}
}

// Start begins handling the connection.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client.
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, this is expected during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// SetUser associates this connection with a user.
func (c *Connection) SetUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
}

// GetUser returns the associated user ID.
func (c *Connection) GetUser() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// SetSession associates this connection with a session.
func (c *Connection) SetSession(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = sessionID
}

// GetSession returns the associated session ID.
func (c *Connection) GetSession() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 65536
)

var ErrConnectionClosed = websocket.ErrCloseSent

// readPump handles incoming messages from the client.
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// decode unmarshals a message payload, reporting a structured error to the
// client on failure.
func decode[T any](c *Connection, raw json.RawMessage, out *T) bool {
	if err := json.Unmarshal(raw, out); err != nil {
		c.sendError("invalid_message", "Failed to parse message data")
		return false
	}
	return true
}

// handleMessage processes incoming messages from the client.
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "user", c.GetUser())

	switch msg.Type {
	case MessageTypeAuth:
		var data AuthData
		if decode(c, msg.Data, &data) {
			c.handleAuth(data)
		}

	case MessageTypeJoinSession:
		var data JoinSessionData
		if decode(c, msg.Data, &data) {
			c.handleJoinSession(data)
		}

	case MessageTypeSetBots:
		var data SetBotsData
		if decode(c, msg.Data, &data) {
			c.handleSetter(msg.Type, func(sess *Session, user draft.UserID) error {
				return sess.SetBots(user, data.Count)
			})
		}

	case MessageTypeSetRestriction:
		var data SetRestrictionData
		if decode(c, msg.Data, &data) {
			c.handleSetter(msg.Type, func(sess *Session, user draft.UserID) error {
				return sess.SetRestriction(user, data.Sets)
			})
		}

	case MessageTypeSetPickedPerRound:
		var data SetIntData
		if decode(c, msg.Data, &data) {
			c.handleSetter(msg.Type, func(sess *Session, user draft.UserID) error {
				return sess.SetPickedCardsPerRound(user, data.Value)
			})
		}

	case MessageTypeSetBurnedPerRound:
		var data SetIntData
		if decode(c, msg.Data, &data) {
			c.handleSetter(msg.Type, func(sess *Session, user draft.UserID) error {
				return sess.SetBurnedCardsPerRound(user, data.Value)
			})
		}

	case MessageTypeSetDiscardAt:
		var data SetIntData
		if decode(c, msg.Data, &data) {
			c.handleSetter(msg.Type, func(sess *Session, user draft.UserID) error {
				return sess.SetDiscardRemainingCardsAt(user, data.Value)
			})
		}

	case MessageTypeSetMaxDuplicates:
		var data SetIntData
		if decode(c, msg.Data, &data) {
			c.handleSetter(msg.Type, func(sess *Session, user draft.UserID) error {
				return sess.SetMaxDuplicates(user, data.Value)
			})
		}

	case MessageTypeSetColorBalance:
		var data SetBoolData
		if decode(c, msg.Data, &data) {
			c.handleSetter(msg.Type, func(sess *Session, user draft.UserID) error {
				return sess.SetColorBalance(user, data.Value)
			})
		}

	case MessageTypeSetFoil:
		var data SetFloatData
		if decode(c, msg.Data, &data) {
			c.handleSetter(msg.Type, func(sess *Session, user draft.UserID) error {
				return sess.SetFoil(user, data.Value)
			})
		}

	case MessageTypeSetCustomCardList:
		var data SetCustomCardListData
		if decode(c, msg.Data, &data) {
			c.handleSetter(msg.Type, func(sess *Session, user draft.UserID) error {
				return sess.SetCustomCardList(user, data.Text)
			})
		}

	case MessageTypeSetCustomBoosters:
		var data SetCustomBoostersData
		if decode(c, msg.Data, &data) {
			c.handleSetter(msg.Type, func(sess *Session, user draft.UserID) error {
				return sess.SetCustomBoosters(user, data.Boosters)
			})
		}

	case MessageTypeSetDistribution:
		var data SetDistributionData
		if decode(c, msg.Data, &data) {
			c.handleSetter(msg.Type, func(sess *Session, user draft.UserID) error {
				return sess.SetDistributionMode(user, data.Mode)
			})
		}

	case MessageTypeSetDraftType:
		var data SetDraftTypeData
		if decode(c, msg.Data, &data) {
			c.handleSetter(msg.Type, func(sess *Session, user draft.UserID) error {
				return sess.SetDraftType(user, data.Type)
			})
		}

	case MessageTypeStartDraft:
		c.handleSetter(msg.Type, func(sess *Session, user draft.UserID) error {
			return sess.StartDraft(user)
		})

	case MessageTypeStopDraft:
		c.handleSetter(msg.Type, func(sess *Session, user draft.UserID) error {
			return sess.StopDraft(user)
		})

	case MessageTypePickCard:
		var data PickCardData
		if decode(c, msg.Data, &data) {
			c.handleSetter(msg.Type, func(sess *Session, user draft.UserID) error {
				return sess.PickCard(user, data)
			})
		}

	case MessageTypeWinstonTakePile:
		c.handleSetter(msg.Type, func(sess *Session, user draft.UserID) error {
			return sess.WinstonMove(user, true)
		})

	case MessageTypeWinstonSkipPile:
		c.handleSetter(msg.Type, func(sess *Session, user draft.UserID) error {
			return sess.WinstonMove(user, false)
		})

	case MessageTypeMoveCard:
		var data MoveCardData
		if decode(c, msg.Data, &data) {
			c.handleSetter(msg.Type, func(sess *Session, user draft.UserID) error {
				return sess.MoveCard(user, data.UniqueID, data.ToSide)
			})
		}

	case MessageTypeReplaceDisconnects:
		c.handleSetter(msg.Type, func(sess *Session, user draft.UserID) error {
			return sess.ReplaceDisconnectedPlayers(user)
		})

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

func (c *Connection) handleAuth(data AuthData) {
	userID := data.UserID
	if userID == "" {
		userID = uuid.NewString()
	}
	c.SetUser(userID)
	c.logger.Info("Auth request", "user", userID, "userName", data.UserName)

	response, _ := NewMessage(MessageTypeAuthResponse, AuthResponseData{
		Success: true,
		UserID:  userID,
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleJoinSession(data JoinSessionData) {
	user := c.GetUser()
	if user == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}
	if data.SessionID == "" {
		c.sendError("invalid_session", "Session id required")
		return
	}
	if c.registry == nil {
		c.sendError("service_unavailable", "Session registry not available")
		return
	}

	c.logger.Info("Join session request", "sessionId", data.SessionID, "user", user)

	sess := c.registry.GetOrCreate(data.SessionID)
	joined := sess.Join(draft.UserID(user), c.id)
	c.SetSession(data.SessionID)

	response, _ := NewMessage(MessageTypeSessionJoined, joined)
	_ = c.SendMessage(response)
}

// handleSetter routes an authenticated, session-scoped request and answers
// with an ack or a structured error.
func (c *Connection) handleSetter(msgType MessageType, fn func(sess *Session, user draft.UserID) error) {
	user := c.GetUser()
	if user == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}
	sessionID := c.GetSession()
	if sessionID == "" || c.registry == nil {
		c.sendError("no_session", "Join a session first")
		return
	}
	sess, ok := c.registry.Get(sessionID)
	if !ok {
		c.sendError("no_session", "Session no longer exists")
		return
	}

	if err := fn(sess, draft.UserID(user)); err != nil {
		c.sendActionError(err)
		return
	}

	ack, _ := NewMessage(MessageTypeAck, AckData{Type: msgType})
	_ = c.SendMessage(ack)
}

// sendActionError maps domain errors onto wire error codes. Card list parse
// failures carry their display title and footer through.
func (c *Connection) sendActionError(err error) {
	var parseErr *cards.ParseError
	if errors.As(err, &parseErr) {
		c.sendErrorData(ErrorData{
			Code:    "invalid_card_list",
			Message: parseErr.Text,
			Title:   parseErr.Title,
			Footer:  parseErr.Footer,
		})
		return
	}

	code := "request_failed"
	switch {
	case errors.Is(err, draft.ErrNotYourTurn):
		code = "not_your_turn"
	case errors.Is(err, draft.ErrStalePick):
		code = "stale_pick"
	case errors.Is(err, draft.ErrAlreadyPicked):
		code = "already_picked"
	case errors.Is(err, draft.ErrDraftComplete):
		code = "draft_complete"
	case errors.Is(err, draft.ErrUnknownPlayer):
		code = "unknown_player"
	case errors.Is(err, draft.ErrInvalidPick):
		code = "invalid_pick"
	case errors.Is(err, cards.ErrPoolExhausted):
		code = "pool_exhausted"
	}
	c.sendErrorData(ErrorData{Code: code, Message: err.Error()})
}

// sendError sends an error message to the client.
func (c *Connection) sendError(code, message string) {
	c.sendErrorData(ErrorData{Code: code, Message: message})
}

func (c *Connection) sendErrorData(data ErrorData) {
	errorMsg, err := NewMessage(MessageTypeError, data)
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg)
}
