package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/jurubahasa/internal/pipeline"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024
)

// SegmentationControl is the part of the segmenter a client may adjust
type SegmentationControl interface {
	SetSilenceDuration(ms int) error
	Reset()
}

// WriteData is one outbound frame
type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte

	// result, when set, receives the outcome of the write.
	result chan error
}

// Client is a middleman between the websocket connection and the
// translation pipeline. It implements pipeline.Transport.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	// Closed when the client is torn down.
	done      chan struct{}
	closeOnce sync.Once

	sessionID      string
	clientID       string
	targetLanguage string

	control SegmentationControl
	logger  *zap.Logger
}

var _ pipeline.Transport = (*Client)(nil)

func newClient(hub *Hub, conn *websocket.Conn, sessionID, clientID, targetLanguage string, logger *zap.Logger) *Client {
	c := &Client{
		hub:            hub,
		conn:           conn,
		send:           make(chan WriteData, 256),
		done:           make(chan struct{}),
		sessionID:      sessionID,
		clientID:       clientID,
		targetLanguage: targetLanguage,
		logger:         logger.With(zap.String("sessionID", sessionID)),
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	return c
}

// SessionID returns the ID of the session served by this client
func (c *Client) SessionID() string {
	return c.sessionID
}

// ReadChunk implements pipeline.Transport. Text frames are handled as
// control messages on the calling goroutine, which owns the segmenter.
func (c *Client) ReadChunk(ctx context.Context) ([]byte, error) {
	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return nil, pipeline.ErrTransportClosed
			default:
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return nil, fmt.Errorf("%w: %w", pipeline.ErrTransportClosed, err)
		}

		switch messageType {
		case websocket.BinaryMessage:
			return message, nil
		case websocket.TextMessage:
			c.processMessage(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// WriteAudio implements pipeline.Transport and returns once the payload is
// on the wire.
func (c *Client) WriteAudio(ctx context.Context, payload []byte) error {
	result := make(chan error, 1)
	select {
	case c.send <- WriteData{Type: websocket.BinaryMessage, Payload: payload, result: result}:
	case <-c.done:
		return pipeline.ErrTransportClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-c.done:
		return pipeline.ErrTransportClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements pipeline.Transport
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		err = c.conn.Close()
	})
	return err
}

// sendJSON queues a text frame without waiting for it to be written
func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}

	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	case <-c.done:
	}
}

// writePump pumps queued frames to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.conn.WriteMessage(message.Type, message.Payload)
			if message.result != nil {
				message.result <- err
			}
			if err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

// processMessage handles a control message from the client
func (c *Client) processMessage(message []byte) {
	msg, err := ParseControlMessage(message)
	if err != nil {
		c.logger.Warn("Rejected control message", zap.Error(err))
		code := ErrorCodeInvalidMessage
		if errors.Is(err, ErrUnsupportedMessage) {
			code = ErrorCodeUnsupportedMessage
		}
		c.sendJSON(CreateErrorMessage(code, err.Error()))
		return
	}

	switch msg.Type {
	case MessageTypeSetSilenceDuration:
		if err := c.control.SetSilenceDuration(*msg.SilenceMs); err != nil {
			c.sendJSON(CreateErrorMessage(ErrorCodeInvalidSilenceDuration, err.Error()))
			return
		}
		c.logger.Info("Silence duration updated", zap.Int("silenceMs", *msg.SilenceMs))
		c.sendJSON(CreateConfigUpdatedMessage(*msg.SilenceMs))

	case MessageTypeReset:
		c.control.Reset()
		c.logger.Info("Segmentation reset")
		c.sendJSON(CreateResetDoneMessage())

	case MessageTypePing:
		c.sendJSON(CreatePongMessage())
	}
}
