package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendChanBuf   = 256
	writeDeadline = 10 * time.Second
	readDeadline  = 60 * time.Second
	pingInterval  = 30 * time.Second
)

// Packet is the WS message envelope in both directions.
type Packet struct {
	Seq     uint64          `json:"seq,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client is one WebSocket connection watching a battle session.
type Client struct {
	BattleID string
	Conn     *websocket.Conn
	SendChan chan []byte
	Done     chan struct{}
	TraceID  string
	LastSeq  uint64

	closeOnce sync.Once
	logger    *zap.Logger
}

// NewClient creates a Client bound to battleID and starts its write pump.
// A nil conn gives a client whose queued packets stay in SendChan.
func NewClient(battleID string, conn *websocket.Conn, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		BattleID: battleID,
		Conn:     conn,
		SendChan: make(chan []byte, sendChanBuf),
		Done:     make(chan struct{}),
		logger:   logger,
	}
	if conn != nil {
		go c.writePump()
	}
	return c
}

// writePump drains SendChan into the connection and pings it periodically.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.Conn.Close()
	for {
		select {
		case data := <-c.SendChan:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn("ws write error", zap.String("battle_id", c.BattleID), zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.Done:
			c.flush()
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			_ = c.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes whatever is still queued when the client closes.
func (c *Client) flush() {
	for {
		select {
		case data := <-c.SendChan:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

// Send encodes payload into a packet of type typ and queues it without
// blocking. Packets are dropped when the queue is full or the client closed.
func (c *Client) Send(typ string, payload interface{}) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			c.logger.Warn("ws encode failed", zap.String("type", typ), zap.Error(err))
			return
		}
		raw = b
	}
	data, err := json.Marshal(&Packet{Type: typ, Payload: raw})
	if err != nil {
		return
	}
	c.SendRaw(data)
}

// SendRaw queues already encoded bytes without blocking.
func (c *Client) SendRaw(data []byte) {
	if c.IsClosed() {
		return
	}
	select {
	case c.SendChan <- data:
	case <-c.Done:
	default:
		c.logger.Warn("send channel full, dropping packet", zap.String("battle_id", c.BattleID))
	}
}

// Close signals the write pump to shut down. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.Done) })
}

// IsClosed reports whether Close was called.
func (c *Client) IsClosed() bool {
	select {
	case <-c.Done:
		return true
	default:
		return false
	}
}

// SetReadDeadline pushes the read deadline out by readDeadline.
func (c *Client) SetReadDeadline() {
	_ = c.Conn.SetReadDeadline(time.Now().Add(readDeadline))
}
