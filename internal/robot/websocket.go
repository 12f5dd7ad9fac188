package robot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Frame types of the voxbot bridge protocol. A Thymio Device Manager does
// not speak it directly; a bridge process translates these frames.
const (
	frameLock         = "lock"
	frameLocked       = "locked"
	frameUnlock       = "unlock"
	frameSetVariables = "set_variables"
	frameRunBehavior  = "run_behavior"
	frameAck          = "ack"
	frameError        = "error"
)

const (
	defaultHandshakeTimeout = 5 * time.Second
	defaultRequestTimeout   = 2 * time.Second
)

// Frame is one JSON message on the bridge connection. Replies carry the ID
// of the request they answer.
type Frame struct {
	Type      string           `json:"type"`
	ID        uint64           `json:"id,omitempty"`
	Node      string           `json:"node,omitempty"`
	Variables map[string][]int `json:"variables,omitempty"`
	Index     *int             `json:"index,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// Dialer connects to a voxbot bridge over WebSocket and locks a node.
//
// The bridge is a separate process that owns the Thymio Device Manager
// session and answers the JSON frames below. Pointing URL at the Device
// Manager's own WebSocket port does not work: it speaks a different binary
// protocol and never answers the lock frame, so Connect fails.
type Dialer struct {
	// URL of the bridge, e.g. ws://localhost:8597/robot
	URL string

	// Node to lock; empty locks the first available robot
	Node string

	HandshakeTimeout time.Duration
	RequestTimeout   time.Duration

	Logger *zap.Logger
}

// Connect dials the bridge and locks the robot node
func (d *Dialer) Connect(ctx context.Context) (Link, error) {
	handshake := d.HandshakeTimeout
	if handshake <= 0 {
		handshake = defaultHandshakeTimeout
	}
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshake}
	conn, _, err := dialer.DialContext(ctx, d.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", d.URL, err)
	}

	l := &wsLink{conn: conn, timeout: timeout, log: log}
	reply, err := l.request(ctx, Frame{Type: frameLock, Node: d.Node})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to lock robot: %w", err)
	}
	if reply.Type != frameLocked {
		conn.Close()
		return nil, fmt.Errorf("failed to lock robot: unexpected reply %q", reply.Type)
	}
	l.node = reply.Node

	log.Info("robot locked", zap.String("url", d.URL), zap.String("node", l.node))
	return l, nil
}

// wsLink serializes request/reply exchanges on one connection
type wsLink struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	node    string
	nextID  uint64
	timeout time.Duration
	log     *zap.Logger
	closed  bool
}

func (l *wsLink) SetVariables(ctx context.Context, vars map[string][]int) error {
	_, err := l.request(ctx, Frame{Type: frameSetVariables, Node: l.node, Variables: vars})
	if err != nil {
		return fmt.Errorf("set variables: %w", err)
	}
	return nil
}

func (l *wsLink) RunBehavior(ctx context.Context, index int) error {
	_, err := l.request(ctx, Frame{Type: frameRunBehavior, Node: l.node, Index: &index})
	if err != nil {
		return fmt.Errorf("run behavior %d: %w", index, err)
	}
	return nil
}

func (l *wsLink) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	if _, err := l.request(ctx, Frame{Type: frameUnlock, Node: l.node}); err != nil {
		l.log.Debug("unlock failed", zap.Error(err))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	_ = l.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return l.conn.Close()
}

// request sends a frame and waits for the reply carrying the same ID.
// Unrelated frames (bridge events) are skipped.
func (l *wsLink) request(ctx context.Context, req Frame) (*Frame, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, fmt.Errorf("link closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(l.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	l.nextID++
	req.ID = l.nextID

	if err := l.conn.SetWriteDeadline(deadline); err != nil {
		return nil, err
	}
	if err := l.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("write %s: %w", req.Type, err)
	}

	if err := l.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	for {
		var reply Frame
		if err := l.conn.ReadJSON(&reply); err != nil {
			return nil, fmt.Errorf("read reply to %s: %w", req.Type, err)
		}
		if reply.ID != req.ID {
			l.log.Debug("skipping bridge frame", zap.String("type", reply.Type), zap.Uint64("id", reply.ID))
			continue
		}
		if reply.Type == frameError {
			return nil, fmt.Errorf("bridge rejected %s: %s", req.Type, reply.Message)
		}
		return &reply, nil
	}
}
