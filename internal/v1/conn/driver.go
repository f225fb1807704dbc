// Package conn implements the per-connection lifecycle (C6): upgrading
// an HTTP request to a WebSocket, and running the paired reader/writer
// goroutines that couple a socket to the protocol handler and the
// outbound queue.
//
// This is the JSON-text-frame, unbounded-queue counterpart of the
// teacher's Client (internal/v1/session/client.go): two goroutines,
// readPump feeding the dispatcher and writePump draining an outbound
// channel, but backed by queue.Queue instead of a bounded send channel
// since this hub's delivery contract never drops a frame while the
// connection is alive.
package conn

import (
	"net"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/screenhub/signalhub/internal/v1/logging"
	"github.com/screenhub/signalhub/internal/v1/metrics"
	"github.com/screenhub/signalhub/internal/v1/queue"
	"github.com/screenhub/signalhub/internal/v1/registry"
)

const writeWait = 10 * time.Second

// wsConn is the subset of *websocket.Conn the driver needs; an interface
// so tests can substitute a fake transport, matching the teacher's
// wsConnection abstraction.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetWriteDeadline(t time.Time) error
	RemoteAddr() net.Addr
}

// Dispatcher is the protocol handler's contract as seen by a Driver.
type Dispatcher interface {
	Dispatch(conn Dispatchable, raw []byte) error
	HandleDisconnect(conn Dispatchable)
}

// Dispatchable is what the protocol package's Conn interface requires;
// *Driver implements it. Alias of registry.PeerConn so the two packages'
// method sets agree on one concrete type.
type Dispatchable = registry.PeerConn

// Driver owns one connection's queue and goroutines.
type Driver struct {
	ws     wsConn
	queue  *queue.Queue
	socket registry.SocketAddress
	logic  Dispatcher
}

// New wraps ws into a Driver bound to logic. socket is the stable
// identifier the registry uses to key disconnect cleanup.
func New(ws wsConn, logic Dispatcher, socket registry.SocketAddress) *Driver {
	return &Driver{
		ws:     ws,
		queue:  queue.New(),
		socket: socket,
		logic:  logic,
	}
}

// Enqueue satisfies registry.Sender; the writer goroutine drains it.
func (d *Driver) Enqueue(frame []byte) bool { return d.queue.Enqueue(frame) }

// Socket returns the connection's socket identity.
func (d *Driver) Socket() registry.SocketAddress { return d.socket }

// Run starts the reader and writer goroutines and blocks until the
// reader loop exits (the connection closed or errored). Callers should
// invoke Run in its own goroutine per connection.
func (d *Driver) Run() {
	go d.writePump()
	d.readPump()
}

func (d *Driver) readPump() {
	defer func() {
		d.logic.HandleDisconnect(d)
		d.queue.Close()
		d.ws.Close()
		metrics.DecConnection()
	}()

	metrics.IncConnection()
	for {
		messageType, data, err := d.ws.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if dispatchErr := d.logic.Dispatch(d, data); dispatchErr != nil {
			logging.Warn(nil, "dropped malformed frame", zap.String("socket", d.socket), zap.Error(dispatchErr))
		}
	}
}

func (d *Driver) writePump() {
	defer d.ws.Close()
	for {
		frame, ok := d.queue.Dequeue()
		if !ok {
			return
		}
		d.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := d.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
}
