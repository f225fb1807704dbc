// Package protocol implements the per-frame dispatch table (C5): decoding
// one inbound frame, routing it to the registry operation it names, and
// encoding the response (if any) back onto the sender's outbound queue.
//
// The dispatch style mirrors the teacher's Room.router (a single switch
// over an event discriminator, one handler method per case,
// internal/v1/session/room.go), generalized from a permission-gated
// event bus to this hub's simpler "every connected peer may call every
// operation" model (§4.5 names no per-operation authorization).
package protocol

import (
	"time"

	"go.uber.org/zap"

	"github.com/screenhub/signalhub/internal/v1/ice"
	"github.com/screenhub/signalhub/internal/v1/logging"
	"github.com/screenhub/signalhub/internal/v1/message"
	"github.com/screenhub/signalhub/internal/v1/metrics"
	"github.com/screenhub/signalhub/internal/v1/registry"
)

// Conn is the minimal per-connection identity the handler needs: a place
// to enqueue outbound frames, and the socket address used to key
// disconnect cleanup. *conn.Driver satisfies this. It is an alias for
// registry.PeerConn so both this package and conn agree on one type.
type Conn = registry.PeerConn

// Handler dispatches decoded frames against a Registry, resolving ICE
// servers through ice.Resolve whenever ice_servers is requested.
//
// Each Registry call takes the registry's mutex on its own; Dispatch does
// not hold that mutex across the whole frame, so two registry calls made
// for one frame (for example AddViewer and the forward to the host) can
// interleave with another connection's frame.
type Handler struct {
	reg    Registry
	config ice.ConfigSource
}

// Registry is the subset of *registry.Registry the handler calls. Kept
// as an interface so handler tests can use a lighter fake than the real
// registry where useful, though production code always passes
// *registry.Registry.
type Registry interface {
	AddServer(room, name, os, version string, control bool, sender registry.Sender, socket registry.SocketAddress) error
	AddViewer(peerID, room string, sender registry.Sender) error
	LeaveSession(id string) error
	OnDisconnect(socket registry.SocketAddress)
	SubscribeRoomUpdates(peerID string)
	UnsubscribeRoomUpdates(peerID string)
	NotifyRoomUpdate(room string)
	PeerByID(id string) (registry.Peer, bool)
	PeerBySender(sender registry.Sender) (registry.Peer, bool)
	GetAvailableRooms(q registry.GetAvailableRoomsQuery) (map[string]message.RoomInfo, int)
}

// New returns a Handler bound to reg and config.
func New(reg Registry, config ice.ConfigSource) *Handler {
	return &Handler{reg: reg, config: config}
}

// Dispatch decodes raw and routes it to the matching operation. conn
// identifies the sending connection: its Enqueue is both where the
// connection's own replies land and what the registry stores as the
// sender capability for newly admitted peers. For a malformed frame
// Dispatch returns the decode error (wrapping message.ErrMalformedFrame)
// and does nothing else; the caller logs it and keeps the connection
// open. Every other frame returns nil.
func (h *Handler) Dispatch(conn Conn, raw []byte) error {
	start := time.Now()
	t, payload, err := message.Decode(raw)
	defer func() {
		metrics.FrameProcessingDuration.WithLabelValues(string(t)).Observe(time.Since(start).Seconds())
	}()

	if err != nil {
		metrics.FramesProcessed.WithLabelValues(string(t), "malformed").Inc()
		return err
	}

	switch p := payload.(type) {
	case message.Start:
		h.handleStart(conn, p)
	case message.Join:
		h.handleJoin(conn, p, raw)
	case message.Offer:
		h.forward(conn, p.To, raw)
	case message.Answer:
		h.forward(conn, p.To, raw)
	case message.Ice:
		h.forward(conn, p.To, raw)
	case message.JoinDeclined:
		h.forward(conn, p.To, raw)
	case message.Leave:
		h.handleLeave(conn, p)
	case message.KeepAlive:
		// no-op: accepted purely to reset intermediary idle timers.
	case message.IceServers:
		h.handleIceServers(conn)
	case message.GetRoomList:
		h.handleGetRoomList(conn, p)
	case message.SubscribeRoomUpdates:
		h.handleSubscribeRoomUpdates(conn)
	case message.UnsubscribeRoomUpdates:
		h.handleUnsubscribeRoomUpdates(conn)
	default:
		metrics.FramesProcessed.WithLabelValues(string(t), "unhandled").Inc()
		return nil
	}

	metrics.FramesProcessed.WithLabelValues(string(t), "ok").Inc()
	return nil
}

// HandleDisconnect runs registry cleanup for a closed connection.
func (h *Handler) HandleDisconnect(conn Conn) {
	h.reg.OnDisconnect(conn.Socket())
}

// handleStart registers a host session. Registration failure surfaces
// only as a logged handler error (§4.5, §7's DeviceOnline case): no
// reply is sent to the caller, matching the source handler, which never
// constructs a client-visible message for this case.
func (h *Handler) handleStart(conn Conn, p message.Start) {
	if err := h.reg.AddServer(p.Room, p.Name, p.OS, p.Version, p.Control, conn, conn.Socket()); err != nil {
		logging.Warn(nil, "start rejected", zap.String("room", p.Room), zap.Error(err))
		return
	}
	frame, encErr := message.Encode(message.TypeStartResponse, message.StartResponse{Room: p.Room})
	if encErr == nil {
		conn.Enqueue(frame)
	}
	h.reg.NotifyRoomUpdate(p.Room)
}

// handleJoin admits a viewer. On success the original raw frame is
// forwarded to the host unmodified (§4.1: join is never re-encoded,
// exactly like offer/answer/ice), matching the source handler's
// forward_message, which forwards raw_payload verbatim for join.
func (h *Handler) handleJoin(conn Conn, p message.Join, raw []byte) {
	if err := h.reg.AddViewer(p.From, p.Room, conn); err != nil {
		h.replyJoinDeclined(conn, p.From, err)
		return
	}
	h.forwardToHost(p.Room, raw)
}

func (h *Handler) replyJoinDeclined(conn Conn, to string, cause error) {
	reason := "unavailable"
	if regErr, ok := cause.(*registry.Error); ok {
		reason = regErr.Error()
	}
	frame, err := message.Encode(message.TypeJoinDeclined, message.JoinDeclined{To: to, Reason: reason})
	if err == nil {
		conn.Enqueue(frame)
	}
}

func (h *Handler) forwardToHost(room string, frame []byte) {
	if frame == nil {
		return
	}
	if peer, ok := h.reg.PeerByID(room); ok {
		peer.Sender.Enqueue(frame)
	}
}

// forward delivers raw, unmodified, to the peer named by to. Forwarded
// frames are never re-encoded (message package doc) so SDP/ICE payloads
// this hub does not parse survive verbatim.
func (h *Handler) forward(conn Conn, to string, raw []byte) {
	peer, ok := h.reg.PeerByID(to)
	if !ok {
		return
	}
	peer.Sender.Enqueue(raw)
}

func (h *Handler) handleLeave(conn Conn, p message.Leave) {
	_ = h.reg.LeaveSession(p.From)
}

func (h *Handler) handleIceServers(conn Conn) {
	var peerID string
	if peer, ok := h.reg.PeerBySender(conn); ok {
		peerID = peer.ID
	}
	servers := ice.Resolve(peerID, h.config)
	if len(servers) == 0 {
		metrics.IceServersResolved.WithLabelValues("blocked").Inc()
	} else {
		metrics.IceServersResolved.WithLabelValues("allowed").Inc()
	}
	frame, err := message.Encode(message.TypeIceServersResponse, message.IceServersResponse{IceServers: servers})
	if err == nil {
		conn.Enqueue(frame)
	}
}

func (h *Handler) handleGetRoomList(conn Conn, p message.GetRoomList) {
	rooms, total := h.reg.GetAvailableRooms(registry.GetAvailableRoomsQuery{
		OS:      p.OS,
		Version: p.Version,
		Server:  p.Server,
		Name:    p.Name,
		Sort:    p.Sort,
		Control: p.Control,
		Page:    p.Page,
		PerPage: p.PerPage,
	})
	frame, err := message.Encode(message.TypeRoomListResponse, message.RoomListResponse{
		Rooms:      rooms,
		TotalCount: total,
		Page:       p.Page,
		PerPage:    p.PerPage,
	})
	if err == nil {
		conn.Enqueue(frame)
	}
}

// handleSubscribeRoomUpdates stores the subscribing peer's own Room field,
// not its PeerId, in the subscriber set — replicating the source
// registry's literal (and, for a viewer, slightly surprising) behavior:
// a viewer's subscription key is its host's room/PeerId, so the
// notification it later receives actually lands on the host's queue.
func (h *Handler) handleSubscribeRoomUpdates(conn Conn) {
	if peer, ok := h.reg.PeerBySender(conn); ok {
		h.reg.SubscribeRoomUpdates(peer.Room)
	}
}

func (h *Handler) handleUnsubscribeRoomUpdates(conn Conn) {
	if peer, ok := h.reg.PeerBySender(conn); ok {
		h.reg.UnsubscribeRoomUpdates(peer.Room)
	}
}
