// Package registry implements the session registry (C3): the hub's
// authoritative in-memory state — rooms, viewers, the peer→sink map, the
// room-update subscriber set, and the socket→room index used for
// disconnect cleanup.
//
// Every exported method acquires the Registry's single mutex for its
// entire duration, mirroring the teacher's Room (a single sync.RWMutex
// guarding the whole struct, internal/v1/session/room.go) except that
// here one lock covers the whole registry rather than one lock per room —
// the spec calls for total serialization across all sessions (§5), which
// a single global mutex gives for free and which sharding by room (see
// the teacher-style Hub.mu / per-room mu split) would complicate for no
// benefit at the scale this hub targets.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/screenhub/signalhub/internal/v1/message"
	"k8s.io/utils/set"
)

// now is a var, not a direct time.Now call, so tests can pin session
// start times deterministically without touching the system clock.
var now = time.Now

// PeerId is an opaque, client-chosen string, unique across connected peers.
type PeerId = string

// Room is an opaque session identifier, equal to its host's PeerId.
type Room = string

// Role distinguishes a host (screen-sharer) peer from a viewer peer.
type Role int

const (
	RoleServer Role = iota
	RoleViewer
)

// Sender is the write-only, non-blocking capability the registry holds on
// behalf of a connected peer. *queue.Queue satisfies this.
type Sender interface {
	Enqueue(frame []byte) bool
}

// SocketAddress identifies a connection's socket peer for disconnect
// cleanup (§3); the connection driver supplies this, typically a
// net.Addr.String() or equivalent opaque string.
type SocketAddress = string

// PeerConn is the per-connection capability a caller (the connection
// driver) presents to the registry and protocol handler: it can accept
// outbound frames and reports the socket identity disconnect cleanup is
// keyed on. Declared once here, rather than separately in protocol and
// conn, so both packages' method sets line up on the same type.
type PeerConn interface {
	Sender
	Socket() SocketAddress
}

// Session is the live state of one room.
type Session struct {
	Room       Room
	HostPeerID PeerId
	HostSocket SocketAddress
	Viewers    set.Set[PeerId]
	StartTime  time.Time
	Name       string
	OS         string
	Version    string
	Control    bool
}

// Peer is one connected, admitted client.
type Peer struct {
	ID     PeerId
	Room   Room
	Sender Sender
	Role   Role
}

// Kind names the error taxonomy of §7, used by callers (the protocol
// handler) to decide on client-visible behavior without string matching.
type Kind int

const (
	KindNone Kind = iota
	KindDeviceOnline
	KindDeviceOffline
	KindPeerNotFound
)

// Error is the error type every Registry method returns; Kind lets
// callers branch without parsing Error.Error().
type Error struct {
	Kind Kind
	msg  string
}

func (e *Error) Error() string { return e.msg }

func newError(kind Kind, msg string) *Error { return &Error{Kind: kind, msg: msg} }

// Registry holds the process-wide signalling state described in §3.
type Registry struct {
	mu sync.Mutex

	sessions      map[Room]*Session
	peers         map[PeerId]*Peer
	socketToRoom  map[SocketAddress]Room
	subscribers   set.Set[PeerId]
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		sessions:     make(map[Room]*Session),
		peers:        make(map[PeerId]*Peer),
		socketToRoom: make(map[SocketAddress]Room),
		subscribers:  set.New[PeerId](),
	}
}

// AddServer registers a new host session for room, per §4.3. Fails with
// KindDeviceOnline if the room already has a live session.
func (r *Registry) AddServer(room Room, name, os, version string, control bool, sender Sender, socket SocketAddress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[room]; exists {
		return newError(KindDeviceOnline, "Device is currently online")
	}

	r.sessions[room] = &Session{
		Room:       room,
		HostPeerID: room,
		HostSocket: socket,
		Viewers:    set.New[PeerId](),
		StartTime:  now(),
		Name:       name,
		OS:         os,
		Version:    version,
		Control:    control,
	}
	r.peers[room] = &Peer{ID: room, Room: room, Sender: sender, Role: RoleServer}
	r.socketToRoom[socket] = room
	return nil
}

// AddViewer admits a viewer into an existing room, per §4.3. Fails with
// KindDeviceOffline if the room has no live session. A peerID that
// collides with an existing peer simply overwrites the earlier entry —
// see §9's open question; this registry replicates that behavior rather
// than guessing at a fix.
func (r *Registry) AddViewer(peerID PeerId, room Room, sender Sender) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[room]
	if !exists {
		return newError(KindDeviceOffline, "Device is offline")
	}

	session.Viewers.Insert(peerID)
	r.peers[peerID] = &Peer{ID: peerID, Room: room, Sender: sender, Role: RoleViewer}
	return nil
}

// removeSession tears down room: notifies and evicts every viewer, then
// removes the host peer and the socket index entry. Caller must hold mu.
func (r *Registry) removeSession(room Room) {
	session, ok := r.sessions[room]
	if !ok {
		return
	}

	delete(r.sessions, room)
	delete(r.socketToRoom, session.HostSocket)

	for _, viewerID := range session.Viewers.UnsortedList() {
		if peer, ok := r.peers[viewerID]; ok {
			frame, err := message.Encode(message.TypeServerClosed, message.ServerClosed{To: viewerID, Room: room})
			if err == nil {
				peer.Sender.Enqueue(frame)
			}
			delete(r.peers, viewerID)
		}
	}

	delete(r.peers, session.HostPeerID)
}

// LeaveSession removes id's membership: if id names a live session, the
// whole session is torn down (host leaving); if id names a viewer, only
// that viewer is removed. Fails with KindPeerNotFound if id is neither.
func (r *Registry) LeaveSession(id PeerId) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, isHost := r.sessions[id]; isHost {
		r.removeSession(id)
		return nil
	}

	peer, isPeer := r.peers[id]
	if !isPeer {
		return newError(KindPeerNotFound, fmt.Sprintf("peer not found: %s", id))
	}

	if session, ok := r.sessions[peer.Room]; ok {
		session.Viewers.Delete(id)
	}
	delete(r.peers, id)
	return nil
}

// OnDisconnect runs cleanup for socket. Only host sockets are tracked
// (§3, §9); a viewer's socket closing is invisible here until it sends an
// explicit leave.
func (r *Registry) OnDisconnect(socket SocketAddress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.socketToRoom[socket]; ok {
		r.removeSession(room)
	}
}

// SubscribeRoomUpdates adds peerID to the room-update subscriber set.
// No validation that peerID names a connected peer (§4.3).
func (r *Registry) SubscribeRoomUpdates(peerID PeerId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers.Insert(peerID)
}

// UnsubscribeRoomUpdates removes peerID from the subscriber set; a no-op
// if it was never subscribed.
func (r *Registry) UnsubscribeRoomUpdates(peerID PeerId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers.Delete(peerID)
}

// NotifyRoomUpdate pushes new_room_notification to every subscriber that
// is still a connected peer; missing peers are silently skipped (§3
// invariant 5) and never removed from the subscriber set by this call.
func (r *Registry) NotifyRoomUpdate(room Room) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frame, err := message.Encode(message.TypeNewRoomNotification, message.NewRoomNotification{Room: room})
	if err != nil {
		return
	}
	for _, subscriberID := range r.subscribers.UnsortedList() {
		if peer, ok := r.peers[subscriberID]; ok {
			peer.Sender.Enqueue(frame)
		}
	}
}

// PeerByID returns the connected peer for id, if any. Used by the
// protocol handler to resolve forward targets.
func (r *Registry) PeerByID(id PeerId) (Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[id]
	if !ok {
		return Peer{}, false
	}
	return *p, true
}

// PeerBySender finds the peer whose Sender is identical (by interface
// equality) to sender. It is how subscribe/unsubscribe and ice_servers
// locate "the peer associated with this connection" without a dedicated
// per-connection identity token — the same sender-handle-identity
// strategy the source registry uses (§9). Returns (Peer{}, false) if no
// peer currently owns that sender.
func (r *Registry) PeerBySender(sender Sender) (Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.peers {
		if p.Sender == sender {
			return *p, true
		}
	}
	return Peer{}, false
}

// GetAvailableRoomsQuery bundles the optional filter/sort/page parameters
// of §4.3; a nil field means "do not constrain on this criterion".
type GetAvailableRoomsQuery struct {
	OS      *string
	Version *string
	Server  *string
	Name    *string
	Sort    *string
	Control *bool
	Page    *int
	PerPage *int
}

const defaultPerPage = 6

// GetAvailableRooms filters live sessions by query, sorts them, and
// returns one page of message.RoomInfo plus the total count of matches
// before pagination (§4.3). os/version/server match case-insensitively
// on equality, name matches as a case-insensitive substring, and control
// matches exactly, mirroring the source registry's get_available_rooms.
func (r *Registry) GetAvailableRooms(q GetAvailableRoomsQuery) (map[string]message.RoomInfo, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		if q.OS != nil && !strings.EqualFold(session.OS, *q.OS) {
			continue
		}
		if q.Version != nil && !strings.EqualFold(session.Version, *q.Version) {
			continue
		}
		if q.Server != nil && !strings.EqualFold(session.Room, *q.Server) {
			continue
		}
		if q.Name != nil && !strings.Contains(strings.ToLower(session.Name), strings.ToLower(*q.Name)) {
			continue
		}
		if q.Control != nil && session.Control != *q.Control {
			continue
		}
		matched = append(matched, session)
	}

	if q.Sort != nil && *q.Sort == "asc" {
		sort.Slice(matched, func(i, j int) bool { return matched[i].StartTime.Before(matched[j].StartTime) })
	} else {
		sort.Slice(matched, func(i, j int) bool { return matched[i].StartTime.After(matched[j].StartTime) })
	}

	total := len(matched)

	perPage := defaultPerPage
	if q.PerPage != nil && *q.PerPage > 0 {
		perPage = *q.PerPage
	}
	page := 1
	if q.Page != nil && *q.Page > 0 {
		page = *q.Page
	}

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	pageItems := matched[start:end]

	rooms := make(map[string]message.RoomInfo, len(pageItems))
	for _, session := range pageItems {
		rooms[session.Room] = message.RoomInfo{
			Server:      session.Room,
			ViewerCount: session.Viewers.Len(),
			Viewers:     session.Viewers.UnsortedList(),
			OS:          session.OS,
			Version:     session.Version,
			Name:        session.Name,
			Control:     session.Control,
		}
	}
	return rooms, total
}
