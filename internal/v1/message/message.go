// Package message defines the wire protocol of the signalling hub: a single
// tagged-union JSON envelope, discriminated by a "type" field, plus the
// codec rules around it.
//
// Decoding is intentionally permissive about unknown extra fields (the
// encoding/json decoder ignores them by default) and strict about the
// fields each variant requires. Forwarded variants (offer, answer, ice,
// join, join_declined) are never re-encoded once received — callers keep
// the original raw bytes and hand them straight to the destination peer's
// outbound queue, which preserves opaque SDP/candidate payloads the hub
// does not parse.
package message

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type is the wire discriminator carried in every frame's "type" field.
type Type string

const (
	TypeStart                  Type = "start"
	TypeStartResponse          Type = "start_response"
	TypeJoin                   Type = "join"
	TypeJoinDeclined           Type = "join_declined"
	TypeOffer                  Type = "offer"
	TypeAnswer                 Type = "answer"
	TypeIce                    Type = "ice"
	TypeLeave                  Type = "leave"
	TypeServerClosed           Type = "server_closed"
	TypeKeepAlive              Type = "keep_alive"
	TypeIceServers             Type = "ice_servers"
	TypeIceServersResponse     Type = "ice_servers_response"
	TypeGetRoomList            Type = "get_room_list"
	TypeRoomListResponse       Type = "room_list_response"
	TypeSubscribeRoomUpdates   Type = "subscribe_room_updates"
	TypeUnsubscribeRoomUpdates Type = "unsubscribe_room_updates"
	TypeNewRoomNotification    Type = "new_room_notification"
)

// ErrMalformedFrame is returned by Decode for any JSON error, unknown
// discriminator, or missing required field. It carries the kind name used
// in logging per the hub's error taxonomy.
var ErrMalformedFrame = errors.New("malformed frame")

// IceServer describes one STUN/TURN endpoint handed back to a client.
// Username and Password default to the empty string when unset, matching
// the resolver's contract (§4.4).
type IceServer struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// RoomInfo is the public, per-room summary returned by get_room_list.
type RoomInfo struct {
	Server      string   `json:"server"`
	ViewerCount int      `json:"viewer_count"`
	Viewers     []string `json:"viewers"`
	OS          string   `json:"os"`
	Version     string   `json:"version"`
	Name        string   `json:"name"`
	Control     bool     `json:"control"`
}

// Start requests creation of a new session; the sending connection becomes
// the session's host and Room becomes its PeerId.
type Start struct {
	Room    string `json:"room"`
	Name    string `json:"name"`
	OS      string `json:"os"`
	Version string `json:"version"`
	Control bool   `json:"control"`
}

// StartResponse confirms session creation to the host.
type StartResponse struct {
	Room string `json:"room"`
}

// Join requests that a viewer attach to an existing room.
type Join struct {
	From string `json:"from"`
	Room string `json:"room"`
}

// JoinDeclined is sent to a viewer whose Join failed, or forwarded
// verbatim when client-originated.
type JoinDeclined struct {
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// Offer, Answer and Ice all carry opaque SDP/candidate payload fields that
// this package never inspects; From/To are the only fields the hub reads
// before forwarding the original bytes onward.
type Offer struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Answer struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Ice struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Leave asks the hub to tear down the sender's own membership (host or
// viewer, identified by From).
type Leave struct {
	From string `json:"from"`
}

// ServerClosed notifies a viewer that its host session ended.
type ServerClosed struct {
	To   string `json:"to"`
	Room string `json:"room"`
}

// KeepAlive is a no-op accepted for the benefit of intermediaries that
// would otherwise time out an idle connection.
type KeepAlive struct{}

// IceServers requests the caller's resolved ICE server list.
type IceServers struct{}

// IceServersResponse carries the resolved list back to the requester.
type IceServersResponse struct {
	IceServers []IceServer `json:"ice_servers"`
}

// GetRoomList is a room-discovery query; every field is optional and an
// absent field does not constrain the result.
type GetRoomList struct {
	OS      *string
	Name    *string
	Version *string
	Server  *string
	Sort    *string
	Control *bool
	Page    *int
	PerPage *int
}

// RoomListResponse answers GetRoomList.
type RoomListResponse struct {
	Rooms      map[string]RoomInfo `json:"rooms"`
	TotalCount int                 `json:"total_count"`
	Page       *int                `json:"page,omitempty"`
	PerPage    *int                `json:"per_page,omitempty"`
}

// SubscribeRoomUpdates/UnsubscribeRoomUpdates toggle delivery of
// NewRoomNotification to the sending connection's associated peer.
type SubscribeRoomUpdates struct{}
type UnsubscribeRoomUpdates struct{}

// NewRoomNotification is pushed to subscribers after a session is created.
type NewRoomNotification struct {
	Room string `json:"room"`
}

// rawEnvelope is used only for decoding: it keeps every optional field as
// a *json.RawMessage-free pointer so "field present but empty" can be told
// apart from "field absent", which matters for GetRoomList's filters.
type rawEnvelope struct {
	Type Type `json:"type"`

	Room    *string `json:"room"`
	Name    *string `json:"name"`
	OS      *string `json:"os"`
	Version *string `json:"version"`
	Control *bool   `json:"control"`

	From *string `json:"from"`
	To   *string `json:"to"`

	Reason *string `json:"reason"`

	IceServers *[]IceServer `json:"ice_servers"`

	Server  *string `json:"server"`
	Sort    *string `json:"sort"`
	Page    *int    `json:"page"`
	PerPage *int    `json:"per_page"`

	Rooms      *map[string]RoomInfo `json:"rooms"`
	TotalCount *int                 `json:"total_count"`
}

func require(name string, v *string) (string, error) {
	if v == nil {
		return "", fmt.Errorf("%w: missing field %q", ErrMalformedFrame, name)
	}
	return *v, nil
}

// PeekType reads only the "type" discriminator out of a raw frame, without
// validating the rest of the payload. Used by callers that want to log the
// offending type even when full decoding fails.
func PeekType(raw []byte) (Type, bool) {
	var head struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return "", false
	}
	return head.Type, head.Type != ""
}

// Decode parses a raw JSON frame into one of the typed variants above.
// The returned value's dynamic type is one of the payload structs declared
// in this file (Start, Join, Offer, ...). An error is always ErrMalformedFrame (possibly wrapped)
// on any failure: bad JSON, unknown type, or a missing required field.
func Decode(raw []byte) (Type, any, error) {
	var env rawEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch env.Type {
	case TypeStart:
		room, err := require("room", env.Room)
		if err != nil {
			return env.Type, nil, err
		}
		name, err := require("name", env.Name)
		if err != nil {
			return env.Type, nil, err
		}
		os, err := require("os", env.OS)
		if err != nil {
			return env.Type, nil, err
		}
		version, err := require("version", env.Version)
		if err != nil {
			return env.Type, nil, err
		}
		control := false
		if env.Control != nil {
			control = *env.Control
		}
		return env.Type, Start{Room: room, Name: name, OS: os, Version: version, Control: control}, nil

	case TypeStartResponse:
		room, err := require("room", env.Room)
		if err != nil {
			return env.Type, nil, err
		}
		return env.Type, StartResponse{Room: room}, nil

	case TypeJoin:
		from, err := require("from", env.From)
		if err != nil {
			return env.Type, nil, err
		}
		room, err := require("room", env.Room)
		if err != nil {
			return env.Type, nil, err
		}
		return env.Type, Join{From: from, Room: room}, nil

	case TypeJoinDeclined:
		to, err := require("to", env.To)
		if err != nil {
			return env.Type, nil, err
		}
		reason := ""
		if env.Reason != nil {
			reason = *env.Reason
		}
		return env.Type, JoinDeclined{To: to, Reason: reason}, nil

	case TypeOffer:
		from, err := require("from", env.From)
		if err != nil {
			return env.Type, nil, err
		}
		to, err := require("to", env.To)
		if err != nil {
			return env.Type, nil, err
		}
		return env.Type, Offer{From: from, To: to}, nil

	case TypeAnswer:
		from, err := require("from", env.From)
		if err != nil {
			return env.Type, nil, err
		}
		to, err := require("to", env.To)
		if err != nil {
			return env.Type, nil, err
		}
		return env.Type, Answer{From: from, To: to}, nil

	case TypeIce:
		from, err := require("from", env.From)
		if err != nil {
			return env.Type, nil, err
		}
		to, err := require("to", env.To)
		if err != nil {
			return env.Type, nil, err
		}
		return env.Type, Ice{From: from, To: to}, nil

	case TypeLeave:
		from, err := require("from", env.From)
		if err != nil {
			return env.Type, nil, err
		}
		return env.Type, Leave{From: from}, nil

	case TypeServerClosed:
		to, err := require("to", env.To)
		if err != nil {
			return env.Type, nil, err
		}
		room, err := require("room", env.Room)
		if err != nil {
			return env.Type, nil, err
		}
		return env.Type, ServerClosed{To: to, Room: room}, nil

	case TypeKeepAlive:
		return env.Type, KeepAlive{}, nil

	case TypeIceServers:
		return env.Type, IceServers{}, nil

	case TypeIceServersResponse:
		servers := []IceServer{}
		if env.IceServers != nil {
			servers = *env.IceServers
		}
		return env.Type, IceServersResponse{IceServers: servers}, nil

	case TypeGetRoomList:
		return env.Type, GetRoomList{
			OS:      env.OS,
			Name:    env.Name,
			Version: env.Version,
			Server:  env.Server,
			Sort:    env.Sort,
			Control: env.Control,
			Page:    env.Page,
			PerPage: env.PerPage,
		}, nil

	case TypeRoomListResponse:
		rooms := map[string]RoomInfo{}
		if env.Rooms != nil {
			rooms = *env.Rooms
		}
		total := 0
		if env.TotalCount != nil {
			total = *env.TotalCount
		}
		return env.Type, RoomListResponse{Rooms: rooms, TotalCount: total, Page: env.Page, PerPage: env.PerPage}, nil

	case TypeSubscribeRoomUpdates:
		return env.Type, SubscribeRoomUpdates{}, nil

	case TypeUnsubscribeRoomUpdates:
		return env.Type, UnsubscribeRoomUpdates{}, nil

	case TypeNewRoomNotification:
		room, err := require("room", env.Room)
		if err != nil {
			return env.Type, nil, err
		}
		return env.Type, NewRoomNotification{Room: room}, nil

	default:
		return env.Type, nil, fmt.Errorf("%w: unknown type %q", ErrMalformedFrame, env.Type)
	}
}

// Encode marshals one of the typed variants above, injecting its "type"
// discriminator. It is used only for hub-originated messages
// (start_response, join_declined-by-hub, server_closed, ice_servers_response,
// room_list_response, new_room_notification) — forwarded client frames
// bypass Encode entirely and travel as the original bytes (see package doc).
func Encode(t Type, payload any) ([]byte, error) {
	wrapper := map[string]any{"type": string(t)}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", t, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode %s: %w", t, err)
	}
	for k, v := range fields {
		wrapper[k] = v
	}
	return json.Marshal(wrapper)
}
