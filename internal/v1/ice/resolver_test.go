package ice

import (
	"testing"

	"github.com/screenhub/signalhub/internal/v1/message"
	"github.com/stretchr/testify/assert"
)

type mapConfig map[string]string

func (m mapConfig) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func TestResolve_NoConfigReturnsEmpty(t *testing.T) {
	servers := Resolve("peer1", mapConfig{})
	assert.Empty(t, servers)
}

func TestResolve_StunServers(t *testing.T) {
	servers := Resolve("peer1", mapConfig{
		"STUN_SERVERS": "stun:a.example.com, stun:b.example.com",
	})
	assert.Equal(t, []message.IceServer{
		{URL: "stun:a.example.com"},
		{URL: "stun:b.example.com"},
	}, servers)
}

func TestResolve_TurnServerConfigsSkipsShortEntries(t *testing.T) {
	servers := Resolve("peer1", mapConfig{
		"TURN_SERVER_CONFIGS": "turn:a.example.com|user1|pass1,turn:bad",
	})
	assert.Equal(t, []message.IceServer{
		{URL: "turn:a.example.com", Username: "user1", Password: "pass1"},
	}, servers)
}

func TestResolve_LegacyTurnRequiresAllThreeVars(t *testing.T) {
	servers := Resolve("peer1", mapConfig{
		"TURN_SERVERS":  "turn:a.example.com",
		"TURN_USERNAME": "user",
		// TURN_CREDENTIAL intentionally missing
	})
	assert.Empty(t, servers)
}

func TestResolve_LegacyTurnAllThreeSet(t *testing.T) {
	servers := Resolve("peer1", mapConfig{
		"TURN_SERVERS":     "turn:a.example.com,turn:b.example.com",
		"TURN_USERNAME":    "user",
		"TURN_CREDENTIAL":  "cred",
	})
	assert.Equal(t, []message.IceServer{
		{URL: "turn:a.example.com", Username: "user", Password: "cred"},
		{URL: "turn:b.example.com", Username: "user", Password: "cred"},
	}, servers)
}

func TestResolve_WhitelistBlocksAbsentPeer(t *testing.T) {
	servers := Resolve("not-whitelisted", mapConfig{
		"ICE_SERVER_WHITELIST": "peerA,peerB",
		"STUN_SERVERS":         "stun:a.example.com",
	})
	assert.Equal(t, []message.IceServer{}, servers)
}

func TestResolve_WhitelistAllowsListedPeer(t *testing.T) {
	servers := Resolve("peerA", mapConfig{
		"ICE_SERVER_WHITELIST": "peerA,peerB",
		"STUN_SERVERS":         "stun:a.example.com",
	})
	assert.Equal(t, []message.IceServer{{URL: "stun:a.example.com"}}, servers)
}

func TestResolve_EmptyWhitelistDoesNotGate(t *testing.T) {
	servers := Resolve("anyone", mapConfig{
		"ICE_SERVER_WHITELIST": "",
		"STUN_SERVERS":         "stun:a.example.com",
	})
	assert.Equal(t, []message.IceServer{{URL: "stun:a.example.com"}}, servers)
}

func TestResolve_CombinesAllSources(t *testing.T) {
	servers := Resolve("peer1", mapConfig{
		"STUN_SERVERS":        "stun:a.example.com",
		"TURN_SERVER_CONFIGS": "turn:b.example.com|u1|p1",
		"TURN_SERVERS":        "turn:c.example.com",
		"TURN_USERNAME":       "u2",
		"TURN_CREDENTIAL":     "p2",
	})
	assert.Equal(t, []message.IceServer{
		{URL: "stun:a.example.com"},
		{URL: "turn:b.example.com", Username: "u1", Password: "p1"},
		{URL: "turn:c.example.com", Username: "u2", Password: "p2"},
	}, servers)
}
