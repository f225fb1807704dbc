// Package ice resolves the set of STUN/TURN servers handed back to a peer
// in response to an ice_servers request (§4.4). It is a pure function of
// a PeerId and a configuration source — no state, no I/O, no locking —
// so calling it never touches the registry or its mutex.
package ice

import (
	"strings"

	"github.com/screenhub/signalhub/internal/v1/message"
)

// ConfigSource is the minimal environment-like contract the resolver
// needs. *config.Config (internal/v1/config) implements it; tests can
// supply a plain map-backed stub.
type ConfigSource interface {
	// Lookup returns the raw string value for key and whether it was set
	// at all (mirroring os.LookupEnv's "present but empty" distinction).
	Lookup(key string) (string, bool)
}

const (
	keyWhitelist         = "ICE_SERVER_WHITELIST"
	keyStunServers       = "STUN_SERVERS"
	keyTurnServerConfigs = "TURN_SERVER_CONFIGS"
	keyTurnServers       = "TURN_SERVERS"
	keyTurnUsername      = "TURN_USERNAME"
	keyTurnCredential    = "TURN_CREDENTIAL"
)

// Resolve computes the ICE server list for peerID given cfg, applying the
// whitelist gate first and then combining STUN_SERVERS, TURN_SERVER_CONFIGS
// and the legacy TURN_SERVERS/TURN_USERNAME/TURN_CREDENTIAL triple, in
// that order, exactly as specified in §4.4.
func Resolve(peerID string, cfg ConfigSource) []message.IceServer {
	if whitelist, ok := cfg.Lookup(keyWhitelist); ok {
		ids := splitTrim(whitelist)
		if len(ids) > 0 && !contains(ids, peerID) {
			return []message.IceServer{}
		}
	}

	servers := make([]message.IceServer, 0, 4)

	if stun, ok := cfg.Lookup(keyStunServers); ok {
		for _, url := range splitTrim(stun) {
			if url == "" {
				continue
			}
			servers = append(servers, message.IceServer{URL: url})
		}
	}

	if turnConfigs, ok := cfg.Lookup(keyTurnServerConfigs); ok {
		for _, entry := range strings.Split(turnConfigs, ",") {
			parts := strings.Split(entry, "|")
			if len(parts) < 3 {
				continue
			}
			servers = append(servers, message.IceServer{
				URL:      strings.TrimSpace(parts[0]),
				Username: strings.TrimSpace(parts[1]),
				Password: strings.TrimSpace(parts[2]),
			})
		}
	}

	turnURLs, hasURLs := cfg.Lookup(keyTurnServers)
	turnUser, hasUser := cfg.Lookup(keyTurnUsername)
	turnCred, hasCred := cfg.Lookup(keyTurnCredential)
	if hasURLs && hasUser && hasCred {
		for _, url := range splitTrim(turnURLs) {
			if url == "" {
				continue
			}
			servers = append(servers, message.IceServer{
				URL:      url,
				Username: strings.TrimSpace(turnUser),
				Password: strings.TrimSpace(turnCred),
			})
		}
	}

	return servers
}

func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
