// internal/node/state.go
package node

// State is the connection lifecycle position. Transitions:
// Disconnected→Connecting on Connect, Connecting→Open on handshake success,
// anything→Disconnected on Disconnect or fatal error. The listener runs only
// while the state is Connecting or Open.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "invalid"
	}
}
