package transport

// State is the connection state. Only the Transport changes it.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Transmitting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Transmitting:
		return "transmitting"
	default:
		return "unknown"
	}
}
