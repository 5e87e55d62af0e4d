package link

import "time"

// State is the connection state of a Client.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

type EventKind int

const (
	EventConnected EventKind = iota
	// EventDisconnected is emitted when a loop ends on a transport failure or
	// Disconnect completes.
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Loop names reported in events.
const (
	LoopSend    = "send"
	LoopReceive = "receive"
	LoopControl = "control"
)

// Event reports a connection state change. Err is set when a loop failed.
type Event struct {
	Kind EventKind
	Loop string
	Err  error
	At   time.Time
}
