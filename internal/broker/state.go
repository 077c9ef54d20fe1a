package broker

// State is the lifecycle of the broker connection.
//
//	Disconnected -> Connecting -> Connected
//	                    |
//	                    +-------> Failed (terminal)
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
