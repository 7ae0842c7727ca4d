package enum

// ConnectionState describes the lifecycle of a transport session.
// Legal transitions: disconnected -> connecting -> ready,
// connecting -> error, ready -> disconnected, and any state ->
// disconnected on an explicit disconnect.
type ConnectionState string

const (
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionConnecting   ConnectionState = "connecting"
	ConnectionReady        ConnectionState = "ready"
	ConnectionError        ConnectionState = "error"
)

func (t ConnectionState) String() string {
	return string(t)
}
