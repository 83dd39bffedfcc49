package game

// Broadcaster delivers events to connections. Payloads are encoded by the implementation.
type Broadcaster interface {
	ToConnection(connId ConnectionId, event string, data any) error
	ToInstance(serverId ServerId, event string, data any) error
	ToInstanceTick(serverId ServerId, data any) error
	ToAll(event string, data any) error
}
