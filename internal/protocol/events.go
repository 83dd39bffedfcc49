package protocol

// Client to server events.
const (
	EventIdentify       = "identify"
	EventExecuteCommand = "executeCommand"
	EventUpdatePosition = "updatePosition"
)

// Server to client events.
const (
	EventUpdateUsers          = "updateUsers"
	EventServerUpdate         = "serverUpdate"
	EventUpdateBannedUsers    = "updateBannedUsers"
	EventUpdateVisiblePlayers = "updateVisiblePlayers"
	EventPlayerLeft           = "playerLeft"
	EventTickUpdate           = "tick:update"
	EventError                = "error"

	EventServerWaiting  = "server:waiting"
	EventServerInit     = "server:init"
	EventServerPreInit  = "server:preinit"
	EventServerPostInit = "server:postinit"
	EventServerReady    = "server:ready"
)

// EventKick is delivered on a connection subject to force the session closed.
// It is consumed by the listener and never written to the socket.
const EventKick = "server:kick"
