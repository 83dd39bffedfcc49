package game

// ConnectionId identifies one live network session.
type ConnectionId string

func (id ConnectionId) String() string {
	return string(id)
}

// Connection maps a live session to the instance and user it belongs to.
// UserId and Nickname are empty until the connection identifies.
type Connection struct {
	Id       ConnectionId
	ServerId ServerId
	UserId   UserId
	Nickname string
}

// Identified reports whether the identify handshake has completed.
func (c Connection) Identified() bool {
	return c.UserId != ""
}
