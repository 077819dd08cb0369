// internal/client/events.go
package client

import "github.com/erilali/neonchat/internal/transport"

// event is anything the Manager's loop reacts to: user intents and
// transport notifications. Transport events carry the generation of the
// connection attempt that produced them.
type event interface {
	isEvent()
}

type loginIntent struct {
	username string
	room     string
}

type messageIntent struct {
	content string
}

type logoutIntent struct{}

type opened struct {
	gen  uint64
	conn transport.Conn
}

type frameReceived struct {
	gen  uint64
	data []byte
}

type closed struct {
	gen uint64
	err error
}

func (loginIntent) isEvent()   {}
func (messageIntent) isEvent() {}
func (logoutIntent) isEvent()  {}
func (opened) isEvent()        {}
func (frameReceived) isEvent() {}
func (closed) isEvent()        {}
