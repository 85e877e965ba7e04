package session

import (
	"github.com/DoyleJ11/deposit-auction-client/internal/transport"
	"github.com/DoyleJ11/deposit-auction-client/internal/wire"
)

type msg interface{ isSessionMsg() }

// Caller requests.

type connectReq struct {
	Reply chan error
}

type disconnectReq struct {
	Reply chan error
}

type commandReq struct {
	Frame wire.Frame
	// JoinAuctionID schedules the follow-up lot snapshot request.
	JoinAuctionID string
	Reply         chan error
}

type getView struct {
	Reply chan View
}

type subscribeReq struct {
	Reply chan *Subscription
}

type unsubscribeReq struct {
	ID string
}

// Internal traffic. Everything tagged with gen is dropped once the
// generation it belongs to has been torn down.

type dialResult struct {
	gen  uint64
	conn transport.Conn
	err  error
}

type frameIn struct {
	gen   uint64
	frame wire.Frame
}

type linkDown struct {
	gen uint64
	err error
}

type reconnectDue struct {
	gen uint64
}

type lotsDue struct {
	gen       uint64
	auctionID string
}

type authSignal struct{}

type authDue struct {
	seq uint64
}

func (connectReq) isSessionMsg()     {}
func (disconnectReq) isSessionMsg()  {}
func (commandReq) isSessionMsg()     {}
func (getView) isSessionMsg()        {}
func (subscribeReq) isSessionMsg()   {}
func (unsubscribeReq) isSessionMsg() {}
func (dialResult) isSessionMsg()     {}
func (frameIn) isSessionMsg()        {}
func (linkDown) isSessionMsg()       {}
func (reconnectDue) isSessionMsg()   {}
func (lotsDue) isSessionMsg()        {}
func (authSignal) isSessionMsg()     {}
func (authDue) isSessionMsg()        {}
