package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/smallnest/chanx"

	"github.com/DoyleJ11/deposit-auction-client/pkg/types"
)

// View is an immutable snapshot handed to callers. Slices are shared with the
// session and must not be modified.
type View struct {
	Version          int             `json:"version"`
	Status           Status          `json:"status"`
	Connected        bool            `json:"connected"`
	RetriesExhausted bool            `json:"retries_exhausted"`
	NeedsAuth        bool            `json:"needs_auth"`
	ReconnectAttempt int             `json:"reconnect_attempt"`
	Role             string          `json:"role,omitempty"`
	UserID           string          `json:"user_id,omitempty"`
	Auctions         []types.Auction `json:"auctions"`
	CurrentAuctionID string          `json:"current_auction_id,omitempty"`
	CurrentAuction   *types.Auction  `json:"current_auction,omitempty"`
	Lots             []types.Lot     `json:"lots"`
	OnlineUsers      []string        `json:"online_users"`
}

func (s *Session) view() View {
	v := View{
		Version:          s.version,
		Status:           s.status,
		Connected:        s.status == StatusConnected,
		RetriesExhausted: s.retriesExhausted,
		NeedsAuth:        s.needsAuth,
		ReconnectAttempt: s.policy.Attempts(),
		Role:             s.cred.Role(),
		UserID:           s.cred.Claims.UserID(),
		Auctions:         s.state.Auctions,
		CurrentAuctionID: s.state.CurrentAuctionID,
		Lots:             s.state.Lots,
		OnlineUsers:      s.state.OnlineUsers,
	}
	if s.state.CurrentAuction != nil {
		a := *s.state.CurrentAuction
		v.CurrentAuction = &a
	}
	return v
}

// Subscription receives every view change and every notice. Views keep only
// the latest value; notices are queued without bound.
type Subscription struct {
	id      string
	views   chan View
	notices *chanx.UnboundedChan[types.Notice]
	cancel  context.CancelFunc
	s       *Session
}

func (sub *Subscription) ID() string { return sub.id }

// Views is closed when the subscription ends.
func (sub *Subscription) Views() <-chan View { return sub.views }

// Notices is closed when the subscription ends.
func (sub *Subscription) Notices() <-chan types.Notice { return sub.notices.Out }

func (sub *Subscription) Close() {
	sub.s.post(unsubscribeReq{ID: sub.id})
}

func (s *Session) addSubscriber() *Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{
		id:      uuid.NewString(),
		views:   make(chan View, 1),
		notices: chanx.NewUnboundedChan[types.Notice](ctx, 16),
		cancel:  cancel,
		s:       s,
	}
	s.subs[sub.id] = sub
	sub.views <- s.view()
	return sub
}

func (s *Session) removeSubscriber(id string) {
	sub, ok := s.subs[id]
	if !ok {
		return
	}
	delete(s.subs, id)
	close(sub.views)
	sub.cancel()
}

// publish hands the current view to every subscriber, replacing any view
// they have not read yet.
func (s *Session) publish() {
	v := s.view()
	for _, sub := range s.subs {
		select {
		case sub.views <- v:
		default:
			select {
			case <-sub.views:
			default:
			}
			sub.views <- v
		}
	}
}

func (s *Session) notify(n types.Notice) {
	if n.At.IsZero() {
		n.At = s.clock.Now()
	}
	for _, sub := range s.subs {
		sub.notices.In <- n
	}
}
