package session

import "context"

// Connect starts a fresh connection attempt with a reset retry budget. It is
// the explicit retrigger after retries are exhausted. It returns
// token.ErrNoCredential when no valid credential is stored.
func (s *Session) Connect(ctx context.Context) error {
	reply := make(chan error, 1)
	return s.call(ctx, connectReq{Reply: reply}, reply)
}

// Disconnect closes the connection and clears all cached state. The session
// stays usable.
func (s *Session) Disconnect(ctx context.Context) error {
	reply := make(chan error, 1)
	return s.call(ctx, disconnectReq{Reply: reply}, reply)
}

// View returns the current snapshot, or an Idle view once closed.
func (s *Session) View() View {
	reply := make(chan View, 1)
	select {
	case s.inbox <- getView{Reply: reply}:
	case <-s.done:
		return View{Status: StatusIdle}
	}
	select {
	case v := <-reply:
		return v
	case <-s.done:
		return View{Status: StatusIdle}
	}
}

func (s *Session) IsConnected() bool { return s.View().Connected }

// Subscribe registers for view and notice updates. The current view is
// delivered immediately.
func (s *Session) Subscribe(ctx context.Context) (*Subscription, error) {
	reply := make(chan *Subscription, 1)
	select {
	case s.inbox <- subscribeReq{Reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrClosed
	}
	select {
	case sub := <-reply:
		return sub, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrClosed
	}
}
