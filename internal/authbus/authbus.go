// Package authbus broadcasts "the stored credential changed" to every
// interested session. Signals carry no payload; receivers re-read the store.
package authbus

import (
	"context"

	"github.com/google/uuid"
)

type Msg interface{ isBusMsg() }

type subscribe struct {
	Reply chan subscription
}

type unsubscribe struct {
	ID string
}

type publish struct{}

type countSubscribers struct {
	Reply chan int
}

func (subscribe) isBusMsg()        {}
func (unsubscribe) isBusMsg()      {}
func (publish) isBusMsg()          {}
func (countSubscribers) isBusMsg() {}

type subscription struct {
	id string
	ch chan struct{}
}

type Bus struct {
	inbox  chan Msg
	subs   map[string]chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(parent context.Context) *Bus {
	ctx, cancel := context.WithCancel(parent)
	b := &Bus{
		inbox:  make(chan Msg, 64),
		subs:   make(map[string]chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Bus) loop() {
	defer close(b.done)
	for {
		select {
		case <-b.ctx.Done():
			for id, ch := range b.subs {
				close(ch)
				delete(b.subs, id)
			}
			return

		case m := <-b.inbox:
			switch msg := m.(type) {
			case subscribe:
				sub := subscription{id: uuid.NewString(), ch: make(chan struct{}, 1)}
				b.subs[sub.id] = sub.ch
				msg.Reply <- sub

			case unsubscribe:
				if ch, ok := b.subs[msg.ID]; ok {
					close(ch)
					delete(b.subs, msg.ID)
				}

			case publish:
				for _, ch := range b.subs {
					select {
					case ch <- struct{}{}:
					default:
						// a signal is already pending for this subscriber
					}
				}

			case countSubscribers:
				msg.Reply <- len(b.subs)
			}
		}
	}
}

func (b *Bus) send(m Msg) bool {
	if b.ctx.Err() != nil {
		return false
	}
	select {
	case b.inbox <- m:
		return true
	case <-b.ctx.Done():
		return false
	}
}

// Subscribe returns a channel that receives one value per burst of changes.
// The channel is closed on Unsubscribe or Close.
func (b *Bus) Subscribe() (string, <-chan struct{}) {
	reply := make(chan subscription, 1)
	if !b.send(subscribe{Reply: reply}) {
		return closedSubscription()
	}
	select {
	case sub := <-reply:
		return sub.id, sub.ch
	case <-b.done:
		return closedSubscription()
	}
}

func (b *Bus) Unsubscribe(id string) { b.send(unsubscribe{ID: id}) }

func (b *Bus) Publish() { b.send(publish{}) }

// Subscribers reports the live subscription count.
func (b *Bus) Subscribers() int {
	reply := make(chan int, 1)
	if !b.send(countSubscribers{Reply: reply}) {
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-b.done:
		return 0
	}
}

// Close stops the bus and waits for its goroutine.
func (b *Bus) Close() {
	b.cancel()
	<-b.done
}

func closedSubscription() (string, <-chan struct{}) {
	ch := make(chan struct{})
	close(ch)
	return "", ch
}
