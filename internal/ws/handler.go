package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/deposit-auction-client/internal/session"
	"github.com/DoyleJ11/deposit-auction-client/internal/types"
)

const writeTimeout = 3 * time.Second

// Handler streams every view and notice of the session to one local client
// and forwards the client's command messages to the session.
func Handler(f Facade, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
		})
		if err != nil {
			logger.Debug("accept", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sub, err := f.Subscribe(ctx)
		if err != nil {
			logger.Warn("subscribe", zap.Error(err))
			conn.Close(websocket.StatusTryAgainLater, "session unavailable")
			return
		}
		defer sub.Close()
		log := logger.With(zap.String("client", sub.ID()))
		log.Info("client attached")

		replies := make(chan types.ServerMessage, 8)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer cancel()
			writeLoop(ctx, conn, sub, replies, log)
		}()
		defer func() {
			cancel()
			wg.Wait()
		}()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					if ctx.Err() == nil {
						log.Debug("read", zap.Error(err))
					}
				}
				log.Info("client detached")
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				reply(ctx, replies, types.ErrorMessage("bad json"))
				continue
			}
			if err := Dispatch(ctx, f, cm); err != nil {
				log.Debug("command failed", zap.String("type", cm.Type), zap.Error(err))
				reply(ctx, replies, types.ErrorMessage(err.Error()))
			}
		}
	}
}

func reply(ctx context.Context, replies chan<- types.ServerMessage, m types.ServerMessage) {
	select {
	case replies <- m:
	case <-ctx.Done():
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, sub *session.Subscription, replies <-chan types.ServerMessage, log *zap.Logger) {
	views, notices := sub.Views(), sub.Notices()
	for {
		var m types.ServerMessage
		select {
		case <-ctx.Done():
			return
		case v, ok := <-views:
			if !ok {
				return
			}
			m = types.StateMessage(v)
		case n, ok := <-notices:
			if !ok {
				return
			}
			m = types.NoticeMessage(n)
		case m = <-replies:
		}

		if err := write(ctx, conn, m); err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Debug("write", zap.Error(err))
			}
			return
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, m types.ServerMessage) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, payload)
}
