// Package transport carries wire frames over an authenticated websocket.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/deposit-auction-client/internal/wire"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrClosed       = errors.New("connection closed")
)

// 1 MiB; lot snapshots with embedded offers exceed the library default.
const readLimit = 1 << 20

type Conn interface {
	// Read returns the next frame. Undecodable messages are reported with
	// wire.ErrMalformed and the connection stays usable.
	Read(ctx context.Context) (wire.Frame, error)
	Write(ctx context.Context, f wire.Frame) error
	Close() error
}

type Dialer interface {
	// Dial completes the handshake presenting token as the bearer credential.
	// A 401 or 403 from the server is reported as ErrUnauthorized.
	Dial(ctx context.Context, token string) (Conn, error)
}

type WebsocketDialer struct {
	URL        string
	HTTPClient *http.Client
	logger     *zap.Logger
}

func NewWebsocketDialer(rawURL string, logger *zap.Logger) *WebsocketDialer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebsocketDialer{URL: rawURL, logger: logger.Named("transport")}
}

func (d *WebsocketDialer) Dial(ctx context.Context, token string) (Conn, error) {
	target, err := endpoint(d.URL, token)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.Dial(ctx, target, &websocket.DialOptions{
		HTTPClient: d.HTTPClient,
		HTTPHeader: header,
	})
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: handshake status %d", ErrUnauthorized, resp.StatusCode)
		}
		return nil, fmt.Errorf("transport: dial: %w", err)
	}
	conn.SetReadLimit(readLimit)

	d.logger.Debug("connected", zap.String("host", hostOf(target)))
	return &wsConn{conn: conn}, nil
}

// endpoint maps http(s) to ws(s) and adds the token query parameter some
// deployments read instead of the header.
func endpoint(raw, token string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("transport: bad url %q: %w", raw, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("transport: unsupported scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Read(ctx context.Context) (wire.Frame, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return wire.Frame{}, fmt.Errorf("%w: %v", ErrClosed, err)
		}
		return wire.Frame{}, err
	}

	var f wire.Frame
	if err := json.Unmarshal(data, &f); err != nil || f.Event == "" {
		return wire.Frame{}, fmt.Errorf("%w: envelope: %q", wire.ErrMalformed, truncate(data, 64))
	}
	return f, nil
}

func (c *wsConn) Write(ctx context.Context, f wire.Frame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("transport: encode %s: %w", f.Event, err)
	}
	return c.conn.Write(ctx, websocket.MessageText, payload)
}

func (c *wsConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
