package voice

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	dialTimeout  = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
)

// Listener subscribes to the provider's event socket for one live connection
// and feeds decoded events to an EventSink in read order.
type Listener struct {
	url    string
	apiKey string
	dialer *websocket.Dialer
}

func NewListener(url, apiKey string) *Listener {
	return &Listener{
		url:    url,
		apiKey: apiKey,
		dialer: &websocket.Dialer{HandshakeTimeout: dialTimeout},
	}
}

// Run dials the provider and pumps events until the socket closes or ctx is
// cancelled. The sink's OnClose is always invoked exactly once on the way out.
func (l *Listener) Run(ctx context.Context, connectionID string, sink EventSink) error {
	header := http.Header{}
	if l.apiKey != "" {
		header.Set("X-Api-Key", l.apiKey)
	}

	conn, _, err := l.dialer.DialContext(ctx, l.url, header)
	if err != nil {
		sink.OnClose(ctx)
		return fmt.Errorf("dial voice provider: %w", err)
	}
	defer conn.Close()
	defer sink.OnClose(ctx)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go l.pingLoop(ctx, conn)

	log.Info().
		Str("connectionId", connectionID).
		Str("url", l.url).
		Msg("voice event stream connected")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info().Str("connectionId", connectionID).Msg("voice event stream closed")
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read voice event: %w", err)
		}

		if err := Dispatch(ctx, sink, raw); err != nil {
			// A malformed event is logged and skipped; the stream stays up.
			log.Error().
				Err(err).
				Str("connectionId", connectionID).
				Msg("failed to dispatch voice event")
		}
	}
}

func (l *Listener) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(dialTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
