// internal/handlers/game_ws.go
package handlers

import (
	"bytes"
	"context"
	"net"
	"net/http"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/eights/internal/protocol"
)

// TransportWS labels sessions carried over the WebSocket gateway.
const TransportWS = "ws"

// GameWSHandler upgrades the HTTP connection and runs the same line protocol as the
// TCP listener. Each text message is one line.
func GameWSHandler(gs *GameServer, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"eights"},
			OriginPatterns: originPatterns,
		})
		if err != nil {
			gs.Logger.Warnf("WebSocket accept error from %s: %v", r.RemoteAddr, err)
			return
		}
		if sp := c.Subprotocol(); sp != "" && sp != "eights" {
			c.Close(BadSubprotocolError, "Client must use the 'eights' subprotocol.")
			return
		}
		c.SetReadLimit(protocol.MaxLineBytes + 1)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		gs.ServeConn(ctx, newWSLineConn(ctx, c, r.RemoteAddr), TransportWS)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// wsLineConn adapts a WebSocket to net.Conn. Writes go through websocket.NetConn;
// reads return one message at a time with a trailing newline so a line scanner
// sees each message as a line.
type wsLineConn struct {
	net.Conn
	ctx    context.Context
	ws     *websocket.Conn
	remote wsAddr
	buf    []byte
}

func newWSLineConn(ctx context.Context, c *websocket.Conn, remote string) *wsLineConn {
	return &wsLineConn{
		Conn:   websocket.NetConn(ctx, c, websocket.MessageText),
		ctx:    ctx,
		ws:     c,
		remote: wsAddr(remote),
	}
}

func (w *wsLineConn) Read(p []byte) (int, error) {
	for len(w.buf) == 0 {
		typ, data, err := w.ws.Read(w.ctx)
		if err != nil {
			return 0, err
		}
		if typ != websocket.MessageText {
			continue
		}
		data = bytes.TrimRight(data, "\r\n")
		w.buf = append(data, '\n')
	}
	n := copy(p, w.buf)
	w.buf = w.buf[n:]
	return n, nil
}

// Write strips the line terminator; one message carries one line.
func (w *wsLineConn) Write(p []byte) (int, error) {
	if _, err := w.Conn.Write(bytes.TrimRight(p, "\n")); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsLineConn) RemoteAddr() net.Addr {
	return w.remote
}

type wsAddr string

func (a wsAddr) Network() string { return "websocket" }
func (a wsAddr) String() string  { return string(a) }
