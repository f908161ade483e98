// internal/handlers/conn_test.go
package handlers

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/jason-s-yu/eights/internal/game"
	"github.com/jason-s-yu/eights/internal/hub"
	"github.com/jason-s-yu/eights/internal/protocol"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGameServer(t *testing.T) *GameServer {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return NewGameServer(game.NewEightsGame(), hub.New(logger, 64, time.Second), logger)
}

// lineClient is the test side of a session.
type lineClient struct {
	conn net.Conn
	sc   *bufio.Scanner
	done chan struct{}
}

// join opens a piped session and sends the display name.
func join(t *testing.T, ctx context.Context, gs *GameServer, name string) *lineClient {
	t.Helper()
	server, peer := net.Pipe()
	c := &lineClient{conn: peer, sc: bufio.NewScanner(peer), done: make(chan struct{})}
	go func() {
		defer close(c.done)
		gs.ServeConn(ctx, server, TransportTCP)
	}()
	t.Cleanup(func() { _ = peer.Close() })
	c.send(t, name)
	return c
}

func (c *lineClient) send(t *testing.T, line string) {
	t.Helper()
	require.NoError(t, c.conn.SetWriteDeadline(time.Now().Add(2*time.Second)))
	_, err := c.conn.Write([]byte(line + "\n"))
	require.NoError(t, err)
}

// expect reads lines until want arrives and returns everything read before it.
func (c *lineClient) expect(t *testing.T, want string) []string {
	t.Helper()
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var seen []string
	for c.sc.Scan() {
		line := c.sc.Text()
		if line == want {
			return seen
		}
		seen = append(seen, line)
	}
	t.Fatalf("never received %q; got %q (err %v)", want, seen, c.sc.Err())
	return nil
}

// expectClosed drains until the server closes the session.
func (c *lineClient) expectClosed(t *testing.T) {
	t.Helper()
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for c.sc.Scan() {
	}
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end")
	}
}

func TestServeConnJoinAndChat(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gs := newTestGameServer(t)

	alice := join(t, ctx, gs, "alice")
	alice.expect(t, "alice has joined the game!")
	bob := join(t, ctx, gs, "  bob ")
	alice.expect(t, "bob has joined the game!")
	bob.expect(t, "bob has joined the game!")

	alice.send(t, "CHAT:hello bob")
	alice.expect(t, "alice: hello bob")
	bob.expect(t, "alice: hello bob")

	assert.Len(t, gs.Game.Snapshot().Players, 2)
	assert.Equal(t, 2, gs.Hub.Len())
}

func TestServeConnRejectsEmptyName(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gs := newTestGameServer(t)

	c := join(t, ctx, gs, "   ")
	c.expect(t, game.ErrEmptyName.Message)
	c.expectClosed(t)
	assert.Empty(t, gs.Game.Snapshot().Players)
	assert.Zero(t, gs.Hub.Len())
}

func TestServeConnRejectsNamesThatForgeServerLines(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gs := newTestGameServer(t)

	alice := join(t, ctx, gs, "alice")
	alice.expect(t, "alice has joined the game!")

	for _, name := range []string{"WINNER:alice", "GAME_OVER:Server", "bob|8 of Spades"} {
		c := join(t, ctx, gs, name)
		c.expect(t, game.ErrInvalidName.Message)
		c.expectClosed(t)
	}

	// the next line alice sees is a genuine join, not a forged WINNER or GAME_OVER
	join(t, ctx, gs, "bob")
	seen := alice.expect(t, "bob has joined the game!")
	for _, line := range seen {
		ev, err := protocol.DecodeServerLine(line)
		require.NoError(t, err)
		assert.NotEqual(t, game.EventWinner, ev.Type, line)
		assert.NotEqual(t, game.EventGameOver, ev.Type, line)
	}
	assert.Len(t, gs.Game.Snapshot().Players, 2)
}

func TestServeConnRejectsWhenFull(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gs := newTestGameServer(t)
	gs.Game.MaxPlayers = 1

	alice := join(t, ctx, gs, "alice")
	alice.expect(t, "alice has joined the game!")

	bob := join(t, ctx, gs, "bob")
	bob.expect(t, game.ErrTableFull.Message)
	bob.expectClosed(t)
	assert.Len(t, gs.Game.Snapshot().Players, 1)
}

func TestServeConnProtocolErrorsArePrivate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gs := newTestGameServer(t)

	alice := join(t, ctx, gs, "alice")
	alice.expect(t, "alice has joined the game!")
	bob := join(t, ctx, gs, "bob")
	alice.expect(t, "bob has joined the game!")
	bob.expect(t, "bob has joined the game!")

	bob.send(t, "FLY")
	bob.send(t, "")
	bob.send(t, "PLAY:Joker")
	bob.expect(t, "Unknown command.")
	bob.expect(t, "Invalid move: Unrecognized card.")

	bob.send(t, "CHAT:marker")
	seen := alice.expect(t, "bob: marker")
	assert.Empty(t, seen, "alice saw nothing from bob's bad lines")
}

func TestServeConnGameFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gs := newTestGameServer(t)

	alice := join(t, ctx, gs, "alice")
	alice.expect(t, "alice has joined the game!")
	bob := join(t, ctx, gs, "bob")
	bob.expect(t, "bob has joined the game!")

	alice.send(t, "START_GAME")
	bob.expect(t, "alice is ready to start!")
	bob.expect(t, "Waiting for all players to press 'Start'...")
	bob.send(t, "START_GAME")

	bob.expect(t, "CLEAR_CHAT")
	bob.expect(t, "Game is starting...")
	seen := bob.expect(t, "TURN:alice")
	require.NotEmpty(t, seen)
	assert.True(t, strings.HasPrefix(seen[0], "HAND:"), "hand arrives first, got %q", seen[0])

	alice.expect(t, "YOUR_TURN")
	assert.Equal(t, game.StateInProgress, gs.Game.Snapshot().State)

	bob.send(t, "DRAW")
	bob.expect(t, game.ErrNotYourTurn.Message)
}

func TestServeConnDisconnectLeavesTable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gs := newTestGameServer(t)

	alice := join(t, ctx, gs, "alice")
	alice.expect(t, "alice has joined the game!")
	bob := join(t, ctx, gs, "bob")
	alice.expect(t, "bob has joined the game!")

	require.NoError(t, bob.conn.Close())
	alice.expect(t, "bob has left the game.")
	<-bob.done
	assert.Len(t, gs.Game.Snapshot().Players, 1)
	assert.Equal(t, 1, gs.Hub.Len())
}

func TestServeConnClosesOnOverlongLine(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gs := newTestGameServer(t)

	alice := join(t, ctx, gs, "alice")
	alice.expect(t, "alice has joined the game!")
	bob := join(t, ctx, gs, "bob")
	alice.expect(t, "bob has joined the game!")

	go func() {
		_ = bob.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		_, _ = bob.conn.Write([]byte("CHAT:" + strings.Repeat("x", 5000) + "\n"))
	}()
	alice.expect(t, "bob has left the game.")
	bob.expectClosed(t)
}

func TestServeConnStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gs := newTestGameServer(t)

	alice := join(t, ctx, gs, "alice")
	alice.expect(t, "alice has joined the game!")
	cancel()
	alice.expectClosed(t)
	assert.Empty(t, gs.Game.Snapshot().Players)
}

func TestServeTCPListener(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gs := newTestGameServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	served := make(chan error, 1)
	go func() { served <- gs.Serve(ctx, ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	c := &lineClient{conn: conn, sc: bufio.NewScanner(conn), done: make(chan struct{})}
	close(c.done)
	c.send(t, "alice")
	c.expect(t, "alice has joined the game!")

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
