// internal/handlers/conn.go
package handlers

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/eights/internal/game"
	"github.com/jason-s-yu/eights/internal/middleware"
	"github.com/jason-s-yu/eights/internal/protocol"
	"github.com/sirupsen/logrus"
)

// ServeConn runs one participant session. The first line is the display name; every
// line after that is one command. It returns once the connection is closed.
func (gs *GameServer) ServeConn(ctx context.Context, conn net.Conn, transport string) {
	id := uuid.New()
	remote := conn.RemoteAddr().String()
	logger := gs.Logger.WithFields(logrus.Fields{
		"player_id": id,
		"transport": transport,
		"remote":    remote,
	})

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 1024), protocol.MaxLineBytes)

	if !scanner.Scan() {
		logger.WithError(scanner.Err()).Debug("connection closed before a name was sent")
		_ = conn.Close()
		return
	}
	name := strings.TrimSpace(scanner.Text())

	client := gs.Hub.NewClient(id, conn, transport)
	client.Name = name
	gs.Hub.Register(client)

	if err := gs.Game.AddPlayer(id, name); err != nil {
		logger.WithError(err).Info("participant rejected")
		client.Send(rejectionText(err))
		gs.Hub.Unregister(id)
		<-client.Done()
		return
	}
	middleware.LogConnect(gs.Logger, transport, remote, name)

	for scanner.Scan() {
		action, err := protocol.ParseCommand(scanner.Text())
		if errors.Is(err, protocol.ErrEmptyLine) {
			continue
		}
		if err != nil {
			logger.WithError(err).Debug("unparseable line")
			client.Send(protocol.ErrorNotice(err))
			continue
		}
		if err := gs.Game.HandlePlayerAction(id, action); err != nil {
			logger.WithError(err).WithField("action", action.ActionType).Debug("action rejected")
		}
	}

	readErr := scanner.Err()
	if errors.Is(readErr, bufio.ErrTooLong) {
		logger.Warn("line exceeds limit, closing connection")
	}

	gs.Hub.Unregister(id)
	gs.Game.HandleDisconnect(id)
	_ = conn.Close()
	<-client.Done()
	middleware.LogDisconnect(gs.Logger, transport, remote, name, readErr)
}

// rejectionText is the line sent to a connection refused a seat.
func rejectionText(err error) string {
	var gerr *game.GameError
	if errors.As(err, &gerr) {
		return gerr.Message
	}
	return err.Error()
}
