// internal/handlers/tcp_server.go
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
)

// TransportTCP labels sessions accepted on the raw line listener.
const TransportTCP = "tcp"

// ListenAndServe accepts line-protocol clients on addr until ctx is cancelled.
func (gs *GameServer) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return gs.Serve(ctx, ln)
}

// Serve runs one session goroutine per accepted connection. It closes ln when ctx ends
// and waits for open sessions before returning.
func (gs *GameServer) Serve(ctx context.Context, ln net.Listener) error {
	gs.Logger.WithField("addr", ln.Addr().String()).Info("TCP listener started")

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				gs.Logger.Info("TCP listener stopped")
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			gs.ServeConn(ctx, conn, TransportTCP)
		}()
	}
}
