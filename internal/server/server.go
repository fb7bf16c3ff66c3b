// Package server implements the acceptor and per-connection event
// loop: one goroutine per accepted connection, sharing a single
// textproto.Executor driven against the Store's locked method set
// (no hand-rolled OS-thread reactor; no epoll/kqueue polling, that
// would not be idiomatic Go). Connection goroutines run with the Go
// runtime's ordinary parallelism; the Store's per-shard RWMutex is
// what keeps concurrent Set/Get/Delete calls from different
// connections safe. There is no worker pool and no connection-level
// synchronization beyond that.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/emberkv/emberkv/internal/logging"
	"github.com/emberkv/emberkv/internal/store"
	"github.com/emberkv/emberkv/internal/textproto"
)

// sendBufferBytes is the enlarged socket send buffer, sized well
// above one flushThreshold's worth of output.
const sendBufferBytes = 512 * 1024

// Server accepts TCP connections and serves the memcached text
// protocol against a single Store.
type Server struct {
	addr  string
	store *store.Store
	exec  *textproto.Executor
	now   func() int64
	log   *logging.Logger

	listener net.Listener
	wg       sync.WaitGroup
}

// New creates a Server listening on addr (e.g. ":11211") and serving
// s. limitMaxBytes is reported verbatim by the stats command.
func New(addr string, s *store.Store, limitMaxBytes uint64, log *logging.Logger) *Server {
	return &Server{
		addr:  addr,
		store: s,
		exec:  textproto.NewExecutor(s, limitMaxBytes),
		now:   defaultNow,
		log:   log,
	}
}

// ListenAndServe binds addr and serves connections until ctx is
// canceled or an unrecoverable accept error occurs. It blocks.
func (srv *Server) ListenAndServe(ctx context.Context) error {
	return srv.ListenAndServeNotify(ctx, nil)
}

// ListenAndServeNotify is ListenAndServe that, once the listener is
// bound, sends its actual address on ready (if non-nil) before
// accepting connections. This lets tests bind an ephemeral port
// (":0") and learn which one was chosen.
func (srv *Server) ListenAndServeNotify(ctx context.Context, ready chan<- string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", srv.addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", srv.addr, err)
	}
	srv.listener = ln
	srv.log.Infof("listening on %s", ln.Addr())
	if ready != nil {
		ready <- ln.Addr().String()
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				srv.wg.Wait()
				return nil
			default:
				srv.log.Warnf("accept: %v", err)
				return err
			}
		}
		tuneConn(nc)

		srv.wg.Add(1)
		go func() {
			defer srv.wg.Done()
			newConn(nc, srv.exec, srv.now).serve()
		}()
	}
}

// Close stops accepting new connections. In-flight connections run to
// completion.
func (srv *Server) Close() error {
	if srv.listener == nil {
		return nil
	}
	return srv.listener.Close()
}

// tuneConn applies the per-connection socket options: Nagle disabled
// (so small pipelined replies are not
// delayed) and an enlarged send buffer (so a flushed response rarely
// blocks on socket buffer space).
func tuneConn(nc net.Conn) {
	tc, ok := nc.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tc.SetNoDelay(true)
	_ = tc.SetWriteBuffer(sendBufferBytes)
}
