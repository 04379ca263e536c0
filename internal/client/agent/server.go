package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/pmvault/internal/client/router"
	"github.com/dmitrijs2005/pmvault/internal/filex"
	"github.com/dmitrijs2005/pmvault/internal/logging"
	"golang.org/x/sync/errgroup"
)

// maxLine bounds a single request line.
const maxLine = 1 << 20

// Dispatcher is implemented by *router.Router.
type Dispatcher interface {
	Dispatch(ctx context.Context, req router.Request) router.Response
}

type Server struct {
	dispatcher Dispatcher
	log        logging.Logger
	// IdleTimeout closes connections that send nothing for this long.
	// Zero disables it.
	IdleTimeout time.Duration
}

func NewServer(d Dispatcher, log logging.Logger) *Server {
	return &Server{dispatcher: d, log: log.With("module", "agent")}
}

// Listen creates the socket at path, replacing a stale one, and restricts
// it to the current user.
func Listen(path string) (net.Listener, error) {
	if err := filex.EnsureDir(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("set socket permissions: %w", err)
	}
	return ln, nil
}

// Serve accepts connections until ctx is done or ln is closed. Open
// connections are closed on the way out.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return ln.Close()
	})

	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				if errors.Is(err, net.ErrClosed) {
					return err
				}
				s.log.Warn(gctx, "accept failed", "err", err)
				continue
			}
			g.Go(func() error {
				s.handle(gctx, conn)
				return nil
			})
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 4096), maxLine)
	enc := json.NewEncoder(conn)

	for {
		if s.IdleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.IdleTimeout))
		}
		if !sc.Scan() {
			if err := sc.Err(); err != nil && ctx.Err() == nil {
				s.log.Debug(ctx, "connection closed", "err", err)
			}
			return
		}
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}

		var resp router.Response
		var req router.Request
		if err := json.Unmarshal(line, &req); err != nil {
			resp = router.Response{ErrorKind: router.KindInvalidRequest, Error: "malformed request"}
		} else {
			resp = s.dispatcher.Dispatch(ctx, req)
		}

		if err := enc.Encode(resp); err != nil {
			s.log.Debug(ctx, "write response failed", "err", err)
			return
		}
	}
}
