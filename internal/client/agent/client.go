package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/pmvault/internal/client/router"
)

// ErrAgentUnavailable is returned when the agent socket cannot be reached.
var ErrAgentUnavailable = errors.New("agent is not running")

// Client is one connection to the agent. Send calls are serialised. A
// Send that failed leaves the stream in an unknown state; close the client.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
	r    *bufio.Reader
}

func Dial(ctx context.Context, path string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAgentUnavailable, err)
	}
	return &Client{conn: conn, r: newReader(conn)}, nil
}

// Send writes req and waits for its response. A ctx deadline bounds the
// whole exchange.
func (c *Client) Send(ctx context.Context, req router.Request) (router.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetDeadline(deadline); err != nil {
		return router.Response{}, err
	}
	stop := context.AfterFunc(ctx, func() { c.conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	b, err := json.Marshal(req)
	if err != nil {
		return router.Response{}, err
	}
	if _, err := c.conn.Write(append(b, '\n')); err != nil {
		return router.Response{}, c.ioErr(ctx, err)
	}

	line, err := c.r.ReadBytes('\n')
	if err != nil {
		return router.Response{}, c.ioErr(ctx, err)
	}
	var resp router.Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return router.Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

func (c *Client) ioErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if _, ok := ctx.Deadline(); ok && errors.Is(err, os.ErrDeadlineExceeded) {
		return context.DeadlineExceeded
	}
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: connection closed", ErrAgentUnavailable)
	}
	return fmt.Errorf("%w: %v", ErrAgentUnavailable, err)
}

func newReader(conn net.Conn) *bufio.Reader {
	return bufio.NewReaderSize(conn, 64*1024)
}

func (c *Client) Close() error {
	return c.conn.Close()
}
