package mpv

import (
	"bufio"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// request is a single JSON IPC command.
type request struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

// response is a reply to a command or an asynchronous event. mpv
// multiplexes both over the same line-delimited stream.
type response struct {
	RequestID int64           `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`

	Event     string `json:"event"`
	Name      string `json:"name"`
	Reason    string `json:"reason"`
	FileError string `json:"file_error"`
}

// ipcConn is a JSON IPC connection to a running mpv instance.
type ipcConn struct {
	conn net.Conn

	writeMu sync.Mutex
	enc     *json.Encoder

	pendingMu sync.Mutex
	pending   map[int64]chan response
	nextID    int64

	events chan response
	closed chan struct{}
	once   sync.Once
}

const commandTimeout = 5 * time.Second

func newIPCConn(conn net.Conn) *ipcConn {
	c := &ipcConn{
		conn:    conn,
		enc:     json.NewEncoder(conn),
		pending: make(map[int64]chan response),
		events:  make(chan response, 64),
		closed:  make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// dialIPC connects to the mpv socket, retrying until the player has
// had time to create it.
func dialIPC(socketPath string, timeout time.Duration) (*ipcConn, error) {
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.Dial("unix", socketPath)
		if err == nil {
			return newIPCConn(conn), nil
		}
		if time.Now().After(deadline) {
			return nil, errors.Wrapf(err, "mpv socket %s not reachable after %v", socketPath, timeout)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// command sends a command and waits for its reply.
func (c *ipcConn) command(args ...any) (json.RawMessage, error) {
	ch := make(chan response, 1)

	c.pendingMu.Lock()
	c.nextID++
	id := c.nextID
	c.pending[id] = ch
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	c.writeMu.Lock()
	err := c.enc.Encode(request{Command: args, RequestID: id})
	c.writeMu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "failed to write command")
	}

	select {
	case resp := <-ch:
		if resp.Error != "success" {
			return nil, errors.Newf("mpv rejected command: %s", resp.Error)
		}
		return resp.Data, nil
	case <-c.closed:
		return nil, errors.New("connection closed")
	case <-time.After(commandTimeout):
		return nil, errors.New("command timed out")
	}
}

func (c *ipcConn) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		var resp response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			zlog.Warn().Msgf("unparseable mpv message: %s", scanner.Text())
			continue
		}

		if resp.Event != "" {
			select {
			case c.events <- resp:
			default:
				zlog.Warn().Msgf("mpv event buffer full, dropping %s", resp.Event)
			}
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[resp.RequestID]
		c.pendingMu.Unlock()
		if ok {
			ch <- resp
		}
	}

	c.close()
}

func (c *ipcConn) close() {
	c.once.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
}
