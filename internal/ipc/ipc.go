// Package ipc lets CLI invocations talk to a running wallet state server over
// a local socket. Each connection carries one command and one response.
package ipc

import (
	"encoding/json"
	"io"
	"net"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const windowsSocketAddr = "127.0.0.1:7070"

const dialTimeout = 3 * time.Second

var commandID int64

func generateCommandID() int {
	return int(atomic.AddInt64(&commandID, 1))
}

func listen(socketPath string) (net.Listener, error) {
	if runtime.GOOS == "windows" {
		return net.Listen("tcp", windowsSocketAddr)
	}
	// A stale socket from a crashed run blocks the bind.
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return nil, errors.Wrap(err, "failed to remove existing socket file")
		}
	}
	return net.Listen("unix", socketPath)
}

func dial(socketPath string) (net.Conn, error) {
	if runtime.GOOS == "windows" {
		return net.DialTimeout("tcp", windowsSocketAddr, dialTimeout)
	}
	return net.DialTimeout("unix", socketPath, dialTimeout)
}

func NewServer(socketPath string, logger zerolog.Logger) (*Server, error) {
	listener, err := listen(socketPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on %s", socketPath)
	}

	server := &Server{
		listener:    listener,
		commands:    make(chan Command),
		done:        make(chan struct{}),
		connections: make(map[int]net.Conn),
		socketPath:  socketPath,
		logger:      logger.With().Str("component", "ipc").Logger(),
	}

	go server.accept()

	return server, nil
}

func (s *Server) accept() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn().Err(err).Msg("accept failed")
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	var cmd Command
	if err := json.NewDecoder(conn).Decode(&cmd); err != nil {
		if err != io.EOF {
			s.logger.Error().Err(err).Msg("failed to read command")
		}
		conn.Close()
		return
	}
	if cmd.ID <= 0 || cmd.Command == "" {
		s.logger.Warn().Int("id", cmd.ID).Msg("ignoring malformed command")
		conn.Close()
		return
	}

	s.mutex.Lock()
	s.connections[cmd.ID] = conn
	s.mutex.Unlock()

	select {
	case s.commands <- cmd:
	case <-s.done:
		s.mutex.Lock()
		delete(s.connections, cmd.ID)
		s.mutex.Unlock()
		conn.Close()
	}
}

func (s *Server) Commands() <-chan Command {
	return s.commands
}

// Done is closed when the server shuts down.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// SendResponse writes the response for command id and closes its connection.
func (s *Server) SendResponse(id int, response Response) {
	s.mutex.Lock()
	conn, exists := s.connections[id]
	delete(s.connections, id)
	s.mutex.Unlock()

	if !exists {
		s.logger.Warn().Int("id", id).Msg("connection for command not found")
		return
	}
	defer conn.Close()

	response.ID = id
	data, err := json.Marshal(response)
	if err != nil {
		s.logger.Error().Err(err).Int("id", id).Msg("failed to marshal response")
		return
	}
	if _, err := conn.Write(data); err != nil {
		s.logger.Error().Err(err).Int("id", id).Msg("failed to write response")
	}
}

// Reply encodes result, or err when non-nil, as the response to id.
func (s *Server) Reply(id int, result interface{}, err error) {
	if err != nil {
		s.SendResponse(id, Response{Error: err.Error()})
		return
	}
	raw, mErr := json.Marshal(result)
	if mErr != nil {
		s.SendResponse(id, Response{Error: mErr.Error()})
		return
	}
	s.SendResponse(id, Response{Result: raw})
}

func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.listener.Close()

		s.mutex.Lock()
		for id, conn := range s.connections {
			conn.Close()
			delete(s.connections, id)
		}
		s.mutex.Unlock()

		if runtime.GOOS != "windows" {
			_ = os.Remove(s.socketPath)
		}
	})
	return err
}

func NewClient(socketPath string) (*Client, error) {
	conn, err := dial(socketPath)
	if err != nil {
		return nil, errors.Wrap(err, "wallet state server is not running")
	}
	return &Client{conn: conn}, nil
}

// SendCommand sends one command and decodes the result into out, which may
// be nil when the result is not needed.
func (c *Client) SendCommand(command string, args []string, out interface{}) error {
	cmd := Command{
		ID:      generateCommandID(),
		Command: command,
		Args:    args,
	}

	if err := json.NewEncoder(c.conn).Encode(cmd); err != nil {
		return errors.Wrap(err, "error writing command to connection")
	}

	responseData, err := io.ReadAll(c.conn)
	if err != nil {
		return errors.Wrap(err, "error reading response from connection")
	}

	var response Response
	if err := json.Unmarshal(responseData, &response); err != nil {
		return errors.Wrap(err, "error unmarshaling response")
	}
	if response.Error != "" {
		return errors.New(response.Error)
	}
	if out == nil || len(response.Result) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(response.Result, out), "error decoding result")
}

func (c *Client) Close() error {
	return c.conn.Close()
}
