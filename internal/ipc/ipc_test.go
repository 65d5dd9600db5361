package ipc

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("unix sockets only")
	}
	dir, err := os.MkdirTemp("", "ipc")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	path := filepath.Join(dir, "s.sock")
	s, err := NewServer(path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

// serve answers commands the way the wallet server does.
func serve(s *Server) {
	go func() {
		for {
			select {
			case cmd := <-s.Commands():
				switch cmd.Command {
				case "echo":
					s.Reply(cmd.ID, cmd.Args, nil)
				case "fail":
					s.Reply(cmd.ID, nil, errors.New("nothing to do"))
				default:
					s.Reply(cmd.ID, nil, errors.Errorf("unknown command: %s", cmd.Command))
				}
			case <-s.Done():
				return
			}
		}
	}()
}

func send(t *testing.T, path, command string, args []string, out interface{}) error {
	t.Helper()
	c, err := NewClient(path)
	require.NoError(t, err)
	defer c.Close()
	return c.SendCommand(command, args, out)
}

func TestRoundTrip(t *testing.T) {
	s, path := newTestServer(t)
	serve(s)

	var got []string
	require.NoError(t, send(t, path, "echo", []string{"a", "b"}, &got))
	assert.Equal(t, []string{"a", "b"}, got)

	err := send(t, path, "fail", nil, nil)
	require.Error(t, err)
	assert.Equal(t, "nothing to do", err.Error())

	err = send(t, path, "bogus", nil, nil)
	assert.ErrorContains(t, err, "unknown command: bogus")
}

func TestConcurrentClients(t *testing.T) {
	s, path := newTestServer(t)
	serve(s)

	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			var got []string
			c, err := NewClient(path)
			if err != nil {
				errs <- err
				return
			}
			defer c.Close()
			errs <- c.SendCommand("echo", []string{"x"}, &got)
		}()
	}
	for i := 0; i < 10; i++ {
		assert.NoError(t, <-errs)
	}
}

func TestNewServerReplacesStaleSocket(t *testing.T) {
	s, path := newTestServer(t)
	require.NoError(t, s.Close())

	require.NoError(t, os.WriteFile(path, nil, 0600))
	again, err := NewServer(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, again.Close())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "close removes the socket file")
}

func TestClientWithoutServer(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix sockets only")
	}
	_, err := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	assert.ErrorContains(t, err, "not running")
}

func TestCloseIsIdempotent(t *testing.T) {
	s, _ := newTestServer(t)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
