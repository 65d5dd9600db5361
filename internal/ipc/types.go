package ipc

import (
	"encoding/json"
	"net"
	"sync"

	"github.com/rs/zerolog"
)

// Command names understood by the wallet state server.
const (
	CmdSitesList     = "sites-list"
	CmdSitesRecent   = "sites-recent"
	CmdSitesRemove   = "sites-remove"
	CmdSitesPin      = "sites-pin"
	CmdSitesUnpin    = "sites-unpin"
	CmdPendingList   = "pending-list"
	CmdPendingRemove = "pending-remove"
	CmdPendingClear  = "pending-clear"
)

type Command struct {
	ID      int      `json:"id"`
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// Response carries either a JSON result or an error message. Errors travel as
// strings because error values do not survive JSON encoding.
type Response struct {
	ID     int             `json:"id"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

type Server struct {
	listener    net.Listener
	commands    chan Command
	done        chan struct{}
	closeOnce   sync.Once
	mutex       sync.Mutex
	connections map[int]net.Conn // Maps command ID to the client connection
	socketPath  string
	logger      zerolog.Logger
}

type Client struct {
	conn net.Conn
}
