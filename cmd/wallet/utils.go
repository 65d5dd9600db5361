package main

import (
	"encoding/json"
	"io"

	"github.com/Maphikza/flow-wallet-state/internal/config"
	"github.com/Maphikza/flow-wallet-state/internal/ipc"
	"github.com/pkg/errors"
)

// sendCommand runs one IPC command against the running server and decodes
// its result into out.
func sendCommand(command string, args []string, out interface{}) error {
	client, err := ipc.NewClient(config.Current().IPCSocket)
	if err != nil {
		return errors.Wrap(err, "error connecting to wallet server")
	}
	defer client.Close()

	return client.SendCommand(command, args, out)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
