package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Start requests a processing run.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Papertriage.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PauseResume toggles the pause state of the active run.
func (c *Client) PauseResume() (*PauseResumeResponse, error) {
	var resp PauseResumeResponse
	if err := c.client.Call("Papertriage.PauseResume", PauseResumeRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop halts the active run at the next document boundary.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Papertriage.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResetStats zeroes the run counters.
func (c *Client) ResetStats() (*ResetStatsResponse, error) {
	var resp ResetStatsResponse
	if err := c.client.Call("Papertriage.ResetStats", ResetStatsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearCheckpoints drops all checkpoint records.
func (c *Client) ClearCheckpoints() (*ClearCheckpointsResponse, error) {
	var resp ClearCheckpointsResponse
	if err := c.client.Call("Papertriage.ClearCheckpoints", ClearCheckpointsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Papertriage.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logs returns buffered log entries from the daemon.
func (c *Client) Logs(limit int) (*LogsResponse, error) {
	var resp LogsResponse
	if err := c.client.Call("Papertriage.Logs", LogsRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns recent run summaries.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.client.Call("Papertriage.History", HistoryRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.client.Call("Papertriage.Shutdown", ShutdownRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
