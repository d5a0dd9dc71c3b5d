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
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) call(method string, req, resp any) error {
	return c.client.Call(ServiceName+"."+method, req, resp)
}

// Add admits the given requests.
func (c *Client) Add(req AddRequest) (*AddResponse, error) {
	var resp AddResponse
	if err := c.call("Add", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// List returns the active, pending and done queues.
func (c *Client) List() (*ListResponse, error) {
	var resp ListResponse
	if err := c.call("List", ListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel cancels pending or running jobs.
func (c *Client) Cancel(keys []string) (*OutcomeResponse, error) {
	var resp OutcomeResponse
	if err := c.call("Cancel", KeysRequest{Keys: keys}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Start starts pending jobs.
func (c *Client) Start(keys []string) (*OutcomeResponse, error) {
	var resp OutcomeResponse
	if err := c.call("Start", KeysRequest{Keys: keys}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Clear removes done records.
func (c *Client) Clear(keys []string, allDone bool) (*OutcomeResponse, error) {
	var resp OutcomeResponse
	if err := c.call("Clear", ClearRequest{Keys: keys, AllDone: allDone}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Resolve asks for a dry-run Spotify resolution.
func (c *Client) Resolve(url string, limit int) (*ResolveResponse, error) {
	var resp ResolveResponse
	if err := c.call("Resolve", ResolveRequest{URL: url, Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.call("Shutdown", ShutdownRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
