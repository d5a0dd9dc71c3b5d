package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"tubeferry/internal/daemon"
	"tubeferry/internal/logging"
	"tubeferry/internal/queue"
	"tubeferry/internal/services"
	"tubeferry/internal/store"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. shutdown,
// when non-nil, is invoked by the Shutdown RPC.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, shutdown func()) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: serverCtx, shutdown: shutdown}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file. Open client
// connections finish their current call.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually"))
	}
}

type service struct {
	daemon   *daemon.Daemon
	logger   *slog.Logger
	ctx      context.Context
	shutdown func()
}

// requestContext tags each call with a fresh correlation id.
func (s *service) requestContext() context.Context {
	return services.WithRequestID(s.ctx, uuid.NewString())
}

func outcome(res queue.Result) Outcome {
	return Outcome{Status: res.Status, Msg: res.Msg, Kind: services.Kind(res.Err)}
}

func items(entries []store.Entry) []Item {
	out := make([]Item, 0, len(entries))
	for _, e := range entries {
		out = append(out, Item{Key: e.Key, Descriptor: e.Descriptor})
	}
	return out
}

func cleanKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func (s *service) Add(req AddRequest, resp *AddResponse) error {
	if len(req.Requests) == 0 {
		return errors.New("at least one url is required")
	}
	resp.Results = make([]AddResult, 0, len(req.Requests))
	for _, r := range req.Requests {
		ctx := s.requestContext()
		res := s.daemon.Add(ctx, r)
		resp.Results = append(resp.Results, AddResult{URL: r.URL, Outcome: outcome(res)})
		logger := logging.WithContext(ctx, s.logger)
		logger.Info("add requested via IPC",
			logging.String(logging.FieldEventType, "queue_add"),
			logging.String("url", r.URL),
			logging.String("status", res.Status),
		)
	}
	return nil
}

func (s *service) List(_ ListRequest, resp *ListResponse) error {
	snap := s.daemon.Snapshot()
	resp.Active = items(snap.Active)
	resp.Pending = items(snap.Pending)
	resp.Done = items(snap.Done)
	return nil
}

func (s *service) Cancel(req KeysRequest, resp *OutcomeResponse) error {
	keys := cleanKeys(req.Keys)
	if len(keys) == 0 {
		return errors.New("no keys given")
	}
	resp.Outcome = outcome(s.daemon.Cancel(s.requestContext(), keys))
	s.logger.Info("cancel requested via IPC",
		logging.String(logging.FieldEventType, "queue_cancel"),
		logging.Int("keys", len(keys)))
	return nil
}

func (s *service) Start(req KeysRequest, resp *OutcomeResponse) error {
	keys := cleanKeys(req.Keys)
	if len(keys) == 0 {
		return errors.New("no keys given")
	}
	resp.Outcome = outcome(s.daemon.StartPending(s.requestContext(), keys))
	s.logger.Info("start requested via IPC",
		logging.String(logging.FieldEventType, "queue_start"),
		logging.Int("keys", len(keys)))
	return nil
}

func (s *service) Clear(req ClearRequest, resp *OutcomeResponse) error {
	keys := cleanKeys(req.Keys)
	if len(keys) == 0 && !req.AllDone {
		return errors.New("no keys given")
	}
	resp.Outcome = outcome(s.daemon.Clear(s.requestContext(), keys, req.AllDone))
	s.logger.Info("clear requested via IPC",
		logging.String(logging.FieldEventType, "queue_clear"),
		logging.Int("keys", len(keys)),
		logging.Bool("all_done", req.AllDone))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	st := s.daemon.Status()
	*resp = StatusResponse{
		Running:       st.Running,
		Restoring:     st.Restoring,
		PID:           st.PID,
		StartedAt:     st.StartedAt,
		Mode:          st.Mode,
		MaxConcurrent: st.MaxConcurrent,
		Active:        st.Active,
		Pending:       st.Pending,
		Done:          st.Done,
		StateDir:      st.StateDir,
		LockPath:      st.LockPath,
		SocketPath:    st.SocketPath,
		Spotify:       st.Spotify,
		Dependencies:  st.Dependencies,
	}
	return nil
}

func (s *service) Resolve(req ResolveRequest, resp *ResolveResponse) error {
	plan, err := s.daemon.Resolve(s.requestContext(), strings.TrimSpace(req.URL), req.Limit)
	if err != nil {
		return err
	}
	resp.Plan = plan
	return nil
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	if s.shutdown == nil {
		return errors.New("shutdown is not supported by this server")
	}
	s.logger.Info("shutdown requested via IPC", logging.String(logging.FieldEventType, "daemon_shutdown"))
	s.shutdown()
	resp.Stopping = true
	return nil
}
