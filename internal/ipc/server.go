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
	"sync"

	"papertriage/internal/daemon"
	"papertriage/internal/history"
	"papertriage/internal/logging"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. shutdown is
// invoked when a client requests daemon termination.
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

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx, shutdown: shutdown}
	if err := rpcServer.RegisterName("Papertriage", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
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
				s.logger.Warn("accept failed", logging.Error(err))
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

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	daemon   *daemon.Daemon
	logger   *slog.Logger
	ctx      context.Context
	shutdown func()
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return logging.NewComponentLogger(s.logger, "ipc")
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("processing start requested")
	if err := s.daemon.StartProcessing(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "processing started"
	s.log().Info("processing started via IPC")
	return nil
}

func (s *service) PauseResume(_ PauseResumeRequest, resp *PauseResumeResponse) error {
	resp.Paused = s.daemon.PauseResume()
	if resp.Paused {
		s.log().Info("processing paused via IPC")
	} else {
		s.log().Info("processing resumed via IPC")
	}
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("processing stop requested")
	s.daemon.StopProcessing()
	resp.Stopped = true
	s.log().Info("processing stopped via IPC")
	return nil
}

func (s *service) ResetStats(_ ResetStatsRequest, resp *ResetStatsResponse) error {
	s.daemon.ResetStats()
	resp.Reset = true
	s.log().Info("stats reset via IPC")
	return nil
}

func (s *service) ClearCheckpoints(_ ClearCheckpointsRequest, resp *ClearCheckpointsResponse) error {
	removed, err := s.daemon.ClearCheckpoints()
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("checkpoints cleared via IPC", logging.Int("removed", removed))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.PID = status.PID
	resp.State = string(status.Processor.State)
	resp.RunID = status.Processor.RunID
	resp.CurrentID = status.Processor.CurrentID
	resp.CurrentDoc = status.Processor.CurrentDoc
	resp.LastError = status.Processor.LastError
	resp.Stats = status.Processor.Stats
	resp.Checkpoint = status.Processor.Checkpoint
	resp.CheckpointPath = status.CheckpointPath
	resp.HistoryDBPath = status.HistoryDBPath
	resp.LockPath = status.LockFilePath
	return nil
}

func (s *service) Logs(req LogsRequest, resp *LogsResponse) error {
	resp.Entries = s.daemon.Logs(req.Limit)
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	runs, err := s.daemon.History(s.ctx, limit)
	if err != nil {
		return err
	}
	resp.Runs = make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		resp.Runs = append(resp.Runs, runSummary(run))
	}
	return nil
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	resp.ShuttingDown = true
	s.log().Info("shutdown requested via IPC")
	if s.shutdown != nil {
		go s.shutdown()
	}
	return nil
}

func runSummary(run history.Run) RunSummary {
	return RunSummary{
		ID:          run.ID,
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
		Total:       run.Total,
		Processed:   run.Processed,
		HighQuality: run.HighQuality,
		LowQuality:  run.LowQuality,
		NoConsensus: run.NoConsensus,
		Errors:      run.Errors,
		Skipped:     run.Skipped,
		StopReason:  run.StopReason,
	}
}
