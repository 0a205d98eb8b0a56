package backend

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Instance is a running llama-server, however it was launched.
type Instance interface {
	URL() string
	Stop() error
}

// Server is a llama-server child process on a local port.
type Server struct {
	Port    int
	cmd     *exec.Cmd
	logFile *os.File
}

type StartOpts struct {
	Binary    string
	ModelPath string
	Ctx       int
	Threads   int
	LogDir    string
}

// Model load can take a while on large GGUF files.
const startupTimeout = 5 * time.Minute

func FindFreePort() (int, error) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, fmt.Errorf("finding free port: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port, nil
}

func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.Port)
}

func Start(ctx context.Context, opts *StartOpts) (*Server, error) {
	port, err := FindFreePort()
	if err != nil {
		return nil, err
	}

	os.MkdirAll(opts.LogDir, 0o755)
	logPath := filepath.Join(opts.LogDir, fmt.Sprintf("llama-server-%d.log", port))
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("creating log file: %w", err)
	}

	cmd := exec.CommandContext(ctx, opts.Binary,
		"-m", opts.ModelPath,
		"--port", fmt.Sprintf("%d", port),
		"--ctx-size", fmt.Sprintf("%d", opts.Ctx),
		"--threads", fmt.Sprintf("%d", opts.Threads),
	)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("starting %s: %w", opts.Binary, err)
	}

	if err := waitForPort(port, startupTimeout); err != nil {
		cmd.Process.Kill()
		logFile.Close()
		return nil, fmt.Errorf("%s did not start (see %s): %w", opts.Binary, logPath, err)
	}

	return &Server{Port: port, cmd: cmd, logFile: logFile}, nil
}

func (s *Server) Stop() error {
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}
	if s.logFile != nil {
		s.logFile.Close()
	}
	return nil
}

// waitForPort blocks until something accepts TCP connections on the port.
func waitForPort(port int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", port), time.Second)
		if err == nil {
			conn.Close()
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("port %d not ready after %s", port, timeout)
}
