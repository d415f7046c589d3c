// Command client is a headless demo harness that dials a collaboration
// session over a websocket and drives the text and whiteboard engines
// against it, the way a real UI would without actually rendering one.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Roman-14/Concurrently-Accessible-Text-Editor-and-Whiteboard/internal/exportpdf"
	"github.com/Roman-14/Concurrently-Accessible-Text-Editor-and-Whiteboard/internal/text"
	"github.com/Roman-14/Concurrently-Accessible-Text-Editor-and-Whiteboard/internal/transport"
	"github.com/Roman-14/Concurrently-Accessible-Text-Editor-and-Whiteboard/internal/whiteboard"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "ws://localhost:8888/ws", "collaboration server websocket URL")
	discover := flag.Bool("discover", false, "browse the LAN for advertised sessions and print them, then exit")
	advertise := flag.Bool("advertise", false, "advertise this process on the LAN over mDNS while it runs")
	advertisePort := flag.Int("advertise-port", 8888, "port to advertise when -advertise is set")
	exportPath := flag.String("export", "", "wait for the initial snapshot, export the whiteboard to this PDF path, and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("collab-client", Version)
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if *discover {
		runDiscover(logger)
		return
	}

	if *advertise {
		server, err := transport.Advertise(*advertisePort, "collabspace")
		if err != nil {
			logger.Error("advertise failed", "error", err)
			os.Exit(1)
		}
		defer server.Shutdown()
	}

	if err := run(*serverURL, *exportPath, logger); err != nil {
		logger.Error("client exited with error", "error", err)
		os.Exit(1)
	}
}

func runDiscover(logger *slog.Logger) {
	found := 0
	err := transport.Discover(func(addr string) {
		found++
		fmt.Println(addr)
	})
	if err != nil {
		logger.Error("discovery failed", "error", err)
		os.Exit(1)
	}
	if found == 0 {
		logger.Info("no sessions found on the LAN")
	}
}

func run(serverURL, exportPath string, logger *slog.Logger) error {
	ws, _, err := websocket.DefaultDialer.Dial(serverURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", serverURL, err)
	}
	conn := transport.NewConn(ws, transport.WithLogger(logger))
	defer conn.Close()

	textEngine := text.NewEngine(conn, text.WithLogger(logger))
	boardEngine := whiteboard.NewEngine(conn, whiteboard.WithLogger(logger))

	textEngine.OnChange = func() {
		logger.Debug("document changed", "content", textEngine.Render())
	}

	dispatchDone := make(chan error, 1)
	go func() {
		dispatchDone <- conn.Dispatch(transport.Engines{Text: textEngine, Board: boardEngine})
	}()

	if exportPath != "" {
		return waitAndExport(textEngine, boardEngine, exportPath, dispatchDone)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case err := <-dispatchDone:
		return err
	}
}

// waitAndExport blocks until the server's initial snapshot has arrived
// (or the connection dies, or ten seconds pass) and then exports whatever
// whiteboard state has accumulated so far.
func waitAndExport(textEngine *text.Engine, boardEngine *whiteboard.Engine, path string, dispatchDone <-chan error) error {
	deadline := time.NewTimer(10 * time.Second)
	defer deadline.Stop()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if textEngine.State() == text.StateConnected {
			return exportpdf.Export(path, boardEngine)
		}
		select {
		case err := <-dispatchDone:
			return err
		case <-deadline.C:
			return fmt.Errorf("timed out waiting for initial snapshot")
		case <-ticker.C:
		}
	}
}
