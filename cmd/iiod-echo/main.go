// Command iiod-echo is a small demonstration harness for the responder
// package: a TCP listener that spins up one Responder per accepted
// connection and answers PRINT/VERSION/TIMEOUT with a toy command
// handler, plus a "-client" mode that dials in and sends VERSION and PRINT.
// It is not an IIO domain client — that remains out of scope — it exists
// only to give the transports and the responder an end-to-end runnable
// example, the same cmd/+examples/ split the teacher uses.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/iiodkit/responder"
	"github.com/iiodkit/responder/internal/logging"
	"github.com/iiodkit/responder/transport/tcp"
)

const protocolVersion = "iiodkit-echo 1.0"

func main() {
	var (
		addr    = flag.String("addr", "127.0.0.1:30431", "address to listen on or dial")
		client  = flag.Bool("client", false, "run as a client instead of the server")
		verbose = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	if *client {
		if err := runClient(*addr, logger); err != nil {
			logger.Error("client failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := runServer(*addr, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func runServer(addr string, logger *logging.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	logger.Info("listening", "addr", addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return nil
		}
		go serveConn(conn, logger)
	}
}

// connState hands the live *Responder back to handleCommand once it
// exists. The Transport is constructed before the Responder (Create needs
// a Transport), so the command handler can't simply close over r; an
// atomic.Pointer set right after Create avoids that chicken-and-egg
// problem without a data race on the handoff.
type connState struct {
	r atomic.Pointer[responder.Responder]
}

func serveConn(conn net.Conn, logger *logging.Logger) {
	defer conn.Close()

	state := &connState{}
	txp := tcp.New(conn, handleCommand, state)

	r, err := responder.Create(txp, &responder.Options{Logger: logger})
	if err != nil {
		logger.Error("failed to create responder", "error", err)
		return
	}
	state.r.Store(r)
	defer r.Destroy()

	r.WaitDone()
}

// handleCommand answers the three toy opcodes a client can send without
// ever needing a registered Handle of its own: PRINT logs the payload,
// VERSION and TIMEOUT reply with a canned RESPONSE frame using a handle
// bound to the inbound command's client ID.
func handleCommand(hdr responder.CommandHeader, data *responder.CommandData, opaque any) error {
	state, _ := opaque.(*connState)
	if state == nil {
		return nil
	}
	r := state.r.Load()
	if r == nil {
		return nil
	}
	h := r.HandleForCommand(hdr)

	switch hdr.Op {
	case responder.OpPrint:
		buf := make([]byte, data.Len())
		if _, err := data.Read(buf); err != nil {
			return err
		}
		logging.Info("print", "msg", string(buf))
		return h.SendResponse(int32(len(buf)), nil)

	case responder.OpVersion:
		msg := []byte(protocolVersion)
		return h.SendResponse(int32(len(msg)), [][]byte{msg})

	case responder.OpTimeout:
		return h.SendResponse(0, nil)

	default:
		return h.SendResponse(-1, nil)
	}
}

func runClient(addr string, logger *logging.Logger) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	txp := tcp.New(conn, func(responder.CommandHeader, *responder.CommandData, any) error {
		return nil
	}, nil)

	r, err := responder.Create(txp, &responder.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer func() {
		conn.Close()
		r.Destroy()
	}()

	h := r.NewHandle()

	versionBuf := make([]byte, 256)
	code, err := h.ExecCommand(responder.OpVersion, 0, 0, nil, [][]byte{versionBuf})
	if err != nil {
		return err
	}
	if code > 0 {
		fmt.Printf("version: %s\n", versionBuf[:code])
	}

	msg := []byte("hello from iiod-echo client")
	respCode, err := h.ExecCommand(responder.OpPrint, 0, int32(len(msg)), [][]byte{msg}, nil)
	if err != nil {
		return err
	}
	fmt.Printf("print response code: %d\n", respCode)

	return nil
}
