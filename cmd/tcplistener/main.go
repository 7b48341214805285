package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/Brownie44l1/pdaq-server/internal/logging"
	"github.com/Brownie44l1/pdaq-server/internal/request"
	"github.com/Brownie44l1/pdaq-server/internal/response"
)

func main() {
	addr := flag.String("addr", ":42069", "listen address")
	flag.Parse()

	logger := logging.New(os.Stderr, "debug", "console")

	listener, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Error("Listen failed", logging.F("error", err))
		os.Exit(1)
	}
	defer listener.Close()
	logger.Info("Listening", logging.F("addr", listener.Addr().String()))

	for {
		conn, err := listener.Accept()
		if err != nil {
			logger.Error("Accept error", logging.F("error", err))
			continue
		}
		handleConnection(conn, logger)
	}
}

// handleConnection prints the parsed request and answers 200
func handleConnection(conn net.Conn, logger logging.Logger) {
	defer conn.Close()

	reader := request.NewReader(conn)
	reader.Logger = logger
	req, err := reader.ReadRequest()
	if err != nil {
		logger.Warn("Failed to read request", logging.F("error", err))
		if req == nil {
			return
		}
	}

	fmt.Println("Request line:")
	fmt.Printf("- Method: %s\n", req.Method)
	fmt.Printf("- Path: %s (%s)\n", req.Path, req.Path.Kind)
	fmt.Printf("- Version: %s\n", req.Version)
	for i := 0; ; i++ {
		seg, ok := req.Path.Segment(i)
		if !ok {
			break
		}
		fmt.Printf("- Segment %d: %s\n", i, seg)
	}
	fmt.Println("Params:")
	for _, p := range req.Params {
		fmt.Printf("- %s: %s\n", p.Key, p.Value)
	}
	fmt.Println("Headers:")
	for key, value := range req.Headers.All() {
		fmt.Printf("- %s: %s\n", key, value)
	}
	fmt.Println("Body:")
	fmt.Printf("%s\n", req.RawBody)
	if req.BodyErr != nil {
		fmt.Printf("(%v)\n", req.BodyErr)
	}

	resp := response.HTML("<h1>Hello from the PDAQ listener</h1>\n")
	if _, err := resp.WriteTo(conn); err != nil {
		logger.Warn("Failed to write response", logging.F("error", err))
	}
}
