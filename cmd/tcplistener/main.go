package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"

	"github.com/devwelkin/hermes-files/internal/request"
)

// tcplistener accepts connections and prints every request it can parse
// off them. no response is ever sent.
func main() {
	addr := flag.String("addr", ":42069", "address to listen on")
	flag.Parse()

	listener, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatal(err)
	}
	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("connection has accepted\n")

		dump(conn)
	}
}

func dump(conn net.Conn) {
	defer conn.Close()

	reader := request.NewReader(conn)
	for {
		req, err := reader.ReadRequest()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				fmt.Printf("error: %v\n", err)
			}
			fmt.Printf("connection has closed\n")
			return
		}

		fmt.Println("Request line:")
		fmt.Printf("- Method: %s\n", req.RequestLine.Method)
		fmt.Printf("- Target: %s\n", req.RequestLine.RequestTarget)
		fmt.Printf("- Version: %s\n", req.RequestLine.HTTPVersion)
		fmt.Println("Headers:")
		for _, key := range req.Headers.Keys() {
			fmt.Printf("- %s: %s\n", key, req.Headers[key])
		}
		if req.Body != nil {
			fmt.Println("Body:")
			fmt.Printf("%s\n", req.Body)
		}
	}
}
