package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/devwelkin/hermes-files/internal/router"
	"github.com/devwelkin/hermes-files/internal/server"
)

const (
	helpTextDir = `Directory used to read and write requested files.
Default is the current directory when launching the application.`
	helpTextAddr = `Address the server listens on.`
)

func main() {
	var directory string
	flag.StringVar(&directory, "directory", "", helpTextDir)
	flag.StringVar(&directory, "d", "", helpTextDir+" (shorthand)")
	addr := flag.String("addr", server.DefaultAddr, helpTextAddr)
	maxConns := flag.Int("max-conns", 0, "maximum concurrent connections, 0 for no limit")
	readTimeout := flag.Duration("read-timeout", 0, "time allowed to read one request, 0 for none")
	idleTimeout := flag.Duration("idle-timeout", 0, "time a kept-alive connection may wait for its next request, 0 for none")
	flag.Parse()

	logger := log.Default()
	if directory == "" {
		logger.Println("serving files from the working directory")
	} else {
		logger.Println("serving files from", directory)
	}

	cfg := server.Config{
		Addr:        *addr,
		MaxConns:    *maxConns,
		ReadTimeout: *readTimeout,
		IdleTimeout: *idleTimeout,
		Logger:      logger,
	}
	srv, err := server.Serve(cfg, router.New(directory, logger))
	if err != nil {
		log.Fatalf("Error starting server: %v", err)
	}
	defer srv.Close()
	log.Println("Server started on", srv.Addr())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Server gracefully stopped")
}
