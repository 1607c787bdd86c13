package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BKrowchuk/Horizon/config"
	"github.com/BKrowchuk/Horizon/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("Warning: %v", err)
		log.Printf("Warning: running with mock providers; transcription, summaries and embeddings will be placeholders")
		config.PrintConfigInstructions()
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("failed to initialize server: %v", err)
	}

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: srv.Routes(),
	}

	go func() {
		log.Printf("Server listening on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down services...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	if err := srv.Close(); err != nil {
		log.Printf("close error: %v", err)
	}
	log.Println("All services shut down gracefully")
}
