package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	configPath := flag.String("config", "", "Path to config YAML (default: built-in defaults)")
	dbPath := flag.String("db", "", "Path to SQLite database (overrides config, \"none\" disables)")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	maps, err := BuildMapRegistry(&cfg)
	if err != nil {
		log.Fatalf("maps: %v", err)
	}

	var db *DB
	if cfg.DBPath != "" && cfg.DBPath != "none" {
		db, err = OpenDB(cfg.DBPath)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
	} else {
		log.Printf("persistence disabled")
	}

	var journal *Journal
	if cfg.JournalDir != "" {
		journal = NewJournal(cfg.JournalDir)
		defer journal.Close()
	}

	hub := NewHub(&cfg, DefaultEntityRegistry(), maps, db, journal)
	go hub.Run()

	mux := SetupRoutes(hub)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		log.Printf("Server starting on %s (%d tps)", cfg.Addr, cfg.TPS)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")
	server.Close()
}
