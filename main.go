package main

import (
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
)

var devMode bool

// Shared runtime wiring. Set once in main (or by test fixtures) before
// any connection or timer can reach them.
var (
	sessions   *SessionRegistry
	rooms      *RoomRegistry
	dispatcher *Dispatcher
)

// logError logs an error with context and dumps the database in dev mode
func logError(context string, err error) {
	log.Printf("ERROR [%s]: %v", context, err)
	if devMode {
		LogDBState("logError: " + context)
	}
}

// cleanupLoop expires waiting rooms nobody started and aborts sessions
// nobody has touched within the configured idle window.
func cleanupLoop(cfg AppConfig, notify Notifier, done <-chan struct{}) {
	roomAge := time.Duration(cfg.RoomTimeout) * time.Second
	gameAge := time.Duration(cfg.GameTimeout) * time.Second

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}

		for _, r := range rooms.ExpireIdle(roomAge) {
			DebugLog("cleanupLoop", "expired room %s", r.ID)
			for _, m := range r.Members {
				notify.SendPrivate(m.UserID, "Your room "+r.ID+" expired before the game started.")
			}
		}
		for _, s := range sessions.All() {
			if s.IdleFor(gameAge) {
				DebugLog("cleanupLoop", "aborting idle session %s", s.ID)
				s.Abort("nobody has acted for too long")
			}
		}
	}
}

func main() {
	// .env is optional; real env vars win over it.
	godotenv.Load()

	fv := registerFlags()
	flag.Parse()

	cfg := loadConfig(*fv.configPath)
	fv.applyTo(&cfg)
	devMode = cfg.Dev

	// Set up logging to both stdout and file
	logFile, err := os.OpenFile("wolfpit.log", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		log.Fatal("Failed to open log file:", err)
	}
	defer logFile.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, logFile))

	if err := InitAppLogger(cfg.toLogConfig()); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer CloseAppLogger()

	if appLogger.IsEnabled() {
		log.Println("Extended logging enabled")
	}

	db, err = sqlx.Connect("sqlite3", cfg.DB)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := initDB(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	LogDBState("after initDB")

	initStoryteller(cfg)

	catalog := NewCatalog()
	bus := NewHookBus()
	chaos := ChaosPack{}
	bus.Register(chaos)
	catalog.RegisterExtension(chaos.ID(), chaos.Roles())

	rooms = NewRoomRegistry()
	sessions = NewSessionRegistry()
	notify := &hubNotifier{hub: hub, sessions: sessions, rooms: rooms}
	dispatcher = NewDispatcher(catalog, bus, rooms, sessions, notify, &cfg)

	hub.start()
	defer hub.stop()

	done := make(chan struct{})
	defer close(done)
	go cleanupLoop(cfg, notify, done)

	http.HandleFunc("/ws", handleWebSocket)

	log.Println("Server starting on " + cfg.Addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, nil))
}
