package core

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/reelrocket/pulse/internal/client"
	"github.com/reelrocket/pulse/internal/config"
	"github.com/reelrocket/pulse/internal/credential"
	"github.com/reelrocket/pulse/internal/db"
	"github.com/reelrocket/pulse/internal/websocket"
)

// App holds the core components of the daemon that are shared between the
// server and the CLI.
type App struct {
	Config     *config.Config
	DB         *sql.DB
	WsHub      *websocket.Hub
	Credential *credential.FileSource
	Client     *client.Client
	Version    string
}

// New sets up and returns a new App instance. It handles loading the
// configuration, initializing the database connection, running
// migrations, and wiring the credential source into the remote client.
func New(version string) (*App, error) {
	// Load configuration from config.yml
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize the database connection
	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	if err := db.RunMigrations(database); err != nil {
		// We can't proceed without a valid database schema.
		// Close the DB connection before failing.
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	// The token file is produced and refreshed by an external auth agent;
	// the daemon only reads it.
	cred, err := credential.NewFileSource(cfg.Remote.TokenFile)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	if err := cred.Start(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to start credential watcher: %w", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	log.Println("Core application setup complete.")
	return &App{
		Config:     cfg,
		DB:         database,
		WsHub:      hub,
		Credential: cred,
		Client:     client.New(cfg.Remote.BaseURL, cred),
		Version:    version,
	}, nil
}

// Close gracefully closes the application's resources, like the DB
// connection and the credential watcher.
func (a *App) Close() {
	if a.Credential != nil {
		a.Credential.Stop()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
