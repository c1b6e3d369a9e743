// A shared test server setup utility, which simplifies all API tests.

package testutil

import (
	"database/sql"
	"testing"

	"github.com/reelrocket/pulse/internal/api"
	"github.com/reelrocket/pulse/internal/client"
	"github.com/reelrocket/pulse/internal/config"
	"github.com/reelrocket/pulse/internal/core"
	"github.com/reelrocket/pulse/internal/credential"
	"github.com/reelrocket/pulse/internal/websocket"
)

// SetupTestApp wires a core.App against an in-memory database and a mock
// remote API.
func SetupTestApp(t *testing.T) (*core.App, *MockRemote) {
	t.Helper()
	database := SetupTestDB(t)
	remote := SetupMockRemote(t)

	cfg := &config.Config{Port: 0, PollInterval: 1, BillingRefreshInterval: 30}
	cfg.Remote.BaseURL = remote.Server.URL
	cfg.Invoices.Path = t.TempDir()
	hub := websocket.NewHub()
	go hub.Run()

	return &core.App{
		Config:  cfg,
		DB:      database,
		WsHub:   hub,
		Client:  client.New(remote.Server.URL, credential.Static("test-token")),
		Version: "test",
	}, remote
}

// SetupTestServer initializes a full core.App and api.Server for
// integration testing.
func SetupTestServer(t *testing.T) (*api.Server, *sql.DB, *MockRemote) {
	t.Helper()
	app, remote := SetupTestApp(t)
	server := api.NewServer(app)
	t.Cleanup(server.Shutdown)
	return server, app.DB, remote
}
