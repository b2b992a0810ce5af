// Package app provides application initialization and dependency wiring.
//
// App is the container that holds every long-lived component: Genkit, the
// knowledge store, the in-memory order/session/log stores, the agent, the
// platform client, and the HTTP server. Setup builds it; Close releases
// resources in reverse order.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/finchdesk/finch/internal/agent"
	"github.com/finchdesk/finch/internal/api"
	"github.com/finchdesk/finch/internal/chatlog"
	"github.com/finchdesk/finch/internal/config"
	"github.com/finchdesk/finch/internal/knowledge"
	"github.com/finchdesk/finch/internal/order"
	"github.com/finchdesk/finch/internal/platform"
	"github.com/finchdesk/finch/internal/session"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	// Core services
	Genkit   *genkit.Genkit
	Embedder ai.Embedder

	// Knowledge is nil when the FAQ index could not be built; the agent
	// then runs in not-ready mode.
	Knowledge *knowledge.Store

	// Domain state
	Orders   *order.Store
	Sessions *session.Store
	Logs     *chatlog.Store

	// Agent loop
	Tools []ai.Tool
	Agent *agent.Agent

	// Edges
	Platform *platform.Client
	Server   *api.Server

	otelCleanup func()
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	a.logger().Info("shutting down application")

	// 1. Drain outbound replies still in flight
	if a.Server != nil {
		a.Server.Drain()
	}

	// 2. Flush traces
	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}

func (a *App) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
