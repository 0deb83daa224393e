package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/dddd2356/sunhan-websocket-backend/modules/api"
	"github.com/dddd2356/sunhan-websocket-backend/modules/attachments"
	"github.com/dddd2356/sunhan-websocket-backend/modules/broadcast"
	"github.com/dddd2356/sunhan-websocket-backend/modules/directory"
	"github.com/dddd2356/sunhan-websocket-backend/modules/identity"
	"github.com/dddd2356/sunhan-websocket-backend/modules/messages"
	"github.com/dddd2356/sunhan-websocket-backend/modules/rooms"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Sunhan Chat Backend ===")

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	directoryModule := directory.NewModule()
	identityModule := identity.NewModule()
	attachmentsModule := attachments.NewModule()
	roomsModule := rooms.NewModule()
	messagesModule := messages.NewModule()
	broadcastModule := broadcast.NewModule()
	apiModule := api.NewModule()

	// Inject broadcast hub into API module
	// (The hub is not exposed via ServiceContainer)
	apiModule.SetHub(broadcastModule.GetHub())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	app.Register(directoryModule)   // Member directory (cache + DB)
	app.Register(identityModule)    // Token issuance and validation
	app.Register(attachmentsModule) // Object-store backed attachments
	app.Register(roomsModule)       // Rooms and participants (depends on directory)
	app.Register(messagesModule)    // Message log and read tracking (depends on rooms, directory, attachments)
	app.Register(broadcastModule)   // WebSocket hub + event consumer
	app.Register(apiModule)         // HTTP/WebSocket API

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Storage: GORM + SQLite (rooms, messages, directory)")
	log.Println("  - Attachments: NATS JetStream Object Store")
	log.Printf("  - NATS URL: %s", natsURL)
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health                                   - Health check")
	log.Println("  POST   /api/v1/auth/token                        - Issue access token")
	log.Println("  GET    /api/v1/chat/rooms                        - List caller's rooms with unread counts")
	log.Println("  POST   /api/v1/chat/rooms                        - Create a room")
	log.Println("  POST   /api/v1/chat/direct                       - Get or create a 1:1 room")
	log.Println("  POST   /api/v1/chat/direct/message               - Send to a 1:1 room (invite flag)")
	log.Println("  POST   /api/v1/chat/group                        - Create a group room")
	log.Println("  GET    /api/v1/chat/rooms/:id/messages           - Page messages (marks them read)")
	log.Println("  POST   /api/v1/chat/rooms/:id/messages           - Send a message")
	log.Println("  POST   /api/v1/chat/rooms/:id/attachments        - Upload and send an attachment")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws?token=<jwt>):", port)
	log.Println("  Actions: subscribe, unsubscribe (per room)")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
