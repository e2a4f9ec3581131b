package api

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// APIServer wraps the Fiber app and its listen address
type APIServer struct {
	app           *fiber.App
	listenAddress string
}

// NewAPIServer creates a new API server
func NewAPIServer(listenAddress string) *APIServer {
	return &APIServer{
		app: fiber.New(fiber.Config{
			AppName:   "coursevault-api",
			BodyLimit: 10 * 1024 * 1024,
		}),
		listenAddress: listenAddress,
	}
}

// GetEngine returns the underlying Fiber app
func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

// Run starts listening for requests
func (s *APIServer) Run() error {
	log.Printf("Starting API server, listening on %s", s.listenAddress)
	return s.app.Listen(s.listenAddress)
}

// Shutdown gracefully stops the server
func (s *APIServer) Shutdown() error {
	return s.app.Shutdown()
}
