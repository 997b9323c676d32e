// Package backend provides the social platform API server.

// This package contains the main application entry point. The actual API
// documentation is organized into subpackages:

// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/models: Data models and database schemas
// - internal/auth: Authentication and session cookie services
// - internal/websocket: WebSocket hub for presence and real-time delivery
// - internal/repository: MongoDB persistence for users, posts and messages
// - internal/storage: File storage (S3) operations
// - internal/database: Database connection and index management
// - internal/cache: Redis client used by rate limiting
// - internal/middleware: HTTP middleware (rate limiting, metrics, tracing)
// - internal/metrics: Prometheus instrumentation
// - internal/telemetry: OpenTelemetry tracer setup
// - internal/seed: Development and test data seeding

// See the individual package documentation for detailed API reference.
package backend
