package ports

// Service is a long running listener owned by the daemon
type Service interface {
	// Start binds and serves in the background
	Start() error

	// Stop shuts the listener down
	Stop() error
}
