package db

import "context"

// Shutdown returns a function that gracefully closes the manager's pools.
// Use as a shutdown hook alongside the HTTP server's own shutdown.
//
// Example:
//
//	hooks = append(hooks, db.Shutdown(manager))
func Shutdown(m *Manager) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		m.Close()
		return nil
	}
}
