package ports

import (
	"github.com/mikey/spam-dashboard/internal/core"
)

// Store is a key-value backend that holds resources until stopped
type Store interface {
	core.KVStore

	// Stop releases connections and background tasks
	Stop()
}
