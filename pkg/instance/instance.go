package instance

import (
	"os"

	"github.com/angelmondragon/recruitment-backend/pkg/env"
)

const envWorkerID = "RECRUITMENT_WORKER_ID"

// ID identifies this process in logs. It falls back to the hostname and then
// to a fixed name.
func ID() string {
	if id := env.Get(envWorkerID, ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
