package config

import (
	"os"
	"sync"
)

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker returns true if the loader is running inside a Docker container.
// Detection is based on the presence of /.dockerenv. The result is cached after the first call.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostForDocker returns the warehouse host to dial.
// Inside Docker a loopback host is rewritten to alias so the loader can reach
// a PostgreSQL server running on the host machine. An empty alias disables
// the rewrite.
func ResolveHostForDocker(host, alias string) string {
	if alias == "" || !IsRunningInDocker() {
		return host
	}

	if isLoopback(host) {
		return alias
	}

	return host
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
