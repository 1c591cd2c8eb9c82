package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveHostForDocker_RemoteHostsUnchanged(t *testing.T) {
	for _, host := range []string{"warehouse.example.com", "192.168.1.100", "host.docker.internal"} {
		assert.Equal(t, host, ResolveHostForDocker(host, "host.docker.internal"))
	}
}

func TestResolveHostForDocker_Loopback(t *testing.T) {
	for _, host := range []string{"localhost", "127.0.0.1", "::1"} {
		got := ResolveHostForDocker(host, "host.docker.internal")
		if IsRunningInDocker() {
			assert.Equal(t, "host.docker.internal", got)
		} else {
			assert.Equal(t, host, got)
		}
	}
}

func TestResolveHostForDocker_EmptyAliasDisablesRewrite(t *testing.T) {
	assert.Equal(t, "localhost", ResolveHostForDocker("localhost", ""))
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, isLoopback("localhost"))
	assert.True(t, isLoopback("::1"))
	assert.False(t, isLoopback("db"))
}
