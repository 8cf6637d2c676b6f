// Package testutil provides test helper utilities for unit tests.
package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// NewMiniredis creates an in-memory Redis server for unit tests.
// The server is automatically cleaned up when the test completes.
func NewMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	return miniredis.RunT(t)
}

// NewMiniredisClient creates a Redis client connected to an in-memory miniredis server.
// Both the server and client are automatically cleaned up when the test completes.
func NewMiniredisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client, s
}

// NewLogger returns a logger that only reports errors.
func NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}
