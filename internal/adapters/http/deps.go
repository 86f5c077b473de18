package http

import (
	"github.com/nats-io/nats.go"
	"github.com/samirrijal/isoview/internal/adapters/valkey"
	"github.com/samirrijal/isoview/internal/core/usecases"
)

// Dependencies holds everything the HTTP handlers need.
type Dependencies struct {
	Controller *usecases.ViewController
	NATS       *nats.Conn
	Cache      *valkey.Cache
}
