package http

import (
	"github.com/nats-io/nats.go"

	"github.com/lookoutar/lookout/internal/adapters/valkey"
	"github.com/lookoutar/lookout/internal/core/ports"
	"github.com/lookoutar/lookout/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Sessions *usecases.SessionManager
	POIs     *usecases.POIService
	Articles ports.ArticleProvider
	NATS     *nats.Conn
	Cache    *valkey.Cache
}
