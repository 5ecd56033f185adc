// Package app holds the dependencies shared by every stopmatcher command.
package app

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"stopmatcher.onebusaway.org/internal/appconf"
	"stopmatcher.onebusaway.org/internal/matching"
	"stopmatcher.onebusaway.org/stopdb"
)

// Application is the dependency container for a command invocation.
type Application struct {
	Config         appconf.Config
	MatchingConfig matching.Config
	Logger         *slog.Logger
	Store          *stopdb.Client
	Registry       *prometheus.Registry
	Metrics        *matching.Metrics
}

// Close releases the store.
func (a *Application) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
