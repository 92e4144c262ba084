// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/openglam/masthead/internal/classify"
	"github.com/openglam/masthead/internal/config"
	"github.com/openglam/masthead/internal/home"
	"github.com/openglam/masthead/internal/iiif"
	"github.com/openglam/masthead/internal/jobs"
	"github.com/openglam/masthead/internal/session"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Sessions   *session.Store
	JobManager *jobs.Manager
	Registry   *classify.Registry
	IIIF       *iiif.Client
	Config     *config.Manager
	Logger     *slog.Logger
	Home       *home.Dir

	// BaseContext is the server lifecycle context; background jobs derive
	// from it rather than from the request context.
	BaseContext context.Context
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// SessionsFrom extracts the session store from context.
func SessionsFrom(ctx context.Context) *session.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Sessions
	}
	return nil
}

// JobManagerFrom extracts the job manager from context.
func JobManagerFrom(ctx context.Context) *jobs.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.JobManager
	}
	return nil
}

// RegistryFrom extracts the classifier registry from context.
func RegistryFrom(ctx context.Context) *classify.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// IIIFFrom extracts the IIIF client from context.
func IIIFFrom(ctx context.Context) *iiif.Client {
	if s := ServicesFrom(ctx); s != nil {
		return s.IIIF
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}
