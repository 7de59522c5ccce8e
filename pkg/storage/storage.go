package storage

import (
	"context"

	"github.com/jwebster45206/page-engine/pkg/session"
)

// WorldSummary describes one world file available to the server.
type WorldSummary struct {
	Name      string `json:"name"`
	File      string `json:"file"` // relative to the worlds directory
	Start     string `json:"start"`
	Locations int    `json:"locations"`
}

// WorldLister lists the world files the server can see.
type WorldLister interface {
	ListWorlds(ctx context.Context) ([]WorldSummary, error)
}

// Storage defines a unified interface for all storage operations
// This interface combines session snapshots (Redis) with world listing (filesystem)
type Storage interface {
	WorldLister

	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Session snapshot operations; LoadSession returns nil, nil when missing
	SaveSession(ctx context.Context, s session.Session) error
	LoadSession(ctx context.Context, id string) (*session.Session, error)
	DeleteSession(ctx context.Context, id string) error
}
