package interfaces

import "context"

// Bot is the cycle orchestrator's lifecycle surface.
type Bot interface {
	Start(ctx context.Context) error
	Pause() error
	Resume(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
