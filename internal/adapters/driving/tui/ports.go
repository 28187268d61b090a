// Package tui provides the interactive chat interface for docrag.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI uses.
type Ports struct {
	// Chat answers questions. Required.
	Chat driving.ChatService

	// Updater runs update passes on ctrl+u and reports index status.
	// Optional.
	Updater driving.Updater
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}
