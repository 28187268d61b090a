// Package mcp provides an MCP (Model Context Protocol) server adapter for docrag.
// It lets AI assistants ask questions of the indexed documents and trigger updates.
package mcp

import "errors"

// ErrMissingChatService is returned when the chat service is not provided.
var ErrMissingChatService = errors.New("mcp: chat service is required")
