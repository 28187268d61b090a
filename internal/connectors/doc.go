// Package connectors holds the document source connectors: a local
// folder (filesystem) and a Google Drive folder (google/drive). Each
// implements driven.Connector and is chosen from the source settings.
package connectors
