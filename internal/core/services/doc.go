// Package services holds the application logic behind the driving ports.
//
//   - UpdateService mirrors the document source into the vector store,
//     using the ledger to skip unchanged files.
//   - ChatAgent retrieves chunks for a question and asks the LLM.
//   - Scheduler repeats updates on an interval and on demand.
//   - SettingsService layers overrides, environment and config file.
package services
