// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under the ragdesk home directory.
//
// Adapters:
//   - ConfigStore: TOML configuration with environment overrides
//   - PromptStore: user-editable prompt templates
package file
