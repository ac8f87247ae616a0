// Package tui is a terminal adapter for mounted pages. Prompts go through a
// PromptDriver (survey by default) so sessions can be scripted in tests.
package tui
