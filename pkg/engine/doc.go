// Package engine loads the application configuration and assembles the
// generation stack from it: the chat-completion generator, the description
// pipeline, and the evaluation wiring.
package engine
