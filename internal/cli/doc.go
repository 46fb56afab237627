// Package cli builds the voice-ledger command tree: the long-running service
// plus one-shot commands for processing a clip, classifying text and tailing
// record events.
package cli
