// Package extract implements structured entity extraction from document text
// via a language model.
//
// The extraction protocol requests a JSON object describing the entities in a
// document, tolerates common LLM formatting mistakes (code fences, missing
// key quotes) through a repair pass, and retries malformed responses with
// exponential backoff up to a configurable attempt cap. Callers never receive
// a malformed structure: the terminal outcomes are a parsed extraction, a
// cancellation, or an explicit error.
package extract
