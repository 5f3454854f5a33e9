// Package providers adapts generative and embedding models to the
// [Generator] and [Embedder] interfaces used by the audit pipeline.
//
// Supported providers: OpenAI, and Ollama / LMStudio through their
// OpenAI-compatible endpoints. All of them are served by one go-openai
// client; the base URL selects the backend.
//
// Calls are made once. Callers decide how to degrade on failure.
package providers
