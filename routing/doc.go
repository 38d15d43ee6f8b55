// Package routing decides which assistant profile handles a query.
//
// The Classifier scores every registered profile against the query text,
// blending deterministic keyword matching with optional LLM-backed semantic
// scoring. The Router turns the ranked candidates into exactly one
// RoutingDecision per request: a caller-forced assistant always wins, a
// confident classification is honored, and everything else falls back to the
// registry's generic profile in direct mode.
package routing
