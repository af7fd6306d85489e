/*
Package observability exports likelihood evaluations as Prometheus metrics.

Metrics plug into a likelihood through domain.EvaluationHooks, one hook set per
chain, and can be served over HTTP with Handler.
*/
package observability
