// Package classifier decides whether a tracking hit came from a human
// recipient or from automated mail-security tooling (sandbox detonation,
// link rewriters, image proxies, preview bots).
//
// The decision is an ordered rule pipeline evaluated top to bottom. Every
// rule must pass for a RealUser verdict; the first failing rule
// short-circuits with a reason code so operators can see why traffic was
// discarded. All rules are pure predicates over the request context except
// the known-scanner registry and the burst-rate tracker, which are injected
// as interfaces and must be safe for concurrent use.
package classifier
