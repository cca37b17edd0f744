// Package tracking implements the event ingestion core: every pixel and
// link hit flows through here, gets classified, and only genuine traffic
// advances the recipient state machine and the campaign counters, exactly
// once per transition.
//
// Two ingestion modes share one pipeline:
//
//   - direct: HandleOpen / HandleClick classify and apply in one shot
//   - two-phase: StorePending parks the hit with no state effect, and a
//     later Confirm (driven by the click beacon, which only a real client
//     executing script can send) promotes it
//
// Counter mutations ride a single database transaction per event; the
// repository contract owns atomicity. Rate recomputation is idempotent and
// runs immediately after commit.
package tracking
