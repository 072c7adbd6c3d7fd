// Package stage defines the fixed, ordered job lifecycle:
// stage1 < stage2 < stage3 < stage4 < completed.
//
// Ordering helpers here are the only place successor rules live; the workflow
// engine and the store both rely on Next and IsSuccessorOf rather than
// comparing strings.
package stage
