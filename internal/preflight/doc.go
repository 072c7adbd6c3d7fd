// Package preflight provides readiness checks for the filesystem paths and
// services that shiptrack depends on.
//
// These checks run in two contexts:
//   - serverrun calls RunAll before the API starts listening. A failed
//     required check aborts start-up.
//   - The CLI "shiptrack status" command renders the same results so an
//     operator can see why the server refuses to start.
//
// The ntfy check is informational; notification delivery is best effort.
package preflight
