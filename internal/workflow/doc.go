// Package workflow moves logistics jobs through their fixed stage sequence.
//
// The Engine is the only component that decides who may edit which stage,
// whether a stage move is legal, and when a job is complete. It persists
// through a JobRepository, resolves actors through a UserDirectory, and
// publishes milestone events to a notifications.Service once the change has
// committed. Every call takes the acting user explicitly; there is no
// session state.
//
// Stage data and the current stage are independent facts. Submitting data
// for a stage never moves the job. The single coupling is CompleteStage4,
// which saves the billing record and finishes the job in one transaction
// once an acknowledge date is present.
package workflow
