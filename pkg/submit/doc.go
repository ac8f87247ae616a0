// Package submit implements the submission controller: assemble the payload
// from form state, validate it with the form's rules or schema, and post it
// only when it is clean. Violations and server errors go to a Reporter; the
// caller navigates to Result.Redirect after a successful submission.
//
// A controller allows one submission at a time. A second Submit issued while
// the first is still waiting on the network returns ErrSubmitInFlight.
package submit
