// Package page mounts a form definition and exposes the operations a UI layer
// calls: set a field, select files for a slot, commit a slot, submit.
package page
