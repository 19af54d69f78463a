// Package console holds the admin-side channel workflow: the cached channel
// list and its filters, the add/edit onboarding state machine with the
// identity refresh sub-flow, the per-channel sync trigger and the two-step
// deletion guard. It talks to the server through the interfaces in api.go;
// apiclient.Client satisfies all of them.
package console
