// Package invitation issues, resolves, accepts and revokes single-use
// invitation tokens.
//
// An invitation is pending until it is accepted, expires (48 hours after
// creation) or is revoked; all three end states are terminal. Acceptance
// is a conditional update, so of any number of concurrent accepts of one
// token exactly one succeeds.
//
// Workspace invitations grant a workspace role. An existing guest is
// upgraded; any other existing role is left alone, so acceptance never
// downgrades. Device invitations grant the user role on one device and
// make the invitee a workspace guest if they are not a member yet.
package invitation
