// Package membership is the authoritative mapping of users to workspace
// roles and device roles.
//
// Lookups return an explicit presence flag rather than an error when no
// active row exists: absence means "no access" and callers must treat it
// that way. Every query excludes tombstoned memberships, users, devices
// and workspaces.
//
// Functions that take a database.Querier run on whatever they are given,
// so role checks that guard a write can share the writing transaction.
package membership
