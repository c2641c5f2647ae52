// Package workspace administers workspaces and their rosters.
//
// It owns the workspace lifecycle (create, rename, soft delete) and the
// admin-only roster mutations: role changes, member removal and guest
// device access. Every roster mutation reads the current admin set inside
// its own transaction and refuses to leave a workspace without an admin.
package workspace
