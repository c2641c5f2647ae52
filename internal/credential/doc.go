// Package credential hands out pre-provisioned MQTT broker credentials.
//
// The pool is a finite table filled by operators. Each row is claimed at
// most once: claimed_at goes from NULL to a timestamp and never back.
//
// Claims use lock-and-skip. On PostgreSQL the unclaimed row is selected
// with FOR UPDATE SKIP LOCKED, so concurrent claimants pass over rows
// another transaction is holding rather than queueing behind it; each
// either gets a row immediately or ErrPoolEmpty. SQLite serialises
// transactions on its single connection, which gives the same outcome.
package credential
