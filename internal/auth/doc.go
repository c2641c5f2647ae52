// Package auth holds the role model and session-token handling.
//
// Workspace roles form a closed set (guest < member <= admin) and device
// roles a closed set of one (user). Permissions are a static role table;
// no database lookup is needed to answer "may an admin register devices".
//
// Device access for guests uses a "zero access by default, grant
// explicitly" model: a guest with no device memberships sees no devices.
// Members and admins see every device of the workspace without a row.
//
// Session tokens are HS256 JWTs whose subject is the user id. Establishing
// who the user is happens elsewhere; this package only verifies.
package auth
