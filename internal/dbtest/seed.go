package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/database"
)

// User inserts an active user and returns its id.
func User(t testing.TB, db *database.DB, name string) string {
	t.Helper()
	id := short("usr")
	Exec(t, db,
		"INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)",
		id, id+"@example.com", name, database.Now())
	return id
}

// Workspace inserts an active workspace and returns its id.
func Workspace(t testing.TB, db *database.DB, name string) string {
	t.Helper()
	id := short("ws")
	now := database.Now()
	Exec(t, db,
		"INSERT INTO workspaces (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)",
		id, name, now, now)
	return id
}

// Member gives userID role in workspaceID.
func Member(t testing.TB, db *database.DB, userID, workspaceID, role string) {
	t.Helper()
	now := database.Now()
	Exec(t, db,
		`INSERT INTO workspace_memberships (id, user_id, workspace_id, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		short("wsm"), userID, workspaceID, role, now, now)
}

// Device inserts an active device directly, bypassing credential claims.
func Device(t testing.TB, db *database.DB, workspaceID, name string) string {
	t.Helper()
	id := short("dev")
	deviceUUID := uuid.NewString()
	now := database.Now()
	Exec(t, db,
		`INSERT INTO devices (id, workspace_id, name, device_uuid, mqtt_topic, mqtt_username, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, workspaceID, name, deviceUUID, "twinkletaps/devices/"+deviceUUID, "seed-"+id, now, now)
	return id
}

// DeviceMember gives userID the user role on deviceID.
func DeviceMember(t testing.TB, db *database.DB, userID, deviceID string) {
	t.Helper()
	Exec(t, db,
		"INSERT INTO device_memberships (id, user_id, device_id, role, created_at) VALUES (?, ?, ?, 'user', ?)",
		short("dvm"), userID, deviceID, database.Now())
}

// Credentials provisions n unclaimed broker credentials and returns their ids
// in claim order.
func Credentials(t testing.TB, db *database.DB, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		// Zero-padded so ORDER BY id follows insertion order.
		id := fmt.Sprintf("cred-%04d-%s", i, uuid.NewString()[:8])
		if _, err := db.ExecContext(context.Background(),
			"INSERT INTO mqtt_credentials (id, username, password, allocated_uuid) VALUES (?, ?, ?, ?)",
			id, "device-"+uuid.NewString()[:12], "pw-"+uuid.NewString(), uuid.NewString()); err != nil {
			t.Fatalf("inserting credential: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}
