package database

import (
	"context"
	"os"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/victorivanov/parley/internal/models"
)

// testPool returns a pgxpool.Pool connected to the test database.
// It skips the test if DATABASE_URL is not set.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

// testIDCounter provides unique IDs across all tests in the package.
// Starts well above zero to avoid conflicts with any existing data.
var testIDCounter int64 = 100000

func nextID() int64 {
	return atomic.AddInt64(&testIDCounter, 1)
}

func createTestUser(t *testing.T, users UserRepository) *models.User {
	t.Helper()
	ctx := context.Background()
	id := nextID()
	user := &models.User{
		ID:          id,
		Username:    "user-" + strconv.FormatInt(id, 10),
		DisplayName: "Test User",
	}
	if err := users.Create(ctx, user); err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	return user
}

// createTestServer provisions a server with its base role, owner membership
// included, mirroring what the service layer does on server creation.
func createTestServer(t *testing.T, pool *pgxpool.Pool, ownerID int64) *models.Server {
	t.Helper()
	ctx := context.Background()

	servers := NewServerRepository(pool)
	roles := NewRoleRepository(pool)
	members := NewMemberRepository(pool)

	server := &models.Server{
		ID:      nextID(),
		Name:    "Test Server",
		OwnerID: ownerID,
	}
	baseRole := &models.Role{
		ID:          nextID(),
		ServerID:    server.ID,
		Name:        "@everyone",
		Permissions: []string{"VIEW_CHANNEL", "SEND_MESSAGES"},
		Position:    0,
		IsBase:      true,
	}
	server.BaseRoleID = baseRole.ID

	if err := servers.Create(ctx, server); err != nil {
		t.Fatalf("creating test server: %v", err)
	}
	if err := roles.Create(ctx, baseRole); err != nil {
		t.Fatalf("creating base role: %v", err)
	}
	if err := members.Create(ctx, &models.Member{ServerID: server.ID, UserID: ownerID, IsOwner: true}); err != nil {
		t.Fatalf("creating owner membership: %v", err)
	}
	t.Cleanup(func() { _ = servers.Delete(ctx, server.ID) })
	return server
}
