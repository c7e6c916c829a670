package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/victorivanov/parley/internal/auth"
	"github.com/victorivanov/parley/internal/database"
)

// Manager tracks live connections and their broadcast-group memberships.
// It is the concrete Transport: group membership lives here, but which
// groups each connection OUGHT to be in is decided by the Synchronizer.
type Manager struct {
	mu     sync.RWMutex
	conns  map[string]*Connection            // connID -> connection
	byUser map[int64]map[string]*Connection  // userID -> connID -> connection
	groups map[string]map[string]*Connection // group -> connID -> connection

	tokens   *auth.TokenService
	users    database.UserRepository
	presence *PresenceService

	synchronizer *Synchronizer
}

func NewManager(tokens *auth.TokenService, users database.UserRepository, presence *PresenceService) *Manager {
	return &Manager{
		conns:    make(map[string]*Connection),
		byUser:   make(map[int64]map[string]*Connection),
		groups:   make(map[string]map[string]*Connection),
		tokens:   tokens,
		users:    users,
		presence: presence,
	}
}

// SetSynchronizer wires the room synchronizer in after construction.
// Manager and Synchronizer reference each other, so one side is set late.
func (m *Manager) SetSynchronizer(s *Synchronizer) {
	m.synchronizer = s
}

// Join adds a connection to a broadcast group. Unknown connections are
// ignored: the connection may have dropped since the caller snapshotted it.
func (m *Manager) Join(connID, group string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.conns[connID]
	if !ok {
		return
	}
	if m.groups[group] == nil {
		m.groups[group] = make(map[string]*Connection)
	}
	m.groups[group][connID] = c
	c.groups[group] = struct{}{}
}

// Leave removes a connection from a broadcast group.
func (m *Manager) Leave(connID, group string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if members, ok := m.groups[group]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(m.groups, group)
		}
	}
	if c, ok := m.conns[connID]; ok {
		delete(c.groups, group)
	}
}

// Emit sends a dispatch event to every connection in a group.
func (m *Manager) Emit(group, event string, payload any) {
	m.mu.RLock()
	members := make([]*Connection, 0, len(m.groups[group]))
	for _, c := range m.groups[group] {
		members = append(members, c)
	}
	m.mu.RUnlock()

	for _, c := range members {
		c.SendEvent(event, payload)
	}
}

// ConnectionsForUser returns the IDs of all live connections for a user.
func (m *Manager) ConnectionsForUser(userID int64) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.byUser[userID]))
	for id := range m.byUser[userID] {
		ids = append(ids, id)
	}
	return ids
}

// register adds an identified connection to the registry.
func (m *Manager) register(c *Connection) (firstConn bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.conns[c.ID] = c
	if m.byUser[c.UserID] == nil {
		m.byUser[c.UserID] = make(map[string]*Connection)
	}
	firstConn = len(m.byUser[c.UserID]) == 0
	m.byUser[c.UserID][c.ID] = c
	return firstConn
}

// unregister removes a connection from the registry and every group it
// joined, and marks the user offline when their last connection drops.
func (m *Manager) unregister(c *Connection) {
	m.mu.Lock()
	for group := range c.groups {
		if members, ok := m.groups[group]; ok {
			delete(members, c.ID)
			if len(members) == 0 {
				delete(m.groups, group)
			}
		}
	}
	delete(m.conns, c.ID)

	var lastConn bool
	if userConns, ok := m.byUser[c.UserID]; ok {
		delete(userConns, c.ID)
		if len(userConns) == 0 {
			delete(m.byUser, c.UserID)
			lastConn = true
		}
	}
	m.mu.Unlock()

	if m.synchronizer != nil {
		m.synchronizer.Forget(c.ID)
	}

	if lastConn && c.identified.Load() && m.presence != nil {
		ctx := context.Background()
		serverIDs, err := m.presence.SetOffline(ctx, c.UserID)
		if err != nil {
			slog.Error("presence offline failed", "userID", c.UserID, "error", err)
			return
		}
		for _, serverID := range serverIDs {
			m.Emit(ServerGroup(serverID), EventPresenceUpdate, PresenceUpdateData{
				UserID: c.UserID,
				Status: PresenceOffline,
			})
		}
	}
}

// handleIdentify authenticates a connection, registers it, and hands it to
// the synchronizer to join its groups. READY is sent only after the
// connection is subscribed, so no events can race past it.
func (m *Manager) handleIdentify(c *Connection, raw json.RawMessage) {
	var identify IdentifyData
	if err := json.Unmarshal(raw, &identify); err != nil {
		slog.Error("invalid identify payload", "connID", c.ID, "error", err)
		c.Close()
		return
	}

	userID, err := m.tokens.ValidateToken(identify.Token)
	if err != nil {
		slog.Warn("identify rejected", "connID", c.ID, "error", err)
		c.Close()
		return
	}

	ctx := context.Background()
	user, err := m.users.GetByID(ctx, userID)
	if err != nil || user == nil {
		slog.Warn("identify for unknown user", "connID", c.ID, "userID", userID)
		c.Close()
		return
	}

	c.UserID = userID
	c.identified.Store(true)
	firstConn := m.register(c)

	var serverIDs []int64
	if m.synchronizer != nil {
		serverIDs, err = m.synchronizer.Synchronize(ctx, c.ID, userID)
		if err != nil {
			slog.Error("initial room sync failed", "connID", c.ID, "userID", userID, "error", err)
		}
	}
	if serverIDs == nil {
		serverIDs = []int64{}
	}

	c.SendEvent(EventReady, ReadyData{
		SessionID: c.ID,
		UserID:    user.ID,
		Servers:   serverIDs,
	})

	if firstConn && m.presence != nil {
		serverIDs, err := m.presence.SetOnline(ctx, userID)
		if err != nil {
			slog.Error("presence online failed", "userID", userID, "error", err)
			return
		}
		for _, serverID := range serverIDs {
			m.Emit(ServerGroup(serverID), EventPresenceUpdate, PresenceUpdateData{
				UserID: userID,
				Status: PresenceOnline,
			})
		}
	}
}

// handlePresenceUpdate lets a client switch between online and idle-style
// statuses. Offline is reserved for actual disconnects.
func (m *Manager) handlePresenceUpdate(c *Connection, raw json.RawMessage) {
	if !c.identified.Load() {
		return
	}

	var update ClientPresenceUpdate
	if err := json.Unmarshal(raw, &update); err != nil {
		slog.Error("invalid presence payload", "connID", c.ID, "error", err)
		return
	}
	status, ok := parsePresenceStatus(update.Status)
	if !ok || status == PresenceOffline {
		return
	}

	ctx := context.Background()
	serverIDs, err := m.presence.SetStatus(ctx, c.UserID, status)
	if err != nil {
		slog.Error("presence update failed", "userID", c.UserID, "error", err)
		return
	}
	for _, serverID := range serverIDs {
		m.Emit(ServerGroup(serverID), EventPresenceUpdate, PresenceUpdateData{
			UserID: c.UserID,
			Status: status,
		})
	}
}
