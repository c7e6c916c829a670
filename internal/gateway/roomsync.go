package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/victorivanov/parley/internal/database"
	"github.com/victorivanov/parley/internal/models"
	"github.com/victorivanov/parley/internal/permissions"
)

const (
	syncQueueSize   = 1024
	syncWorkerCount = 4
	syncTimeout     = 10 * time.Second
	memberPageSize  = 200
)

// connState holds the groups the synchronizer has placed one connection in.
// The per-connection mutex serializes concurrent syncs for that connection so
// deltas are always computed against the set actually applied.
type connState struct {
	mu     sync.Mutex
	userID int64
	groups map[string]struct{}
}

// Synchronizer keeps each connection's broadcast groups in line with what
// the permission engine says the user may see: their personal group, their
// DM channel groups, and for every server they belong to the server group
// plus the groups of channels where they hold VIEW_CHANNEL.
//
// It is the only writer of group membership; the transport just applies the
// join/leave deltas it is handed.
type Synchronizer struct {
	transport Transport
	members   database.MemberRepository
	roles     database.RoleRepository
	channels  database.ChannelRepository

	mu      sync.Mutex
	managed map[string]*connState

	queueMu sync.Mutex
	pending map[int64]struct{}
	queue   chan int64
	done    chan struct{}
	once    sync.Once
}

func NewSynchronizer(transport Transport, members database.MemberRepository, roles database.RoleRepository, channels database.ChannelRepository) *Synchronizer {
	s := &Synchronizer{
		transport: transport,
		members:   members,
		roles:     roles,
		channels:  channels,
		managed:   make(map[string]*connState),
		pending:   make(map[int64]struct{}),
		queue:     make(chan int64, syncQueueSize),
		done:      make(chan struct{}),
	}
	for i := 0; i < syncWorkerCount; i++ {
		go s.worker()
	}
	return s
}

// Close stops the background workers. Pending resyncs are dropped.
func (s *Synchronizer) Close() {
	s.once.Do(func() { close(s.done) })
}

// Synchronize recomputes the target group set for one connection and applies
// the minimal join/leave delta. It is idempotent: syncing an already-correct
// connection applies nothing. Returns the IDs of servers the connection is
// subscribed to.
func (s *Synchronizer) Synchronize(ctx context.Context, connID string, userID int64) ([]int64, error) {
	state := s.state(connID, userID)
	state.mu.Lock()
	defer state.mu.Unlock()

	target, serverIDs, err := s.targetGroups(ctx, userID)
	if err != nil {
		return nil, err
	}

	for group := range target {
		if _, ok := state.groups[group]; !ok {
			s.transport.Join(connID, group)
		}
	}
	for group := range state.groups {
		if _, ok := target[group]; !ok {
			s.transport.Leave(connID, group)
		}
	}
	state.groups = target
	return serverIDs, nil
}

// Forget drops the managed-group record for a connection. Called when the
// connection closes; the transport forgets its own memberships separately.
func (s *Synchronizer) Forget(connID string) {
	s.mu.Lock()
	delete(s.managed, connID)
	s.mu.Unlock()
}

// OnAffectedUsers queues a resync for every live connection of the given
// users. Calls coalesce: a user already queued is not queued again, so a
// burst of permission changes costs one resync per user. The queue is
// bounded; on overflow the resync is dropped with a warning rather than
// blocking the caller.
func (s *Synchronizer) OnAffectedUsers(userIDs []int64) {
	for _, userID := range userIDs {
		s.queueMu.Lock()
		if _, queued := s.pending[userID]; queued {
			s.queueMu.Unlock()
			continue
		}
		s.pending[userID] = struct{}{}
		s.queueMu.Unlock()

		select {
		case s.queue <- userID:
		default:
			s.queueMu.Lock()
			delete(s.pending, userID)
			s.queueMu.Unlock()
			slog.Warn("room sync queue full, dropping resync", "userID", userID)
		}
	}
}

// RefreshServerMembers queues a resync for every member of a server, paging
// through the member list so arbitrarily large servers stay bounded.
func (s *Synchronizer) RefreshServerMembers(ctx context.Context, serverID int64) error {
	for offset := 0; ; offset += memberPageSize {
		page, err := s.members.ListByServer(ctx, serverID, memberPageSize, offset)
		if err != nil {
			return err
		}
		userIDs := make([]int64, len(page))
		for i, m := range page {
			userIDs[i] = m.UserID
		}
		s.OnAffectedUsers(userIDs)
		if len(page) < memberPageSize {
			return nil
		}
	}
}

func (s *Synchronizer) worker() {
	for {
		select {
		case userID := <-s.queue:
			s.queueMu.Lock()
			delete(s.pending, userID)
			s.queueMu.Unlock()
			s.resyncUser(userID)
		case <-s.done:
			return
		}
	}
}

func (s *Synchronizer) resyncUser(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	for _, connID := range s.transport.ConnectionsForUser(userID) {
		if _, err := s.Synchronize(ctx, connID, userID); err != nil {
			slog.Error("room resync failed", "connID", connID, "userID", userID, "error", err)
		}
	}
}

func (s *Synchronizer) state(connID string, userID int64) *connState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.managed[connID]
	if !ok {
		st = &connState{userID: userID, groups: make(map[string]struct{})}
		s.managed[connID] = st
	}
	return st
}

// targetGroups computes the full set of groups a user's connection should
// be in. A failure while resolving one server skips that server and keeps
// the rest; only failures on the user-wide queries abort the sync.
func (s *Synchronizer) targetGroups(ctx context.Context, userID int64) (map[string]struct{}, []int64, error) {
	target := map[string]struct{}{
		UserGroup(userID): {},
	}

	dms, err := s.channels.ListDMsForUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	for _, dm := range dms {
		target[ChannelGroup(dm.ID)] = struct{}{}
	}

	serverIDs, err := s.members.ListServerIDsByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	subscribed := make([]int64, 0, len(serverIDs))
	for _, serverID := range serverIDs {
		groups, err := s.serverGroups(ctx, serverID, userID)
		if err != nil {
			slog.Warn("skipping server during room sync", "serverID", serverID, "userID", userID, "error", err)
			continue
		}
		for g := range groups {
			target[g] = struct{}{}
		}
		subscribed = append(subscribed, serverID)
	}
	return target, subscribed, nil
}

func (s *Synchronizer) serverGroups(ctx context.Context, serverID, userID int64) (map[string]struct{}, error) {
	member, err := s.members.GetByServerAndUser(ctx, serverID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		// Membership disappeared between the id listing and now.
		return map[string]struct{}{}, nil
	}

	roles, err := s.roles.GetByServerID(ctx, serverID)
	if err != nil {
		return nil, err
	}
	var baseRole *models.Role
	for i := range roles {
		if roles[i].IsBase {
			baseRole = &roles[i]
			break
		}
	}
	if baseRole == nil {
		return nil, fmt.Errorf("server %d has no base role", serverID)
	}

	channels, err := s.channels.ListByServer(ctx, serverID)
	if err != nil {
		return nil, err
	}

	groups := map[string]struct{}{
		ServerGroup(serverID): {},
	}
	for i := range channels {
		effective := permissions.ComputeEffective(member, roles, baseRole, &channels[i])
		if effective.Has(permissions.ViewChannel) {
			groups[ChannelGroup(channels[i].ID)] = struct{}{}
		}
	}
	return groups, nil
}
