package gateway

import (
	"context"
	"sort"
	"sync"

	"github.com/victorivanov/parley/internal/models"
)

// ---------------------------------------------------------------------------
// Fake transport
// ---------------------------------------------------------------------------

// fakeTransport records every join/leave and tracks resulting membership.
type fakeTransport struct {
	mu          sync.Mutex
	membership  map[string]map[string]struct{} // connID -> groups
	joins       int
	leaves      int
	connsByUser map[int64][]string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		membership:  make(map[string]map[string]struct{}),
		connsByUser: make(map[int64][]string),
	}
}

func (f *fakeTransport) Join(connID, group string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.membership[connID] == nil {
		f.membership[connID] = make(map[string]struct{})
	}
	f.membership[connID][group] = struct{}{}
	f.joins++
}

func (f *fakeTransport) Leave(connID, group string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.membership[connID], group)
	f.leaves++
}

func (f *fakeTransport) Emit(group, event string, payload any) {}

func (f *fakeTransport) ConnectionsForUser(userID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.connsByUser[userID]...)
}

func (f *fakeTransport) groupsOf(connID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	groups := make([]string, 0, len(f.membership[connID]))
	for g := range f.membership[connID] {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

func (f *fakeTransport) counts() (joins, leaves int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joins, f.leaves
}

// ---------------------------------------------------------------------------
// Mock repositories
// ---------------------------------------------------------------------------

// mockMemberRepo implements database.MemberRepository.
type mockMemberRepo struct {
	CreateFn              func(ctx context.Context, member *models.Member) error
	UpdateFn              func(ctx context.Context, member *models.Member) error
	GetByServerAndUserFn  func(ctx context.Context, serverID, userID int64) (*models.Member, error)
	ListByServerFn        func(ctx context.Context, serverID int64, limit, offset int) ([]models.Member, error)
	ListServerIDsByUserFn func(ctx context.Context, userID int64) ([]int64, error)
	ListUserIDsByRoleFn   func(ctx context.Context, serverID, roleID int64) ([]int64, error)
	AddRoleFn             func(ctx context.Context, serverID, userID, roleID int64) error
	RemoveRoleFn          func(ctx context.Context, serverID, userID, roleID int64) error
	DeleteFn              func(ctx context.Context, serverID, userID int64) error
}

func (m *mockMemberRepo) Create(ctx context.Context, member *models.Member) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, member)
	}
	return nil
}

func (m *mockMemberRepo) Update(ctx context.Context, member *models.Member) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, member)
	}
	return nil
}

func (m *mockMemberRepo) GetByServerAndUser(ctx context.Context, serverID, userID int64) (*models.Member, error) {
	if m.GetByServerAndUserFn != nil {
		return m.GetByServerAndUserFn(ctx, serverID, userID)
	}
	return nil, nil
}

func (m *mockMemberRepo) ListByServer(ctx context.Context, serverID int64, limit, offset int) ([]models.Member, error) {
	if m.ListByServerFn != nil {
		return m.ListByServerFn(ctx, serverID, limit, offset)
	}
	return nil, nil
}

func (m *mockMemberRepo) ListServerIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	if m.ListServerIDsByUserFn != nil {
		return m.ListServerIDsByUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockMemberRepo) ListUserIDsByRole(ctx context.Context, serverID, roleID int64) ([]int64, error) {
	if m.ListUserIDsByRoleFn != nil {
		return m.ListUserIDsByRoleFn(ctx, serverID, roleID)
	}
	return nil, nil
}

func (m *mockMemberRepo) AddRole(ctx context.Context, serverID, userID, roleID int64) error {
	if m.AddRoleFn != nil {
		return m.AddRoleFn(ctx, serverID, userID, roleID)
	}
	return nil
}

func (m *mockMemberRepo) RemoveRole(ctx context.Context, serverID, userID, roleID int64) error {
	if m.RemoveRoleFn != nil {
		return m.RemoveRoleFn(ctx, serverID, userID, roleID)
	}
	return nil
}

func (m *mockMemberRepo) Delete(ctx context.Context, serverID, userID int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, serverID, userID)
	}
	return nil
}

// mockRoleRepo implements database.RoleRepository.
type mockRoleRepo struct {
	CreateFn        func(ctx context.Context, role *models.Role) error
	GetByIDFn       func(ctx context.Context, id int64) (*models.Role, error)
	GetByServerIDFn func(ctx context.Context, serverID int64) ([]models.Role, error)
	GetBaseFn       func(ctx context.Context, serverID int64) (*models.Role, error)
	UpdateFn        func(ctx context.Context, role *models.Role) error
	DeleteFn        func(ctx context.Context, id int64) error
}

func (m *mockRoleRepo) Create(ctx context.Context, role *models.Role) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, role)
	}
	return nil
}

func (m *mockRoleRepo) GetByID(ctx context.Context, id int64) (*models.Role, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockRoleRepo) GetByServerID(ctx context.Context, serverID int64) ([]models.Role, error) {
	if m.GetByServerIDFn != nil {
		return m.GetByServerIDFn(ctx, serverID)
	}
	return nil, nil
}

func (m *mockRoleRepo) GetBase(ctx context.Context, serverID int64) (*models.Role, error) {
	if m.GetBaseFn != nil {
		return m.GetBaseFn(ctx, serverID)
	}
	return nil, nil
}

func (m *mockRoleRepo) Update(ctx context.Context, role *models.Role) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, role)
	}
	return nil
}

func (m *mockRoleRepo) Delete(ctx context.Context, id int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

// mockChannelRepo implements database.ChannelRepository.
type mockChannelRepo struct {
	CreateFn           func(ctx context.Context, channel *models.Channel) error
	UpdateFn           func(ctx context.Context, channel *models.Channel) error
	GetByIDFn          func(ctx context.Context, id int64) (*models.Channel, error)
	ListByServerFn     func(ctx context.Context, serverID int64) ([]models.Channel, error)
	ListDMsForUserFn   func(ctx context.Context, userID int64) ([]models.Channel, error)
	GetOrCreateDMFn    func(ctx context.Context, userID, recipientID, newID int64) (*models.Channel, error)
	ReplaceOverridesFn func(ctx context.Context, channelID int64, overrides []models.Override) error
	DeleteFn           func(ctx context.Context, id int64) error
	CreateCategoryFn   func(ctx context.Context, category *models.Category) error
	ListCategoriesFn   func(ctx context.Context, serverID int64) ([]models.Category, error)
}

func (m *mockChannelRepo) Create(ctx context.Context, channel *models.Channel) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, channel)
	}
	return nil
}

func (m *mockChannelRepo) Update(ctx context.Context, channel *models.Channel) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, channel)
	}
	return nil
}

func (m *mockChannelRepo) GetByID(ctx context.Context, id int64) (*models.Channel, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockChannelRepo) ListByServer(ctx context.Context, serverID int64) ([]models.Channel, error) {
	if m.ListByServerFn != nil {
		return m.ListByServerFn(ctx, serverID)
	}
	return nil, nil
}

func (m *mockChannelRepo) ListDMsForUser(ctx context.Context, userID int64) ([]models.Channel, error) {
	if m.ListDMsForUserFn != nil {
		return m.ListDMsForUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockChannelRepo) GetOrCreateDM(ctx context.Context, userID, recipientID, newID int64) (*models.Channel, error) {
	if m.GetOrCreateDMFn != nil {
		return m.GetOrCreateDMFn(ctx, userID, recipientID, newID)
	}
	return nil, nil
}

func (m *mockChannelRepo) ReplaceOverrides(ctx context.Context, channelID int64, overrides []models.Override) error {
	if m.ReplaceOverridesFn != nil {
		return m.ReplaceOverridesFn(ctx, channelID, overrides)
	}
	return nil
}

func (m *mockChannelRepo) Delete(ctx context.Context, id int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

func (m *mockChannelRepo) CreateCategory(ctx context.Context, category *models.Category) error {
	if m.CreateCategoryFn != nil {
		return m.CreateCategoryFn(ctx, category)
	}
	return nil
}

func (m *mockChannelRepo) ListCategories(ctx context.Context, serverID int64) ([]models.Category, error) {
	if m.ListCategoriesFn != nil {
		return m.ListCategoriesFn(ctx, serverID)
	}
	return nil, nil
}
