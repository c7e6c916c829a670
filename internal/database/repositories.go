package database

import (
	"context"

	"github.com/victorivanov/parley/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type ServerRepository interface {
	Create(ctx context.Context, server *models.Server) error
	GetByID(ctx context.Context, id int64) (*models.Server, error)
	GetByUserID(ctx context.Context, userID int64) ([]models.Server, error)
	SetBaseRole(ctx context.Context, serverID, roleID int64) error
	Delete(ctx context.Context, id int64) error
}

type RoleRepository interface {
	Create(ctx context.Context, role *models.Role) error
	GetByID(ctx context.Context, id int64) (*models.Role, error)
	GetByServerID(ctx context.Context, serverID int64) ([]models.Role, error)
	GetBase(ctx context.Context, serverID int64) (*models.Role, error)
	Update(ctx context.Context, role *models.Role) error
	// Delete removes the role and cascades it out of member role lists and
	// channel overrides in one transaction.
	Delete(ctx context.Context, id int64) error
}

type MemberRepository interface {
	Create(ctx context.Context, member *models.Member) error
	Update(ctx context.Context, member *models.Member) error
	GetByServerAndUser(ctx context.Context, serverID, userID int64) (*models.Member, error)
	// ListByServer pages through a server's memberships; role ids included.
	ListByServer(ctx context.Context, serverID int64, limit, offset int) ([]models.Member, error)
	ListServerIDsByUser(ctx context.Context, userID int64) ([]int64, error)
	ListUserIDsByRole(ctx context.Context, serverID, roleID int64) ([]int64, error)
	AddRole(ctx context.Context, serverID, userID, roleID int64) error
	RemoveRole(ctx context.Context, serverID, userID, roleID int64) error
	Delete(ctx context.Context, serverID, userID int64) error
}

type ChannelRepository interface {
	Create(ctx context.Context, channel *models.Channel) error
	Update(ctx context.Context, channel *models.Channel) error
	// GetByID returns the channel with its override list (and recipients
	// for DM channels) populated.
	GetByID(ctx context.Context, id int64) (*models.Channel, error)
	ListByServer(ctx context.Context, serverID int64) ([]models.Channel, error)
	ListDMsForUser(ctx context.Context, userID int64) ([]models.Channel, error)
	GetOrCreateDM(ctx context.Context, userID, recipientID, newID int64) (*models.Channel, error)
	// ReplaceOverrides swaps the channel's whole override list atomically.
	ReplaceOverrides(ctx context.Context, channelID int64, overrides []models.Override) error
	Delete(ctx context.Context, id int64) error
	CreateCategory(ctx context.Context, category *models.Category) error
	ListCategories(ctx context.Context, serverID int64) ([]models.Category, error)
}
