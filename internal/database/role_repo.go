package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/victorivanov/parley/internal/models"
)

type roleRepo struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &roleRepo{pool: pool}
}

func (r *roleRepo) Create(ctx context.Context, role *models.Role) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO roles (id, server_id, name, color, permissions, position, is_base)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		role.ID, role.ServerID, role.Name, role.Color, role.Permissions, role.Position, role.IsBase,
	)
	return err
}

func (r *roleRepo) GetByID(ctx context.Context, id int64) (*models.Role, error) {
	role := &models.Role{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, server_id, name, color, permissions, position, is_base
		 FROM roles WHERE id = $1`, id,
	).Scan(&role.ID, &role.ServerID, &role.Name, &role.Color, &role.Permissions, &role.Position, &role.IsBase)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return role, err
}

func (r *roleRepo) GetByServerID(ctx context.Context, serverID int64) ([]models.Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, server_id, name, color, permissions, position, is_base
		 FROM roles WHERE server_id = $1
		 ORDER BY position`, serverID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.ServerID, &role.Name, &role.Color, &role.Permissions, &role.Position, &role.IsBase); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *roleRepo) GetBase(ctx context.Context, serverID int64) (*models.Role, error) {
	role := &models.Role{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, server_id, name, color, permissions, position, is_base
		 FROM roles WHERE server_id = $1 AND is_base`, serverID,
	).Scan(&role.ID, &role.ServerID, &role.Name, &role.Color, &role.Permissions, &role.Position, &role.IsBase)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return role, err
}

func (r *roleRepo) Update(ctx context.Context, role *models.Role) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE roles SET name = $2, color = $3, permissions = $4, position = $5
		 WHERE id = $1`,
		role.ID, role.Name, role.Color, role.Permissions, role.Position,
	)
	return err
}

// Delete removes the role and every reference to it: member role lists and
// role-targeted channel overrides go in the same transaction.
func (r *roleRepo) Delete(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM member_roles WHERE role_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM channel_overrides WHERE target_type = 'role' AND target_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
