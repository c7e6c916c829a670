package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/victorivanov/parley/internal/models"
)

type memberRepo struct {
	pool *pgxpool.Pool
}

func NewMemberRepository(pool *pgxpool.Pool) MemberRepository {
	return &memberRepo{pool: pool}
}

const memberSelect = `
	SELECT m.server_id, m.user_id, m.nickname, m.is_owner, m.joined_at,
	       COALESCE(array_agg(mr.role_id) FILTER (WHERE mr.role_id IS NOT NULL), '{}')
	FROM members m
	LEFT JOIN member_roles mr ON mr.server_id = m.server_id AND mr.user_id = m.user_id`

func scanMember(row pgx.Row) (*models.Member, error) {
	m := &models.Member{}
	err := row.Scan(&m.ServerID, &m.UserID, &m.Nickname, &m.IsOwner, &m.JoinedAt, &m.RoleIDs)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *memberRepo) Create(ctx context.Context, member *models.Member) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO members (server_id, user_id, nickname, is_owner, joined_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		member.ServerID, member.UserID, member.Nickname, member.IsOwner,
	)
	return err
}

func (r *memberRepo) Update(ctx context.Context, member *models.Member) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE members SET nickname = $3 WHERE server_id = $1 AND user_id = $2`,
		member.ServerID, member.UserID, member.Nickname,
	)
	return err
}

func (r *memberRepo) GetByServerAndUser(ctx context.Context, serverID, userID int64) (*models.Member, error) {
	row := r.pool.QueryRow(ctx,
		memberSelect+`
		 WHERE m.server_id = $1 AND m.user_id = $2
		 GROUP BY m.server_id, m.user_id`, serverID, userID,
	)
	return scanMember(row)
}

func (r *memberRepo) ListByServer(ctx context.Context, serverID int64, limit, offset int) ([]models.Member, error) {
	rows, err := r.pool.Query(ctx,
		memberSelect+`
		 WHERE m.server_id = $1
		 GROUP BY m.server_id, m.user_id
		 ORDER BY m.user_id
		 LIMIT $2 OFFSET $3`, serverID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ServerID, &m.UserID, &m.Nickname, &m.IsOwner, &m.JoinedAt, &m.RoleIDs); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *memberRepo) ListServerIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT server_id FROM members WHERE user_id = $1 ORDER BY server_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *memberRepo) ListUserIDsByRole(ctx context.Context, serverID, roleID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM member_roles WHERE server_id = $1 AND role_id = $2`, serverID, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *memberRepo) AddRole(ctx context.Context, serverID, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO member_roles (server_id, user_id, role_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING`,
		serverID, userID, roleID,
	)
	return err
}

func (r *memberRepo) RemoveRole(ctx context.Context, serverID, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM member_roles WHERE server_id = $1 AND user_id = $2 AND role_id = $3`,
		serverID, userID, roleID,
	)
	return err
}

// Delete removes the membership along with its role assignments and any
// member-targeted overrides across the server's channels.
func (r *memberRepo) Delete(ctx context.Context, serverID, userID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM member_roles WHERE server_id = $1 AND user_id = $2`, serverID, userID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM channel_overrides co
		 USING channels c
		 WHERE co.channel_id = c.id AND c.server_id = $1
		   AND co.target_type = 'member' AND co.target_id = $2`, serverID, userID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM members WHERE server_id = $1 AND user_id = $2`, serverID, userID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
