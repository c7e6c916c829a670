package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/victorivanov/parley/internal/models"
)

type channelRepo struct {
	pool *pgxpool.Pool
}

func NewChannelRepository(pool *pgxpool.Pool) ChannelRepository {
	return &channelRepo{pool: pool}
}

func (r *channelRepo) Create(ctx context.Context, channel *models.Channel) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO channels (id, server_id, kind, name, topic, category_id, position, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		channel.ID, channel.ServerID, channel.Kind, channel.Name, channel.Topic, channel.CategoryID, channel.Position,
	)
	if err != nil {
		return err
	}

	for _, userID := range channel.Recipients {
		if _, err := tx.Exec(ctx,
			`INSERT INTO channel_recipients (channel_id, user_id) VALUES ($1, $2)`,
			channel.ID, userID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *channelRepo) Update(ctx context.Context, channel *models.Channel) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE channels SET name = $2, topic = $3, category_id = $4, position = $5
		 WHERE id = $1`,
		channel.ID, channel.Name, channel.Topic, channel.CategoryID, channel.Position,
	)
	return err
}

func (r *channelRepo) GetByID(ctx context.Context, id int64) (*models.Channel, error) {
	ch := &models.Channel{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, server_id, kind, name, topic, category_id, position, created_at
		 FROM channels WHERE id = $1`, id,
	).Scan(&ch.ID, &ch.ServerID, &ch.Kind, &ch.Name, &ch.Topic, &ch.CategoryID, &ch.Position, &ch.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if ch.Kind == models.ChannelKindDM {
		ch.Recipients, err = r.listRecipients(ctx, id)
		if err != nil {
			return nil, err
		}
		return ch, nil
	}

	ch.Overrides, err = r.listOverrides(ctx, id)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (r *channelRepo) ListByServer(ctx context.Context, serverID int64) ([]models.Channel, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, server_id, kind, name, topic, category_id, position, created_at
		 FROM channels WHERE server_id = $1
		 ORDER BY position, id`, serverID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []models.Channel
	index := make(map[int64]int)
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.ID, &ch.ServerID, &ch.Kind, &ch.Name, &ch.Topic, &ch.CategoryID, &ch.Position, &ch.CreatedAt); err != nil {
			return nil, err
		}
		index[ch.ID] = len(channels)
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// One query for the whole server's overrides, grouped in memory.
	oRows, err := r.pool.Query(ctx,
		`SELECT co.channel_id, co.target_type, co.target_id, co.allow_perms, co.deny_perms
		 FROM channel_overrides co
		 INNER JOIN channels c ON c.id = co.channel_id
		 WHERE c.server_id = $1`, serverID,
	)
	if err != nil {
		return nil, err
	}
	defer oRows.Close()

	for oRows.Next() {
		var o models.Override
		if err := oRows.Scan(&o.ChannelID, &o.TargetType, &o.TargetID, &o.Allow, &o.Deny); err != nil {
			return nil, err
		}
		if i, ok := index[o.ChannelID]; ok {
			channels[i].Overrides = append(channels[i].Overrides, o)
		}
	}
	return channels, oRows.Err()
}

func (r *channelRepo) ListDMsForUser(ctx context.Context, userID int64) ([]models.Channel, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.server_id, c.kind, c.name, c.topic, c.category_id, c.position, c.created_at
		 FROM channels c
		 INNER JOIN channel_recipients cr ON cr.channel_id = c.id
		 WHERE c.kind = 'DM' AND cr.user_id = $1
		 ORDER BY c.id`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.ID, &ch.ServerID, &ch.Kind, &ch.Name, &ch.Topic, &ch.CategoryID, &ch.Position, &ch.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range channels {
		recipients, err := r.listRecipients(ctx, channels[i].ID)
		if err != nil {
			return nil, err
		}
		channels[i].Recipients = recipients
	}
	return channels, nil
}

func (r *channelRepo) GetOrCreateDM(ctx context.Context, userID, recipientID, newID int64) (*models.Channel, error) {
	var existingID int64
	err := r.pool.QueryRow(ctx,
		`SELECT cr1.channel_id
		 FROM channel_recipients cr1
		 INNER JOIN channel_recipients cr2 ON cr2.channel_id = cr1.channel_id
		 INNER JOIN channels c ON c.id = cr1.channel_id
		 WHERE c.kind = 'DM' AND cr1.user_id = $1 AND cr2.user_id = $2`,
		userID, recipientID,
	).Scan(&existingID)
	if err == nil {
		return r.GetByID(ctx, existingID)
	}
	if err != pgx.ErrNoRows {
		return nil, err
	}

	ch := &models.Channel{
		ID:         newID,
		Kind:       models.ChannelKindDM,
		Recipients: []int64{userID, recipientID},
	}
	if err := r.Create(ctx, ch); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, newID)
}

// ReplaceOverrides swaps the channel's entire override list in one
// transaction. The primary key on (channel_id, target_type, target_id)
// rejects duplicate targets that slip past service-level validation.
func (r *channelRepo) ReplaceOverrides(ctx context.Context, channelID int64, overrides []models.Override) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM channel_overrides WHERE channel_id = $1`, channelID); err != nil {
		return err
	}
	for _, o := range overrides {
		if _, err := tx.Exec(ctx,
			`INSERT INTO channel_overrides (channel_id, target_type, target_id, allow_perms, deny_perms)
			 VALUES ($1, $2, $3, $4, $5)`,
			channelID, o.TargetType, o.TargetID, o.Allow, o.Deny); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *channelRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	return err
}

func (r *channelRepo) CreateCategory(ctx context.Context, category *models.Category) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO categories (id, server_id, name, position) VALUES ($1, $2, $3, $4)`,
		category.ID, category.ServerID, category.Name, category.Position,
	)
	return err
}

func (r *channelRepo) ListCategories(ctx context.Context, serverID int64) ([]models.Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, server_id, name, position FROM categories
		 WHERE server_id = $1 ORDER BY position, id`, serverID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.ServerID, &c.Name, &c.Position); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *channelRepo) listOverrides(ctx context.Context, channelID int64) ([]models.Override, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT channel_id, target_type, target_id, allow_perms, deny_perms
		 FROM channel_overrides WHERE channel_id = $1`, channelID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overrides []models.Override
	for rows.Next() {
		var o models.Override
		if err := rows.Scan(&o.ChannelID, &o.TargetType, &o.TargetID, &o.Allow, &o.Deny); err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

func (r *channelRepo) listRecipients(ctx context.Context, channelID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM channel_recipients WHERE channel_id = $1 ORDER BY user_id`, channelID)
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
