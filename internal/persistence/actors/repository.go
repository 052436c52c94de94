package actors

import (
	"context"

	"gorm.io/gorm/clause"

	"podfed/internal/core"
	"podfed/internal/persistence"
)

type Repository struct {
	DB core.DB
}

func (r *Repository) Get(ctx context.Context, id uint64) (*core.ActorModel, error) {
	var actor core.ActorModel
	err := r.DB.
		Model(&core.ActorModel{}).
		WithContext(ctx).
		Where("id = ?", id).
		First(&actor).Error
	if err != nil {
		return nil, persistence.Wrap(err)
	}
	return &actor, nil
}

// CreateIfAbsent relies on the primary key: a concurrent insert of the same
// id loses silently and the stored row wins.
func (r *Repository) CreateIfAbsent(ctx context.Context, actor core.ActorModel) error {
	return persistence.Wrap(r.DB.
		Model(&core.ActorModel{}).
		WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(&actor).Error)
}

func (r *Repository) UpdateCursor(ctx context.Context, id uint64, cursor string) error {
	return persistence.Wrap(r.DB.
		Model(&core.ActorModel{}).
		WithContext(ctx).
		Where("id = ?", id).
		Update("last_episode_cursor", cursor).Error)
}

func (r *Repository) ListWithFollowers(ctx context.Context) ([]core.ActorModel, error) {
	var actors []core.ActorModel
	err := r.DB.
		Model(&core.ActorModel{}).
		WithContext(ctx).
		Where("EXISTS (SELECT 1 FROM followers WHERE followers.owner_actor_id = actors.id)").
		Order("id").
		Find(&actors).Error
	if err != nil {
		return nil, persistence.Wrap(err)
	}
	return actors, nil
}
