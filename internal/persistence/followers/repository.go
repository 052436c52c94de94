package followers

import (
	"context"

	"gorm.io/gorm/clause"

	"podfed/internal/core"
	"podfed/internal/persistence"
)

type Repository struct {
	DB core.DB
}

// Add upserts the follower on (owner_actor_id, remote_actor_id). An empty
// shared inbox falls back to the personal inbox.
func (r *Repository) Add(ctx context.Context, follower core.FollowerModel) error {
	if follower.SharedInboxURL == "" {
		follower.SharedInboxURL = follower.InboxURL
	}
	if follower.Status == "" {
		follower.Status = core.FollowerStatusAccepted
	}

	return persistence.Wrap(r.DB.
		Model(&core.FollowerModel{}).
		WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "owner_actor_id"}, {Name: "remote_actor_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"instance_host", "inbox_url", "shared_inbox_url", "status", "updated_at",
			}),
		}).
		Create(&follower).Error)
}

func (r *Repository) Remove(ctx context.Context, ownerActorID uint64, remoteActorID string) error {
	return persistence.Wrap(r.DB.
		Model(&core.FollowerModel{}).
		WithContext(ctx).
		Where("owner_actor_id = ? AND remote_actor_id = ?", ownerActorID, remoteActorID).
		Delete(&core.FollowerModel{}).Error)
}

func (r *Repository) List(ctx context.Context, ownerActorID uint64) ([]core.FollowerModel, error) {
	var followers []core.FollowerModel
	err := r.DB.
		Model(&core.FollowerModel{}).
		WithContext(ctx).
		Where("owner_actor_id = ?", ownerActorID).
		Order("id").
		Find(&followers).Error
	if err != nil {
		return nil, persistence.Wrap(err)
	}
	return followers, nil
}

func (r *Repository) Count(ctx context.Context, ownerActorID uint64) (int64, error) {
	var count int64
	err := r.DB.
		Model(&core.FollowerModel{}).
		WithContext(ctx).
		Where("owner_actor_id = ?", ownerActorID).
		Count(&count).Error
	return count, persistence.Wrap(err)
}
