package replies

import (
	"context"

	"gorm.io/gorm/clause"

	"podfed/internal/core"
	"podfed/internal/persistence"
)

type Repository struct {
	DB core.DB
}

func (r *Repository) Add(ctx context.Context, reply core.ReplyModel) (bool, error) {
	res := r.DB.
		Model(&core.ReplyModel{}).
		WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "object_id"}},
			DoNothing: true,
		}).
		Create(&reply)
	if res.Error != nil {
		return false, persistence.Wrap(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) FindByConversation(ctx context.Context, conversationID string) (*core.ReplyModel, error) {
	var reply core.ReplyModel
	err := r.DB.
		Model(&core.ReplyModel{}).
		WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id").
		First(&reply).Error
	if err != nil {
		return nil, persistence.Wrap(err)
	}
	return &reply, nil
}

func (r *Repository) CountByEpisode(ctx context.Context, ownerActorID uint64, episodeID string) (int64, error) {
	var count int64
	err := r.DB.
		Model(&core.ReplyModel{}).
		WithContext(ctx).
		Where("owner_actor_id = ? AND episode_id = ?", ownerActorID, episodeID).
		Count(&count).Error
	return count, persistence.Wrap(err)
}
