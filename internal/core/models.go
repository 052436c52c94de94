package core

import (
	"time"
)

const FollowerStatusAccepted = "accepted"

// ActorModel is a podcast actor. ID is the PodcastIndex feed id; keys are
// generated once on first access and never rotated.
type ActorModel struct {
	ID                uint64 `gorm:"column:id;primaryKey;autoIncrement:false"`
	GUID              string `gorm:"column:guid"`
	PrivateKeyPEM     string `gorm:"column:private_key_pem"`
	PublicKeyPEM      string `gorm:"column:public_key_pem"`
	LastEpisodeCursor string `gorm:"column:last_episode_cursor"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ActorModel) TableName() string {
	return "actors"
}

// FollowerModel is a remote account following a podcast actor.
type FollowerModel struct {
	ID             uint64 `gorm:"column:id;primaryKey"`
	OwnerActorID   uint64 `gorm:"column:owner_actor_id;uniqueIndex:idx_followers_owner_remote"`
	RemoteActorID  string `gorm:"column:remote_actor_id;uniqueIndex:idx_followers_owner_remote"`
	InstanceHost   string `gorm:"column:instance_host"`
	InboxURL       string `gorm:"column:inbox_url"`
	SharedInboxURL string `gorm:"column:shared_inbox_url"`
	Status         string `gorm:"column:status"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (FollowerModel) TableName() string {
	return "followers"
}

// ReplyModel is a fediverse note received in reply to an episode, directly
// or further down its thread.
type ReplyModel struct {
	ID             uint64 `gorm:"column:id;primaryKey"`
	OwnerActorID   uint64 `gorm:"column:owner_actor_id"`
	EpisodeID      string `gorm:"column:episode_id"`
	ObjectID       string `gorm:"column:object_id;uniqueIndex"`
	ObjectType     string `gorm:"column:object_type"`
	AttributedTo   string `gorm:"column:attributed_to"`
	Content        string `gorm:"column:content"`
	Sensitive      bool   `gorm:"column:sensitive"`
	Published      string `gorm:"column:published"`
	ReceivedAt     int64  `gorm:"column:received_at"`
	ConversationID string `gorm:"column:conversation_id;index"`
}

func (ReplyModel) TableName() string {
	return "replies"
}

// Models lists every table the repositories use.
func Models() []any {
	return []any{&ActorModel{}, &FollowerModel{}, &ReplyModel{}}
}
