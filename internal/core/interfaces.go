package core

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"podfed/internal/activitypub"
	"podfed/internal/httpsig"
	"podfed/pkg/async"
	"podfed/pkg/podcastindex"
)

type DB interface {
	Model(a any) *gorm.DB
	DB() (*sql.DB, error)
}

type Migrator interface {
	Up(ctx context.Context) error
	Down(ctx context.Context) error
	Fix(ctx context.Context) error
	Migrate(ctx context.Context, version uint) error
}

type ActorRepository interface {
	// Get returns ErrNotFound when the actor does not exist.
	Get(ctx context.Context, id uint64) (*ActorModel, error)
	// CreateIfAbsent inserts the actor unless a row with its id exists.
	CreateIfAbsent(ctx context.Context, actor ActorModel) error
	UpdateCursor(ctx context.Context, id uint64, cursor string) error
	// ListWithFollowers returns actors that have at least one follower.
	ListWithFollowers(ctx context.Context) ([]ActorModel, error)
}

type FollowerRepository interface {
	// Add inserts or updates the follower keyed by owner and remote actor.
	Add(ctx context.Context, follower FollowerModel) error
	// Remove is a no-op when the follower does not exist.
	Remove(ctx context.Context, ownerActorID uint64, remoteActorID string) error
	List(ctx context.Context, ownerActorID uint64) ([]FollowerModel, error)
	Count(ctx context.Context, ownerActorID uint64) (int64, error)
}

type ReplyRepository interface {
	// Add reports whether the reply was inserted; an existing object id is
	// left untouched.
	Add(ctx context.Context, reply ReplyModel) (bool, error)
	// FindByConversation returns the earliest reply of a conversation, or
	// ErrNotFound.
	FindByConversation(ctx context.Context, conversationID string) (*ReplyModel, error)
	CountByEpisode(ctx context.Context, ownerActorID uint64, episodeID string) (int64, error)
}

// Metadata is the podcast metadata source.
type Metadata interface {
	GetPodcast(ctx context.Context, id uint64) (*podcastindex.Feed, error)
	// GetEpisodes returns up to limit episodes, newest first.
	GetEpisodes(ctx context.Context, id uint64, limit int) ([]podcastindex.Item, error)
	GetLiveItems(ctx context.Context, feedURL string) ([]podcastindex.LiveItem, error)
	Rescan(ctx context.Context, id uint64) error
}

type KeyStore interface {
	// GetOrCreate returns the actor row, generating its key pair on first
	// access.
	GetOrCreate(ctx context.Context, actorID uint64) (*ActorModel, error)
	Signer(ctx context.Context, actorID uint64) (*httpsig.Signer, error)
}

type RemoteActorFetcher interface {
	// Fetch GETs a remote actor document, signed as the owner actor.
	Fetch(ctx context.Context, ownerActorID uint64, actorURL string) (*activitypub.RemoteActor, error)
}

type Deliverer interface {
	// Deliver POSTs an activity to a remote inbox, signed as the owner actor.
	Deliver(ctx context.Context, ownerActorID uint64, inboxURL string, activity *activitypub.Object) error
}

// SignatureVerifier authenticates an inbound request against the public key
// of the actor named by its signature.
type SignatureVerifier interface {
	// Verify returns the id of the actor owning the signing key.
	Verify(ctx context.Context, ownerActorID uint64, req httpsig.Request) (string, error)
}

type DeliveryResult struct {
	Inbox string
	Err   error
}

type Fanout interface {
	// Notify wraps note in a Create and delivers it once per distinct shared
	// inbox of followers.
	Notify(ctx context.Context, ownerActorID uint64, note *activitypub.Object, followers []FollowerModel) []DeliveryResult
}

type Dispatcher interface {
	// Dispatch handles an inbound activity received on an actor's inbox;
	// ownerActorID is 0 for the shared inbox.
	Dispatch(ctx context.Context, ownerActorID uint64, activity *activitypub.Object) error
}

// LiveDedupe remembers which live items were already announced.
type LiveDedupe interface {
	// Claim reports whether key was claimed by this call.
	Claim(ctx context.Context, key string) (bool, error)
}

type PodpingStream interface {
	// Subscribe connects to the stream; the channel closes when the
	// connection ends, after delivering the error that ended it.
	Subscribe(ctx context.Context) (<-chan async.Result[Podping], error)
}

type MetricsServer interface{}

type MetricsCollector interface{}

type APIServer interface{}

type EpisodeTracker interface {
	// Poll runs a single pass over all followed actors.
	Poll(ctx context.Context)
}

type LiveTracker interface {
	Handle(ctx context.Context, podping Podping)
}
