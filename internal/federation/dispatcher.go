package federation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"podfed/internal/activitypub"
	"podfed/internal/core"
	"podfed/internal/metrics"
)

const (
	commandRescan = "rescan"
	commandLatest = "latest"

	replyDone      = "Done."
	replyNoEpisode = "No episodes yet."
)

// Dispatcher executes inbound activities against storage and remote servers.
type Dispatcher struct {
	Logger    *slog.Logger
	URLs      *activitypub.URLs
	Remote    core.RemoteActorFetcher
	Deliverer core.Deliverer
	Followers core.FollowerRepository
	Replies   core.ReplyRepository
	Metadata  core.Metadata
}

func (d *Dispatcher) Init(_ context.Context) error {
	d.Logger = d.Logger.With("component", "federation.Dispatcher")
	return nil
}

func (d *Dispatcher) Dispatch(ctx context.Context, ownerActorID uint64, activity *activitypub.Object) error {
	logger := d.Logger.With("type", activity.Type, "id", activity.ID, "actor", activity.Actor.IRI())

	var (
		outcome string
		err     error
	)

	switch activity.Kind() {
	case activitypub.KindFollow:
		outcome, err = d.follow(ctx, logger, ownerActorID, activity)
	case activitypub.KindUndo:
		outcome, err = d.undo(ctx, logger, ownerActorID, activity)
	case activitypub.KindCreate:
		outcome, err = d.create(ctx, logger, ownerActorID, activity)
	case activitypub.KindDelete:
		logger.Debug("Ignoring delete")
		outcome = "ignored"
	default:
		logger.Info("Ignoring unsupported activity")
		outcome = "ignored"
	}

	if err != nil {
		outcome = "error"
	}
	metrics.InboundActivities.WithLabelValues(string(activity.Kind()), outcome).Inc()

	return err
}

// owner resolves the addressed actor: the inbox's own actor, or on the
// shared inbox the actor named by target.
func (d *Dispatcher) owner(ownerActorID uint64, target string) (uint64, error) {
	if ownerActorID != activitypub.SharedInboxID {
		return ownerActorID, nil
	}
	if id, ok := d.URLs.ParseActor(target); ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOwner, target)
}

func (d *Dispatcher) follow(ctx context.Context, logger *slog.Logger, ownerActorID uint64, activity *activitypub.Object) (string, error) {
	remoteActorID := activity.Actor.IRI()
	if remoteActorID == "" {
		return "", fmt.Errorf("%w: follow without actor", activitypub.ErrParse)
	}

	owner, err := d.owner(ownerActorID, activity.Object.IRI())
	if err != nil {
		return "", err
	}

	remote, err := d.Remote.Fetch(ctx, owner, remoteActorID)
	if err != nil {
		return "", err
	}

	accept := activitypub.NewAccept(d.URLs, owner, activity)
	if err := d.Deliverer.Deliver(ctx, owner, remote.Inbox, &accept); err != nil {
		return "", err
	}

	err = d.Followers.Add(ctx, core.FollowerModel{
		OwnerActorID:   owner,
		RemoteActorID:  remoteActorID,
		InstanceHost:   hostOf(remoteActorID),
		InboxURL:       remote.Inbox,
		SharedInboxURL: remote.SharedInbox(),
		Status:         core.FollowerStatusAccepted,
	})
	if err != nil {
		return "", err
	}

	metrics.Followers.WithLabelValues("added").Inc()
	logger.Info("Follow accepted", "actor_id", owner)
	return "accepted", nil
}

func (d *Dispatcher) undo(ctx context.Context, logger *slog.Logger, ownerActorID uint64, activity *activitypub.Object) (string, error) {
	inner := activity.Inner()
	if inner == nil || inner.Kind() != activitypub.KindFollow {
		logger.Info("Ignoring undo of unsupported object", "object", activity.Object.IRI())
		return "ignored", nil
	}

	remoteActorID := activity.Actor.IRI()
	if remoteActorID == "" {
		remoteActorID = inner.Actor.IRI()
	}

	owner, err := d.owner(ownerActorID, inner.Object.IRI())
	if err != nil {
		return "", err
	}

	if err := d.Followers.Remove(ctx, owner, remoteActorID); err != nil {
		return "", err
	}

	metrics.Followers.WithLabelValues("removed").Inc()
	logger.Info("Follow undone", "actor_id", owner)
	return "removed", nil
}

func (d *Dispatcher) create(ctx context.Context, logger *slog.Logger, ownerActorID uint64, activity *activitypub.Object) (string, error) {
	note := activity.Inner()
	if note == nil {
		logger.Debug("Ignoring create of a bare reference")
		return "ignored", nil
	}
	if strings.TrimSpace(note.Content) == "" {
		logger.Debug("Ignoring create without content")
		return "ignored", nil
	}

	if inReplyTo := note.InReplyTo.IRI(); inReplyTo != "" {
		if owner, statusID, ok := d.URLs.ParseNote(inReplyTo); ok {
			conversation := note.Conversation
			if conversation == "" {
				conversation = inReplyTo
			}
			return d.storeReply(ctx, logger, activity, note, owner, statusID, conversation)
		}
		return d.threadReply(ctx, logger, activity, note)
	}

	if note.Conversation != "" {
		outcome, err := d.threadReply(ctx, logger, activity, note)
		if err != nil || outcome != "ignored" {
			return outcome, err
		}
	}

	for _, cc := range note.Cc {
		if owner, ok := d.URLs.ParseActor(cc); ok {
			return d.command(ctx, logger, activity, note, owner)
		}
	}

	logger.Debug("Ignoring create that neither replies to nor mentions an actor", "owner", ownerActorID)
	return "ignored", nil
}

// threadReply stores a reply whose parent is not one of the bridge's notes by
// joining the thread of an earlier reply in the same conversation.
func (d *Dispatcher) threadReply(ctx context.Context, logger *slog.Logger, activity, note *activitypub.Object) (string, error) {
	if note.Conversation == "" {
		logger.Debug("Ignoring reply outside any known thread")
		return "ignored", nil
	}

	anchor, err := d.Replies.FindByConversation(ctx, note.Conversation)
	if errors.Is(err, core.ErrNotFound) {
		logger.Debug("Ignoring reply in unknown conversation", "conversation", note.Conversation)
		return "ignored", nil
	}
	if err != nil {
		return "", err
	}

	return d.storeReply(ctx, logger, activity, note, anchor.OwnerActorID, anchor.EpisodeID, note.Conversation)
}

func (d *Dispatcher) storeReply(ctx context.Context, logger *slog.Logger, activity, note *activitypub.Object, owner uint64, episodeID, conversation string) (string, error) {
	if note.ID == "" {
		return "", fmt.Errorf("%w: reply without id", activitypub.ErrParse)
	}

	attributedTo := note.AttributedTo.IRI()
	if attributedTo == "" {
		attributedTo = activity.Actor.IRI()
	}

	inserted, err := d.Replies.Add(ctx, core.ReplyModel{
		OwnerActorID:   owner,
		EpisodeID:      episodeID,
		ObjectID:       note.ID,
		ObjectType:     note.Type,
		AttributedTo:   attributedTo,
		Content:        note.Content,
		Sensitive:      note.Sensitive,
		Published:      note.Published,
		ReceivedAt:     time.Now().Unix(),
		ConversationID: conversation,
	})
	if err != nil {
		return "", err
	}
	if !inserted {
		logger.Debug("Reply already stored", "object", note.ID)
		return "duplicate", nil
	}

	logger.Info("Reply stored", "actor_id", owner, "episode", episodeID, "object", note.ID)
	return "reply", nil
}

// CommandText reduces a mention note to its command: the plain text without
// @-mentions, lowercased.
func CommandText(content string) string {
	words := strings.Fields(activitypub.PlainText(content))
	kept := words[:0]
	for _, w := range words {
		if !strings.HasPrefix(w, "@") {
			kept = append(kept, w)
		}
	}
	return strings.ToLower(strings.TrimSpace(strings.Join(kept, " ")))
}

func (d *Dispatcher) command(ctx context.Context, logger *slog.Logger, activity, note *activitypub.Object, owner uint64) (string, error) {
	sender := activity.Actor.IRI()
	if sender == "" {
		sender = note.AttributedTo.IRI()
	}

	command := CommandText(note.Content)
	logger = logger.With("actor_id", owner, "command", command)

	switch command {
	case commandRescan:
		if err := d.Metadata.Rescan(ctx, owner); err != nil {
			return "", fmt.Errorf("%w: rescan: %w", ErrMetadata, err)
		}
		return "command", d.reply(ctx, owner, sender, note.ID, replyDone)

	case commandLatest:
		episodes, err := d.Metadata.GetEpisodes(ctx, owner, 1)
		if err != nil {
			return "", fmt.Errorf("%w: episodes: %w", ErrMetadata, err)
		}
		if len(episodes) == 0 {
			return "command", d.reply(ctx, owner, sender, note.ID, replyNoEpisode)
		}

		remote, err := d.Remote.Fetch(ctx, owner, sender)
		if err != nil {
			return "", err
		}

		episode := activitypub.NewEpisodeNote(d.URLs, owner, episodes[0])
		create := activitypub.NewCreate(d.URLs, owner, episodes[0].GUID, episode)
		if err := d.Deliverer.Deliver(ctx, owner, remote.Inbox, &create); err != nil {
			return "", err
		}
		logger.Info("Sent latest episode", "to", sender)
		return "command", nil

	default:
		logger.Info("Unsupported command")
		return "ignored", nil
	}
}

// reply sends a direct note to the sender's inbox.
func (d *Dispatcher) reply(ctx context.Context, owner uint64, to, inReplyTo, text string) error {
	remote, err := d.Remote.Fetch(ctx, owner, to)
	if err != nil {
		return err
	}

	statusID := uuid.NewString()
	note := activitypub.NewReply(d.URLs, owner, statusID, to, inReplyTo, text, time.Now())
	create := activitypub.NewCreate(d.URLs, owner, statusID, note)

	return d.Deliverer.Deliver(ctx, owner, remote.Inbox, &create)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
