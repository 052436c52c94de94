package activitypub

import (
	"fmt"
	"html"
	"strconv"
	"time"

	"podfed/pkg/podcastindex"
)

const (
	PinnedText = "This account is a podcast.  Follow to see new episodes."

	// OutboxPageSize is the number of episodes on an outbox page.
	OutboxPageSize = 20

	nameLength      = 48
	summaryLength   = 96
	noteFieldLength = 128
)

// accountEpoch is the fixed publication date of actors and pinned notes.
var accountEpoch = time.Date(2023, time.November, 9, 15, 56, 28, 495803000, time.UTC)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ProfileURL is the podcast's public page on podcastindex.org.
func ProfileURL(podcastID uint64) string {
	return "https://podcastindex.org/podcast/" + strconv.FormatUint(podcastID, 10)
}

func link(href string) string {
	escaped := html.EscapeString(href)
	return fmt.Sprintf("<a href='%s' rel='ugc'>%s</a>", escaped, escaped)
}

func NewActor(u *URLs, feed *podcastindex.Feed, publicKeyPEM string) Actor {
	actorURL := u.Actor(feed.ID)

	actor := Actor{
		Context:           []string{ActivityStreamsContext, SecurityContext},
		ID:                actorURL,
		Type:              string(KindPerson),
		PreferredUsername: strconv.FormatUint(feed.ID, 10),
		Name:              Truncate(feed.Title, nameLength),
		Summary:           Truncate(PlainText(feed.Description), summaryLength),
		URL:               ProfileURL(feed.ID),
		Published:         formatTime(accountEpoch),

		Inbox:     u.Inbox(feed.ID),
		Outbox:    u.Outbox(feed.ID),
		Featured:  u.Featured(feed.ID),
		Followers: u.Followers(feed.ID),
		Following: u.Following(feed.ID),

		Discoverable: true,
		Indexable:    true,

		Tag: []Tag{},
		Attachment: []PropertyValue{
			{Type: "PropertyValue", Name: "Index", Value: link(ProfileURL(feed.ID))},
			{Type: "PropertyValue", Name: "Website", Value: link(feed.Link)},
			{Type: "PropertyValue", Name: "Podcast Guid", Value: feed.PodcastGUID},
		},
		PublicKey: PublicKey{
			ID:           u.KeyID(feed.ID),
			Owner:        actorURL,
			PublicKeyPem: publicKeyPEM,
		},
		Endpoints: Endpoints{
			SharedInbox: u.SharedInbox(),
		},
	}

	if image := feed.Image; image != "" {
		actor.Icon = &Image{Type: "Image", URL: image}
	} else if feed.Artwork != "" {
		actor.Icon = &Image{Type: "Image", URL: feed.Artwork}
	}

	return actor
}

func NewWebfinger(u *URLs, feed *podcastindex.Feed) Webfinger {
	wf := Webfinger{
		Subject: u.Acct(feed.ID),
		Aliases: []string{ProfileURL(feed.ID), u.Actor(feed.ID)},
		Links: []Link{
			{Rel: "http://webfinger.net/rel/profile-page", Type: "text/html", Href: ProfileURL(feed.ID)},
			{Rel: "self", Type: ContentType, Href: u.Actor(feed.ID)},
		},
	}
	if feed.Image != "" {
		wf.Links = append(wf.Links, Link{Rel: "http://webfinger.net/rel/avatar", Type: "image/png", Href: feed.Image})
	}
	return wf
}

// noteContent renders the three paragraphs of an announcement.
func noteContent(title, description, listenURL string) string {
	content := Paragraph(Truncate(PlainText(title), noteFieldLength)) +
		Paragraph(Truncate(PlainText(description), noteFieldLength))
	if listenURL != "" {
		content += "<p>Listen: " + link(listenURL) + "</p>"
	}
	return content
}

func newNote(u *URLs, podcastID uint64, statusID string, published time.Time, content string) Object {
	return Object{
		Context:      ActivityStreamsContext,
		ID:           u.Note(podcastID, statusID),
		Type:         string(KindNote),
		AttributedTo: IRI(u.Actor(podcastID)),
		Published:    formatTime(published),
		URL:          u.Note(podcastID, statusID),
		To:           StringList{Public},
		Cc:           StringList{u.Followers(podcastID)},
		Conversation: u.Conversation(statusID, published),
		Content:      content,
	}
}

// NewEpisodeNote announces an episode. Its status id is the episode guid.
func NewEpisodeNote(u *URLs, podcastID uint64, item podcastindex.Item) Object {
	return newNote(u, podcastID, item.GUID, item.Published(),
		noteContent(item.Title, item.Description, item.EnclosureURL))
}

// NewLiveNote announces a live item going live.
func NewLiveNote(u *URLs, podcastID uint64, item podcastindex.LiveItem, now time.Time) Object {
	published := now
	if item.StartTime > 0 {
		published = time.Unix(item.StartTime, 0)
	}
	content := "<p>\U0001F534 LIVE NOW</p>" + noteContent(item.Title, item.Description, item.ListenURL())
	return newNote(u, podcastID, item.GUID, published, content)
}

func NewPinnedNote(u *URLs, podcastID uint64) Object {
	return Object{
		Context:      ActivityStreamsContext,
		ID:           u.Pinned(podcastID),
		Type:         string(KindNote),
		Actor:        IRI(u.Actor(podcastID)),
		AttributedTo: IRI(u.Actor(podcastID)),
		Published:    formatTime(accountEpoch),
		To:           StringList{Public},
		Cc:           StringList{u.Followers(podcastID)},
		Conversation: u.Context(podcastID, PinnedStatusID),
		Content:      PinnedText,
	}
}

// NewReply is a direct note from the actor to a single remote account.
func NewReply(u *URLs, podcastID uint64, statusID string, to string, inReplyTo string, text string, now time.Time) Object {
	note := Object{
		Context:      ActivityStreamsContext,
		ID:           u.Note(podcastID, statusID),
		Type:         string(KindNote),
		AttributedTo: IRI(u.Actor(podcastID)),
		Published:    formatTime(now),
		To:           StringList{to},
		Content:      Paragraph(text),
		Tag:          TagList{{Type: "Mention", Href: to}},
	}
	if inReplyTo != "" {
		note.InReplyTo = IRI(inReplyTo)
	}
	return note
}

// NewCreate wraps a note authored by the actor in a Create activity.
func NewCreate(u *URLs, podcastID uint64, statusID string, note Object) Object {
	inner := note
	inner.Context = nil

	return Object{
		Context:   ActivityStreamsContext,
		ID:        u.Activity(podcastID, statusID),
		Type:      string(KindCreate),
		Actor:     IRI(u.Actor(podcastID)),
		Published: note.Published,
		To:        note.To,
		Cc:        note.Cc,
		Object:    Embed(&inner),
	}
}

// NewAccept answers a Follow. The accepting actor is the Follow's object.
func NewAccept(u *URLs, podcastID uint64, follow *Object) Object {
	inner := *follow
	inner.Context = nil

	actor := follow.Object.IRI()
	if actor == "" {
		actor = u.Actor(podcastID)
	}

	return Object{
		Context: ActivityStreamsContext,
		ID:      u.Accept(podcastID),
		Type:    string(KindAccept),
		Actor:   IRI(actor),
		Object:  Embed(&inner),
	}
}

func NewOutbox(u *URLs, podcastID uint64, total int64) OrderedCollection {
	return OrderedCollection{
		Context:    ActivityStreamsContext,
		ID:         u.Outbox(podcastID),
		Type:       "OrderedCollection",
		TotalItems: total,
		First:      u.OutboxFirst(podcastID),
		Last:       u.OutboxLast(podcastID),
	}
}

func NewOutboxPage(u *URLs, podcastID uint64, total int64, items []podcastindex.Item) OrderedCollectionPage {
	activities := make([]Object, 0, len(items))
	for _, item := range items {
		note := NewEpisodeNote(u, podcastID, item)
		activities = append(activities, NewCreate(u, podcastID, item.GUID, note))
	}

	return OrderedCollectionPage{
		Context:      ActivityStreamsContext,
		ID:           u.OutboxFirst(podcastID),
		Type:         "OrderedCollectionPage",
		TotalItems:   total,
		PartOf:       u.Outbox(podcastID),
		Prev:         u.OutboxLast(podcastID),
		OrderedItems: activities,
	}
}

func NewFollowers(u *URLs, podcastID uint64, count int64) OrderedCollection {
	return OrderedCollection{
		Context:    ActivityStreamsContext,
		ID:         u.Followers(podcastID),
		Type:       "OrderedCollection",
		TotalItems: count,
	}
}

func NewFeatured(u *URLs, podcastID uint64) OrderedCollection {
	pinned := NewPinnedNote(u, podcastID)
	pinned.Context = nil

	return OrderedCollection{
		Context:      ActivityStreamsContext,
		ID:           u.Featured(podcastID),
		Type:         "OrderedCollection",
		TotalItems:   1,
		OrderedItems: []Object{pinned},
	}
}
