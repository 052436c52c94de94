package activitypub

type PublicKey struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	PublicKeyPem string `json:"publicKeyPem"`
}

type Endpoints struct {
	SharedInbox string `json:"sharedInbox,omitempty"`
}

type Image struct {
	Type      string `json:"type"`
	MediaType string `json:"mediaType,omitempty"`
	URL       string `json:"url"`
}

type PropertyValue struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Actor is the document served for a podcast actor.
type Actor struct {
	Context []string `json:"@context"`
	ID      string   `json:"id"`
	Type    string   `json:"type"`

	PreferredUsername string `json:"preferredUsername"`
	Name              string `json:"name"`
	Summary           string `json:"summary"`
	URL               string `json:"url"`
	Published         string `json:"published"`

	Inbox     string `json:"inbox"`
	Outbox    string `json:"outbox"`
	Featured  string `json:"featured"`
	Followers string `json:"followers"`
	Following string `json:"following"`

	Discoverable              bool `json:"discoverable"`
	Indexable                 bool `json:"indexable"`
	Memorial                  bool `json:"memorial"`
	ManuallyApprovesFollowers bool `json:"manuallyApprovesFollowers"`

	Icon       *Image          `json:"icon,omitempty"`
	Tag        []Tag           `json:"tag"`
	Attachment []PropertyValue `json:"attachment,omitempty"`
	PublicKey  PublicKey       `json:"publicKey"`
	Endpoints  Endpoints       `json:"endpoints"`
}

// RemoteActor is the subset of a remote actor document the bridge needs to
// deliver to it and to verify its signatures.
type RemoteActor struct {
	ID                string     `json:"id"`
	Type              string     `json:"type"`
	PreferredUsername string     `json:"preferredUsername"`
	Inbox             string     `json:"inbox"`
	Endpoints         *Endpoints `json:"endpoints,omitempty"`
	PublicKey         *PublicKey `json:"publicKey,omitempty"`
}

// SharedInbox falls back to the personal inbox when the server does not
// advertise a shared one.
func (a *RemoteActor) SharedInbox() string {
	if a.Endpoints != nil && a.Endpoints.SharedInbox != "" {
		return a.Endpoints.SharedInbox
	}
	return a.Inbox
}

type Link struct {
	Rel      string `json:"rel"`
	Type     string `json:"type,omitempty"`
	Href     string `json:"href,omitempty"`
	Template string `json:"template,omitempty"`
}

type Webfinger struct {
	Subject string   `json:"subject"`
	Aliases []string `json:"aliases"`
	Links   []Link   `json:"links"`
}

type OrderedCollection struct {
	Context      any      `json:"@context,omitempty"`
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	TotalItems   int64    `json:"totalItems"`
	First        string   `json:"first,omitempty"`
	Last         string   `json:"last,omitempty"`
	OrderedItems []Object `json:"orderedItems,omitempty"`
}

type OrderedCollectionPage struct {
	Context      any      `json:"@context,omitempty"`
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	TotalItems   int64    `json:"totalItems"`
	PartOf       string   `json:"partOf"`
	Next         string   `json:"next,omitempty"`
	Prev         string   `json:"prev,omitempty"`
	OrderedItems []Object `json:"orderedItems"`
}
