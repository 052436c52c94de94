// Package activitypub holds the ActivityStreams wire types the bridge reads
// and writes, the bridge's URL scheme and the JSON templates built from
// podcast metadata.
package activitypub

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrParse = errors.New("malformed activity")

const (
	ContentType = "application/activity+json"

	// ContentTypeLD is the other media type fediverse servers accept for
	// ActivityStreams documents.
	ContentTypeLD = `application/ld+json; profile="https://www.w3.org/ns/activitystreams"`

	ActivityStreamsContext = "https://www.w3.org/ns/activitystreams"
	SecurityContext        = "https://w3id.org/security/v1"
	Public                 = ActivityStreamsContext + "#Public"
)

type Kind string

const (
	KindFollow  Kind = "Follow"
	KindUndo    Kind = "Undo"
	KindCreate  Kind = "Create"
	KindDelete  Kind = "Delete"
	KindAccept  Kind = "Accept"
	KindNote    Kind = "Note"
	KindPerson  Kind = "Person"
	KindUnknown Kind = ""
)

var knownKinds = []Kind{KindFollow, KindUndo, KindCreate, KindDelete, KindAccept, KindNote, KindPerson}

// Object is any ActivityStreams object or activity. Only the properties the
// bridge reads or emits are modelled; everything else is ignored on decode.
type Object struct {
	Context any    `json:"@context,omitempty"`
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`

	Actor        *Ref `json:"actor,omitempty"`
	Object       *Ref `json:"object,omitempty"`
	AttributedTo *Ref `json:"attributedTo,omitempty"`
	InReplyTo    *Ref `json:"inReplyTo,omitempty"`

	Summary      string `json:"summary,omitempty"`
	Content      string `json:"content,omitempty"`
	Published    string `json:"published,omitempty"`
	Conversation string `json:"conversation,omitempty"`
	Sensitive    bool   `json:"sensitive,omitempty"`

	// URL is a string, a Link or an array of either depending on the server.
	URL any `json:"url,omitempty"`

	To  StringList `json:"to,omitempty"`
	Cc  StringList `json:"cc,omitempty"`
	Tag TagList    `json:"tag,omitempty"`

	Attachment any `json:"attachment,omitempty"`
}

// Kind classifies the object by its type, case-insensitively.
func (o *Object) Kind() Kind {
	for _, k := range knownKinds {
		if strings.EqualFold(o.Type, string(k)) {
			return k
		}
	}
	return KindUnknown
}

// Inner returns the embedded object of an activity, or nil when the object
// is absent or only referenced by id.
func (o *Object) Inner() *Object {
	return o.Object.Embedded()
}

// InnerKind is the kind of the embedded object, KindUnknown when it is only
// referenced by id.
func (o *Object) InnerKind() Kind {
	if inner := o.Inner(); inner != nil {
		return inner.Kind()
	}
	return KindUnknown
}

// Parse decodes an inbound activity. Any JSON object with a type is accepted.
func Parse(body []byte) (*Object, error) {
	var obj Object
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if obj.Type == "" {
		return nil, fmt.Errorf("%w: no type", ErrParse)
	}
	return &obj, nil
}

// Ref is a property value that is either a bare IRI or an embedded object.
type Ref struct {
	ID     string
	Object *Object
}

func IRI(id string) *Ref {
	return &Ref{ID: id}
}

func Embed(obj *Object) *Ref {
	return &Ref{ID: obj.ID, Object: obj}
}

// IRI returns the referenced id, or the embedded object's id.
func (r *Ref) IRI() string {
	if r == nil {
		return ""
	}
	if r.ID != "" {
		return r.ID
	}
	if r.Object != nil {
		return r.Object.ID
	}
	return ""
}

func (r *Ref) Embedded() *Object {
	if r == nil {
		return nil
	}
	return r.Object
}

func (r Ref) MarshalJSON() ([]byte, error) {
	if r.Object != nil {
		return json.Marshal(r.Object)
	}
	return json.Marshal(r.ID)
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}

	switch data[0] {
	case '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
	case '{':
		var obj Object
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*r = Ref{ID: obj.ID, Object: &obj}
	case '[':
		// Single-valued properties occasionally arrive as one-element arrays.
		var items []Ref
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*r = Ref{}
		if len(items) > 0 {
			*r = items[0]
		}
	default:
		return fmt.Errorf("%w: unexpected reference %s", ErrParse, data)
	}
	return nil
}

// StringList decodes from either a single string or an array of strings.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	}

	var refs []Ref
	if err := json.Unmarshal(data, &refs); err != nil {
		return err
	}
	out := make(StringList, 0, len(refs))
	for _, ref := range refs {
		if id := ref.IRI(); id != "" {
			out = append(out, id)
		}
	}
	*l = out
	return nil
}

type Tag struct {
	Type string `json:"type"`
	Href string `json:"href,omitempty"`
	Name string `json:"name,omitempty"`
}

// TagList decodes from either a single tag object or an array of them.
type TagList []Tag

func (l *TagList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*l = nil
	case data[0] == '{':
		var tag Tag
		if err := json.Unmarshal(data, &tag); err != nil {
			return err
		}
		*l = TagList{tag}
	default:
		var tags []Tag
		if err := json.Unmarshal(data, &tags); err != nil {
			return err
		}
		*l = tags
	}
	return nil
}
