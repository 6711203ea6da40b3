package model

// KeyTag discriminates the two id namespaces of the library.
type KeyTag byte

const (
	TagObject   KeyTag = 0x01
	TagResource KeyTag = 0x02
)

func (t KeyTag) String() string {
	switch t {
	case TagObject:
		return "object"
	case TagResource:
		return "resource"
	}
	return "unknown"
}

// Reserved object ids.
const (
	RootObjectID int64 = 0
	NoParentID   int64 = -1
)

// UPnP classes used by the library.
const (
	ClassContainer = "object.container"
	ClassMovie     = "object.item.videoItem.movie"
)

// LibraryKey is a typed library key: all keys of one tag form a contiguous
// range in the store, ordered ascending by id within the tag.
type LibraryKey struct {
	Tag KeyTag `json:"tag"`
	ID  int64  `json:"id"`
}

func ObjectKey(id int64) LibraryKey   { return LibraryKey{Tag: TagObject, ID: id} }
func ResourceKey(id int64) LibraryKey { return LibraryKey{Tag: TagResource, ID: id} }

// ArtworkType classifies artwork attached to an object. Values are ordered so
// that artwork slices sorted by type can be scanned with early-out.
type ArtworkType int8

const (
	ArtworkPoster ArtworkType = iota
	ArtworkThumbnail
)

func (t ArtworkType) String() string {
	if t == ArtworkPoster {
		return "poster"
	}
	return "thumb"
}

// Artwork references a Resource holding an image for an object.
type Artwork struct {
	Ref  LibraryKey  `json:"ref"`
	Type ArtworkType `json:"type"`
}

// ResourceRef attaches a Resource to an item together with the UPnP
// protocolInfo 4-tuple under which it is served.
type ResourceRef struct {
	Ref          LibraryKey `json:"ref"`
	ProtocolInfo string     `json:"protocol_info"`
}

// Resource is a playable or downloadable byte stream on the local filesystem.
type Resource struct {
	ID       int64  `json:"id"`
	Location string `json:"location"`
	MimeType string `json:"mime_type"`
}

// ContainerData is the container variant payload of a MediaObject. Children
// holds the authoritative, insertion-ordered list of child keys.
type ContainerData struct {
	Children []LibraryKey `json:"children"`
}

// ItemData is the item variant payload of a MediaObject.
type ItemData struct {
	Resources []ResourceRef `json:"resources"`
}

// MediaObject is a browseable library object. Exactly one of Container or
// Item is non-nil; the store rejects records violating this.
type MediaObject struct {
	ID       int64
	ParentID int64
	Title    string
	Class    string
	// DateDays is dc:date as days since 1970-01-01, nil when unset.
	DateDays *int64
	// Artwork is kept sorted by ArtworkType.
	Artwork []Artwork

	Container *ContainerData
	Item      *ItemData
}

func (o *MediaObject) IsContainer() bool { return o.Container != nil }

// Key returns the object's library key.
func (o *MediaObject) Key() LibraryKey { return ObjectKey(o.ID) }

// NewContainer builds an empty container object.
func NewContainer(id, parentID int64, title string) *MediaObject {
	return &MediaObject{
		ID:        id,
		ParentID:  parentID,
		Title:     title,
		Class:     ClassContainer,
		Container: &ContainerData{},
	}
}
