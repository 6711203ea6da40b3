package persistence

import (
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	"github.com/eems/eems/model"
)

// Object and resource values are stored as tagged records: a "kind"
// discriminant selects the variant payload, and every non-core field is
// optional so a newer reader tolerates older records.

const (
	kindContainer = "container"
	kindItem      = "item"
)

type objectRecord struct {
	Kind     string          `json:"kind"`
	ID       int64           `json:"id"`
	ParentID int64           `json:"parent_id"`
	Title    string          `json:"dc_title"`
	Class    string          `json:"upnp_class"`
	DateDays *int64          `json:"dc_date,omitempty"`
	Artwork  []model.Artwork `json:"artwork,omitempty"`

	Children  []model.LibraryKey  `json:"children,omitempty"`
	Resources []model.ResourceRef `json:"resources,omitempty"`
}

// EncodeObject serializes a media object. Artwork is stored sorted by type so
// readers can early-out when scanning for posters.
func EncodeObject(o *model.MediaObject) ([]byte, error) {
	rec := objectRecord{
		ID:       o.ID,
		ParentID: o.ParentID,
		Title:    o.Title,
		Class:    o.Class,
		DateDays: o.DateDays,
		Artwork:  append([]model.Artwork(nil), o.Artwork...),
	}
	sort.SliceStable(rec.Artwork, func(i, j int) bool {
		return rec.Artwork[i].Type < rec.Artwork[j].Type
	})
	switch {
	case o.Container != nil && o.Item == nil:
		rec.Kind = kindContainer
		rec.Children = o.Container.Children
	case o.Item != nil && o.Container == nil:
		rec.Kind = kindItem
		rec.Resources = o.Item.Resources
	default:
		return nil, fmt.Errorf("%w: object %d has no single variant", model.ErrCorrupt, o.ID)
	}
	return json.Marshal(&rec)
}

// DecodeObject parses a stored media object record.
func DecodeObject(data []byte) (*model.MediaObject, error) {
	var rec objectRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: decoding object record: %v", model.ErrCorrupt, err)
	}
	obj := &model.MediaObject{
		ID:       rec.ID,
		ParentID: rec.ParentID,
		Title:    rec.Title,
		Class:    rec.Class,
		DateDays: rec.DateDays,
		Artwork:  rec.Artwork,
	}
	switch rec.Kind {
	case kindContainer:
		obj.Container = &model.ContainerData{Children: rec.Children}
	case kindItem:
		obj.Item = &model.ItemData{Resources: rec.Resources}
	default:
		return nil, fmt.Errorf("%w: unknown object kind %q", model.ErrCorrupt, rec.Kind)
	}
	return obj, nil
}

// EncodeResource serializes a resource record.
func EncodeResource(r *model.Resource) ([]byte, error) {
	return json.Marshal(r)
}

// DecodeResource parses a stored resource record.
func DecodeResource(data []byte) (*model.Resource, error) {
	var res model.Resource
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("%w: decoding resource record: %v", model.ErrCorrupt, err)
	}
	return &res, nil
}
