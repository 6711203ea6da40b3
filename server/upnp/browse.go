package upnp

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/eems/eems/model"
)

// browseRequest is the ContentDirectory Browse action input. Filter and
// SortCriteria are accepted but not applied.
type browseRequest struct {
	XMLName        xml.Name `xml:"Browse"`
	ObjectID       string   `xml:"ObjectID"`
	BrowseFlag     string   `xml:"BrowseFlag"`
	Filter         string   `xml:"Filter"`
	StartingIndex  int      `xml:"StartingIndex"`
	RequestedCount int      `xml:"RequestedCount"`
	SortCriteria   string   `xml:"SortCriteria"`
}

type browseResponse struct {
	XMLName        xml.Name `xml:"urn:schemas-upnp-org:service:ContentDirectory:1 BrowseResponse"`
	Result         string   `xml:"Result"`
	NumberReturned int      `xml:"NumberReturned"`
	TotalMatches   int      `xml:"TotalMatches"`
	UpdateID       uint32   `xml:"UpdateID"`
}

// DIDL-Lite document structure. The document is marshaled separately and
// embedded as escaped text in the Result element.

type didlLite struct {
	XMLName   xml.Name        `xml:"DIDL-Lite"`
	Xmlns     string          `xml:"xmlns,attr"`
	XmlnsDC   string          `xml:"xmlns:dc,attr"`
	XmlnsUPnP string          `xml:"xmlns:upnp,attr"`
	XmlnsXbmc string          `xml:"xmlns:xbmc,attr"`
	Container []didlContainer `xml:"container,omitempty"`
	Item      []didlItem      `xml:"item,omitempty"`
}

type didlContainer struct {
	ID          string        `xml:"id,attr"`
	ParentID    string        `xml:"parentID,attr"`
	Restricted  string        `xml:"restricted,attr"`
	Title       string        `xml:"dc:title"`
	Class       string        `xml:"upnp:class"`
	AlbumArtURI []string      `xml:"upnp:albumArtURI,omitempty"`
	Artwork     []didlArtwork `xml:"xbmc:artwork,omitempty"`
}

type didlItem struct {
	ID          string        `xml:"id,attr"`
	ParentID    string        `xml:"parentID,attr"`
	Restricted  string        `xml:"restricted,attr"`
	Title       string        `xml:"dc:title"`
	Class       string        `xml:"upnp:class"`
	Date        string        `xml:"dc:date,omitempty"`
	AlbumArtURI []string      `xml:"upnp:albumArtURI,omitempty"`
	Artwork     []didlArtwork `xml:"xbmc:artwork,omitempty"`
	Res         []didlRes     `xml:"res"`
}

type didlRes struct {
	ProtocolInfo string `xml:"protocolInfo,attr"`
	URL          string `xml:",chardata"`
}

type didlArtwork struct {
	Type string `xml:"type,attr"`
	URL  string `xml:",chardata"`
}

func newDIDL() didlLite {
	return didlLite{
		Xmlns:     "urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/",
		XmlnsDC:   "http://purl.org/dc/elements/1.1/",
		XmlnsUPnP: "urn:schemas-upnp-org:metadata-1-0/upnp/",
		XmlnsXbmc: "urn:schemas-kodi-org:metadata-1-0/",
	}
}

// handleBrowse resolves a Browse call against the store.
func (s *Service) handleBrowse(payload []byte) (*browseResponse, error) {
	var req browseRequest
	if err := xml.Unmarshal(payload, &req); err != nil {
		return nil, &upnpError{upnpErrorInvalidArgs, "invalid Browse arguments"}
	}

	objectID, err := strconv.ParseInt(req.ObjectID, 10, 64)
	if err != nil {
		return nil, &upnpError{upnpErrorNoSuchObject, "invalid object id"}
	}
	if req.StartingIndex < 0 || req.RequestedCount < 0 {
		return nil, &upnpError{upnpErrorArgumentRange, "negative index or count"}
	}

	var objects []*model.MediaObject
	var total int
	switch req.BrowseFlag {
	case "BrowseMetadata":
		obj, err := s.ds.Get(objectID)
		if err != nil {
			return nil, err
		}
		objects = []*model.MediaObject{obj}
		total = 1
	case "BrowseDirectChildren":
		children, err := s.ds.ListChildren(objectID)
		if err != nil {
			return nil, err
		}
		total = len(children)
		objects = sliceWindow(children, req.StartingIndex, req.RequestedCount)
	default:
		return nil, &upnpError{upnpErrorArgumentInvalid, "invalid BrowseFlag"}
	}

	didl := newDIDL()
	for _, obj := range objects {
		if err := s.appendObject(&didl, obj); err != nil {
			return nil, err
		}
	}

	didlXML, err := xml.Marshal(didl)
	if err != nil {
		return nil, fmt.Errorf("marshaling DIDL-Lite: %w", err)
	}
	return &browseResponse{
		Result:         string(didlXML),
		NumberReturned: len(objects),
		TotalMatches:   total,
		UpdateID:       0,
	}, nil
}

// sliceWindow applies StartingIndex/RequestedCount; count 0 means all.
func sliceWindow(objects []*model.MediaObject, start, count int) []*model.MediaObject {
	if start >= len(objects) {
		return nil
	}
	objects = objects[start:]
	if count > 0 && count < len(objects) {
		objects = objects[:count]
	}
	return objects
}

func (s *Service) appendObject(didl *didlLite, obj *model.MediaObject) error {
	artwork, artURIs := s.artworkEntries(obj)

	if obj.IsContainer() {
		didl.Container = append(didl.Container, didlContainer{
			ID:          strconv.FormatInt(obj.ID, 10),
			ParentID:    strconv.FormatInt(obj.ParentID, 10),
			Restricted:  "1",
			Title:       obj.Title,
			Class:       obj.Class,
			AlbumArtURI: artURIs,
			Artwork:     artwork,
		})
		return nil
	}

	item := didlItem{
		ID:          strconv.FormatInt(obj.ID, 10),
		ParentID:    strconv.FormatInt(obj.ParentID, 10),
		Restricted:  "1",
		Title:       obj.Title,
		Class:       obj.Class,
		AlbumArtURI: artURIs,
		Artwork:     artwork,
	}
	if obj.DateDays != nil {
		item.Date = time.Unix(*obj.DateDays*86400, 0).UTC().Format("2006-01-02")
	}
	for _, ref := range obj.Item.Resources {
		item.Res = append(item.Res, didlRes{
			ProtocolInfo: ref.ProtocolInfo,
			URL:          s.contentURL(ref.Ref.ID),
		})
	}
	didl.Item = append(didl.Item, item)
	return nil
}

// artworkEntries renders an object's artwork both as upnp:albumArtURI (the
// portable form) and as typed xbmc:artwork elements.
func (s *Service) artworkEntries(obj *model.MediaObject) ([]didlArtwork, []string) {
	var artwork []didlArtwork
	var uris []string
	for _, art := range obj.Artwork {
		url := s.contentURL(art.Ref.ID)
		artwork = append(artwork, didlArtwork{Type: art.Type.String(), URL: url})
		uris = append(uris, url)
	}
	return artwork, uris
}

func (s *Service) contentURL(resourceID int64) string {
	return fmt.Sprintf("%s/content/%d", s.baseURL, resourceID)
}
