// Package scanner walks configured filesystem roots and populates the content
// library: video files become movie items with attached artwork and subtitle
// resources, folders optionally become collection containers, and everything
// is committed through atomic store batches.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eems/eems/conf"
	"github.com/eems/eems/log"
	"github.com/eems/eems/model"
	"github.com/eems/eems/persistence"
)

const moviesFolderName = "Movies"

// Classification is by extension only; anything unknown is ignored.
var mimeTypes = map[string]string{
	".mkv": "video/x-matroska",
	".mp4": "video/mp4",
	".avi": "video/x-msvideo",
	".mpg": "video/mpeg",

	".jpg": "image/jpeg",

	".srt": "text/srt",
}

func mimeTypeFor(name string) string {
	return mimeTypes[strings.ToLower(filepath.Ext(name))]
}

// Scanner assigns ids locally after priming both counters from the store
// once, so every id handed out is strictly greater than anything persisted.
type Scanner struct {
	store *persistence.Store

	nextObjectID   int64
	nextResourceID int64

	moviesFolderID    int64
	moviesFolderFound bool
}

// New primes a scanner against the store.
func New(store *persistence.Store) (*Scanner, error) {
	objectID, err := store.NextID(model.TagObject)
	if err != nil {
		return nil, err
	}
	resourceID, err := store.NextID(model.TagResource)
	if err != nil {
		return nil, err
	}
	return &Scanner{
		store:          store,
		nextObjectID:   objectID,
		nextResourceID: resourceID,
	}, nil
}

func (s *Scanner) nextObjectKey() int64 {
	id := s.nextObjectID
	s.nextObjectID++
	return id
}

func (s *Scanner) nextResourceKey() int64 {
	id := s.nextResourceID
	s.nextResourceID++
	return id
}

type pendingDir struct {
	path   string
	parent int64
}

// ScanAll walks one scan root. The root directory itself is never turned into
// a collection; descendants honor the configured option.
func (s *Scanner) ScanAll(root string, dir conf.ContentDirectory) error {
	moviesID, err := s.moviesFolder()
	if err != nil {
		return err
	}

	stack := []pendingDir{{path: root, parent: moviesID}}
	collections := false
	for len(stack) > 0 {
		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		subdirs, err := s.scanDirectory(next.path, dir, collections, next.parent)
		if err != nil {
			return err
		}
		stack = append(stack, subdirs...)
		collections = dir.Collections()
	}
	return nil
}

// moviesFolder returns the id of the top-level Movies container, creating it
// under the root when absent and reusing an existing one by title.
func (s *Scanner) moviesFolder() (int64, error) {
	if s.moviesFolderFound {
		return s.moviesFolderID, nil
	}

	children, err := s.store.ListChildren(model.RootObjectID)
	if err != nil {
		return 0, fmt.Errorf("listing root container: %w", err)
	}
	for _, child := range children {
		if child.IsContainer() && child.Title == moviesFolderName {
			s.moviesFolderID = child.ID
			s.moviesFolderFound = true
			return s.moviesFolderID, nil
		}
	}

	id := s.nextObjectKey()
	container := model.NewContainer(id, model.RootObjectID, moviesFolderName)
	if err := s.store.PutBatch(model.RootObjectID, []*model.MediaObject{container}, nil); err != nil {
		return 0, fmt.Errorf("creating %s container: %w", moviesFolderName, err)
	}
	s.moviesFolderID = id
	s.moviesFolderFound = true
	return id, nil
}

type namedFile struct {
	name string // bare file name
	path string // absolute path
	mime string
}

// scanDirectory processes one directory and returns the subdirectories to
// visit with their assigned parents.
func (s *Scanner) scanDirectory(dir string, cfg conf.ContentDirectory, collections bool, parent int64) ([]pendingDir, error) {
	log.Info("Scanning for movies", "path", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %q: %w", dir, err)
	}

	var videos, images, texts []namedFile
	var subdirs []pendingDir
	for _, entry := range entries {
		if entry.IsDir() {
			subdirs = append(subdirs, pendingDir{path: filepath.Join(dir, entry.Name()), parent: parent})
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		mime := mimeTypeFor(entry.Name())
		if mime == "" {
			log.Debug("Skipping unknown file", "name", entry.Name())
			continue
		}
		file := namedFile{name: entry.Name(), path: filepath.Join(dir, entry.Name()), mime: mime}
		switch {
		case strings.HasPrefix(mime, "video/"):
			videos = append(videos, file)
		case strings.HasPrefix(mime, "image/"):
			images = append(images, file)
		case strings.HasPrefix(mime, "text/"):
			texts = append(texts, file)
		}
	}

	comp := composer{
		scanner:   s,
		parent:    parent,
		images:    images,
		subtitles: texts,
	}

	if collections {
		folderArt, artType := comp.folderArtwork()
		addCollection := len(videos) > 1 ||
			(folderArt != nil && len(subdirs) > 0)
		if addCollection {
			collectionID, err := s.createContainer(stem(filepath.Base(dir)), folderArt, artType, parent)
			if err != nil {
				return nil, err
			}
			comp.parent = collectionID
			for i := range subdirs {
				log.Debug("Assigned collection parent", "collection", collectionID, "path", subdirs[i].path)
				subdirs[i].parent = collectionID
			}
		}
	}

	if cfg.FolderNames() && len(videos) == 1 {
		comp.folderName = stem(filepath.Base(dir))
	}

	if len(videos) > 0 {
		items := make([]*model.MediaObject, 0, len(videos))
		for _, video := range videos {
			items = append(items, comp.compose(video))
		}
		if err := s.store.PutBatch(comp.parent, items, comp.resources); err != nil {
			return nil, err
		}
	}

	return subdirs, nil
}

// createContainer materializes a collection container, committing it together
// with its folder artwork resource when present.
func (s *Scanner) createContainer(title string, art *namedFile, artType model.ArtworkType, parent int64) (int64, error) {
	id := s.nextObjectKey()
	container := model.NewContainer(id, parent, title)

	var resources []*model.Resource
	if art != nil {
		res := &model.Resource{ID: s.nextResourceKey(), Location: art.path, MimeType: art.mime}
		resources = append(resources, res)
		container.Artwork = []model.Artwork{{Ref: model.ResourceKey(res.ID), Type: artType}}
	}

	if err := s.store.PutBatch(parent, []*model.MediaObject{container}, resources); err != nil {
		return 0, err
	}
	return id, nil
}

// composer accumulates the resources of one directory batch and builds its
// items.
type composer struct {
	scanner    *Scanner
	parent     int64
	folderName string

	images    []namedFile
	subtitles []namedFile

	resources []*model.Resource

	folderArtStored bool
	folderArtID     int64
	folderArtType   model.ArtworkType
}

// folderArtwork picks the directory-level artwork candidate, in priority
// order: poster.jpg, then folder.jpg.
func (c *composer) folderArtwork() (*namedFile, model.ArtworkType) {
	for _, candidate := range []struct {
		name string
		typ  model.ArtworkType
	}{
		{"poster.jpg", model.ArtworkPoster},
		{"folder.jpg", model.ArtworkThumbnail},
	} {
		for i := range c.images {
			if c.images[i].name == candidate.name {
				return &c.images[i], candidate.typ
			}
		}
	}
	return nil, model.ArtworkThumbnail
}

func (c *composer) storeResource(file namedFile) model.LibraryKey {
	res := &model.Resource{ID: c.scanner.nextResourceKey(), Location: file.path, MimeType: file.mime}
	c.resources = append(c.resources, res)
	log.Debug("Assigning resource key", "id", res.ID, "path", file.path)
	return model.ResourceKey(res.ID)
}

func classifyArtwork(nameSuffix string) (model.ArtworkType, bool) {
	switch {
	case strings.Contains(nameSuffix, "poster"):
		return model.ArtworkPoster, true
	case strings.Contains(nameSuffix, "thumb"):
		return model.ArtworkThumbnail, true
	}
	return 0, false
}

// compose builds the movie item for one video file.
func (c *composer) compose(video namedFile) *model.MediaObject {
	item := &model.MediaObject{
		ID:       c.scanner.nextObjectKey(),
		ParentID: c.parent,
		Class:    model.ClassMovie,
		Item:     &model.ItemData{},
	}

	// Main resource first, then subtitles.
	item.Item.Resources = append(item.Item.Resources, model.ResourceRef{
		Ref:          c.storeResource(video),
		ProtocolInfo: protocolInfo(video.mime),
	})

	// In a single-video folder titled after the folder, every sidecar file in
	// the directory belongs to the movie; otherwise only stem-prefixed ones.
	prefix := stem(video.name)
	if c.folderName != "" {
		prefix = ""
	}

	for _, img := range c.images {
		if !strings.HasPrefix(img.name, prefix) {
			continue
		}
		if artType, ok := classifyArtwork(img.name[len(prefix):]); ok {
			log.Debug("Detected item artwork", "type", artType, "name", img.name)
			item.Artwork = append(item.Artwork, model.Artwork{Ref: c.storeResource(img), Type: artType})
		}
	}
	if len(item.Artwork) == 0 {
		if key, artType, ok := c.ensureFolderArtwork(); ok {
			log.Debug("No item artwork, adding folder artwork", "video", video.name)
			item.Artwork = append(item.Artwork, model.Artwork{Ref: key, Type: artType})
		}
	}

	for _, sub := range c.subtitles {
		if !strings.HasPrefix(sub.name, prefix) {
			continue
		}
		item.Item.Resources = append(item.Item.Resources, model.ResourceRef{
			Ref:          c.storeResource(sub),
			ProtocolInfo: protocolInfo(sub.mime),
		})
	}

	source := stem(video.name)
	if c.folderName != "" {
		source = c.folderName
	}
	title, year := normalizeTitle(source)
	item.Title = title
	if year != 0 {
		days := epochDays(year)
		item.DateDays = &days
	}

	return item
}

// ensureFolderArtwork stores the folder artwork resource once and reuses its
// key for every item that falls back to it.
func (c *composer) ensureFolderArtwork() (model.LibraryKey, model.ArtworkType, bool) {
	if c.folderArtStored {
		return model.ResourceKey(c.folderArtID), c.folderArtType, true
	}
	art, artType := c.folderArtwork()
	if art == nil {
		return model.LibraryKey{}, 0, false
	}
	key := c.storeResource(*art)
	c.folderArtStored = true
	c.folderArtID = key.ID
	c.folderArtType = artType
	return key, artType, true
}

func protocolInfo(mime string) string {
	return fmt.Sprintf("http-get:*:%s:*", mime)
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
