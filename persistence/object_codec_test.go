package persistence

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/eems/eems/model"
)

var _ = Describe("Object codec", func() {
	It("round-trips a container with children", func() {
		in := model.NewContainer(3, 0, "Movies")
		in.Container.Children = []model.LibraryKey{model.ObjectKey(4), model.ObjectKey(9)}

		data, err := EncodeObject(in)
		Expect(err).ToNot(HaveOccurred())
		out, err := DecodeObject(data)
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal(in))
	})

	It("round-trips an item with resources, artwork and date", func() {
		days := int64(11323)
		in := &model.MediaObject{
			ID:       7,
			ParentID: 3,
			Title:    "My Movie",
			Class:    model.ClassMovie,
			DateDays: &days,
			Artwork: []model.Artwork{
				{Ref: model.ResourceKey(2), Type: model.ArtworkPoster},
			},
			Item: &model.ItemData{
				Resources: []model.ResourceRef{
					{Ref: model.ResourceKey(1), ProtocolInfo: "http-get:*:video/x-matroska:*"},
				},
			},
		}

		data, err := EncodeObject(in)
		Expect(err).ToNot(HaveOccurred())
		out, err := DecodeObject(data)
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal(in))
	})

	It("stores artwork sorted by type", func() {
		in := model.NewContainer(1, 0, "c")
		in.Artwork = []model.Artwork{
			{Ref: model.ResourceKey(5), Type: model.ArtworkThumbnail},
			{Ref: model.ResourceKey(6), Type: model.ArtworkPoster},
		}

		data, err := EncodeObject(in)
		Expect(err).ToNot(HaveOccurred())
		out, err := DecodeObject(data)
		Expect(err).ToNot(HaveOccurred())
		Expect(out.Artwork[0].Type).To(Equal(model.ArtworkPoster))
		Expect(out.Artwork[1].Type).To(Equal(model.ArtworkThumbnail))
	})

	It("rejects an object with both variants", func() {
		obj := model.NewContainer(1, 0, "c")
		obj.Item = &model.ItemData{}
		_, err := EncodeObject(obj)
		Expect(err).To(MatchError(model.ErrCorrupt))
	})

	It("rejects an object with no variant", func() {
		_, err := EncodeObject(&model.MediaObject{ID: 1})
		Expect(err).To(MatchError(model.ErrCorrupt))
	})

	It("rejects records with an unknown kind", func() {
		_, err := DecodeObject([]byte(`{"kind":"playlist","id":1,"parent_id":0}`))
		Expect(err).To(MatchError(model.ErrCorrupt))
	})

	It("rejects malformed records", func() {
		_, err := DecodeObject([]byte(`{"kind":`))
		Expect(err).To(MatchError(model.ErrCorrupt))
	})

	It("round-trips resources", func() {
		in := &model.Resource{ID: 12, Location: "/media/a.mkv", MimeType: "video/x-matroska"}
		data, err := EncodeResource(in)
		Expect(err).ToNot(HaveOccurred())
		out, err := DecodeResource(data)
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal(in))
	})
})
