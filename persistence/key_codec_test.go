package persistence

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/eems/eems/model"
)

var _ = Describe("Key codec", func() {
	It("round-trips object and resource keys", func() {
		for _, key := range []model.LibraryKey{
			model.ObjectKey(0),
			model.ObjectKey(42),
			model.ObjectKey(-1),
			model.ResourceKey(0),
			model.ResourceKey(1 << 40),
		} {
			decoded, err := DecodeKey(EncodeKey(key))
			Expect(err).ToNot(HaveOccurred())
			Expect(decoded).To(Equal(key))
		}
	})

	It("orders keys by tag first", func() {
		object := EncodeKey(model.ObjectKey(1 << 60))
		resource := EncodeKey(model.ResourceKey(-1 << 60))
		Expect(bytes.Compare(object, resource)).To(Equal(-1))
	})

	It("orders ids of one tag as signed integers", func() {
		ids := []int64{-5, -1, 0, 1, 7, 1 << 40}
		var prev []byte
		for _, id := range ids {
			cur := EncodeKey(model.ObjectKey(id))
			if prev != nil {
				Expect(bytes.Compare(prev, cur)).To(Equal(-1))
			}
			prev = cur
		}
	})

	It("rejects truncated keys", func() {
		_, err := DecodeKey([]byte{0x01, 0x00})
		Expect(err).To(MatchError(model.ErrCorrupt))
	})

	It("rejects unknown tags", func() {
		data := EncodeKey(model.ObjectKey(1))
		data[0] = 0x7F
		_, err := DecodeKey(data)
		Expect(err).To(MatchError(model.ErrCorrupt))
	})
})
