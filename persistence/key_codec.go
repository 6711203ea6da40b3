package persistence

import (
	"encoding/binary"
	"fmt"

	"github.com/eems/eems/model"
)

// Library keys serialize to a fixed 9-byte layout: one tag byte followed by
// the id as big-endian with the sign bit flipped. Flipping the sign bit makes
// the unsigned byte comparison the engine performs equal to signed ordering,
// so all keys of one tag form a contiguous, id-ascending range without a
// custom comparator. The layout is stable across restarts.

const keyLen = 1 + 8

const signBit = uint64(1) << 63

// EncodeKey serializes k into its ordered byte form.
func EncodeKey(k model.LibraryKey) []byte {
	buf := make([]byte, keyLen)
	buf[0] = byte(k.Tag)
	binary.BigEndian.PutUint64(buf[1:], uint64(k.ID)^signBit)
	return buf
}

// DecodeKey parses a serialized library key.
func DecodeKey(data []byte) (model.LibraryKey, error) {
	if len(data) != keyLen {
		return model.LibraryKey{}, fmt.Errorf("%w: key length %d", model.ErrCorrupt, len(data))
	}
	tag := model.KeyTag(data[0])
	if tag != model.TagObject && tag != model.TagResource {
		return model.LibraryKey{}, fmt.Errorf("%w: key tag 0x%02x", model.ErrCorrupt, data[0])
	}
	return model.LibraryKey{
		Tag: tag,
		ID:  int64(binary.BigEndian.Uint64(data[1:]) ^ signBit),
	}, nil
}

// tagPrefix is the one-byte range prefix shared by all keys of a tag.
func tagPrefix(tag model.KeyTag) []byte {
	return []byte{byte(tag)}
}

// maxKeyForTag is the highest possible serialized key of a tag, used to
// reverse-seek to the largest existing id.
func maxKeyForTag(tag model.KeyTag) []byte {
	buf := make([]byte, keyLen)
	buf[0] = byte(tag)
	for i := 1; i < keyLen; i++ {
		buf[i] = 0xFF
	}
	return buf
}
