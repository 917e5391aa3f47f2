package types

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// TagPair is a single tag-name/tag-value pair, used for the wire
// representation of TagMap (msgpack maps do not preserve key order).
type TagPair struct {
	Key   string `msgpack:"k"`
	Value string `msgpack:"v"`
}

// TagMap is an ordered name->value mapping with unique keys and stable
// insertion order, per the Mail.tags invariant in the data model.
// The zero value is ready to use.
type TagMap struct {
	order []string
	index map[string]int
	pairs []TagPair
}

// NewTagMap returns an empty, ready-to-use TagMap.
func NewTagMap() *TagMap {
	return &TagMap{index: make(map[string]int)}
}

// Set adds or overwrites key -> value, preserving the key's original
// position if it already existed, or appending it at the end if new.
func (t *TagMap) Set(key, value string) {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	if i, ok := t.index[key]; ok {
		t.pairs[i].Value = value
		return
	}
	t.index[key] = len(t.pairs)
	t.order = append(t.order, key)
	t.pairs = append(t.pairs, TagPair{Key: key, Value: value})
}

// Get returns the tag's value and whether it was present.
func (t *TagMap) Get(key string) (string, bool) {
	if t.index == nil {
		return "", false
	}
	i, ok := t.index[key]
	if !ok {
		return "", false
	}
	return t.pairs[i].Value, true
}

// Len returns the number of tags.
func (t *TagMap) Len() int {
	return len(t.pairs)
}

// Pairs returns the tags in insertion order. The returned slice must not
// be mutated by the caller.
func (t *TagMap) Pairs() []TagPair {
	return t.pairs
}

// Clone returns a deep copy, used when swapping ownership across an IPC
// round-trip (the old tag map is discarded, the new one takes over
// atomically per the resource policy).
func (t *TagMap) Clone() *TagMap {
	c := NewTagMap()
	for _, p := range t.pairs {
		c.Set(p.Key, p.Value)
	}
	return c
}

// EncodeMsgpack implements msgpack.CustomEncoder so the tag map serializes
// as an ordered array of pairs instead of an unordered map, matching the
// opaque-blob contract of the IPC channel (§3 "tags ... passed across IPC
// as an opaque serialized blob").
func (t *TagMap) EncodeMsgpack(enc *msgpack.Encoder) error {
	if t == nil {
		return enc.EncodeArrayLen(0)
	}
	return enc.Encode(t.pairs)
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (t *TagMap) DecodeMsgpack(dec *msgpack.Decoder) error {
	var pairs []TagPair
	if err := dec.Decode(&pairs); err != nil {
		return fmt.Errorf("decode tag map: %w", err)
	}
	*t = TagMap{index: make(map[string]int, len(pairs))}
	for _, p := range pairs {
		t.Set(p.Key, p.Value)
	}
	return nil
}
