package object

// Trie is a 16-ary radix tree over hex-digest keys. Insert and lookup
// cost is bounded by key length, independent of entry count. It backs
// both the store's decoded-object cache and each pack reader's
// digest→offset index.
//
// The zero value is not usable; call NewTrie. A Trie is not safe for
// uncoordinated concurrent mutation; the store assumes a single logical
// writer per repository instance.
type Trie[V any] struct {
	root trieNode[V]
	size int
}

type trieNode[V any] struct {
	children [16]*trieNode[V]
	entry    *TrieEntry[V]
}

// TrieEntry is one stored digest/value pair, also the result unit of
// prefix queries.
type TrieEntry[V any] struct {
	Hash  Hash
	Value V
}

// NewTrie returns an empty trie.
func NewTrie[V any]() *Trie[V] {
	return &Trie[V]{}
}

// Len returns the number of stored entries.
func (t *Trie[V]) Len() int { return t.size }

func hexNibble(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	}
	return 0, false
}

// Insert stores value under the full digest h. Inserting an existing key
// overwrites its value (last write wins). Keys must be lowercase hex; a
// key with any other byte is ignored, and validation happens before any
// node is allocated so a rejected key leaves the trie untouched.
func (t *Trie[V]) Insert(h Hash, value V) {
	for i := 0; i < len(h); i++ {
		if _, ok := hexNibble(h[i]); !ok {
			return
		}
	}

	node := &t.root
	for i := 0; i < len(h); i++ {
		n, _ := hexNibble(h[i])
		if node.children[n] == nil {
			node.children[n] = &trieNode[V]{}
		}
		node = node.children[n]
	}
	if node.entry == nil {
		t.size++
	}
	node.entry = &TrieEntry[V]{Hash: h, Value: value}
}

// Get looks up the exact digest h.
func (t *Trie[V]) Get(h Hash) (V, bool) {
	var zero V
	node := t.walk(string(h))
	if node == nil || node.entry == nil || node.entry.Hash != h {
		return zero, false
	}
	return node.entry.Value, true
}

// Find returns every entry whose digest starts with prefix. A full
// 40-character key degenerates to an exact match. The empty prefix
// matches nothing.
func (t *Trie[V]) Find(prefix string) []TrieEntry[V] {
	if prefix == "" {
		return nil
	}
	node := t.walk(prefix)
	if node == nil {
		return nil
	}
	var out []TrieEntry[V]
	node.collect(&out)
	return out
}

func (t *Trie[V]) walk(key string) *trieNode[V] {
	node := &t.root
	for i := 0; i < len(key); i++ {
		n, ok := hexNibble(key[i])
		if !ok {
			return nil
		}
		if node.children[n] == nil {
			return nil
		}
		node = node.children[n]
	}
	return node
}

func (n *trieNode[V]) collect(out *[]TrieEntry[V]) {
	if n.entry != nil {
		*out = append(*out, *n.entry)
	}
	for _, child := range n.children {
		if child != nil {
			child.collect(out)
		}
	}
}
