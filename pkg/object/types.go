package object

import "fmt"

// Hash is a 40-character hex-encoded SHA-1 digest.
type Hash string

// ObjectType identifies the kind of object stored. The set is closed:
// decode rejects any other tag.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
	TypeTag    ObjectType = "tag"
)

// ParseObjectType maps a header tag to an ObjectType. Unknown tags are a
// decode error, never a permissive passthrough.
func ParseObjectType(tag string) (ObjectType, error) {
	switch ObjectType(tag) {
	case TypeBlob, TypeTree, TypeCommit, TypeTag:
		return ObjectType(tag), nil
	}
	return "", fmt.Errorf("%w: unknown object type %q", ErrCorrupt, tag)
}

// Object is one decoded envelope: a type tag plus its payload bytes.
// Objects handed out by the Store are shared; callers must not mutate Data.
type Object struct {
	Type ObjectType
	Data []byte
}

const (
	// Tree mode constants compatible with Git's canonical mode strings.
	TreeModeDir        = "40000"
	TreeModeFile       = "100644"
	TreeModeExecutable = "100755"
	TreeModeSymlink    = "120000"
)

// Blob holds raw file data.
type Blob struct {
	Data []byte
}

// TreeEntry is one entry in a tree object.
type TreeEntry struct {
	Mode string
	Name string
	Hash Hash
}

// IsDir reports whether the entry names a subtree.
func (e TreeEntry) IsDir() bool { return e.Mode == TreeModeDir }

// TreeObj holds tree entries in Git's canonical name order.
type TreeObj struct {
	Entries []TreeEntry
}

// Ident is an author or committer stamp, serialized as
// "Name <email> unix tz".
type Ident struct {
	Name  string
	Email string
	Time  int64
	TZ    string
}

// CommitObj represents a commit pointing to a tree with metadata.
type CommitObj struct {
	TreeHash  Hash
	Parents   []Hash
	Author    Ident
	Committer Ident
	Message   string
}

// TagObj is an annotated tag referencing another object.
type TagObj struct {
	TargetHash Hash
	TargetType ObjectType
	Name       string
	Tagger     Ident
	Message    string
}
