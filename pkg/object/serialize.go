package object

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Blob
// ---------------------------------------------------------------------------

// MarshalBlob serializes a Blob to raw bytes (identity).
func MarshalBlob(b *Blob) []byte {
	out := make([]byte, len(b.Data))
	copy(out, b.Data)
	return out
}

// UnmarshalBlob deserializes raw bytes into a Blob.
func UnmarshalBlob(data []byte) (*Blob, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return &Blob{Data: out}, nil
}

// ---------------------------------------------------------------------------
// Ident
// ---------------------------------------------------------------------------

// String renders the canonical "Name <email> unix tz" stamp.
func (id Ident) String() string {
	tz := id.TZ
	if tz == "" {
		tz = "+0000"
	}
	return fmt.Sprintf("%s <%s> %d %s", id.Name, id.Email, id.Time, tz)
}

// ParseIdent parses a canonical identity stamp.
func ParseIdent(s string) (Ident, error) {
	open := strings.Index(s, " <")
	if open < 0 {
		return Ident{}, fmt.Errorf("invalid ident %q: missing email", s)
	}
	close := strings.Index(s[open:], ">")
	if close < 0 {
		return Ident{}, fmt.Errorf("invalid ident %q: unterminated email", s)
	}
	close += open

	id := Ident{
		Name:  s[:open],
		Email: s[open+2 : close],
	}

	rest := strings.TrimSpace(s[close+1:])
	if rest == "" {
		return id, nil
	}
	fields := strings.Fields(rest)
	ts, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Ident{}, fmt.Errorf("invalid ident %q: bad timestamp: %w", s, err)
	}
	id.Time = ts
	if len(fields) > 1 {
		id.TZ = fields[1]
	}
	return id, nil
}

// ---------------------------------------------------------------------------
// Tree
// ---------------------------------------------------------------------------

// treeNameLess orders entries the way Git does: byte order over names,
// with directory names compared as if suffixed by "/".
func treeNameLess(a, b TreeEntry) bool {
	an, bn := a.Name, b.Name
	if a.IsDir() {
		an += "/"
	}
	if b.IsDir() {
		bn += "/"
	}
	return an < bn
}

// MarshalTree serializes a TreeObj to the canonical binary form: for each
// entry "<mode> <name>\0" followed by the 20 raw digest bytes.
func MarshalTree(tr *TreeObj) ([]byte, error) {
	entries := make([]TreeEntry, len(tr.Entries))
	copy(entries, tr.Entries)
	sort.Slice(entries, func(i, j int) bool {
		return treeNameLess(entries[i], entries[j])
	})

	var buf bytes.Buffer
	for _, e := range entries {
		raw, err := hashHexToBytes(e.Hash)
		if err != nil {
			return nil, fmt.Errorf("marshal tree entry %q: %w", e.Name, err)
		}
		mode := e.Mode
		if mode == "" {
			mode = TreeModeFile
		}
		fmt.Fprintf(&buf, "%s %s\x00", mode, e.Name)
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

// UnmarshalTree parses a TreeObj from its canonical binary form.
func UnmarshalTree(data []byte) (*TreeObj, error) {
	tr := &TreeObj{}
	for len(data) > 0 {
		nul := bytes.IndexByte(data, 0)
		if nul < 0 {
			return nil, fmt.Errorf("%w: tree entry missing NUL", ErrCorrupt)
		}
		mode, name, ok := strings.Cut(string(data[:nul]), " ")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: invalid tree entry header %q", ErrCorrupt, data[:nul])
		}
		if len(data) < nul+1+20 {
			return nil, fmt.Errorf("%w: tree entry %q truncated", ErrCorrupt, name)
		}
		tr.Entries = append(tr.Entries, TreeEntry{
			Mode: mode,
			Name: name,
			Hash: hashFromRaw(data[nul+1 : nul+21]),
		})
		data = data[nul+21:]
	}
	return tr, nil
}

// ---------------------------------------------------------------------------
// Commit
// ---------------------------------------------------------------------------

// MarshalCommit serializes a CommitObj to the canonical text form:
//
//	tree <hash>
//	parent <hash>        (one line per parent)
//	author <ident>
//	committer <ident>
//
//	<message>
func MarshalCommit(c *CommitObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.TreeHash)
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author)
	fmt.Fprintf(&buf, "committer %s\n", c.Committer)
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// UnmarshalCommit parses a CommitObj from its serialized form.
func UnmarshalCommit(data []byte) (*CommitObj, error) {
	header, message, ok := strings.Cut(string(data), "\n\n")
	if !ok {
		// A commit with no message body still ends its header with a
		// blank line; absence of one is malformed.
		return nil, fmt.Errorf("%w: commit missing header separator", ErrCorrupt)
	}

	c := &CommitObj{Message: message}
	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("%w: invalid commit header line %q", ErrCorrupt, line)
		}
		switch key {
		case "tree":
			c.TreeHash = Hash(val)
		case "parent":
			c.Parents = append(c.Parents, Hash(val))
		case "author":
			id, err := ParseIdent(val)
			if err != nil {
				return nil, fmt.Errorf("%w: commit author: %v", ErrCorrupt, err)
			}
			c.Author = id
		case "committer":
			id, err := ParseIdent(val)
			if err != nil {
				return nil, fmt.Errorf("%w: commit committer: %v", ErrCorrupt, err)
			}
			c.Committer = id
		default:
			// Extension headers (gpgsig, encoding) are preserved only in
			// raw object bytes; the decoded view skips them.
		}
	}
	if c.TreeHash == "" {
		return nil, fmt.Errorf("%w: commit missing tree header", ErrCorrupt)
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// Tag
// ---------------------------------------------------------------------------

// MarshalTag serializes an annotated tag.
func MarshalTag(t *TagObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "object %s\n", t.TargetHash)
	fmt.Fprintf(&buf, "type %s\n", t.TargetType)
	fmt.Fprintf(&buf, "tag %s\n", t.Name)
	fmt.Fprintf(&buf, "tagger %s\n", t.Tagger)
	buf.WriteByte('\n')
	buf.WriteString(t.Message)
	return buf.Bytes()
}

// UnmarshalTag parses an annotated tag from its serialized form.
func UnmarshalTag(data []byte) (*TagObj, error) {
	header, message, ok := strings.Cut(string(data), "\n\n")
	if !ok {
		return nil, fmt.Errorf("%w: tag missing header separator", ErrCorrupt)
	}

	t := &TagObj{Message: message}
	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("%w: invalid tag header line %q", ErrCorrupt, line)
		}
		switch key {
		case "object":
			t.TargetHash = Hash(val)
		case "type":
			objType, err := ParseObjectType(val)
			if err != nil {
				return nil, err
			}
			t.TargetType = objType
		case "tag":
			t.Name = val
		case "tagger":
			id, err := ParseIdent(val)
			if err != nil {
				return nil, fmt.Errorf("%w: tagger: %v", ErrCorrupt, err)
			}
			t.Tagger = id
		}
	}
	if t.TargetHash == "" {
		return nil, fmt.Errorf("%w: tag missing object header", ErrCorrupt)
	}
	return t, nil
}
