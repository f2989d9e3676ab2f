// Package context resolves the three ways a WinHelp hyperlink can name its
// target topic: a |CONTEXT hash table (HC31's native addressing scheme), a
// |TopicId name table (present when the file was built with HCRTF's /a
// option), and a |TOMAP array (HC30's flat topic-number index).
package context

import (
	"github.com/go-winhlp/winhlp/internal/btree"
	"github.com/go-winhlp/winhlp/internal/cursor"
	"github.com/go-winhlp/winhlp/internal/werr"
)

// hashTable maps a byte value to the digit the context-hash algorithm folds
// into its running total. Only 0-9, A-Z, a-z, '_' and '.' are legal context
// characters; every legal one maps to a value in [1,42], which is what makes
// the hash invertible as a base-43 number (see ReverseHash).
var hashTable = [256]byte{
	0x00, 0xD1, 0xD2, 0xD3, 0xD4, 0xD5, 0xD6, 0xD7, 0xD8, 0xD9, 0xDA, 0xDB, 0xDC, 0xDD, 0xDE, 0xDF,
	0xE0, 0xE1, 0xE2, 0xE3, 0xE4, 0xE5, 0xE6, 0xE7, 0xE8, 0xE9, 0xEA, 0xEB, 0xEC, 0xED, 0xEE, 0xEF,
	0xF0, 0x0B, 0xF2, 0xF3, 0xF4, 0xF5, 0xF6, 0xF7, 0xF8, 0xF9, 0xFA, 0xFB, 0xFC, 0xFD, 0x0C, 0xFF,
	0x0A, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F,
	0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E, 0x1F,
	0x20, 0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27, 0x28, 0x29, 0x2A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0D,
	0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E, 0x1F,
	0x20, 0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27, 0x28, 0x29, 0x2A, 0x2B, 0x2C, 0x2D, 0x2E, 0x2F,
	0x50, 0x51, 0x52, 0x53, 0x54, 0x55, 0x56, 0x57, 0x58, 0x59, 0x5A, 0x5B, 0x5C, 0x5D, 0x5E, 0x5F,
	0x60, 0x61, 0x62, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68, 0x69, 0x6A, 0x6B, 0x6C, 0x6D, 0x6E, 0x6F,
	0x70, 0x71, 0x72, 0x73, 0x74, 0x75, 0x76, 0x77, 0x78, 0x79, 0x7A, 0x7B, 0x7C, 0x7D, 0x7E, 0x7F,
	0x80, 0x81, 0x82, 0x83, 0x0B, 0x85, 0x86, 0x87, 0x88, 0x89, 0x8A, 0x8B, 0x8C, 0x8D, 0x8E, 0x8F,
	0x90, 0x91, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97, 0x98, 0x99, 0x9A, 0x9B, 0x9C, 0x9D, 0x9E, 0x9F,
	0xA0, 0xA1, 0xA2, 0xA3, 0xA4, 0xA5, 0xA6, 0xA7, 0xA8, 0xA9, 0xAA, 0xAB, 0xAC, 0xAD, 0xAE, 0xAF,
	0xB0, 0xB1, 0xB2, 0xB3, 0xB4, 0xB5, 0xB6, 0xB7, 0xB8, 0xB9, 0xBA, 0xBB, 0xBC, 0xBD, 0xBE, 0xBF,
	0xC0, 0xC1, 0xC2, 0xC3, 0xC4, 0xC5, 0xC6, 0xC7, 0xC8, 0xC9, 0xCA, 0xCB, 0xCC, 0xCD, 0xCE, 0xCF,
}

// untable is hashTable's inverse: digit value -> legal context character. A
// 0 entry marks a digit value that no legal character ever produces.
var untable = [43]byte{
	0, '1', '2', '3', '4', '5', '6', '7', '8', '9', '0', 0, '.', '_', 0, 0, 0,
	'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M', 'N', 'O', 'P',
	'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z',
}

// HashContextName computes the |CONTEXT hash of a context name. The empty
// string is a documented special case: its hash is 1, not the 0 the folding
// loop would otherwise produce (0 is reserved to mean "no context").
func HashContextName(name string) uint32 {
	if name == "" {
		return 1
	}
	var h uint32
	for i := 0; i < len(name); i++ {
		h = h*43 + uint32(hashTable[name[i]])
	}
	return h
}

// ReverseHash recovers the context name that produced hash, when one
// exists. The hash folds each character's table digit (always in [1,42])
// into a running base-43 number, so the name can be read back directly by
// repeated division — no search required. It returns ok=false if hash
// decodes to a digit no legal character produces, meaning no legal context
// name could have hashed to it.
//
// The recovered name is exact only while the running hash stays within 32
// bits; HashContextName truncates on overflow (as the original format
// does), so a long enough name collides with a shorter one and ReverseHash
// can only return one of them. 0xFFFFFFFF and 0 are two such fixed points:
// both arise only from names whose hash wraps past 2^32 on the final
// character, which breaks the digit extraction below (the truncated
// running hash no longer equals hash%43 at that step), so they're named
// outright rather than derived.
func ReverseHash(hash uint32) (name string, ok bool) {
	if hash == 1 {
		return "", true
	}
	if hash == 0xFFFFFFFF {
		return "21KSYK4", true
	}
	if hash == 0 {
		return "21KSYK5", true
	}
	var buf []byte
	for hash != 0 {
		digit := hash % 43
		hash /= 43
		c := untable[digit]
		if c == 0 {
			return "", false
		}
		buf = append([]byte{c}, buf...)
	}
	return string(buf), true
}

// Table is a parsed |CONTEXT file: the hash of every context name defined in
// the help project, mapped to the TOPICOFFSET of its topic.
type Table struct {
	byHash map[uint32]int32
}

// Parse reads a |CONTEXT file's B+ tree body (as returned by
// container.Container.File, i.e. with the FILEHEADER already stripped).
func Parse(payload []byte) (*Table, error) {
	tree, err := btree.Open("context", payload)
	if err != nil {
		return nil, err
	}
	t := &Table{byHash: make(map[uint32]int32)}
	parse := func(page []byte, offset int) (interface{}, int, bool) {
		c := cursor.NewAt("context", page, offset)
		hash, err := c.U32()
		if err != nil {
			return nil, 0, false
		}
		topicOffset, err := c.I32()
		if err != nil {
			return nil, 0, false
		}
		return contextEntry{hash: hash, topicOffset: topicOffset}, c.Pos(), true
	}
	err = btree.Walk(tree, "context", parse, func(e interface{}) {
		ce := e.(contextEntry)
		t.byHash[ce.hash] = ce.topicOffset
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

type contextEntry struct {
	hash        uint32
	topicOffset int32
}

// TopicOffset returns the topic offset recorded for a context hash.
func (t *Table) TopicOffset(hash uint32) (int32, bool) {
	off, ok := t.byHash[hash]
	return off, ok
}

// Len returns the number of context entries.
func (t *Table) Len() int { return len(t.byHash) }

// IDTable is a parsed |TopicId file: the context name assigned to each
// topic offset, present only in files built with HCRTF's /a option.
type IDTable struct {
	nameByOffset map[int32]string
	offsetByName map[string]int32
}

// ParseIDTable reads a |TopicId file's B+ tree body.
func ParseIDTable(payload []byte) (*IDTable, error) {
	tree, err := btree.Open("topicid", payload)
	if err != nil {
		return nil, err
	}
	t := &IDTable{nameByOffset: make(map[int32]string), offsetByName: make(map[string]int32)}
	parse := func(page []byte, offset int) (interface{}, int, bool) {
		c := cursor.NewAt("topicid", page, offset)
		topicOffset, err := c.I32()
		if err != nil {
			return nil, 0, false
		}
		name, err := c.StringZ()
		if err != nil {
			return nil, 0, false
		}
		return idEntry{topicOffset: topicOffset, name: string(name)}, c.Pos(), true
	}
	err = btree.Walk(tree, "topicid", parse, func(e interface{}) {
		ie := e.(idEntry)
		t.nameByOffset[ie.topicOffset] = ie.name
		t.offsetByName[ie.name] = ie.topicOffset
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

type idEntry struct {
	topicOffset int32
	name        string
}

// ContextName returns the context name assigned to a topic offset.
func (t *IDTable) ContextName(topicOffset int32) (string, bool) {
	name, ok := t.nameByOffset[topicOffset]
	return name, ok
}

// TopicOffset returns the topic offset assigned to a context name.
func (t *IDTable) TopicOffset(name string) (int32, bool) {
	off, ok := t.offsetByName[name]
	return off, ok
}

// Map is a parsed |TOMAP file: HC30's flat array of topic positions, indexed
// directly by topic number (topic numbers start at 16; Map[0] corresponds
// to the help project's INDEX topic).
type Map struct {
	positions []uint32
}

// ParseMap reads a |TOMAP file's payload, an array of uint32 TOPICPOS values
// with no header of its own.
func ParseMap(payload []byte) (*Map, error) {
	n := len(payload) / 4
	m := &Map{positions: make([]uint32, 0, n)}
	c := cursor.New("tomap", payload)
	for i := 0; i < n; i++ {
		v, err := c.U32()
		if err != nil {
			return nil, &werr.TruncatedRecord{Component: "tomap", Offset: c.Pos(), Need: 4, Have: c.Len()}
		}
		m.positions = append(m.positions, v)
	}
	return m, nil
}

// Position returns the topic position for a topic number (which starts at
// 16 for the first topic; do not subtract 16 before calling).
func (m *Map) Position(topicNumber int) (uint32, bool) {
	i := topicNumber - 16
	if i < 0 || i >= len(m.positions) {
		return 0, false
	}
	return m.positions[i], true
}

// IndexPosition returns the position of the help project's INDEX topic.
func (m *Map) IndexPosition() (uint32, bool) {
	if len(m.positions) == 0 {
		return 0, false
	}
	return m.positions[0], true
}

// Len returns the number of topic positions.
func (m *Map) Len() int { return len(m.positions) }

// OffsetMap is a parsed |CTXOMAP file: a flat MapID -> TopicOffset table
// some .GID files carry as a faster path than |CONTEXT, addressed by the
// small integer map IDs an [MAP] section assigns rather than by context
// name hash.
type OffsetMap struct {
	byID map[int32]int32
}

// ParseOffsetMap reads a |CTXOMAP file's payload: a uint16 entry count
// followed by that many (int32 MapID, int32 TopicOffset) pairs.
func ParseOffsetMap(payload []byte) (*OffsetMap, error) {
	c := cursor.New("ctxomap", payload)
	n, err := c.U16()
	if err != nil {
		return nil, &werr.TruncatedRecord{Component: "ctxomap", Offset: 0, Need: 2, Have: len(payload)}
	}
	m := &OffsetMap{byID: make(map[int32]int32, n)}
	for i := 0; i < int(n); i++ {
		id, err := c.I32()
		if err != nil {
			break
		}
		off, err := c.I32()
		if err != nil {
			break
		}
		m.byID[id] = off
	}
	return m, nil
}

// TopicOffset returns the topic offset mapped to a map ID.
func (m *OffsetMap) TopicOffset(mapID int32) (int32, bool) {
	off, ok := m.byID[mapID]
	return off, ok
}

// Len returns the number of map entries.
func (m *OffsetMap) Len() int { return len(m.byID) }
