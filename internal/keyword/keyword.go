// Package keyword parses the |xWBTREE / |xWDATA / |xWMAP triad that backs
// WinHelp's keyword search dialog, where x is a footnote character (A-Z,
// a-z) chosen when the help project was compiled. |xWBTREE names each
// keyword and how often it occurs; |xWDATA holds the topic offsets an
// occurrence count indexes into; |xWMAP speeds up alphabetical scrolling by
// recording which B+ tree page a keyword index falls on.
package keyword

import (
	"github.com/go-winhlp/winhlp/internal/btree"
	"github.com/go-winhlp/winhlp/internal/cursor"
	"github.com/go-winhlp/winhlp/internal/werr"
)

// Entry is one |xWBTREE leaf entry in the pre-GID (HC30/HC31) layout: a
// keyword, how many topics reference it, and the byte offset into |xWDATA
// where its run of topic offsets begins.
type Entry struct {
	Keyword      string
	Count        int16
	KWDataOffset int32
}

// GIDRecord is one (file number, topic offset) pair in a Win95 .GID
// |xWBTREE leaf entry.
type GIDRecord struct {
	FileNumber  int32
	TopicOffset int32
}

// GIDEntry is one |xWBTREE leaf entry in the Win95 .GID layout, which
// inlines topic offsets directly instead of pointing into |xWDATA.
type GIDEntry struct {
	Keyword string
	Records []GIDRecord
}

// BTree is a parsed |xWBTREE file in either layout. IsGID reports which one
// was parsed; callers read Entries or GIDEntries accordingly.
type BTree struct {
	IsGID      bool
	Entries    []Entry
	GIDEntries []GIDEntry
}

// ParseBTree reads a |xWBTREE file's B+ tree body. The tree's 16-byte
// structure tag carries '!' in the GID layout (per internal/btree's
// HasBangStructure), which selects the entry format.
func ParseBTree(payload []byte) (*BTree, error) {
	tree, err := btree.Open("xwbtree", payload)
	if err != nil {
		return nil, err
	}
	bt := &BTree{IsGID: tree.HasBangStructure()}

	if bt.IsGID {
		parse := func(page []byte, offset int) (interface{}, int, bool) {
			c := cursor.NewAt("xwbtree", page, offset)
			keyword, err := c.StringZ()
			if err != nil {
				return nil, 0, false
			}
			size, err := c.I32()
			if err != nil {
				return nil, 0, false
			}
			if size < 0 {
				return nil, 0, false
			}
			n := int(size) / 8
			records := make([]GIDRecord, 0, n)
			for i := 0; i < n; i++ {
				fileNumber, err := c.I32()
				if err != nil {
					return nil, 0, false
				}
				topicOffset, err := c.I32()
				if err != nil {
					return nil, 0, false
				}
				records = append(records, GIDRecord{FileNumber: fileNumber, TopicOffset: topicOffset})
			}
			return GIDEntry{Keyword: string(keyword), Records: records}, c.Pos(), true
		}
		err = btree.Walk(tree, "xwbtree", parse, func(e interface{}) {
			bt.GIDEntries = append(bt.GIDEntries, e.(GIDEntry))
		})
	} else {
		parse := func(page []byte, offset int) (interface{}, int, bool) {
			c := cursor.NewAt("xwbtree", page, offset)
			keyword, err := c.StringZ()
			if err != nil {
				return nil, 0, false
			}
			count, err := c.I16()
			if err != nil {
				return nil, 0, false
			}
			kwDataOffset, err := c.I32()
			if err != nil {
				return nil, 0, false
			}
			return Entry{Keyword: string(keyword), Count: count, KWDataOffset: kwDataOffset}, c.Pos(), true
		}
		err = btree.Walk(tree, "xwbtree", parse, func(e interface{}) {
			bt.Entries = append(bt.Entries, e.(Entry))
		})
	}
	if err != nil {
		return nil, err
	}
	return bt, nil
}

// Data is a parsed |xWDATA file: the flat array of topic offsets that
// |xWBTREE.Entry.KWDataOffset indexes into. A value of -1 marks a keyword
// assigned to a macro (via HCRTF 4.0's [MACROS] section) rather than a
// topic.
type Data struct {
	offsets []int32
}

// ParseData reads a |xWDATA file's payload.
func ParseData(payload []byte) (*Data, error) {
	n := len(payload) / 4
	d := &Data{offsets: make([]int32, 0, n)}
	c := cursor.New("xwdata", payload)
	for i := 0; i < n; i++ {
		v, err := c.I32()
		if err != nil {
			return nil, &werr.TruncatedRecord{Component: "xwdata", Offset: c.Pos(), Need: 4, Have: c.Len()}
		}
		d.offsets = append(d.offsets, v)
	}
	return d, nil
}

// Range returns the count topic offsets starting at the given byte offset
// (an Entry.KWDataOffset value), clamped to the available data.
func (d *Data) Range(byteOffset int32, count int) []int32 {
	start := int(byteOffset) / 4
	if start < 0 || start >= len(d.offsets) || count <= 0 {
		return nil
	}
	end := start + count
	if end > len(d.offsets) {
		end = len(d.offsets)
	}
	return d.offsets[start:end]
}

// IsMacroReference reports whether a topic offset from Range denotes a
// macro assignment rather than a topic.
func IsMacroReference(topicOffset int32) bool { return topicOffset == -1 }

// MapRecord is one |xWMAP entry: the index of the first keyword on a
// |xWBTREE leaf page, and that page's number.
type MapRecord struct {
	FirstKeywordIndex int32
	PageNumber        uint16
}

// Map is a parsed |xWMAP file.
type Map struct {
	Records []MapRecord
}

// ParseMap reads a |xWMAP file's payload: a uint16 entry count followed by
// that many 6-byte (int32, uint16) records.
func ParseMap(payload []byte) (*Map, error) {
	c := cursor.New("xwmap", payload)
	n, err := c.U16()
	if err != nil {
		return nil, &werr.TruncatedRecord{Component: "xwmap", Offset: 0, Need: 2, Have: len(payload)}
	}
	m := &Map{Records: make([]MapRecord, 0, n)}
	for i := 0; i < int(n); i++ {
		first, err := c.I32()
		if err != nil {
			break
		}
		page, err := c.U16()
		if err != nil {
			break
		}
		m.Records = append(m.Records, MapRecord{FirstKeywordIndex: first, PageNumber: page})
	}
	return m, nil
}
