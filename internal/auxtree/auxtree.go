// Package auxtree parses the smaller B+ tree-shaped internal files that
// round out a help file beyond its core topic content: topic titles
// (|TTLBTREE), HCRTF 4.0 macro definitions (|Rose), HCRTF /a source
// filenames (|Petra), and the partially-documented GID contents metadata
// (|CntJump, |CntText). It also covers two Windows 95 "bookshelf" extras
// that are flat records rather than B+ trees: .GRP group files and
// |GMACROS.
package auxtree

import (
	"github.com/go-winhlp/winhlp/internal/btree"
	"github.com/go-winhlp/winhlp/internal/cursor"
	"github.com/go-winhlp/winhlp/internal/werr"
)

// TitleTable is a parsed |TTLBTREE file: the topic title assigned via a
// $-footnote, keyed by topic offset, as shown in WinHelp's search dialog.
type TitleTable struct {
	titleByOffset map[int32]string
	offsetByTitle map[string]int32
}

// ParseTitleTable reads a |TTLBTREE file's B+ tree body.
func ParseTitleTable(payload []byte) (*TitleTable, error) {
	tree, err := btree.Open("ttlbtree", payload)
	if err != nil {
		return nil, err
	}
	t := &TitleTable{titleByOffset: make(map[int32]string), offsetByTitle: make(map[string]int32)}
	parse := func(page []byte, offset int) (interface{}, int, bool) {
		c := cursor.NewAt("ttlbtree", page, offset)
		topicOffset, err := c.I32()
		if err != nil {
			return nil, 0, false
		}
		title, err := c.StringZ()
		if err != nil {
			return nil, 0, false
		}
		return titleEntry{topicOffset: topicOffset, title: string(title)}, c.Pos(), true
	}
	err = btree.Walk(tree, "ttlbtree", parse, func(e interface{}) {
		te := e.(titleEntry)
		t.titleByOffset[te.topicOffset] = te.title
		t.offsetByTitle[te.title] = te.topicOffset
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

type titleEntry struct {
	topicOffset int32
	title       string
}

// Title returns the topic title recorded for a topic offset.
func (t *TitleTable) Title(topicOffset int32) (string, bool) {
	title, ok := t.titleByOffset[topicOffset]
	return title, ok
}

// TopicOffset returns the topic offset recorded for a title.
func (t *TitleTable) TopicOffset(title string) (int32, bool) {
	off, ok := t.offsetByTitle[title]
	return off, ok
}

// Len returns the number of title entries.
func (t *TitleTable) Len() int { return len(t.titleByOffset) }

// Macro is one |Rose entry: a macro string run when a keyword-indexed
// search result is selected, plus the string shown in its place in the
// search dialog (not a real topic title). Macro is never executed —
// treated as an opaque string everywhere in this package.
type Macro struct {
	Macro        string
	DisplayTitle string
}

// MacroTable is a parsed |Rose file: HCRTF 4.0's [MACROS] section,
// addressed by the same keyword hash used in a |xWBTREE/|xWDATA pair
// where the |xWDATA entry is -1 (see internal/keyword.IsMacroReference).
type MacroTable struct {
	byHash map[uint32]Macro
}

// ParseMacroTable reads a |Rose file's B+ tree body.
func ParseMacroTable(payload []byte) (*MacroTable, error) {
	tree, err := btree.Open("rose", payload)
	if err != nil {
		return nil, err
	}
	t := &MacroTable{byHash: make(map[uint32]Macro)}
	parse := func(page []byte, offset int) (interface{}, int, bool) {
		c := cursor.NewAt("rose", page, offset)
		hash, err := c.U32()
		if err != nil {
			return nil, 0, false
		}
		macro, err := c.StringZ()
		if err != nil {
			return nil, 0, false
		}
		title, err := c.StringZ()
		if err != nil {
			return nil, 0, false
		}
		return macroEntry{hash: hash, macro: Macro{Macro: string(macro), DisplayTitle: string(title)}}, c.Pos(), true
	}
	err = btree.Walk(tree, "rose", parse, func(e interface{}) {
		me := e.(macroEntry)
		t.byHash[me.hash] = me.macro
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

type macroEntry struct {
	hash  uint32
	macro Macro
}

// ByHash returns the macro definition recorded for a keyword hash.
func (t *MacroTable) ByHash(hash uint32) (Macro, bool) {
	m, ok := t.byHash[hash]
	return m, ok
}

// Len returns the number of macro entries.
func (t *MacroTable) Len() int { return len(t.byHash) }

// SourceTable is a parsed |Petra file: the original RTF source filename a
// topic came from, present only when the help project was built with
// HCRTF's /a option.
type SourceTable struct {
	byOffset map[int32]string
}

// ParseSourceTable reads a |Petra file's B+ tree body.
func ParseSourceTable(payload []byte) (*SourceTable, error) {
	tree, err := btree.Open("petra", payload)
	if err != nil {
		return nil, err
	}
	t := &SourceTable{byOffset: make(map[int32]string)}
	parse := func(page []byte, offset int) (interface{}, int, bool) {
		c := cursor.NewAt("petra", page, offset)
		topicOffset, err := c.I32()
		if err != nil {
			return nil, 0, false
		}
		name, err := c.StringZ()
		if err != nil {
			return nil, 0, false
		}
		return sourceEntry{topicOffset: topicOffset, name: string(name)}, c.Pos(), true
	}
	err = btree.Walk(tree, "petra", parse, func(e interface{}) {
		se := e.(sourceEntry)
		t.byOffset[se.topicOffset] = se.name
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

type sourceEntry struct {
	topicOffset int32
	name        string
}

// RTFSource returns the source filename recorded for a topic offset.
func (t *SourceTable) RTFSource(topicOffset int32) (string, bool) {
	name, ok := t.byOffset[topicOffset]
	return name, ok
}

// Len returns the number of source entries.
func (t *SourceTable) Len() int { return len(t.byOffset) }

// RawLeaf is one undecoded |CntJump/|CntText leaf page, exposed as raw
// bytes plus its claimed entry count: per spec, these GID-only files'
// entry layout is only partially documented, so this package exposes
// structural (B+ tree) access without attempting to decode entries.
type RawLeaf struct {
	Page    []byte
	Entries int
}

// RawLeaves walks a |CntJump or |CntText file's B+ tree and returns every
// leaf page verbatim (header included), for callers doing forensic
// inspection or a format-specific decode of their own.
func RawLeaves(component string, payload []byte) ([]RawLeaf, error) {
	tree, err := btree.Open(component, payload)
	if err != nil {
		return nil, err
	}
	cur, leaf, err := btree.FirstLeaf(tree, component)
	if err != nil {
		return nil, err
	}
	var out []RawLeaf
	for leaf != nil {
		out = append(out, RawLeaf{Page: leaf.Page, Entries: leaf.Entries})
		leaf, err = cur.NextLeaf(component)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// TopicRange is one group assignment spanning a contiguous run of topic
// numbers, from a .GRP (MediaView group) file.
type TopicRange struct {
	StartTopic, EndTopic uint32
	GroupID              uint32
}

// GroupFile is a parsed .GRP file: Windows 95 MediaView's group+ footnote
// metadata, assigning ranges of topic numbers to group IDs, with an
// optional trailing bitmap.
type GroupFile struct {
	BitmapSize uint32
	LastTopic  uint32
	Ranges     []TopicRange
	Bitmap     []byte
}

const grpMagic = 0x000A3333

// ParseGroupFile reads a .GRP file. The magic number is checked but not
// enforced fatally — malformed group files degrade to an empty Ranges list
// rather than aborting the whole help file, matching how group metadata is
// cosmetic to topic content.
func ParseGroupFile(raw []byte) (*GroupFile, error) {
	c := cursor.New("grp", raw)
	magic, err := c.U32()
	if err != nil {
		return nil, &werr.TruncatedRecord{Component: "grp", Offset: 0, Need: 12, Have: len(raw)}
	}
	bitmapSize, err := c.U32()
	if err != nil {
		return nil, err
	}
	lastTopic, err := c.U32()
	if err != nil {
		return nil, err
	}
	g := &GroupFile{BitmapSize: bitmapSize, LastTopic: lastTopic}
	if magic != grpMagic {
		return g, nil
	}
	for c.Len() >= 12 {
		start, _ := c.U32()
		end, _ := c.U32()
		group, _ := c.U32()
		if start > 0x10000000 || end > 0x10000000 || start > end {
			c.Seek(c.Pos() - 12)
			break
		}
		g.Ranges = append(g.Ranges, TopicRange{StartTopic: start, EndTopic: end, GroupID: group})
	}
	if bitmapSize > 0 && c.Len() > 0 {
		n := int(bitmapSize)
		if n > c.Len() {
			n = c.Len()
		}
		b, _ := c.Take(n)
		g.Bitmap = b
	}
	return g, nil
}

// GroupForTopic returns the group ID assigned to a topic number, if any
// range covers it.
func (g *GroupFile) GroupForTopic(topicNumber uint32) (uint32, bool) {
	for _, r := range g.Ranges {
		if topicNumber >= r.StartTopic && topicNumber <= r.EndTopic {
			return r.GroupID, true
		}
	}
	return 0, false
}

// GlobalMacroPair is one |GMACROS record: the macro run on entering a
// context, and the macro run on leaving it. Both are opaque strings.
type GlobalMacroPair struct {
	EntryMacro, ExitMacro string
}

// GlobalMacros is a parsed |GMACROS file.
type GlobalMacros struct {
	GroupNumber int32
	Pairs       []GlobalMacroPair
}

// ParseGlobalMacros reads a |GMACROS file: a leading group number followed
// by variable-length records, each giving a length and the byte offset
// (within the record) where its second string begins.
func ParseGlobalMacros(payload []byte) (*GlobalMacros, error) {
	c := cursor.New("gmacros", payload)
	group, err := c.I32()
	if err != nil {
		return nil, &werr.TruncatedRecord{Component: "gmacros", Offset: 0, Need: 4, Have: len(payload)}
	}
	g := &GlobalMacros{GroupNumber: group}
	for c.Len() >= 8 {
		recordStart := c.Pos()
		length, err := c.I32()
		if err != nil {
			break
		}
		stringOffset, err := c.I32()
		if err != nil {
			break
		}
		if length < 8 {
			break
		}
		if stringOffset <= 0 {
			stringOffset = length
		}
		if length < stringOffset {
			break
		}
		recordEnd := recordStart + int(length)
		if recordEnd > len(payload) {
			break
		}
		entryEnd := recordStart + int(stringOffset)
		var entryMacro, exitMacro string
		if entryEnd > c.Pos() && entryEnd <= len(payload) {
			entryMacro = cString(payload[c.Pos():entryEnd])
		}
		if entryEnd < recordEnd {
			exitMacro = cString(payload[entryEnd:recordEnd])
		}
		g.Pairs = append(g.Pairs, GlobalMacroPair{EntryMacro: entryMacro, ExitMacro: exitMacro})
		c.Seek(recordEnd)
	}
	return g, nil
}

// WindowAssignment is one |VIOLA entry: which secondary window a topic
// opens into, by ordinal into |SYSTEM's SecWindow list.
type WindowAssignment struct {
	TopicOffset  uint32
	WindowNumber uint32
}

// WindowAssignments is a parsed |VIOLA file.
type WindowAssignments struct {
	byTopic map[uint32]uint32
}

// ParseWindowAssignments reads a |VIOLA file's B+ tree body: fixed 8-byte
// leaf entries, no STRINGZ fields.
func ParseWindowAssignments(payload []byte) (*WindowAssignments, error) {
	tree, err := btree.Open("viola", payload)
	if err != nil {
		return nil, err
	}
	w := &WindowAssignments{byTopic: make(map[uint32]uint32)}
	parse := func(page []byte, offset int) (interface{}, int, bool) {
		c := cursor.NewAt("viola", page, offset)
		topicOffset, err := c.U32()
		if err != nil {
			return nil, 0, false
		}
		windowNumber, err := c.U32()
		if err != nil {
			return nil, 0, false
		}
		return WindowAssignment{TopicOffset: topicOffset, WindowNumber: windowNumber}, c.Pos(), true
	}
	err = btree.Walk(tree, "viola", parse, func(e interface{}) {
		wa := e.(WindowAssignment)
		w.byTopic[wa.TopicOffset] = wa.WindowNumber
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// WindowNumber returns the secondary window ordinal a topic opens into.
func (w *WindowAssignments) WindowNumber(topicOffset uint32) (uint32, bool) {
	n, ok := w.byTopic[topicOffset]
	return n, ok
}

// Len returns the number of window assignments.
func (w *WindowAssignments) Len() int { return len(w.byTopic) }

const catalogHeaderSize = 40

// Catalog is a parsed |CATALOG file: a flat sequential topic-number ->
// topic-offset map, the simplest of the topic-addressing schemes a help
// file may carry alongside (or instead of) |TOMAP and |CONTEXT.
type Catalog struct {
	Entries int32
	Offsets []uint32
}

// ParseCatalog reads a |CATALOG file's CATALOGHEADER (magic, two
// reserved-constant fields, entry count, 30 bytes of padding) followed by
// that many u32 topic offsets.
func ParseCatalog(payload []byte) (*Catalog, error) {
	if len(payload) < catalogHeaderSize {
		return nil, &werr.TruncatedRecord{Component: "catalog", Offset: 0, Need: catalogHeaderSize, Have: len(payload)}
	}
	c := cursor.New("catalog", payload)
	if _, err := c.U16(); err != nil { // magic, not enforced: helpdeco itself treats it as informational
		return nil, err
	}
	if _, err := c.U16(); err != nil { // always8
		return nil, err
	}
	if _, err := c.U16(); err != nil { // always4
		return nil, err
	}
	entries, err := c.I32()
	if err != nil {
		return nil, err
	}
	if _, err := c.Take(30); err != nil {
		return nil, err
	}
	cat := &Catalog{Entries: entries}
	for i := int32(0); i < entries; i++ {
		off, err := c.U32()
		if err != nil {
			break
		}
		cat.Offsets = append(cat.Offsets, off)
	}
	return cat, nil
}

// TopicOffset returns the topic offset for a 1-based topic number, as
// recorded in the catalog's flat array.
func (cat *Catalog) TopicOffset(topicNumber int) (uint32, bool) {
	i := topicNumber - 1
	if i < 0 || i >= len(cat.Offsets) {
		return 0, false
	}
	return cat.Offsets[i], true
}

// Len returns the number of catalog entries.
func (cat *Catalog) Len() int { return len(cat.Offsets) }

// ParseConfigMacros reads a |CFn file: the macros from one [CONFIG:n]
// section of the help project, stored as consecutive STRINGZ strings with
// no count prefix. Opaque, like every other macro string in this package.
func ParseConfigMacros(payload []byte) []string {
	var out []string
	c := cursor.New("cfn", payload)
	for c.Len() > 0 {
		s, err := c.StringZ()
		if err != nil {
			break
		}
		if len(s) > 0 {
			out = append(out, string(s))
		}
	}
	return out
}

func cString(b []byte) string {
	for i, v := range b {
		if v == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
