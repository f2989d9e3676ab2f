// Package btree implements the generic B+ tree reader shared by every
// WinHelp internal file that is organised as one: the root directory,
// |CONTEXT, |TTLBTREE, |xWBTREE, |Rose, |Petra, and friends. It knows
// nothing about entry layout; that is supplied by the caller.
package btree

import (
	"encoding/binary"

	"github.com/go-winhlp/winhlp/internal/werr"
)

const (
	magic      = 0x293B
	headerSize = 38
)

// Header is the BTREEHEADER that precedes a tree's fixed-size pages.
type Header struct {
	Magic             uint16
	Flags             uint16
	PageSize          uint16
	Structure         [16]byte
	MustBeZero        int16
	PageSplits        int16
	RootPage          int16
	MustBeNegOne      int16
	TotalPages        int16
	NLevels           int16
	TotalBTreeEntries int32
}

// Tree is a parsed B+ tree: a header plus a view of its raw pages. Pages
// are numbered from 0 starting right after the header (byte offset 38).
type Tree struct {
	Header Header
	buf    []byte
}

// Open parses the BTREEHEADER at the start of buf. buf must contain the
// full tree: header followed by Header.TotalPages fixed-size pages.
func Open(component string, buf []byte) (*Tree, error) {
	if len(buf) < headerSize {
		return nil, &werr.TruncatedRecord{Component: component, Offset: 0, Need: headerSize, Have: len(buf)}
	}
	var h Header
	h.Magic = binary.LittleEndian.Uint16(buf[0:2])
	h.Flags = binary.LittleEndian.Uint16(buf[2:4])
	h.PageSize = binary.LittleEndian.Uint16(buf[4:6])
	copy(h.Structure[:], buf[6:22])
	h.MustBeZero = int16(binary.LittleEndian.Uint16(buf[22:24]))
	h.PageSplits = int16(binary.LittleEndian.Uint16(buf[24:26]))
	h.RootPage = int16(binary.LittleEndian.Uint16(buf[26:28]))
	h.MustBeNegOne = int16(binary.LittleEndian.Uint16(buf[28:30]))
	h.TotalPages = int16(binary.LittleEndian.Uint16(buf[30:32]))
	h.NLevels = int16(binary.LittleEndian.Uint16(buf[32:34]))
	h.TotalBTreeEntries = int32(binary.LittleEndian.Uint32(buf[34:38]))

	if h.Magic != magic {
		return nil, &werr.InvalidMagic{Component: component, Got: uint32(h.Magic), Want: magic}
	}
	return &Tree{Header: h, buf: buf}, nil
}

// HasBangStructure reports whether the tree's 16-byte structure tag
// contains '!', the GID-variant marker used by some keyword trees.
func (t *Tree) HasBangStructure() bool {
	for _, b := range t.Header.Structure {
		if b == '!' {
			return true
		}
	}
	return false
}

func (t *Tree) page(component string, index int16) ([]byte, error) {
	if index < 0 || int(index) >= int(t.Header.TotalPages) {
		return nil, &werr.BTreeCorruption{Component: component, Reason: "page index out of range"}
	}
	ps := int(t.Header.PageSize)
	start := headerSize + int(index)*ps
	end := start + ps
	if end > len(t.buf) {
		return nil, &werr.BTreeCorruption{Component: component, Reason: "page extends past end of tree buffer"}
	}
	return t.buf[start:end], nil
}

// Leaf is one leaf page together with the number of entries it claims to
// hold; entry bytes start at offset 8 within Page.
type Leaf struct {
	Page    []byte
	Entries int
}

// Cursor tracks iteration state across the leaf chain.
type Cursor struct {
	tree     *Tree
	next     int16
	exhausted bool
}

// FirstLeaf descends from the root to the leftmost leaf page, following
// each index page's "previous page" pointer for NLevels-1 hops, then
// returns that first leaf.
func FirstLeaf(t *Tree, component string) (*Cursor, *Leaf, error) {
	if t.Header.TotalBTreeEntries == 0 {
		return &Cursor{tree: t, exhausted: true}, nil, nil
	}
	pageIndex := t.Header.RootPage
	for level := int16(1); level < t.Header.NLevels; level++ {
		page, err := t.page(component, pageIndex)
		if err != nil {
			return nil, nil, err
		}
		if len(page) < 6 {
			return nil, nil, &werr.BTreeCorruption{Component: component, Reason: "index page shorter than header"}
		}
		prevPage := int16(binary.LittleEndian.Uint16(page[4:6]))
		pageIndex = prevPage
	}
	page, err := t.page(component, pageIndex)
	if err != nil {
		return nil, nil, err
	}
	if len(page) < 8 {
		return nil, nil, &werr.BTreeCorruption{Component: component, Reason: "leaf page shorter than header"}
	}
	nEntries := int(int16(binary.LittleEndian.Uint16(page[2:4])))
	nextPage := int16(binary.LittleEndian.Uint16(page[6:8]))
	return &Cursor{tree: t, next: nextPage}, &Leaf{Page: page, Entries: nEntries}, nil
}

// NextLeaf walks to the next leaf in the chain via the previous leaf's
// "next page" pointer (-1 terminates the chain).
func (c *Cursor) NextLeaf(component string) (*Leaf, error) {
	if c.exhausted || c.next == -1 {
		return nil, nil
	}
	page, err := c.tree.page(component, c.next)
	if err != nil {
		return nil, err
	}
	if len(page) < 8 {
		return nil, &werr.BTreeCorruption{Component: component, Reason: "leaf page shorter than header"}
	}
	nEntries := int(int16(binary.LittleEndian.Uint16(page[2:4])))
	nextPage := int16(binary.LittleEndian.Uint16(page[6:8]))
	c.next = nextPage
	return &Leaf{Page: page, Entries: nEntries}, nil
}

// EntryParser decodes one entry starting at offset within page, returning
// the decoded entry and the offset of the following entry. Returning
// ok=false stops iteration of the current page (but not the whole tree).
type EntryParser func(page []byte, offset int) (entry interface{}, newOffset int, ok bool)

// Walk iterates every leaf page and every entry within it, calling visit
// for each successfully decoded entry. A malformed entry (parser returns
// ok=false) stops that page's iteration early; subsequent leaf pages are
// still visited.
func Walk(t *Tree, component string, parse EntryParser, visit func(entry interface{})) error {
	cur, leaf, err := FirstLeaf(t, component)
	if err != nil {
		return err
	}
	for leaf != nil {
		offset := 8
		for i := 0; i < leaf.Entries; i++ {
			if offset >= len(leaf.Page) {
				break
			}
			entry, newOffset, ok := parse(leaf.Page, offset)
			if !ok {
				break
			}
			visit(entry)
			offset = newOffset
		}
		leaf, err = cur.NextLeaf(component)
		if err != nil {
			return err
		}
	}
	return nil
}
