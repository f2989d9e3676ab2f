// Package winhlp decodes Microsoft WinHelp (.HLP), its runtime-generated
// .GID companion, and .ANN annotation files. It assembles the internal/*
// component decoders behind a small facade: Open a file, then query its
// topics, context names, keyword indices, bitmaps, and macros.
package winhlp

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	xctx "github.com/go-winhlp/winhlp/internal/context"

	"golang.org/x/sync/errgroup"

	"github.com/go-winhlp/winhlp/internal/annotation"
	"github.com/go-winhlp/winhlp/internal/auxtree"
	"github.com/go-winhlp/winhlp/internal/bitmap"
	"github.com/go-winhlp/winhlp/internal/charset"
	"github.com/go-winhlp/winhlp/internal/container"
	"github.com/go-winhlp/winhlp/internal/font"
	"github.com/go-winhlp/winhlp/internal/keyword"
	"github.com/go-winhlp/winhlp/internal/phrase"
	"github.com/go-winhlp/winhlp/internal/richtext"
	"github.com/go-winhlp/winhlp/internal/sysrecord"
	"github.com/go-winhlp/winhlp/internal/topic"
)

// OpenOptions tunes how Open loads a file. The zero value is the common
// case: non-verbose, everything optional loaded lazily on first access.
type OpenOptions struct {
	// Verbose enables Debugf-gated diagnostics during Open and Topics.
	Verbose bool
}

// Debugf logs only when opts.Verbose is set, matching the teacher's
// breadcrumb-logging convention (a guarded log.Printf, never on by
// default).
func (o OpenOptions) Debugf(format string, args ...interface{}) {
	if o.Verbose {
		log.Printf(format, args...)
	}
}

// Topic is one fully reassembled |TOPIC entry: its displayable spans and
// any hotspots over them.
type Topic struct {
	Number   int32
	Offset   int32
	Title    string
	Spans    []richtext.Span
	Hotspots []richtext.Hotspot
}

// HelpFile is a fully opened WinHelp/GID/ANN file. Required components
// (|SYSTEM) are parsed eagerly in Open; everything else is loaded lazily
// the first time its accessor is called, and cached.
type HelpFile struct {
	opts      OpenOptions
	container *container.Container
	System    *sysrecord.System

	topics     []Topic
	topicsOnce bool

	contextTable *xctx.Table
	idTable      *xctx.IDTable
	tomap        *xctx.Map
	ctxomap      *xctx.OffsetMap
	titles       *auxtree.TitleTable
	macros       *auxtree.MacroTable
	sources      *auxtree.SourceTable
	catalog      *auxtree.Catalog
	fonts        *font.Table
	annotations  *annotation.File
}

// Open parses raw as a WinHelp file (or a .GID/.ANN file, which share the
// same container format). |SYSTEM is required; its absence is an error.
func Open(raw []byte, opts OpenOptions) (*HelpFile, error) {
	c, err := container.Open(raw)
	if err != nil {
		return nil, err
	}
	_, sysPayload, err := c.File("|SYSTEM")
	if err != nil {
		return nil, fmt.Errorf("winhlp: %w", err)
	}
	sys, err := sysrecord.Parse(sysPayload)
	if err != nil {
		return nil, fmt.Errorf("winhlp: %w", err)
	}
	opts.Debugf("opened help file: major=%d minor=%d flags=%#x", sys.Header.Major, sys.Header.Minor, sys.Header.Flags)
	return &HelpFile{opts: opts, container: c, System: sys}, nil
}

func (h *HelpFile) decodeFunc() richtext.Decode {
	enc := h.System.Encoding
	return func(b []byte) string { return charset.Decode(enc, b) }
}

func (h *HelpFile) phraseSource() (*topic.PhraseSource, error) {
	before31 := h.System.Header.Minor <= 16
	if h.container.Has("|PhrIndex") && h.container.Has("|PhrImage") {
		_, idx, err := h.container.File("|PhrIndex")
		if err != nil {
			return nil, err
		}
		_, img, err := h.container.File("|PhrImage")
		if err != nil {
			return nil, err
		}
		tbl, err := phrase.ParseV40(idx, img)
		if err != nil {
			return nil, err
		}
		return &topic.PhraseSource{Table: tbl, Hall: true}, nil
	}
	if h.container.Has("|Phrases") {
		_, raw, err := h.container.File("|Phrases")
		if err != nil {
			return nil, err
		}
		tbl, err := phrase.ParseV31(raw, before31)
		if err != nil {
			return nil, err
		}
		return &topic.PhraseSource{Table: tbl}, nil
	}
	return nil, nil
}

// topicRecord accumulates one topic's link chain while walking |TOPIC.
type topicRecord struct {
	number     int32
	offset     int32
	linkData1  []byte
	linkData2  []byte
}

// Topics decodes every topic in the file, reassembling spans and hotspots
// concurrently across topics via golang.org/x/sync/errgroup: the single
// |TOPIC walk that collects each topic's raw link chain is inherently
// sequential (TOPICLINK records chain through the file), but the
// richtext.Reassemble pass over each topic's already-collected bytes has
// no cross-topic dependency, so it parallelizes cleanly.
func (h *HelpFile) Topics(ctx context.Context) ([]Topic, error) {
	if h.topicsOnce {
		return h.topics, nil
	}
	_, raw, err := h.container.File("|TOPIC")
	if err != nil {
		return nil, fmt.Errorf("winhlp: %w", err)
	}
	phrases, err := h.phraseSource()
	if err != nil {
		return nil, fmt.Errorf("winhlp: %w", err)
	}
	before31 := h.System.Header.Minor <= 16
	lz := h.System.CompressionMode() != sysrecord.ModeUncompressed
	dec := topic.NewDecoder(raw, before31, h.System.CompressionMode().BlockSize(), lz, phrases)

	var records []*topicRecord
	var cur *topicRecord
	topicNum := int32(0)
	err = dec.Walk(func(topicOffset int32, link topic.Link, d1, d2 []byte) error {
		if link.RecordType == topic.RecordTopicHdr {
			topicNum++
			cur = &topicRecord{number: topicNum, offset: topicOffset}
			records = append(records, cur)
			return nil
		}
		if cur == nil {
			topicNum++
			cur = &topicRecord{number: topicNum, offset: topicOffset}
			records = append(records, cur)
		}
		cur.linkData1 = append(cur.linkData1, d1...)
		cur.linkData2 = append(cur.linkData2, d2...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("winhlp: %w", err)
	}

	decode := h.decodeFunc()
	out := make([]Topic, len(records))
	g, _ := errgroup.WithContext(ctx)
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			spans, hotspots := richtext.Reassemble(rec.linkData1, rec.linkData2, decode)
			out[i] = Topic{Number: rec.number, Offset: rec.offset, Spans: spans, Hotspots: hotspots}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	titles, _ := h.titleTable()
	if titles != nil {
		for i := range out {
			if t, ok := titles.Title(out[i].Offset); ok {
				out[i].Title = t
			}
		}
	}

	h.topics = out
	h.topicsOnce = true
	return out, nil
}

// TopicByNumber returns the decoded topic with the given 1-based number.
func (h *HelpFile) TopicByNumber(ctx context.Context, number int32) (Topic, bool, error) {
	topics, err := h.Topics(ctx)
	if err != nil {
		return Topic{}, false, err
	}
	for _, t := range topics {
		if t.Number == number {
			return t, true, nil
		}
	}
	return Topic{}, false, nil
}

// TopicByContextName resolves a context name through |CONTEXT (hash) or
// |TopicId (exact name), returning the matching topic.
func (h *HelpFile) TopicByContextName(ctx context.Context, name string) (Topic, bool, error) {
	id, err := h.idTableLoad()
	if err != nil {
		return Topic{}, false, err
	}
	var offset int32
	var found bool
	if id != nil {
		offset, found = id.TopicOffset(name)
	}
	if !found {
		cx, err := h.contextTableLoad()
		if err != nil {
			return Topic{}, false, err
		}
		if cx != nil {
			off, ok := cx.TopicOffset(xctx.HashContextName(name))
			offset, found = off, ok
		}
	}
	if !found {
		return Topic{}, false, nil
	}
	topics, err := h.Topics(ctx)
	if err != nil {
		return Topic{}, false, err
	}
	for _, t := range topics {
		if t.Offset == offset {
			return t, true, nil
		}
	}
	return Topic{}, false, nil
}

func (h *HelpFile) contextTableLoad() (*xctx.Table, error) {
	if h.contextTable != nil {
		return h.contextTable, nil
	}
	if !h.container.Has("|CONTEXT") {
		return nil, nil
	}
	_, payload, err := h.container.File("|CONTEXT")
	if err != nil {
		return nil, err
	}
	t, err := xctx.Parse(payload)
	if err != nil {
		return nil, err
	}
	h.contextTable = t
	return t, nil
}

func (h *HelpFile) idTableLoad() (*xctx.IDTable, error) {
	if h.idTable != nil {
		return h.idTable, nil
	}
	if !h.container.Has("|TopicId") {
		return nil, nil
	}
	_, payload, err := h.container.File("|TopicId")
	if err != nil {
		return nil, err
	}
	t, err := xctx.ParseIDTable(payload)
	if err != nil {
		return nil, err
	}
	h.idTable = t
	return t, nil
}

func (h *HelpFile) titleTable() (*auxtree.TitleTable, error) {
	if h.titles != nil {
		return h.titles, nil
	}
	if !h.container.Has("|TTLBTREE") {
		return nil, nil
	}
	_, payload, err := h.container.File("|TTLBTREE")
	if err != nil {
		return nil, err
	}
	t, err := auxtree.ParseTitleTable(payload)
	if err != nil {
		return nil, err
	}
	h.titles = t
	return t, nil
}

// TOMap returns the |TOMAP table (HC30's flat topic-number array), if
// present.
func (h *HelpFile) TOMap() (*xctx.Map, error) {
	if h.tomap != nil {
		return h.tomap, nil
	}
	if !h.container.Has("|TOMAP") {
		return nil, nil
	}
	_, payload, err := h.container.File("|TOMAP")
	if err != nil {
		return nil, err
	}
	m, err := xctx.ParseMap(payload)
	if err != nil {
		return nil, err
	}
	h.tomap = m
	return m, nil
}

// ContextOffsetMap returns the supplemented |CTXOMAP table, a flat
// context-number -> topic-offset array some .GID files carry as a faster
// alternative to |CONTEXT.
func (h *HelpFile) ContextOffsetMap() (*xctx.OffsetMap, error) {
	if h.ctxomap != nil {
		return h.ctxomap, nil
	}
	if !h.container.Has("|CTXOMAP") {
		return nil, nil
	}
	_, payload, err := h.container.File("|CTXOMAP")
	if err != nil {
		return nil, err
	}
	m, err := xctx.ParseOffsetMap(payload)
	if err != nil {
		return nil, err
	}
	h.ctxomap = m
	return m, nil
}

// RTFSource returns the original RTF source filename a topic came from
// (|Petra, present only when built with HCRTF's /a option).
func (h *HelpFile) RTFSource(topicOffset int32) (string, bool, error) {
	if h.sources == nil {
		if !h.container.Has("|Petra") {
			return "", false, nil
		}
		_, payload, err := h.container.File("|Petra")
		if err != nil {
			return "", false, err
		}
		t, err := auxtree.ParseSourceTable(payload)
		if err != nil {
			return "", false, err
		}
		h.sources = t
	}
	name, ok := h.sources.RTFSource(topicOffset)
	return name, ok, nil
}

// Catalog returns the |CATALOG table (sequential topic-number -> topic
// offset), if present.
func (h *HelpFile) Catalog() (*auxtree.Catalog, error) {
	if h.catalog != nil {
		return h.catalog, nil
	}
	if !h.container.Has("|CATALOG") {
		return nil, nil
	}
	_, payload, err := h.container.File("|CATALOG")
	if err != nil {
		return nil, err
	}
	c, err := auxtree.ParseCatalog(payload)
	if err != nil {
		return nil, err
	}
	h.catalog = c
	return c, nil
}

// Fonts returns the |FONT face-name/descriptor/style table, if present.
// Descriptors are read in the NEWFONT layout when the |SYSTEM minor
// version is above 16, and in the OLDFONT layout otherwise.
func (h *HelpFile) Fonts() (*font.Table, error) {
	if h.fonts != nil {
		return h.fonts, nil
	}
	if !h.container.Has("|FONT") {
		return nil, nil
	}
	_, payload, err := h.container.File("|FONT")
	if err != nil {
		return nil, err
	}
	t, err := font.Parse(payload, h.System.Header.Minor > 16)
	if err != nil {
		return nil, err
	}
	h.fonts = t
	return t, nil
}

// GetMacroByHash resolves an HCRTF 4.0 [MACROS] keyword hash (|Rose) to its
// opaque macro string and the display title shown in its place in search
// results.
func (h *HelpFile) GetMacroByHash(hash uint32) (auxtree.Macro, bool, error) {
	if h.macros == nil {
		if !h.container.Has("|Rose") {
			return auxtree.Macro{}, false, nil
		}
		_, payload, err := h.container.File("|Rose")
		if err != nil {
			return auxtree.Macro{}, false, err
		}
		t, err := auxtree.ParseMacroTable(payload)
		if err != nil {
			return auxtree.Macro{}, false, err
		}
		h.macros = t
	}
	m, ok := h.macros.ByHash(hash)
	return m, ok, nil
}

// InternalFileNames returns every internal filename the container
// directory holds (e.g. "|SYSTEM", "|TOPIC", "|bm1"), in no particular
// order. Exposed mainly for tooling that walks the raw container, such as
// cmd/winhlp-mount.
func (h *HelpFile) InternalFileNames() []string {
	return h.container.Directory.Names()
}

// InternalFile returns one internal file's payload (FILEHEADER already
// stripped), verbatim.
func (h *HelpFile) InternalFile(name string) ([]byte, error) {
	_, payload, err := h.container.File(name)
	return payload, err
}

// ExtractBitmap decodes the nth (0-based, in directory order) |bmN
// internal file.
func (h *HelpFile) ExtractBitmap(index int) (*bitmap.Picture, error) {
	names := bitmapNames(h.container.Directory.Names())
	if index < 0 || index >= len(names) {
		return nil, fmt.Errorf("winhlp: bitmap index %d out of range (have %d)", index, len(names))
	}
	_, payload, err := h.container.File(names[index])
	if err != nil {
		return nil, err
	}
	return bitmap.Parse(payload)
}

func bitmapNames(all []string) []string {
	var out []string
	for _, n := range all {
		if strings.HasPrefix(n, "|bm") {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// AllHotspots returns every hotspot across every decoded topic, with
// SpanIndex left relative to its own topic (not renumbered globally).
func (h *HelpFile) AllHotspots(ctx context.Context) (map[int32][]richtext.Hotspot, error) {
	topics, err := h.Topics(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int32][]richtext.Hotspot, len(topics))
	for _, t := range topics {
		if len(t.Hotspots) > 0 {
			out[t.Number] = t.Hotspots
		}
	}
	return out, nil
}

// SearchKeyword looks up a keyword in the footnote-letter index (e.g. "K"
// for the standard keyword index, "A" for A-links), returning the topic
// offsets it resolves to. Footnote letters 'A'-'Z' map to |xWBTREE etc
// where x is the letter; lowercase letters are a file's own extension
// convention and are passed through unchanged.
func (h *HelpFile) SearchKeyword(footnote byte, kw string) ([]int32, error) {
	btreeName := "|" + string(footnote) + "WBTREE"
	dataName := "|" + string(footnote) + "WDATA"
	if !h.container.Has(btreeName) || !h.container.Has(dataName) {
		return nil, nil
	}
	_, btPayload, err := h.container.File(btreeName)
	if err != nil {
		return nil, err
	}
	bt, err := keyword.ParseBTree(btPayload)
	if err != nil {
		return nil, err
	}
	_, dataPayload, err := h.container.File(dataName)
	if err != nil {
		return nil, err
	}
	data, err := keyword.ParseData(dataPayload)
	if err != nil {
		return nil, err
	}
	if bt.IsGID {
		for _, e := range bt.GIDEntries {
			if e.Keyword == kw {
				offsets := make([]int32, 0, len(e.Records))
				for _, r := range e.Records {
					offsets = append(offsets, r.TopicOffset)
				}
				return offsets, nil
			}
		}
		return nil, nil
	}
	for _, e := range bt.Entries {
		if e.Keyword == kw {
			return data.Range(e.KWDataOffset, int(e.Count)), nil
		}
	}
	return nil, nil
}

// SearchAllIndices runs SearchKeyword concurrently across every footnote
// letter the file actually carries a |xWBTREE for, collecting results by
// letter. Like Topics, the fan-out is over independent read-only work:
// each letter's B+ tree is looked up and walked without touching any
// other letter's state.
func (h *HelpFile) SearchAllIndices(ctx context.Context, kw string) (map[byte][]int32, error) {
	var letters []byte
	for c := byte('A'); c <= 'Z'; c++ {
		if h.container.Has("|" + string(c) + "WBTREE") {
			letters = append(letters, c)
		}
	}
	for c := byte('a'); c <= 'z'; c++ {
		if h.container.Has("|" + string(c) + "WBTREE") {
			letters = append(letters, c)
		}
	}

	results := make(map[byte][]int32, len(letters))
	var mu sync.Mutex
	g, _ := errgroup.WithContext(ctx)
	for _, c := range letters {
		c := c
		g.Go(func() error {
			offsets, err := h.SearchKeyword(c, kw)
			if err != nil {
				return err
			}
			mu.Lock()
			results[c] = offsets
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Annotations returns the user annotations attached to this file, parsed
// from the raw bytes of a companion .ANN file on every call.
// Callers pass the .ANN file's bytes directly (see annotation.Parse); the
// HelpFile itself never assumes a sibling .ANN file exists on disk, since
// this package does no filesystem I/O.
func (h *HelpFile) Annotations(annContainerRaw []byte) (*annotation.File, error) {
	c, err := container.Open(annContainerRaw)
	if err != nil {
		return nil, err
	}
	f, err := annotation.Parse(c)
	if err != nil {
		return nil, err
	}
	h.annotations = f
	return f, nil
}

// ContextName resolves a topic offset back to its context name through
// |TopicId (exact, /a-built files). A file without |TopicId, or an offset
// missing from it, reports ok=false; no |CONTEXT hash is reversed here.
func (h *HelpFile) ContextName(topicOffset int32) (string, bool, error) {
	id, err := h.idTableLoad()
	if err != nil {
		return "", false, err
	}
	if id != nil {
		if name, ok := id.ContextName(topicOffset); ok {
			return name, true, nil
		}
	}
	return "", false, nil
}
