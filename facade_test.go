package winhlp

import (
	"context"
	"encoding/binary"
	"testing"
)

// fileEntry is one internal file to place in a synthetic container.
type fileEntry struct {
	name    string
	payload []byte
}

// buildContainer assembles a minimal valid WinHelp container holding the
// given internal files: a 16-byte HelpHeader, a one-page directory B+ tree,
// and each file's FILEHEADER+payload in order. Mirrors
// internal/container/container_test.go's buildFile, generalized to more
// than one internal file.
func buildContainer(t *testing.T, entries []fileEntry) []byte {
	t.Helper()

	const dirStart = 16
	const fileHeaderSize = 9
	const pageSize = 4096

	offsets := make([]int32, len(entries))
	offset := int32(dirStart + fileHeaderSize + 38 + pageSize)
	for i, e := range entries {
		offsets[i] = offset
		offset += int32(fileHeaderSize + len(e.payload))
	}

	page := make([]byte, pageSize)
	binary.LittleEndian.PutUint16(page[2:4], uint16(len(entries)))
	binary.LittleEndian.PutUint16(page[6:8], 0xFFFF)
	pos := 8
	for i, e := range entries {
		copy(page[pos:], e.name)
		pos += len(e.name)
		page[pos] = 0
		pos++
		binary.LittleEndian.PutUint32(page[pos:pos+4], uint32(offsets[i]))
		pos += 4
	}

	btreeHeader := make([]byte, 38)
	binary.LittleEndian.PutUint16(btreeHeader[0:2], 0x293B)
	binary.LittleEndian.PutUint16(btreeHeader[4:6], pageSize)
	binary.LittleEndian.PutUint16(btreeHeader[26:28], 0)
	binary.LittleEndian.PutUint16(btreeHeader[30:32], 1)
	binary.LittleEndian.PutUint16(btreeHeader[32:34], 1)
	binary.LittleEndian.PutUint32(btreeHeader[34:38], uint32(len(entries)))

	dirBody := append(btreeHeader, page...)
	dirFileHeader := make([]byte, fileHeaderSize)
	binary.LittleEndian.PutUint32(dirFileHeader[0:4], uint32(len(dirBody)))
	binary.LittleEndian.PutUint32(dirFileHeader[4:8], uint32(len(dirBody)))
	dirFileHeader[8] = 4

	raw := make([]byte, 16)
	binary.LittleEndian.PutUint32(raw[0:4], 0x00035F3F)
	binary.LittleEndian.PutUint32(raw[4:8], dirStart)
	binary.LittleEndian.PutUint32(raw[8:12], 0xFFFFFFFF)
	raw = append(raw, dirFileHeader...)
	raw = append(raw, dirBody...)

	for i, e := range entries {
		if int32(len(raw)) != offsets[i] {
			t.Fatalf("computed offset %d for %q does not match layout %d", offsets[i], e.name, len(raw))
		}
		fh := make([]byte, fileHeaderSize)
		binary.LittleEndian.PutUint32(fh[0:4], uint32(len(e.payload)))
		binary.LittleEndian.PutUint32(fh[4:8], uint32(len(e.payload)))
		fh[8] = 4
		raw = append(raw, fh...)
		raw = append(raw, e.payload...)
	}

	binary.LittleEndian.PutUint32(raw[12:16], uint32(len(raw)))
	return raw
}

// buildSystemPayload builds a |SYSTEM payload using the WinHelp-3.0 bare
// title scheme (minor <= 16): 12-byte SystemHeader followed by a
// NUL-terminated title.
func buildSystemPayload(minor, major, flags uint16, title string) []byte {
	h := make([]byte, 12)
	binary.LittleEndian.PutUint16(h[0:2], 0x036C)
	binary.LittleEndian.PutUint16(h[2:4], minor)
	binary.LittleEndian.PutUint16(h[4:6], major)
	binary.LittleEndian.PutUint32(h[6:10], 0)
	binary.LittleEndian.PutUint16(h[10:12], flags)
	h = append(h, []byte(title)...)
	h = append(h, 0)
	return h
}

// buildTopicPayload builds a single uncompressed 2048-byte |TOPIC block
// holding one TOPICLINK: RecordType 0x20 (display), linkData1 a single
// 0xFF end-of-stream command, linkData2 the given NUL-terminated text.
// Mirrors internal/topic/topic_test.go's buildBlock.
func buildTopicPayload(text string) []byte {
	const blockSize = 2048
	const blockHeaderSize = 12
	const linkHeaderSize = 21

	linkData1 := []byte{0xFF}
	linkData2 := append([]byte(text), 0)

	dataLen1 := linkHeaderSize + len(linkData1)
	totalBlockSize := dataLen1 + len(linkData2)

	link := make([]byte, linkHeaderSize)
	binary.LittleEndian.PutUint32(link[0:4], uint32(totalBlockSize))
	binary.LittleEndian.PutUint32(link[4:8], uint32(len(linkData2)))
	binary.LittleEndian.PutUint32(link[8:12], 0)
	binary.LittleEndian.PutUint32(link[12:16], 0) // next_block = 0 -> stop
	binary.LittleEndian.PutUint32(link[16:20], uint32(dataLen1))
	link[20] = 0x20 // RecordDisplay

	body := append(link, linkData1...)
	body = append(body, linkData2...)

	header := make([]byte, blockHeaderSize)
	block := append(header, body...)
	for len(block) < blockSize {
		block = append(block, 0)
	}
	return block
}

func buildTestHelpFile(t *testing.T) []byte {
	t.Helper()
	return buildContainer(t, []fileEntry{
		{name: "|SYSTEM", payload: buildSystemPayload(15, 1, 0, "Test Help")},
		{name: "|TOPIC", payload: buildTopicPayload("hello")},
	})
}

func TestOpenReadsSystemHeader(t *testing.T) {
	raw := buildTestHelpFile(t)
	h, err := Open(raw, OpenOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if h.System.Title != "Test Help" {
		t.Errorf("Title = %q, want %q", h.System.Title, "Test Help")
	}
	if h.System.Header.Minor != 15 {
		t.Errorf("Minor = %d, want 15", h.System.Header.Minor)
	}
}

func TestOpenMissingSystemFails(t *testing.T) {
	raw := buildContainer(t, []fileEntry{{name: "|TOPIC", payload: buildTopicPayload("hi")}})
	if _, err := Open(raw, OpenOptions{}); err == nil {
		t.Fatal("expected error opening a file with no |SYSTEM")
	}
}

func TestTopicsReassemblesText(t *testing.T) {
	raw := buildTestHelpFile(t)
	h, err := Open(raw, OpenOptions{})
	if err != nil {
		t.Fatal(err)
	}
	topics, err := h.Topics(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(topics) != 1 {
		t.Fatalf("got %d topics, want 1", len(topics))
	}
	if len(topics[0].Spans) != 1 || topics[0].Spans[0].Text != "hello" {
		t.Errorf("Spans = %+v, want a single \"hello\" span", topics[0].Spans)
	}
	if topics[0].Number != 1 {
		t.Errorf("Number = %d, want 1", topics[0].Number)
	}
}

func TestTopicsIsCached(t *testing.T) {
	raw := buildTestHelpFile(t)
	h, err := Open(raw, OpenOptions{})
	if err != nil {
		t.Fatal(err)
	}
	first, err := h.Topics(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := h.Topics(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Errorf("cached Topics() length changed between calls")
	}
}

func TestTopicByNumber(t *testing.T) {
	raw := buildTestHelpFile(t)
	h, err := Open(raw, OpenOptions{})
	if err != nil {
		t.Fatal(err)
	}
	topic, ok, err := h.TopicByNumber(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected topic 1 to be found")
	}
	if topic.Spans[0].Text != "hello" {
		t.Errorf("Text = %q", topic.Spans[0].Text)
	}
	if _, ok, err := h.TopicByNumber(context.Background(), 99); err != nil || ok {
		t.Errorf("TopicByNumber(99) = ok=%v err=%v, want ok=false err=nil", ok, err)
	}
}

func TestSearchKeywordMissingIndexReturnsNil(t *testing.T) {
	raw := buildTestHelpFile(t)
	h, err := Open(raw, OpenOptions{})
	if err != nil {
		t.Fatal(err)
	}
	offsets, err := h.SearchKeyword('K', "anything")
	if err != nil {
		t.Fatal(err)
	}
	if offsets != nil {
		t.Errorf("offsets = %v, want nil for a file with no |KWBTREE", offsets)
	}
}

func TestExtractBitmapOutOfRange(t *testing.T) {
	raw := buildTestHelpFile(t)
	h, err := Open(raw, OpenOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.ExtractBitmap(0); err == nil {
		t.Fatal("expected error extracting a bitmap from a file with none")
	}
}

func TestOptionalComponentsAbsentReturnNil(t *testing.T) {
	raw := buildTestHelpFile(t)
	h, err := Open(raw, OpenOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if c, err := h.Catalog(); err != nil || c != nil {
		t.Errorf("Catalog() = %v, %v, want nil, nil", c, err)
	}
	if f, err := h.Fonts(); err != nil || f != nil {
		t.Errorf("Fonts() = %v, %v, want nil, nil", f, err)
	}
	if m, err := h.TOMap(); err != nil || m != nil {
		t.Errorf("TOMap() = %v, %v, want nil, nil", m, err)
	}
}

func TestAnnotationsParsesSeparateContainer(t *testing.T) {
	raw := buildTestHelpFile(t)
	h, err := Open(raw, OpenOptions{})
	if err != nil {
		t.Fatal(err)
	}

	linkPayload := make([]byte, 2+12)
	binary.LittleEndian.PutUint16(linkPayload[0:2], 1)
	binary.LittleEndian.PutUint32(linkPayload[2:6], 500)
	binary.LittleEndian.PutUint32(linkPayload[6:10], 0)
	binary.LittleEndian.PutUint32(linkPayload[10:14], 0)

	annRaw := buildContainer(t, []fileEntry{
		{name: "@LINK", payload: linkPayload},
		{name: "500!0", payload: []byte("needs more detail")},
	})

	ann, err := h.Annotations(annRaw)
	if err != nil {
		t.Fatal(err)
	}
	if len(ann.Links) != 1 || ann.Links[0].TopicOffset != 500 {
		t.Fatalf("Links = %+v", ann.Links)
	}
	if ann.Annotations[500] != "needs more detail" {
		t.Errorf("Annotations[500] = %q", ann.Annotations[500])
	}
}
