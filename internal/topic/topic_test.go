package topic

import (
	"encoding/binary"
	"testing"
)

// buildBlock assembles one topic block (12-byte TOPICBLOCKHEADER + raw
// link bytes, padded to blockSize) containing a single TOPICLINK.
func buildBlock(blockSize int, recordType RecordType, linkData1, linkData2 []byte) []byte {
	dataLen1 := linkHeaderSize + len(linkData1)
	totalBlockSize := dataLen1 + len(linkData2)

	link := make([]byte, linkHeaderSize)
	binary.LittleEndian.PutUint32(link[0:4], uint32(totalBlockSize))
	binary.LittleEndian.PutUint32(link[4:8], uint32(len(linkData2)))
	binary.LittleEndian.PutUint32(link[8:12], 0)
	binary.LittleEndian.PutUint32(link[12:16], 0) // next_block = 0 -> stop
	binary.LittleEndian.PutUint32(link[16:20], uint32(dataLen1))
	link[20] = byte(recordType)

	body := append(link, linkData1...)
	body = append(body, linkData2...)

	header := make([]byte, blockHeaderSize)
	block := append(header, body...)
	for len(block) < blockSize {
		block = append(block, 0)
	}
	return block
}

func TestWalkSingleUncompressedLink(t *testing.T) {
	blockSize := 2048
	text := []byte("hello\x00")
	blockRaw := buildBlock(blockSize, RecordDisplay, nil, text)

	d := NewDecoder(blockRaw, false, blockSize, false, nil)
	var gotText []byte
	var gotType RecordType
	err := d.Walk(func(_ int32, link Link, l1, l2 []byte) error {
		gotType = link.RecordType
		gotText = l2
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if gotType != RecordDisplay {
		t.Errorf("RecordType = %v", gotType)
	}
	if string(gotText) != "hello\x00" {
		t.Errorf("LinkData2 = %q", gotText)
	}
}

func TestParseHeader31(t *testing.T) {
	data := make([]byte, 28)
	binary.LittleEndian.PutUint32(data[12:16], 42) // topic_num
	h, err := ParseHeader31(data)
	if err != nil {
		t.Fatal(err)
	}
	if h.TopicNum != 42 {
		t.Errorf("TopicNum = %d, want 42", h.TopicNum)
	}
}

func TestParseHeader30(t *testing.T) {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint16(data[8:10], 7) // next_topic_num
	h, err := ParseHeader30(data)
	if err != nil {
		t.Fatal(err)
	}
	if h.NextTopicNum != 7 {
		t.Errorf("NextTopicNum = %d, want 7", h.NextTopicNum)
	}
}

func TestWalkStopsOnMalformedLink(t *testing.T) {
	blockSize := 64
	block := make([]byte, blockSize)
	// data_len1 = 5, which is < linkHeaderSize(21): malformed.
	binary.LittleEndian.PutUint32(block[blockHeaderSize+16:blockHeaderSize+20], 5)
	binary.LittleEndian.PutUint32(block[blockHeaderSize+0:blockHeaderSize+4], 30)

	d := NewDecoder(block, false, blockSize, false, nil)
	calls := 0
	if err := d.Walk(func(int32, Link, []byte, []byte) error { calls++; return nil }); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Errorf("expected no visits for malformed link, got %d", calls)
	}
}
