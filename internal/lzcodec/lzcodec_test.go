package lzcodec

import (
	"bytes"
	"testing"
)

func TestDecompressRunLength(t *testing.T) {
	// +3 'A' (positive run: emit 'A' x3), then -2 followed by two literal bytes.
	data := []byte{3, 'A', 0xFE /* -2 */, 'x', 'y'}
	got, err := DecompressRunLength(data)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte("AAAxy")
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDecompressRunLengthTruncated(t *testing.T) {
	// -3 but only one literal byte follows.
	data := []byte{0xFD, 'x'}
	if _, err := DecompressRunLength(data); err == nil {
		t.Fatal("expected TruncatedRecord")
	}
}

func TestDecompressLZ77Literals(t *testing.T) {
	// control byte 0x00: all eight tokens are literals, but input exhausted
	// after 3 literal bytes.
	data := []byte{0x00, 'a', 'b', 'c'}
	got := DecompressLZ77(data)
	if !bytes.Equal(got, []byte("abc")) {
		t.Errorf("got %q, want %q", got, "abc")
	}
}

func TestDecompressLZ77BackReference(t *testing.T) {
	// Emit 'a','b','c' as literals (control bit 0 for first 3 tokens), then a
	// back-reference copying 3 bytes from 3 back (== "abc" again).
	// length nibble = len-3 = 0; back12 = 2 (pos-back-1 = 3-2-1 = 0 -> "abc" start)
	word := uint16(0)<<12 | uint16(2)
	data := []byte{0x08, 'a', 'b', 'c', byte(word), byte(word >> 8)}
	got := DecompressLZ77(data)
	if !bytes.Equal(got, []byte("abcabc")) {
		t.Errorf("got %q, want %q", got, "abcabc")
	}
}

func TestDecodePhraseStream(t *testing.T) {
	phrases := [][]byte{[]byte("hello"), []byte("world")}
	lookup := func(i int) ([]byte, bool) {
		if i < 0 || i >= len(phrases) {
			return nil, false
		}
		return phrases[i], true
	}
	// code = b*256-256+next; want phrase index 0, even code (no space).
	// b=1,next=0 -> code = 256-256+0 = 0 -> idx 0, even.
	data := []byte{1, 0}
	got := DecodePhraseStream(data, lookup)
	if string(got) != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
	// b=1,next=1 -> code=1 -> idx 0, odd -> trailing space.
	got = DecodePhraseStream([]byte{1, 1}, lookup)
	if string(got) != "hello " {
		t.Errorf("got %q, want %q", got, "hello ")
	}
	// passthrough byte
	got = DecodePhraseStream([]byte{20}, lookup)
	if !bytes.Equal(got, []byte{20}) {
		t.Errorf("got %v, want passthrough", got)
	}
}

func TestDecodeHallStream(t *testing.T) {
	phrases := [][]byte{[]byte("one"), []byte("two")}
	lookup := func(i int) ([]byte, bool) {
		if i < 0 || i >= len(phrases) {
			return nil, false
		}
		return phrases[i], true
	}
	// even byte 0x00 -> phrase 0
	got := DecodeHallStream([]byte{0x00}, lookup)
	if string(got) != "one" {
		t.Errorf("got %q, want one", got)
	}
	// 0111 pattern, x=0x07 -> (x>>4)+1 = 1 space
	got = DecodeHallStream([]byte{0x07}, lookup)
	if got[0] != ' ' || len(got) != 1 {
		t.Errorf("got %v, want one space", got)
	}
	// 1111 pattern, x=0x0F -> 1 NUL
	got = DecodeHallStream([]byte{0x0F}, lookup)
	if len(got) != 1 || got[0] != 0 {
		t.Errorf("got %v, want one NUL", got)
	}
	// 011 pattern, x=0x03 -> copy (x>>3)+1 = 1 byte
	got = DecodeHallStream([]byte{0x03, 'Z'}, lookup)
	if string(got) != "Z" {
		t.Errorf("got %q, want Z", got)
	}
}
