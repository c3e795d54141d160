package net

import (
	"bytes"
	"testing"

	"github.com/bossraid/server/internal/net/packet"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{0x01, 'h', 'e', 'r', 'o', 0x00}

	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload = %v, want %v", got, payload)
	}
}

func TestReadFrameRejectsInvalidLength(t *testing.T) {
	// Header lengths 0..2 leave no room for a payload.
	for _, n := range []byte{0, 1, 2} {
		buf := bytes.NewReader([]byte{n, 0})
		if _, err := ReadFrame(buf); err == nil {
			t.Fatalf("length %d accepted", n)
		}
	}
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	// Header promises 8 payload bytes, stream only carries 3.
	buf := bytes.NewReader([]byte{10, 0, 0xaa, 0xbb, 0xcc})
	if _, err := ReadFrame(buf); err == nil {
		t.Fatal("truncated frame accepted")
	}
}

func TestReadFrameEmptyStream(t *testing.T) {
	if _, err := ReadFrame(bytes.NewReader(nil)); err == nil {
		t.Fatal("empty stream accepted")
	}
}

func TestPacketReaderWriter(t *testing.T) {
	w := packet.NewWriter(packet.S_WELCOME)
	w.WriteS("2f0a4c1e")
	w.WriteQ(0x0000000100000002)
	w.WriteD(-42)
	w.WriteH(9601)
	w.WriteC(7)

	raw := w.Bytes()
	r := packet.NewReader(raw)
	if r.Opcode() != packet.S_WELCOME {
		t.Fatalf("opcode = %#x", r.Opcode())
	}
	if s := r.ReadS(); s != "2f0a4c1e" {
		t.Fatalf("ReadS = %q", s)
	}
	if q := r.ReadQ(); q != 0x0000000100000002 {
		t.Fatalf("ReadQ = %#x", q)
	}
	if d := r.ReadD(); d != -42 {
		t.Fatalf("ReadD = %d", d)
	}
	if h := r.ReadH(); h != 9601 {
		t.Fatalf("ReadH = %d", h)
	}
	if c := r.ReadC(); c != 7 {
		t.Fatalf("ReadC = %d", c)
	}
	// Reads past the end yield zero values rather than panicking.
	if c := r.ReadC(); c != 0 {
		t.Fatalf("past-end ReadC = %d", c)
	}
}
