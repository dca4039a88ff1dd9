package dockeradapter

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func frame(stream byte, payload string) []byte {
	header := make([]byte, 8)
	header[0] = stream
	binary.BigEndian.PutUint32(header[4:8], uint32(len(payload)))
	return append(header, []byte(payload)...)
}

func TestDemuxExecOutputSeparatesStreams(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frame(1, "hello stdout\n"))
	buf.Write(frame(2, "oops stderr\n"))

	stdout, stderr, err := demuxExecOutput(&buf, false)
	if err != nil {
		t.Fatalf("demuxExecOutput: %v", err)
	}
	if stdout != "hello stdout\n" {
		t.Fatalf("stdout = %q", stdout)
	}
	if stderr != "oops stderr\n" {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestDemuxExecOutputTTYMerges(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("merged output\n")

	stdout, stderr, err := demuxExecOutput(&buf, true)
	if err != nil {
		t.Fatalf("demuxExecOutput: %v", err)
	}
	if stdout != "merged output\n" {
		t.Fatalf("stdout = %q", stdout)
	}
	if stderr != "" {
		t.Fatalf("stderr = %q, want empty in tty mode", stderr)
	}
}
