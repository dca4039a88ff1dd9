package dockeradapter

import (
	"bytes"
	"encoding/binary"
	"io"
)

// demuxExecOutput separates the Docker multiplexed stdout/stderr stream
// produced by a non-TTY exec attach into two buffers. In TTY mode the
// engine does not multiplex — both streams arrive merged on stdout,
// matching the "TTY mode merges streams" requirement in §4.B.
func demuxExecOutput(r io.Reader, tty bool) (stdout string, stderr string, err error) {
	if tty {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, r); err != nil {
			return "", "", err
		}
		return buf.String(), "", nil
	}

	var outBuf, errBuf bytes.Buffer
	header := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return "", "", err
		}
		size := binary.BigEndian.Uint32(header[4:8])
		target := &outBuf
		if header[0] == 2 {
			target = &errBuf
		}
		if _, err := io.CopyN(target, r, int64(size)); err != nil {
			if err == io.EOF {
				break
			}
			return "", "", err
		}
	}
	return outBuf.String(), errBuf.String(), nil
}
