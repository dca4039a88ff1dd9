package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// LogOptions configures the §4.F logs(service, {tail, follow}) operation.
type LogOptions struct {
	Tail   int  // 0 means "whole file"
	Follow bool
}

// Logs streams the service's log file to w. With Follow set it blocks,
// writing appended bytes as they arrive, until ctx is cancelled.
func (s *Supervisor) Logs(ctx context.Context, name Name, opts LogOptions, w io.Writer) error {
	if _, err := s.spec(name); err != nil {
		return err
	}
	path := s.logPath(name)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if opts.Tail > 0 {
		text, err := tailLines(path, opts.Tail)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, text); err != nil {
			return err
		}
		if !opts.Follow {
			return nil
		}
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			return err
		}
	} else if !opts.Follow {
		_, err := io.Copy(w, f)
		return err
	} else {
		if _, err := io.Copy(w, f); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for {
				n, err := f.Read(buf)
				if n > 0 {
					if _, werr := w.Write(buf[:n]); werr != nil {
						return werr
					}
				}
				if err == io.EOF {
					break
				}
				if err != nil {
					return err
				}
			}
		}
	}
}

// tailLines returns the last n lines of the file at path, used both by
// logs(tail=N) and by spawn-failure diagnostics.
func tailLines(path string, n int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return strings.Join(lines, "\n") + "\n", nil
}
