package lame

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
)

type commandExecutor struct{}

// Run merges stdout and stderr into one pipe so status lines keep their
// order, then scans them with ScanStatusLines.
func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(pr)
		scanner.Split(ScanStatusLines)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
		_, _ = io.Copy(io.Discard, pr)
		done <- scanner.Err()
	}()

	waitErr := cmd.Wait()
	_ = pw.Close()
	scanErr := <-done
	if waitErr != nil {
		return fmt.Errorf("wait command: %w", waitErr)
	}
	if scanErr != nil {
		return fmt.Errorf("scan output: %w", scanErr)
	}
	return nil
}

// ScanStatusLines is a bufio.SplitFunc that treats "\r", "\n" and "\r\n" as
// line terminators. LAME redraws its progress line with bare carriage
// returns.
func ScanStatusLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance = i + 1
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			advance++
		} else if data[i] == '\r' && i+1 == len(data) && !atEOF {
			// Wait for more data to know whether "\n" follows.
			return 0, nil, nil
		}
		return advance, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
