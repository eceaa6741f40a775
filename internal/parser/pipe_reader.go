package parser

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"sync/atomic"
)

// Line buffer sizes. Java stack traces can produce very long lines; anything
// past maxLineSize is dropped from the delivered line.
const (
	initialLineSize = 64 * 1024
	maxLineSize     = 1024 * 1024
)

// PipeReader reads lines from one subprocess pipe into a Pipeline.
type PipeReader struct {
	reader   io.Reader
	stream   Stream
	pipeline *Pipeline

	bytesRead atomic.Int64
	linesRead atomic.Int64
	truncated atomic.Int64
	err       error
}

// NewPipeReader creates a reader for r, which is typically
// cmd.StdoutPipe() or cmd.StderrPipe().
func NewPipeReader(r io.Reader, stream Stream, pipeline *Pipeline) *PipeReader {
	return &PipeReader{
		reader:   r,
		stream:   stream,
		pipeline: pipeline,
	}
}

// Run reads lines until EOF, then marks its source done in the pipeline.
// A final line without a newline is still delivered. Lines longer than
// maxLineSize are cut to that length and reading carries on.
func (p *PipeReader) Run() {
	defer p.pipeline.SourceDone()

	br := bufio.NewReaderSize(p.reader, initialLineSize)
	for {
		line, n, err := p.readLine(br)
		p.bytesRead.Add(int64(n))
		if n > 0 {
			p.linesRead.Add(1)
			p.pipeline.FeedLine(p.stream, line)
		}
		if err == nil {
			continue
		}
		if !errors.Is(err, io.EOF) {
			p.err = err
			// Keep the pipe drained so the child never blocks on a full pipe
			_, _ = io.Copy(io.Discard, p.reader)
		}
		return
	}
}

// readLine returns the next line without its line ending and the number of
// bytes consumed. The line is capped at maxLineSize.
func (p *PipeReader) readLine(br *bufio.Reader) (string, int, error) {
	var buf []byte
	n := 0
	cut := false
	for {
		frag, err := br.ReadSlice('\n')
		n += len(frag)
		if room := maxLineSize - len(buf); len(frag) > room {
			buf = append(buf, frag[:room]...)
			cut = true
		} else {
			buf = append(buf, frag...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if cut {
			p.truncated.Add(1)
		}
		buf = bytes.TrimSuffix(buf, []byte("\n"))
		buf = bytes.TrimSuffix(buf, []byte("\r"))
		return string(buf), n, err
	}
}

// Err returns the read error which ended Run early, if any.
// Only valid after Run returns.
func (p *PipeReader) Err() error {
	return p.err
}

// Truncated returns how many lines were cut to maxLineSize.
func (p *PipeReader) Truncated() int64 {
	return p.truncated.Load()
}

// Stats returns (bytesRead, linesRead).
func (p *PipeReader) Stats() (bytesRead int64, linesRead int64) {
	return p.bytesRead.Load(), p.linesRead.Load()
}
