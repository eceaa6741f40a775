// Package parser demultiplexes a subprocess's stdout and stderr into a
// single ordered stream of lines.
//
// Two-Layer Architecture:
//
//	Layer 1 (Readers): one PipeReader per stream, feeding a shared channel
//	Layer 2 (Handler): a single consumer which calls the LineHandler
//
// Unlike a metrics tap, every line matters here (the report line decides
// the outcome of a run), so readers block rather than drop when the
// handler falls behind. Lines of one stream keep their order and handler
// calls never overlap.
package parser

import (
	"sync"
	"sync/atomic"
)

// Stream identifies which output stream a line came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	switch s {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return "unknown"
	}
}

// Line is one complete line of subprocess output, without its newline.
type Line struct {
	Stream Stream
	Text   string
}

// LineHandler receives every line of output.
// Calls are serialized; HandleLine is never called concurrently.
type LineHandler interface {
	HandleLine(stream Stream, text string)
}

// HandlerFunc adapts a function to LineHandler.
type HandlerFunc func(stream Stream, text string)

// HandleLine calls f.
func (f HandlerFunc) HandleLine(stream Stream, text string) {
	f(stream, text)
}

// Pipeline funnels lines from several sources into one consumer.
type Pipeline struct {
	lineChan  chan Line
	pending   atomic.Int32 // sources which have not finished
	closeOnce sync.Once    // Ensures CloseChannel() is idempotent

	linesRead    [2]atomic.Int64
	linesHandled atomic.Int64
}

// NewPipeline creates a pipeline which closes after sources calls to
// SourceDone. bufferSize bounds how far readers may run ahead of the handler.
func NewPipeline(sources, bufferSize int) *Pipeline {
	if bufferSize < 1 {
		bufferSize = 256
	}
	p := &Pipeline{lineChan: make(chan Line, bufferSize)}
	p.pending.Store(int32(sources))
	if sources <= 0 {
		p.CloseChannel()
	}
	return p
}

// FeedLine queues a line, blocking while the channel is full.
func (p *Pipeline) FeedLine(stream Stream, text string) {
	if stream == Stdout || stream == Stderr {
		p.linesRead[stream].Add(1)
	}
	p.lineChan <- Line{Stream: stream, Text: text}
}

// SourceDone records that one source reached EOF. The channel is closed
// when the last source finishes.
func (p *Pipeline) SourceDone() {
	if p.pending.Add(-1) == 0 {
		p.CloseChannel()
	}
}

// CloseChannel closes the line channel, signaling the handler to stop.
// No FeedLine calls may follow. Safe to call multiple times.
func (p *Pipeline) CloseChannel() {
	p.closeOnce.Do(func() {
		close(p.lineChan)
	})
}

// RunParser is Layer 2: delivers lines to h until every source is done.
//
// MUST run in exactly one goroutine.
func (p *Pipeline) RunParser(h LineHandler) {
	for line := range p.lineChan {
		h.HandleLine(line.Stream, line.Text)
		p.linesHandled.Add(1)
	}
}

// Stats returns lines read from each stream and lines handled.
func (p *Pipeline) Stats() (stdout, stderr, handled int64) {
	return p.linesRead[Stdout].Load(),
		p.linesRead[Stderr].Load(),
		p.linesHandled.Load()
}

// Discard is a LineHandler which ignores every line.
var Discard LineHandler = HandlerFunc(func(Stream, string) {})
