// Package input abstracts where user utterances come from. Typed lines and
// speech recognisers look the same to the chat loop: a stream of
// transcripts, of which only final ones are sent to the assistant.
package input

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrAlreadyStarted is returned by Start on a running source.
var ErrAlreadyStarted = errors.New("input source already started")

// Transcript is one recognised utterance. Interim transcripts may be
// replaced by later ones; only Final transcripts should be dispatched.
type Transcript struct {
	Text  string
	Final bool
}

// Source produces transcripts until Stop is called, the context ends or
// the underlying input is exhausted. The channel is closed in every case.
type Source interface {
	Start(ctx context.Context) (<-chan Transcript, error)
	Stop()
}

// Lines reads newline-separated utterances. Every non-blank line becomes a
// final transcript.
type Lines struct {
	reader io.Reader

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	err     error
}

var _ Source = (*Lines)(nil)

func NewLines(r io.Reader) *Lines {
	return &Lines{reader: r}
}

func (l *Lines) Start(ctx context.Context) (<-chan Transcript, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return nil, ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	l.running = true
	l.cancel = cancel
	l.err = nil

	out := make(chan Transcript)
	go l.read(ctx, out)

	return out, nil
}

func (l *Lines) read(ctx context.Context, out chan<- Transcript) {
	defer func() {
		close(out)
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	scanner := bufio.NewScanner(l.reader)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		select {
		case out <- Transcript{Text: text, Final: true}:
		case <-ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil {
		l.mu.Lock()
		l.err = err
		l.mu.Unlock()
	}
}

// Stop ends the source. A read blocked on the underlying reader finishes
// on its own; no further transcripts are delivered.
func (l *Lines) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
	}
}

// Err returns the read error that ended the last run, if any.
func (l *Lines) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}
