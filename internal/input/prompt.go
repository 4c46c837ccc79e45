package input

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/manifoldco/promptui"
)

// Prompter reads one line from the terminal. promptui.Prompt implements it.
type Prompter interface {
	Run() (string, error)
}

// Prompt is an interactive terminal source. Interrupt or EOF ends it, and
// so does any other prompter error, which is then reported by Err.
type Prompt struct {
	prompter Prompter

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	err     error
}

var _ Source = (*Prompt)(nil)

// NewPrompt creates a terminal source with the given label.
func NewPrompt(label string) *Prompt {
	return NewPromptWith(&promptui.Prompt{Label: label})
}

func NewPromptWith(p Prompter) *Prompt {
	return &Prompt{prompter: p}
}

func (p *Prompt) Start(ctx context.Context) (<-chan Transcript, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil, ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.err = nil

	out := make(chan Transcript)
	go p.loop(ctx, out)

	return out, nil
}

func (p *Prompt) loop(ctx context.Context, out chan<- Transcript) {
	defer func() {
		close(out)
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	for ctx.Err() == nil {
		line, err := p.prompter.Run()
		if err != nil {
			if !errors.Is(err, promptui.ErrInterrupt) && !errors.Is(err, promptui.ErrEOF) && !errors.Is(err, promptui.ErrAbort) {
				p.mu.Lock()
				p.err = err
				p.mu.Unlock()
			}
			return
		}

		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}

		select {
		case out <- Transcript{Text: text, Final: true}:
		case <-ctx.Done():
			return
		}
	}
}

func (p *Prompt) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
}

// Err returns the prompter error that ended the last run, if any.
func (p *Prompt) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
