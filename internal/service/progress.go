package service

import (
	"context"
	"log"
	"sync"
	"time"
)

// ProgressMessage is the single user-facing chat message a pipeline
// edits in place as it moves through its stages. While a stage is in
// flight the message is animated on a fixed tick; the animation is
// cancelled on every transition. Chat failures are logged and never
// abort the pipeline. A zero chat id produces a silent no-op reporter.
type ProgressMessage struct {
	chat      ChatMessenger
	chatID    int64
	messageID int64
	tick      time.Duration

	mu       sync.Mutex
	text     string
	stopAnim chan struct{}
	finished bool
}

// NewProgressMessage sends the initial message and returns the handle
func NewProgressMessage(ctx context.Context, chat ChatMessenger, chatID int64, tick time.Duration, initial string) *ProgressMessage {
	p := &ProgressMessage{
		chat:   chat,
		chatID: chatID,
		tick:   tick,
		text:   initial,
	}
	if chatID == 0 {
		return p
	}

	messageID, err := chat.SendMessage(ctx, chatID, initial)
	if err != nil {
		log.Printf("[Progress] Failed to send progress message: %v", err)
		p.chatID = 0 // degrade to no-op
		return p
	}
	p.messageID = messageID
	return p
}

// SetStage replaces the message text and restarts the animation
func (p *ProgressMessage) SetStage(ctx context.Context, text string) {
	p.mu.Lock()
	if p.finished {
		p.mu.Unlock()
		return
	}
	p.stopAnimLocked()
	p.text = text
	stop := make(chan struct{})
	p.stopAnim = stop
	p.mu.Unlock()

	p.edit(ctx, text)

	if p.chatID == 0 || p.tick <= 0 {
		return
	}
	go p.animate(stop)
}

// Abandon stops the animation without a final edit. Used when a newer
// deployment takes over the app name and this pipeline must go quiet.
func (p *ProgressMessage) Abandon() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.finished = true
	p.stopAnimLocked()
}

// Finish cancels the animation and writes the final text. Further
// calls are no-ops.
func (p *ProgressMessage) Finish(ctx context.Context, text string) {
	p.mu.Lock()
	if p.finished {
		p.mu.Unlock()
		return
	}
	p.finished = true
	p.stopAnimLocked()
	p.text = text
	p.mu.Unlock()

	p.edit(ctx, text)
}

func (p *ProgressMessage) stopAnimLocked() {
	if p.stopAnim != nil {
		close(p.stopAnim)
		p.stopAnim = nil
	}
}

func (p *ProgressMessage) animate(stop chan struct{}) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	dots := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			dots = dots%3 + 1
			p.mu.Lock()
			text := p.text
			finished := p.finished
			p.mu.Unlock()
			if finished {
				return
			}
			suffix := ""
			for i := 0; i < dots; i++ {
				suffix += "."
			}
			p.edit(context.Background(), text+suffix)
		}
	}
}

func (p *ProgressMessage) edit(ctx context.Context, text string) {
	if p.chatID == 0 || p.messageID == 0 {
		return
	}
	if err := p.chat.EditMessageText(ctx, p.chatID, p.messageID, text); err != nil {
		log.Printf("[Progress] Failed to edit progress message: %v", err)
	}
}
