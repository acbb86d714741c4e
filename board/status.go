package board

import "time"

// show displays a status message and schedules it to hide after ttl.
func (b *Board) show(text string, severity Severity, ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.showLocked(text, severity, ttl)
}

// showLocked is show for callers holding b.mu.
func (b *Board) showLocked(text string, severity Severity, ttl time.Duration) {
	b.doc.Message = Message{Text: text, Severity: severity}
	if b.closed {
		return
	}

	b.msgGen++
	gen := b.msgGen

	if b.cancelHide && b.hideTimer != nil {
		b.hideTimer.Stop()
	}
	b.hideTimer = time.AfterFunc(ttl, func() {
		b.hide(gen)
	})
}

// hide marks the message hidden. With hide cancellation enabled only the
// timer of the latest message may hide it; a timer that fired while being
// stopped finds a newer generation and does nothing.
func (b *Board) hide(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancelHide && gen != b.msgGen {
		return
	}
	b.doc.Message.Hidden = true
}
