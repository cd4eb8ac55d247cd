/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

package output

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/theguy000/QuillScribe/internal/config"
	"github.com/theguy000/QuillScribe/internal/logging"
)

const statusTruncateLength = 50

// Clipboard settle delays, matching what desktop clipboards need between a
// copy and a paste keystroke
const (
	copySettleDelay  = 150 * time.Millisecond
	pasteClearDelay  = 100 * time.Millisecond
	defaultClearWait = 5 * time.Second
)

// Dispatcher routes transcribed text to the configured destination
type Dispatcher struct {
	cfg       config.OutputConfig
	clipboard Clipboard
	paster    Paster

	mu         sync.Mutex
	clearTimer *time.Timer
}

// NewDispatcher creates a dispatcher using the given clipboard and paster
func NewDispatcher(cfg config.OutputConfig, clipboard Clipboard, paster Paster) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		clipboard: clipboard,
		paster:    paster,
	}
}

// Dispatch delivers text per the configured output mode and returns a status
// message suitable for display
func (d *Dispatcher) Dispatch(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("no transcription text to process")
	}

	var status string

	switch d.cfg.Mode {
	case config.OutputCopy:
		if err := d.clipboard.Copy(text); err != nil {
			return "", err
		}
		status = "Copied: " + Truncate(text, statusTruncateLength)
		d.scheduleAutoClear(text)

	case config.OutputPaste:
		if err := d.clipboard.Copy(text); err != nil {
			return "", err
		}
		time.Sleep(copySettleDelay)
		if err := d.paster.Paste(); err != nil {
			// Text stays on the clipboard so nothing is lost
			logging.LogWarn("Paste failed, text left on clipboard", zap.Error(err))
			status = "Copied: " + Truncate(text, statusTruncateLength)
			break
		}
		// Paste-only mode never leaves the text on the clipboard
		time.Sleep(pasteClearDelay)
		d.clearIfUnchanged(text)
		if d.cfg.Silent {
			status = "Pasted to active application"
		} else {
			status = "Pasted: " + Truncate(text, statusTruncateLength)
		}

	case config.OutputBoth:
		if err := d.clipboard.Copy(text); err != nil {
			return "", err
		}
		time.Sleep(copySettleDelay)
		if err := d.paster.Paste(); err != nil {
			logging.LogWarn("Paste failed, text left on clipboard", zap.Error(err))
		}
		if d.cfg.Silent {
			status = "Copied to clipboard and pasted"
		} else {
			status = "Copied & Pasted: " + Truncate(text, statusTruncateLength)
		}
		d.scheduleAutoClear(text)

	case config.OutputDisplay:
		if d.cfg.Silent {
			status = "Transcription completed"
		} else {
			status = "Transcribed: " + Truncate(text, statusTruncateLength)
		}

	default:
		return "", fmt.Errorf("unknown output mode: %q", d.cfg.Mode)
	}

	logging.LogOutput(d.cfg.Mode, zap.Int("text_length", len(text)))
	return status, nil
}

// scheduleAutoClear arms a deferred clipboard clear when auto-clear is
// enabled. A newer dispatch rearms the timer.
func (d *Dispatcher) scheduleAutoClear(text string) {
	if !d.cfg.AutoClear {
		return
	}

	delay := d.cfg.AutoClearDelay
	if delay <= 0 {
		delay = defaultClearWait
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.clearTimer != nil {
		d.clearTimer.Stop()
	}
	d.clearTimer = time.AfterFunc(delay, func() {
		d.clearIfUnchanged(text)
	})
}

// clearIfUnchanged clears the clipboard only if it still holds our text, so
// anything the user copied in the meantime survives
func (d *Dispatcher) clearIfUnchanged(expected string) {
	current, err := d.clipboard.Read()
	if err != nil {
		return
	}
	if current == expected {
		if err := d.clipboard.Clear(); err != nil {
			logging.LogWarn("Clipboard clear failed", zap.Error(err))
		}
	}
}

// Close stops any pending auto-clear timer
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.clearTimer != nil {
		d.clearTimer.Stop()
		d.clearTimer = nil
	}
}

// Truncate shortens text for status display
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
