/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

// Package output delivers transcribed text to the desktop: clipboard,
// simulated paste keystrokes, or status display.
package output

import (
	"bytes"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Clipboard abstracts the system clipboard
type Clipboard interface {
	// Copy places text on the clipboard
	Copy(text string) error

	// Read returns the current clipboard content
	Read() (string, error)

	// Clear empties the clipboard
	Clear() error
}

// Paster sends a paste keystroke to the focused application
type Paster interface {
	Paste() error
}

// clipboardTool is one copy/read command pair
type clipboardTool struct {
	copyCmd  []string
	readCmd  []string
	clearCmd []string
}

// systemClipboard shells out to the platform clipboard utility
type systemClipboard struct {
	tool clipboardTool
}

// NewSystemClipboard finds a working clipboard utility for the platform
func NewSystemClipboard() (Clipboard, error) {
	for _, tool := range clipboardTools() {
		if _, err := exec.LookPath(tool.copyCmd[0]); err == nil {
			return &systemClipboard{tool: tool}, nil
		}
	}
	return nil, fmt.Errorf("no clipboard utility found (install wl-clipboard or xclip)")
}

func clipboardTools() []clipboardTool {
	switch runtime.GOOS {
	case "darwin":
		return []clipboardTool{{
			copyCmd:  []string{"pbcopy"},
			readCmd:  []string{"pbpaste"},
			clearCmd: []string{"pbcopy"},
		}}
	default:
		return []clipboardTool{
			{
				copyCmd:  []string{"wl-copy"},
				readCmd:  []string{"wl-paste", "--no-newline"},
				clearCmd: []string{"wl-copy", "--clear"},
			},
			{
				copyCmd:  []string{"xclip", "-selection", "clipboard"},
				readCmd:  []string{"xclip", "-selection", "clipboard", "-o"},
				clearCmd: []string{"xclip", "-selection", "clipboard"},
			},
		}
	}
}

func (c *systemClipboard) Copy(text string) error {
	cmd := exec.Command(c.tool.copyCmd[0], c.tool.copyCmd[1:]...)
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("clipboard copy failed: %w", err)
	}
	return nil
}

func (c *systemClipboard) Read() (string, error) {
	cmd := exec.Command(c.tool.readCmd[0], c.tool.readCmd[1:]...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("clipboard read failed: %w", err)
	}
	return out.String(), nil
}

func (c *systemClipboard) Clear() error {
	cmd := exec.Command(c.tool.clearCmd[0], c.tool.clearCmd[1:]...)
	// xclip and pbcopy clear by copying empty input
	cmd.Stdin = strings.NewReader("")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("clipboard clear failed: %w", err)
	}
	return nil
}

// systemPaster simulates the platform paste keystroke
type systemPaster struct{}

// NewSystemPaster returns a paster for the platform
func NewSystemPaster() Paster {
	return &systemPaster{}
}

func (p *systemPaster) Paste() error {
	switch runtime.GOOS {
	case "darwin":
		script := `tell application "System Events" to keystroke "v" using command down`
		if err := exec.Command("osascript", "-e", script).Run(); err != nil {
			return fmt.Errorf("osascript paste failed: %w", err)
		}
	default:
		if err := exec.Command("xdotool", "key", "ctrl+v").Run(); err != nil {
			return fmt.Errorf("xdotool paste failed: %w", err)
		}
	}
	return nil
}
