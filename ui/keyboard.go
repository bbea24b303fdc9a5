package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/term"
)

var ErrQuit = errors.New("quit")

func reserved(r rune) bool {
	switch r {
	case ' ', 'r', 'l', 'x', 'q', 'z', 'c', '0', '1', '2', '3', 3:
		return true
	}
	return false
}

// Keyboard reads single key presses from a terminal in raw mode.
type Keyboard struct {
	in        *os.File
	keymap    Keymap
	exportDir string
	logger    *log.Logger
}

func NewKeyboard(ctx context.Context, in *os.File, keymap Keymap, exportDir string) *Keyboard {
	return &Keyboard{
		in:        in,
		keymap:    keymap,
		exportDir: exportDir,
		logger:    log.FromContext(ctx).WithPrefix("ui"),
	}
}

// Run handles keys until q or ctrl-c (ErrQuit) or ctx is done.
func (k *Keyboard) Run(ctx context.Context, ctrl *Controller) error {
	fd := int(k.in.Fd())
	if term.IsTerminal(fd) {
		old, err := term.MakeRaw(fd)
		if err != nil {
			return err
		}
		defer term.Restore(fd, old)
	}

	keys := make(chan rune)
	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		for {
			if _, err := k.in.Read(buf); err != nil {
				readErr <- err
				return
			}
			select {
			case keys <- rune(buf[0]):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case r := <-keys:
			err := k.handle(ctrl, r)
			if errors.Is(err, ErrQuit) {
				return err
			}
			if err != nil {
				k.logger.Error("key", "key", string(r), "err", err)
			}
		}
	}
}

func (k *Keyboard) handle(ctrl *Controller, r rune) error {
	switch {
	case r == 'q' || r == 3:
		return ErrQuit
	case r == ' ':
		return ctrl.TogglePlay()
	case r == 'r':
		return ctrl.ToggleRecord()
	case r == 'l':
		return ctrl.ToggleLockBar()
	case r == 'z':
		k.keymap = k.keymap.Transpose(-12)
		return nil
	case r == 'c':
		k.keymap = k.keymap.Transpose(12)
		return nil
	case r >= '0' && r <= '3':
		return ctrl.SelectInstrument(int(r - '0'))
	case r == 'x':
		name := fmt.Sprintf("chiptracker-%s.mid", time.Now().Format("20060102-150405"))
		return ctrl.ExportSMF(filepath.Join(k.exportDir, name))
	}
	if n, ok := k.keymap[r]; ok {
		return ctrl.NoteOn(n)
	}
	return nil
}
