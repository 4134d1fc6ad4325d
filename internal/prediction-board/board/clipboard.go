package board

import (
	"errors"
	"fmt"
	"io"

	"github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"
)

// Clipboard copia texto para a área de transferência do usuário.
type Clipboard interface {
	WriteText(text string) error
}

var errNoClipboard = errors.New("no clipboard available")

// SystemClipboard tenta o clipboard do sistema (xclip/xsel/pbcopy/...) e, se
// falhar, cai para a sequência OSC 52 escrita de forma síncrona no terminal.
type SystemClipboard struct {
	Terminal io.Writer // nil desliga o fallback OSC 52
}

func (c SystemClipboard) WriteText(text string) error {
	err := errNoClipboard
	if !clipboard.Unsupported {
		if err = clipboard.WriteAll(text); err == nil {
			return nil
		}
	}
	if c.Terminal == nil {
		return err
	}
	if _, ferr := osc52.New(text).WriteTo(c.Terminal); ferr != nil {
		return fmt.Errorf("clipboard: %v; osc52 fallback: %w", err, ferr)
	}
	return nil
}
