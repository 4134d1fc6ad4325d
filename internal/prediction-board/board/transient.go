package board

import (
	"sync"
	"time"
)

// Transient é uma mensagem de status que se apaga sozinha depois de um tempo.
// Uma mensagem nova invalida o timer da anterior.
type Transient struct {
	mu      sync.Mutex
	text    string
	seq     uint64
	timer   *time.Timer
	stopped bool
}

// Set troca o texto; ttl > 0 agenda a limpeza.
func (t *Transient) Set(text string, ttl time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.seq++
	t.text = text
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if ttl > 0 {
		seq := t.seq
		t.timer = time.AfterFunc(ttl, func() { t.clear(seq) })
	}
}

func (t *Transient) clear(seq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.seq == seq {
		t.text = ""
	}
}

func (t *Transient) Get() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text
}

// Resume volta a aceitar Sets depois de um Stop.
func (t *Transient) Resume() {
	t.mu.Lock()
	t.stopped = false
	t.mu.Unlock()
}

// Stop cancela o timer pendente e ignora Sets posteriores.
func (t *Transient) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
