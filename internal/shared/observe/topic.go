// Package observe implementa um tópico em memória com um produtor e vários
// consumidores, com cancelamento explícito por assinatura.
package observe

import "sync"

// Topic entrega cada valor publicado a todas as assinaturas ativas, na ordem
// de publicação.
type Topic[T any] struct {
	mu     sync.Mutex
	subs   map[*Subscription[T]]struct{}
	closed bool
}

// Subscription é o handle devolvido por Subscribe.
type Subscription[T any] struct {
	topic *Topic[T]
	fn    func(T)

	// mu serializa entrega e Unsubscribe: depois que Unsubscribe retorna
	// nenhuma chamada de fn está em andamento nem acontecerá.
	mu     sync.Mutex
	active bool
}

func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{subs: make(map[*Subscription[T]]struct{})}
}

// Subscribe registra fn. Em um tópico fechado devolve uma assinatura inativa.
// fn não pode chamar Unsubscribe da própria assinatura.
func (t *Topic[T]) Subscribe(fn func(T)) *Subscription[T] {
	s := &Subscription[T]{topic: t, fn: fn}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return s
	}
	s.active = true
	t.subs[s] = struct{}{}
	return s
}

// Publish entrega v de forma síncrona a cada assinatura ativa.
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	subs := make([]*Subscription[T], 0, len(t.subs))
	for s := range t.subs {
		subs = append(subs, s)
	}
	t.mu.Unlock()

	for _, s := range subs {
		s.deliver(v)
	}
}

// Close cancela todas as assinaturas; publicações posteriores são ignoradas.
func (t *Topic[T]) Close() {
	t.mu.Lock()
	t.closed = true
	subs := t.subs
	t.subs = make(map[*Subscription[T]]struct{})
	t.mu.Unlock()

	for s := range subs {
		s.deactivate()
	}
}

// Len retorna o número de assinaturas ativas.
func (t *Topic[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

func (s *Subscription[T]) deliver(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		s.fn(v)
	}
}

func (s *Subscription[T]) deactivate() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

// Unsubscribe é idempotente.
func (s *Subscription[T]) Unsubscribe() {
	s.topic.mu.Lock()
	delete(s.topic.subs, s)
	s.topic.mu.Unlock()
	s.deactivate()
}

// Active informa se a assinatura ainda recebe valores.
func (s *Subscription[T]) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
