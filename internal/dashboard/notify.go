package dashboard

import "sync"

type listener[T any] struct {
	id int
	fn func(T)
}

// listeners 同步通知订阅者，按订阅顺序调用；每次通知携带完整的当前值
type listeners[T any] struct {
	mu   sync.Mutex
	seq  int
	subs []listener[T]
}

func (l *listeners[T]) add(fn func(T)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	id := l.seq
	l.subs = append(l.subs, listener[T]{id: id, fn: fn})

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, s := range l.subs {
			if s.id == id {
				l.subs = append(l.subs[:i:i], l.subs[i+1:]...)
				return
			}
		}
	}
}

func (l *listeners[T]) emit(v T) {
	l.mu.Lock()
	subs := append([]listener[T](nil), l.subs...)
	l.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}
