package service

import (
	"sync"

	"github.com/yndnr/storefront-go/internal/core/domain"
)

// listeners fans token changes out to subscribers.
type listeners struct {
	lmu   sync.Mutex
	next  int
	funcs map[int]func(prev, next domain.Token)
}

// Subscribe registers fn to run after every change of the stored token. fn
// runs on the goroutine that made the change, outside the store lock.
func (l *listeners) Subscribe(fn func(prev, next domain.Token)) func() {
	l.lmu.Lock()
	defer l.lmu.Unlock()
	if l.funcs == nil {
		l.funcs = make(map[int]func(prev, next domain.Token))
	}
	id := l.next
	l.next++
	l.funcs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.lmu.Lock()
			delete(l.funcs, id)
			l.lmu.Unlock()
		})
	}
}

func (l *listeners) notify(prev, next domain.Token) {
	l.lmu.Lock()
	fns := make([]func(prev, next domain.Token), 0, len(l.funcs))
	for _, fn := range l.funcs {
		fns = append(fns, fn)
	}
	l.lmu.Unlock()

	for _, fn := range fns {
		fn(prev, next)
	}
}
