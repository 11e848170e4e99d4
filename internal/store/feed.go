// internal/store/feed.go
package store

import (
	"sync"

	"github.com/jason-s-yu/loteria/internal/models"
)

// subscriber delivers queued room values to onChange from its own goroutine,
// in the order they were pushed. Pushing never blocks the writer.
type subscriber struct {
	onChange func(*models.Room)

	mu      sync.Mutex
	queue   []*models.Room
	ended   bool // a nil (deleted) value has been queued
	signal  chan struct{}
	done    chan struct{}
	stopped sync.Once
}

func newSubscriber(onChange func(*models.Room)) *subscriber {
	s := &subscriber{
		onChange: onChange,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *subscriber) push(room *models.Room) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, room)
	if room == nil {
		s.ended = true
	}
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscriber) stop() {
	s.stopped.Do(func() { close(s.done) })
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.signal:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			next := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case <-s.done:
				return
			default:
			}
			s.onChange(next)
			if next == nil {
				s.stop()
				return
			}
		}
	}
}
