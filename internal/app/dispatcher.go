package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_finder/internal/adapters/observability"
	"hotel_finder/internal/domain"
)

// Dispatcher serializes events per user: each user has one FIFO lane drained by a single
// goroutine, while lanes of different users run in parallel.
type Dispatcher struct {
	machine *Machine
	states  domain.StateStore
	users   domain.UserRepository
	timeout time.Duration

	mu    sync.Mutex
	lanes map[int64]*lane
	known sync.Map // user ids already registered in this process
}

type lane struct {
	queue   []*job
	running bool
	cancel  context.CancelFunc // cancels the transition in progress, if any
}

type job struct {
	ev   Event
	done chan outcome
}

type outcome struct {
	reply Reply
	err   error
}

// NewDispatcher wires the machine to its state store. timeout bounds a single transition,
// including provider calls.
func NewDispatcher(m *Machine, states domain.StateStore, users domain.UserRepository, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Dispatcher{machine: m, states: states, users: users, timeout: timeout, lanes: make(map[int64]*lane)}
}

// Dispatch queues ev behind the user's earlier events and waits for its reply.
// A top-level command first aborts the transition currently running for that user.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (Reply, error) {
	if ev.UserID == 0 {
		return Reply{}, &domain.ValidationError{Field: "user_id", Reason: "required"}
	}
	j := &job{ev: ev, done: make(chan outcome, 1)}

	d.mu.Lock()
	l, ok := d.lanes[ev.UserID]
	if !ok {
		l = &lane{}
		d.lanes[ev.UserID] = l
	}
	if IsTopLevel(ev) && l.cancel != nil {
		l.cancel()
	}
	l.queue = append(l.queue, j)
	if !l.running {
		l.running = true
		go d.drain(ev.UserID, l)
	}
	d.mu.Unlock()

	select {
	case o := <-j.done:
		return o.reply, o.err
	case <-ctx.Done():
		// the job still runs to completion so the state stays consistent
		return Reply{}, ctx.Err()
	}
}

func (d *Dispatcher) drain(userID int64, l *lane) {
	for {
		d.mu.Lock()
		if len(l.queue) == 0 {
			l.running = false
			delete(d.lanes, userID)
			d.mu.Unlock()
			return
		}
		j := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		l.cancel = cancel
		d.mu.Unlock()

		reply, err := d.process(ctx, j.ev)

		d.mu.Lock()
		l.cancel = nil
		d.mu.Unlock()
		cancel()
		j.done <- outcome{reply: reply, err: err}
	}
}

func (d *Dispatcher) process(ctx context.Context, ev Event) (Reply, error) {
	if _, seen := d.known.Load(ev.UserID); !seen && d.users != nil {
		if err := d.users.EnsureUser(ctx, ev.UserID); err != nil {
			return Reply{}, fmt.Errorf("ensure user: %w", err)
		}
		d.known.Store(ev.UserID, struct{}{})
	}

	conv, err := d.states.Load(ctx, ev.UserID)
	if err != nil {
		return Reply{}, fmt.Errorf("load state: %w", err)
	}
	next, reply := d.machine.Handle(ctx, conv, ev)
	observability.ObserveConversation(string(ev.Kind), string(reply.Effect))
	if reply.Ignored {
		log.Debug().Int64("user_id", ev.UserID).Str("data", ev.Data).Msg("event ignored")
		return reply, nil
	}
	// the transition context may be spent by now; persisting must not be skipped
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.states.Save(saveCtx, next); err != nil {
		return Reply{}, fmt.Errorf("save state: %w", err)
	}
	return reply, nil
}
