package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Rorical/RoriRoles/internal/models"
)

// Task is one asynchronous unit of work. On success it returns the payload
// to merge; a nil payload acknowledges without changing data fields.
type Task func(ctx context.Context) (Payload, error)

// Ack adapts a side-effecting call into a Task that acknowledges with ack
func Ack(run func(ctx context.Context) error, ack Payload) Task {
	return func(ctx context.Context) (Payload, error) {
		if err := run(ctx); err != nil {
			return nil, err
		}
		return ack, nil
	}
}

// AsyncRequest describes an envelope: AsyncStart with Message, then exactly
// one terminal action for Task, then Then if the task succeeded. A request
// naming a Token is refused unless that token is still selected when the
// loop picks it up. Then lands even when a newer envelope on the same
// resource superseded the terminal action, as long as the token is
// unchanged.
type AsyncRequest struct {
	Token    string
	Resource Resource
	Message  string
	Task     Task
	Then     []Action
}

// RunAsync issues an envelope against the current token. AsyncStart is
// reduced before the task starts, so it is always observed before the
// terminal action.
func (s *Store) RunAsync(req AsyncRequest) {
	s.send(issueMsg{req: req})
}

// issue runs on the loop
func (s *Store) issue(req AsyncRequest) {
	if req.Token != "" && req.Token != s.token {
		log.Warnw("refusing envelope for unselected token", "resource", req.Resource, "token", req.Token, "current", s.token)
		s.reduce(Error{Message: fmt.Sprintf("selection changed to %q before %q was submitted", s.token, req.Message)})
		return
	}
	s.generations[req.Resource]++
	scope := Scope{
		Token:      s.token,
		Resource:   req.Resource,
		Generation: s.generations[req.Resource],
	}
	s.inflight++
	inflightEnvelopes.Set(float64(s.inflight))
	s.reduce(AsyncStart{Message: req.Message})

	ctx := s.ctx
	go func() {
		start := time.Now()
		payload, err := req.Task(ctx)

		res := resultMsg{scope: scope}
		outcome := "ok"
		if err != nil {
			outcome = "error"
			log.Warnw("async operation failed", "resource", scope.Resource, "token", scope.Token, "message", req.Message, "error", err)
			res.actions = []Action{AsyncError{Message: err.Error()}}
		} else {
			res.actions = []Action{AsyncComplete{Payload: payload}}
			res.then = req.Then
		}
		envelopeDuration.WithLabelValues(string(scope.Resource), outcome).Observe(time.Since(start).Seconds())
		s.send(res)
	}()
}

// Effect issues an envelope whenever its dependencies change and its
// condition holds, like a render effect. Deps must return a comparable
// value.
type Effect struct {
	Name     string
	Resource Resource
	Message  string
	Deps     func(token string, state models.ApplicationState) any
	When     func(token string, state models.ApplicationState) bool
	Load     func(token string) Task
}

func (e Effect) request(token string) AsyncRequest {
	return AsyncRequest{
		Token:    token,
		Resource: e.Resource,
		Message:  e.Message,
		Task:     e.Load(token),
	}
}
