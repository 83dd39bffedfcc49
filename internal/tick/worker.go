package tick

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Responder serves request/reply subscriptions.
type Responder interface {
	WaitReady(ctx context.Context) error
	Respond(subject string, handler func(data []byte) ([]byte, error)) (func(), error)
}

// Worker owns the calendar when ticks are computed out of band. It only ever
// sees copies of instance state carried in requests.
type Worker struct {
	responder Responder
	calendar  *Calendar
}

func NewWorker(r Responder, cal *Calendar) *Worker {
	return &Worker{responder: r, calendar: cal}
}

func (w *Worker) Start(ctx context.Context) error {
	if err := w.responder.WaitReady(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("waiting for broker: %w", err)
	}

	unsub, err := w.responder.Respond(SubjectCompute, w.handle)
	if err != nil {
		return fmt.Errorf("subscribing tick worker: %w", err)
	}
	defer unsub()

	slog.InfoContext(ctx, "tick worker listening", "subject", SubjectCompute)
	<-ctx.Done()
	return nil
}

func (w *Worker) handle(data []byte) ([]byte, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("unmarshalling tick request: %w", err)
	}
	res, err := compute(w.calendar, req)
	if err != nil {
		return nil, fmt.Errorf("computing tick for %s: %w", req.ServerId, err)
	}
	return json.Marshal(res)
}
