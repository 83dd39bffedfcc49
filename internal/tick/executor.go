package tick

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/pixil98/go-voxel/internal/game"
)

const SubjectCompute = "tick.compute"

// Request is one tick computation for an instance.
type Request struct {
	ServerId      game.ServerId `json:"serverId"`
	GlobalTick    int64         `json:"globalTick"`
	TickRate      int           `json:"tickRate"`
	Interval      time.Duration `json:"interval"`
	GameStartDate time.Time     `json:"gameStartDate"`
}

// Result is the advanced clock.
type Result struct {
	Ticks      int64  `json:"ticks"`
	TickOfDay  int64  `json:"tickOfDay"`
	Day        int64  `json:"day"`
	InGameDate string `json:"inGameDate"`
}

// Executor decides where the computation runs.
type Executor interface {
	Compute(ctx context.Context, req Request) (Result, error)
}

// advance returns the tick count one interval later. Always moves forward by at least one tick.
func advance(req Request) int64 {
	step := int64(math.Round(float64(req.TickRate) * req.Interval.Seconds()))
	if step < 1 {
		step = 1
	}
	return req.GlobalTick + step
}

func compute(cal *Calendar, req Request) (Result, error) {
	if req.TickRate <= 0 {
		return Result{}, fmt.Errorf("tick rate must be positive, got %d", req.TickRate)
	}
	m, err := cal.At(req.GameStartDate, advance(req))
	if err != nil {
		return Result{}, err
	}
	return Result{Ticks: m.Ticks, TickOfDay: m.TickOfDay, Day: m.Day, InGameDate: m.InGameDate}, nil
}

// LocalExecutor computes in the calling goroutine.
type LocalExecutor struct {
	calendar *Calendar
}

func NewLocalExecutor(cal *Calendar) *LocalExecutor {
	return &LocalExecutor{calendar: cal}
}

func (e *LocalExecutor) Compute(_ context.Context, req Request) (Result, error) {
	return compute(e.calendar, req)
}

// Requester sends a request and waits for the reply.
type Requester interface {
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
}

// NatsExecutor hands the computation to a Worker over request/reply.
type NatsExecutor struct {
	requester Requester
}

func NewNatsExecutor(r Requester) *NatsExecutor {
	return &NatsExecutor{requester: r}
}

func (e *NatsExecutor) Compute(ctx context.Context, req Request) (Result, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("marshalling tick request: %w", err)
	}
	reply, err := e.requester.Request(ctx, SubjectCompute, data)
	if err != nil {
		return Result{}, err
	}
	var res Result
	if err := json.Unmarshal(reply, &res); err != nil {
		return Result{}, fmt.Errorf("unmarshalling tick result: %w", err)
	}
	return res, nil
}
