package command

import (
	"fmt"

	"github.com/pixil98/go-service/service"

	"github.com/pixil98/go-voxel/internal/boot"
	"github.com/pixil98/go-voxel/internal/commands"
	"github.com/pixil98/go-voxel/internal/driver"
	"github.com/pixil98/go-voxel/internal/game"
	"github.com/pixil98/go-voxel/internal/listener"
	"github.com/pixil98/go-voxel/internal/messaging"
	"github.com/pixil98/go-voxel/internal/session"
	"github.com/pixil98/go-voxel/internal/tick"
	"github.com/pixil98/go-voxel/internal/world"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	interval, err := cfg.tickInterval()
	if err != nil {
		return nil, err
	}

	// Create the embedded broker
	ns, err := cfg.Nats.buildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}
	pub := messaging.NewBroadcaster(ns)

	store, err := cfg.Storage.BuildServerStore()
	if err != nil {
		return nil, fmt.Errorf("creating server store: %w", err)
	}

	cal, err := cfg.Tick.BuildCalendar()
	if err != nil {
		return nil, fmt.Errorf("creating calendar: %w", err)
	}
	exec, tickWorker := cfg.Tick.BuildExecutor(cal, ns)

	// The scheduler counts connections through the registry, which in turn
	// resumes and pauses the scheduler.
	var reg *session.Registry
	sched := tick.NewScheduler(store, pub, exec,
		tick.CounterFunc(func(id game.ServerId) int { return reg.Count(id) }),
		tick.WithInterval(interval),
	)
	reg = session.NewRegistry(store, pub, sched)

	prox := world.NewProximity(world.NewPositions(), pub, reg, cfg.Proximity.opts()...)
	dispatcher := commands.NewDispatcher(store, pub, reg)

	sequencer, err := cfg.Boot.BuildSequencer(pub,
		boot.WithCheck(boot.StateInit, ns.WaitReady),
		boot.WithCheck(boot.StatePreInit, store.Ping),
	)
	if err != nil {
		return nil, fmt.Errorf("creating boot sequencer: %w", err)
	}

	cm := listener.NewConnectionManager(sequencer, reg, prox, dispatcher, ns)

	// Setup the tick driver
	drv := driver.NewDriver([]driver.Ticker{sched}, driver.WithTickLength(interval))

	workers := service.WorkerList{
		"nats":     ns,
		"boot":     sequencer,
		"driver":   drv,
		"listener": cfg.Listener.BuildListener(cm),
	}
	if tickWorker != nil {
		workers["tick-worker"] = tickWorker
	}

	// Create a worker list
	return workers, nil
}
