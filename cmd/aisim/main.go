// Command aisim runs the AI core headless against the in-memory sandbox: a
// small level with a wandering player and a few factions.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/aicore/common"
	"github.com/milk9111/aicore/ecs"
	"github.com/milk9111/aicore/ecs/system"
	"github.com/milk9111/aicore/engine"
	"github.com/milk9111/aicore/events"
	"github.com/milk9111/aicore/logger"
	"github.com/milk9111/aicore/mods"
	"github.com/milk9111/aicore/prefabs"
	"github.com/milk9111/aicore/settings"
	"github.com/sirupsen/logrus"
)

type spawn struct {
	entityType string
	at         cp.Vector
	hp         int
}

var cast = []spawn{
	{"orc", cp.Vector{X: 12, Y: 4}, 12},
	{"orc", cp.Vector{X: 13, Y: 5}, 12},
	{"goblin", cp.Vector{X: 3, Y: 12}, 6},
	{"troll", cp.Vector{X: 16, Y: 14}, 20},
	{"guard", cp.Vector{X: 4, Y: 3}, 10},
	{"guard", cp.Vector{X: 5, Y: 4}, 10},
	{"monster", cp.Vector{X: 9, Y: 15}, 8},
}

var rooms = []events.Room{
	{X: 1, Y: 1, W: 6, H: 5},
	{X: 10, Y: 2, W: 6, H: 6},
	{X: 1, Y: 10, W: 5, H: 5},
	{X: 12, Y: 12, W: 7, H: 5},
}

var playerMoves = []cp.Vector{
	{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {X: 1, Y: 1}, {X: -1, Y: -1},
}

func main() {
	s := settings.Load()
	configDir := flag.String("config", s.ConfigDir, "directory with archetypes/factions/behavior_trees YAML")
	modsDir := flag.String("mods", s.ModsDir, "directory with .tengo and .lua mods")
	turns := flag.Int("turns", 30, "number of turns to simulate")
	ticks := flag.Int("ticks", 4, "AI ticks per turn")
	tickDelay := flag.Duration("tick-delay", 0, "sleep between ticks, useful while editing config")
	watch := flag.Bool("watch", s.Watch, "hot reload config and mods")
	seed := flag.Int64("seed", s.Seed, "simulation seed")
	level := flag.String("log-level", s.LogLevel, "log level")
	flag.Parse()

	log := logger.New(*level, s.LogFormat, os.Stdout)

	cfg := prefabs.NewManager(*configDir, prefabs.WithLogger(log))
	if _, err := os.Stat(*configDir); err == nil {
		if _, err := cfg.Load(*configDir); err != nil {
			log.WithError(err).Fatal("config load failed")
		}
	} else {
		log.WithField("dir", *configDir).Info("config dir missing, using embedded defaults")
		*watch = false
	}
	defer cfg.Close()

	bus := events.NewBus(events.WithLogger(log), events.WithHistoryCapacity(s.HistoryCapacity))
	world := ecs.NewWorld()

	opts := system.DefaultManagerOptions()
	opts.TickBudget = s.TickBudget
	opts.BackgroundCadence = s.BackgroundCadence
	opts.ReputationDecay = s.ReputationDecay
	opts.Seed = *seed
	ai := system.NewManager(world, bus, cfg, log, opts)

	host := mods.NewHost(bus, mods.WithLogger(log))
	defer host.Close()
	var watchDirs []string
	if _, err := os.Stat(*modsDir); err == nil {
		if n, err := host.LoadDir(*modsDir); err != nil {
			log.WithError(err).Warn("some mods failed to load")
		} else {
			log.WithField("mods", n).Info("mods loaded")
		}
		watchDirs = append(watchDirs, *modsDir)
	}
	if *watch {
		if err := cfg.Watch(watchDirs...); err != nil {
			log.WithError(err).Warn("hot reload disabled")
		}
	}

	sandbox := engine.NewSandbox()
	bridge := engine.NewBridge(world, bus, ai, sandbox, engine.WithScripts(host), engine.WithLogger(log))

	playerDead := false
	bus.Subscribe(events.PlayerDeathKind, events.Observe(func(events.Notification) { playerDead = true }))
	bus.Subscribe(events.BehaviorStateChangedKind, events.Observe(func(n events.Notification) {
		p := n.Payload.(events.BehaviorStateChanged)
		log.WithFields(logrus.Fields{
			"entity": p.Entity,
			"from":   p.From.String(),
			"to":     p.To.String(),
			"reason": p.Reason,
		}).Debug("state changed")
	}))

	start := rooms[0].Center()
	bridge.Dispatch(events.LevelGenerate{Rooms: rooms, PlayerStart: start})
	player := world.CreateEntity()
	sandbox.Place(player, start, 40, 4)
	bridge.Dispatch(events.EntitySpawn{Entity: player, Position: start, EntityType: engine.PlayerType})
	for _, c := range cast {
		e := world.CreateEntity()
		sandbox.Place(e, c.at, c.hp, 0)
		bridge.Dispatch(events.EntitySpawn{Entity: e, Position: c.at, EntityType: c.entityType})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rng := common.NewRNG(*seed)
	dt := 1.0 / float64(max(*ticks, 1))
	applied := 0
run:
	for t := 0; t < *turns && !playerDead; t++ {
		bridge.StartTurn()
		bridge.MovePlayer(playerMoves[rng.Intn(len(playerMoves))])
		for i := 0; i < *ticks; i++ {
			select {
			case <-ctx.Done():
				break run
			default:
			}
			applied += bridge.Tick(dt)
			if *tickDelay > 0 {
				time.Sleep(*tickDelay)
			}
		}
		bridge.EndTurn()
	}

	stats := ai.Stats()
	log.WithFields(logrus.Fields{
		"turns":         bridge.Turn(),
		"ticks":         stats.Ticks,
		"registered":    stats.Registered,
		"evaluations":   stats.Evaluations,
		"state_changes": stats.StateChanges,
		"actions":       applied,
		"combat":        len(bus.History(events.CombatHitKind)),
		"deaths":        len(bus.History(events.EntityDeathKind)),
		"player_dead":   playerDead,
		"errors":        stats.Errors,
	}).Info("simulation finished")
}
