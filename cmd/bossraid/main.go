package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bossraid/server/internal/action"
	"github.com/bossraid/server/internal/config"
	"github.com/bossraid/server/internal/conn"
	"github.com/bossraid/server/internal/core/event"
	"github.com/bossraid/server/internal/core/sched"
	coresys "github.com/bossraid/server/internal/core/system"
	"github.com/bossraid/server/internal/data"
	gonet "github.com/bossraid/server/internal/net"
	"github.com/bossraid/server/internal/persist"
	"github.com/bossraid/server/internal/scripting"
	"github.com/bossraid/server/internal/system"
	"github.com/bossraid/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// persistInterval is how often session records batch-save to the database.
const persistInterval = time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName, buildTag string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            BossRaid  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m     co-op raid simulation host (Go)       \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(build: %s)\033[0m\n\n", serverName, buildTag)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("BOSSRAID_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.BuildTag)

	// 3. Connect to PostgreSQL and run migrations
	printSection("database")

	bootCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(bootCtx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("PostgreSQL connected")

	if err := persist.RunMigrations(bootCtx, db.Pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK("migrations applied")
	fmt.Println()

	playerRepo := persist.NewPlayerRepo(db)

	// 4. Load data tables
	printSection("data")

	actionTable, err := data.LoadActionTable("data/yaml/action_list.yaml")
	if err != nil {
		return fmt.Errorf("load action table: %w", err)
	}
	printStat("action definitions", actionTable.Count())

	archetypeTable, err := data.LoadArchetypeTable("data/yaml/archetype_list.yaml", actionTable)
	if err != nil {
		return fmt.Errorf("load archetype table: %w", err)
	}
	printStat("archetypes", archetypeTable.Count())

	// 5. Lua scripting engine (combat formulas)
	luaEngine, err := scripting.NewEngine("scripts", log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	printOK("lua scripts loaded")
	fmt.Println()

	// 6. Core simulation services
	bus := event.NewBus(log)
	clock := sched.New()
	repl := system.NewReplicator()
	worldState := world.NewState(repl)

	ctrl := action.NewController(worldState, actionTable, bus, clock.Now, nil, luaEngine, log)
	health := system.NewHealth(worldState, bus, ctrl, luaEngine, log)
	ctrl.SetHealth(health)

	system.WatchDeaths(bus, worldState, ctrl, clock)

	monsterCount := spawnMonsters(worldState, archetypeTable, log)
	printSection("world")
	printStat("monsters spawned", monsterCount)
	fmt.Println()

	// 7. Connection lifecycle: registry, approval, state machine
	registry := conn.NewRegistry()
	approver := conn.NewApprover(registry, playerRepo, cfg.Approval, cfg.Server.BuildTag, log)
	machine := conn.NewMachine(bus, clock, cfg.Reconnect, nil, log)

	// 8. Network server. The machine observes listener setup so the
	// lifecycle state always matches the transport's reality.
	machine.StartHost()
	netServer, err := gonet.NewServer(
		cfg.Network.BindAddress,
		cfg.Network.InQueueSize,
		cfg.Network.OutQueueSize,
		cfg.Network.PacketsPerSecond,
		log,
	)
	machine.HostSetupDone(err)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}
	go netServer.AcceptLoop()

	// 9. Systems, in phase order
	sessions := system.NewSessionTable()
	runner := coresys.NewRunner()

	gameCtx, stopGame := context.WithCancel(context.Background())
	defer stopGame()

	runner.Register(system.NewInputSystem(
		gameCtx, netServer, sessions, worldState, ctrl,
		approver, registry, machine, bus, clock,
		cfg.Network.MaxPacketsPerTick, log,
	))
	runner.Register(system.NewSchedSystem(clock))
	runner.Register(system.NewActionSystem(worldState, ctrl))

	seed := cfg.AI.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	runner.Register(system.NewAISystem(worldState, ctrl, archetypeTable, seed, log))

	runner.Register(system.NewRegenSystem(worldState, health, cfg.Combat.RegenInterval, int32(cfg.Combat.RegenAmount)))
	runner.Register(system.NewOutputSystem(repl, sessions, bus))

	persistSys := system.NewPersistSystem(registry, playerRepo, persistInterval, log)
	runner.Register(persistSys)
	runner.Register(system.NewCleanupSystem(worldState, ctrl))

	// 10. Game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Network.TickRate)
	defer ticker.Stop()

	printSection("server ready")
	printReady(fmt.Sprintf("listening on %s", netServer.Addr().String()))
	printReady(fmt.Sprintf("game loop started (tick: %s)", cfg.Network.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Network.TickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			machine.Shutdown()
			persistSys.Flush()
			netServer.Shutdown()
			sessions.Each(func(s *gonet.Session) { s.Close() })
			log.Info("server stopped")
			return nil
		}
	}
}

// spawnMonsters creates AI entities from the archetype spawn list.
func spawnMonsters(ws *world.State, archetypes *data.ArchetypeTable, log *zap.Logger) int {
	total := 0
	for _, sp := range archetypes.Spawns() {
		arch := archetypes.Get(sp.ArchetypeID)
		if arch == nil {
			log.Warn("spawn: unknown archetype", zap.Int32("archetype_id", sp.ArchetypeID))
			continue
		}
		for i := 0; i < sp.Count; i++ {
			ws.Spawn(world.EntitySpec{
				Name:        arch.Name,
				Kind:        world.KindMonster,
				ArchetypeID: arch.ID,
				X:           sp.X,
				Y:           sp.Y,
				MoveSpeed:   arch.MoveSpeed,
				MaxHP:       arch.MaxHP,
			})
			total++
		}
	}
	return total
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
