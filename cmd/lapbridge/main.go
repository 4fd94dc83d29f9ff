// Lapbridge connects line-oriented race-timing hardware to a Redis pub/sub
// bus, translating serial sentences into typed events on hardware:out and
// executing commands received on hardware:in. Run with -sim to synthesize
// heartbeats without hardware, and -tui for the interactive display.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/trackside-data/lapbridge/internal/bridge"
	"github.com/trackside-data/lapbridge/internal/bus"
	"github.com/trackside-data/lapbridge/internal/config"
	"github.com/trackside-data/lapbridge/internal/message"
	"github.com/trackside-data/lapbridge/internal/serialmux"
	"github.com/trackside-data/lapbridge/internal/session"
	"github.com/trackside-data/lapbridge/internal/shutdown"
	"github.com/trackside-data/lapbridge/internal/tui"
)

var (
	simMode    = flag.Bool("sim", false, "Run in simulation mode (no hardware)")
	useTUI     = flag.Bool("tui", false, "Run with the interactive terminal display")
	configPath = flag.String("config", "", "Path to YAML config file")
	redisAddr  = flag.String("redis", "", "Redis address (unix socket path or host:port)")
	serialPort = flag.String("port", "", "Serial device of the timing hardware")
	baudRate   = flag.Int("baud", 0, "Serial baud rate")
	logFile    = flag.String("logfile", "", "Log file path")
)

func main() {
	flag.BoolVar(simMode, "s", false, "Run in simulation mode (shorthand)")
	flag.BoolVar(useTUI, "t", false, "Run with the interactive terminal display (shorthand)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config %q: %v", *configPath, err)
		}
	}
	if *redisAddr != "" {
		cfg.Redis.Addr = *redisAddr
	}
	if *serialPort != "" {
		cfg.Serial.Device = *serialPort
	}
	if *baudRate != 0 {
		cfg.Serial.Options.BaudRate = *baudRate
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}

	// The TUI owns the terminal, so the default logger writes to a file.
	f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatalf("failed to open log file %q: %v", cfg.LogFile, err)
	}
	defer f.Close()
	log.SetOutput(f)

	mode := "HARDWARE"
	if *simMode {
		mode = "SIMULATION"
	}
	log.Printf("starting lapbridge in %s mode (tui=%v, redis=%s)", mode, *useTUI, cfg.Redis.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	coord := shutdown.NewCoordinator()
	go func() {
		<-ctx.Done()
		coord.Shutdown()
	}()

	b := bus.NewRedisBus(cfg.Redis.Addr)
	defer b.Close()

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	defer cancelPing()
	if err := b.Ping(pingCtx); err != nil {
		log.Printf("failed to connect to Redis at %s: %v", cfg.Redis.Addr, err)
		fmt.Fprintf(os.Stderr, "Failed to connect to Redis at %s: %v\n", cfg.Redis.Addr, err)
		fmt.Fprintln(os.Stderr, "Make sure Redis is running, e.g.: redis-server --unixsocket ./redis.sock")
		os.Exit(1)
	}
	log.Printf("redis connection successful")

	publisher := bridge.NewEventPublisher(b)
	publisher.Publish(ctx, message.Status{Message: "Redis connected"})

	state := session.New(*simMode)

	cmdSub, err := b.Subscribe(ctx, bus.CommandChannel)
	if err != nil {
		log.Fatalf("failed to subscribe to %s: %v", bus.CommandChannel, err)
	}
	defer cmdSub.Close()

	evSub, err := b.Subscribe(ctx, bus.EventChannel)
	if err != nil {
		log.Fatalf("failed to subscribe to %s: %v", bus.EventChannel, err)
	}
	defer evSub.Close()

	// In hardware mode the serial mux is opened up front so the command
	// dispatcher can replay reset frames through it. An absent device is
	// fatal only to the hardware worker; everything else keeps running so
	// the operator sees the diagnostic on the display.
	var mux *serialmux.Mux
	if !*simMode {
		mux, err = serialmux.Open(cfg.Serial.Device, cfg.Serial.Options)
		if err != nil {
			log.Printf("failed to open serial device %s: %v", cfg.Serial.Device, err)
			publisher.Publish(ctx, message.Status{
				Message: fmt.Sprintf("Lap tracking hardware not found at %s", cfg.Serial.Device),
			})
		} else {
			defer mux.Close()
			publisher.Publish(ctx, message.Status{
				Message: fmt.Sprintf("Hardware connected and initialized at %s", cfg.Serial.Device),
			})
		}
	}

	var frames bridge.FrameSender
	if mux != nil {
		frames = mux
	}
	dispatcher := bridge.NewDispatcher(publisher, state, frames)
	listener := bridge.NewLogListener(state)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx, cmdSub, coord)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		listener.Run(ctx, evSub, coord)
	}()

	if *simMode {
		sim := bridge.NewSimulationWorker(publisher)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sim.Run(ctx, coord)
		}()
	} else if mux != nil {
		hw := bridge.NewHardwareWorker(mux, publisher)
		wg.Add(1)
		go func() {
			defer wg.Done()
			hw.Run(ctx, coord)
		}()
	}

	if *useTUI {
		if err := tui.Run(state, publisher, coord); err != nil {
			log.Printf("display error: %v", err)
		}
	} else {
		<-coord.Done()
	}

	wg.Wait()
	log.Printf("graceful shutdown complete")
}
