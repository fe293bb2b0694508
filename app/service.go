package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pitwall/vtms/config"
	"github.com/pitwall/vtms/core/buffer"
	"github.com/pitwall/vtms/core/bus"
	"github.com/pitwall/vtms/core/gateway"
	coregps "github.com/pitwall/vtms/core/gps"
	"github.com/pitwall/vtms/core/logger"
	coremetrics "github.com/pitwall/vtms/core/metrics"
	"github.com/pitwall/vtms/core/obd"
	"github.com/pitwall/vtms/core/router"
	"github.com/pitwall/vtms/core/signal"
	corestate "github.com/pitwall/vtms/core/state"
	"github.com/pitwall/vtms/core/telemetry"
	infragps "github.com/pitwall/vtms/infra/gps"
	"github.com/pitwall/vtms/infra/led"
	infralogger "github.com/pitwall/vtms/infra/logger"
	inframetrics "github.com/pitwall/vtms/infra/metrics"
	inframqtt "github.com/pitwall/vtms/infra/mqtt"
	"github.com/pitwall/vtms/infra/obdsim"
	"github.com/pitwall/vtms/infra/storage"
)

// Service wires the gateway together: transport, buffer, router, telemetry
// sources and the periodic loops. Run starts everything and blocks until the
// context is cancelled; Close releases the collaborators afterwards.
type Service struct {
	cfg       *config.Config
	log       logger.Logger
	topics    bus.Topics
	transport bus.Transport
	state     *gateway.ConnectionState
	gw        *gateway.Gateway
	monitor   *gateway.Monitor
	health    *gateway.HealthReporter
	table     *router.Table
	fallback  router.Handler
	flags     *corestate.Flags
	store     telemetry.Store
	sink      coremetrics.MetricsSink
	obdMgr    *obd.Manager

	mu     sync.Mutex
	gpsSrc coregps.Source
}

// New creates a Service from the configuration. Nothing connects yet; Run
// performs the first connection attempt.
func New(cfg *config.Config) (*Service, error) {
	if err := infralogger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	log := infralogger.New("service")
	topics := bus.NewTopics(cfg.Topics.Namespace)

	transport, err := inframqtt.NewPahoTransport(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("mqtt transport: %w", err)
	}
	sink, err := inframetrics.NewSink(cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	var store telemetry.Store = telemetry.NopStore{}
	if cfg.Storage.Enabled {
		st, err := storage.NewSQLiteStore(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("telemetry store: %w", err)
		}
		store = st
	}

	connState := gateway.NewConnectionState()
	buf := buffer.New(cfg.Buffer.Capacity)
	gw := gateway.New(transport, buf, connState,
		time.Duration(cfg.Buffer.MaxAgeS)*time.Second,
		infralogger.New("gateway"), sink)
	monitor := gateway.NewMonitor(transport, connState, gw,
		time.Duration(cfg.Monitor.IntervalS)*time.Second,
		time.Duration(cfg.Monitor.BackoffStepS)*time.Second,
		time.Duration(cfg.Monitor.BackoffCapS)*time.Second,
		infralogger.New("monitor"), sink)

	flags := corestate.NewFlags()
	sig := newSignaler(cfg.Signals, log)

	obdLog := infralogger.New("obd")
	obdRep := obd.NewReporter(gw, topics, store, sink, flags, obdLog)
	obdMgr := obd.NewManager(
		&obdsim.Opener{Interval: time.Duration(cfg.OBD.SimIntervalMS) * time.Millisecond},
		obdRep,
		time.Duration(cfg.OBD.RetryDelayS)*time.Second,
		time.Duration(cfg.OBD.StatusIntervalS)*time.Second,
		obdLog)

	table, err := buildTable(topics, flags, sig)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	health := gateway.NewHealthReporter(gw, connState, obdMgr.Connected,
		topics.Health(),
		time.Duration(cfg.Health.IntervalS)*time.Second,
		infralogger.New("health"))

	// Queued until the first connect, then restored on every reconnect.
	if err := transport.Subscribe(topics.All(), 0); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topics.All(), err)
	}

	return &Service{
		cfg:       cfg,
		log:       log,
		topics:    topics,
		transport: transport,
		state:     connState,
		gw:        gw,
		monitor:   monitor,
		health:    health,
		table:     table,
		fallback:  obd.NewControlHandler(obdMgr, obdRep, topics, infralogger.New("obd_control")),
		flags:     flags,
		store:     store,
		sink:      sink,
		obdMgr:    obdMgr,
	}, nil
}

// buildTable registers the fixed control handlers. The topic set is static,
// a registration conflict here is a programming error surfaced at startup.
func buildTable(topics bus.Topics, flags *corestate.Flags, sig signal.Signaler) (*router.Table, error) {
	table := router.NewTable()
	rlog := infralogger.New("router")
	pit := router.NewPitHandler(topics.Pit(), topics.Box(), sig, rlog)
	exact := []struct {
		topic string
		h     router.Handler
	}{
		{topics.Debug(), router.NewDebugHandler(flags, rlog)},
		{topics.Message(), router.NewMessageHandler(rlog)},
		{topics.Pit(), pit},
		{topics.Box(), pit},
	}
	for _, e := range exact {
		if err := table.Register(e.topic, e.h); err != nil {
			return nil, err
		}
	}
	if err := table.RegisterPrefix(topics.FlagPrefix(), router.NewFlagHandler(sig, rlog)); err != nil {
		return nil, err
	}
	return table, nil
}

// newSignaler resolves the lamp driver from the config: GPIO on a Pi (or when
// forced on), otherwise a no-op. A failed GPIO init downgrades to the no-op
// so a bad header never keeps telemetry off the bus.
func newSignaler(cfg config.SignalsConfig, log logger.Logger) signal.Signaler {
	use := cfg.GPIO == config.GPIOOn || (cfg.GPIO == config.GPIOAuto && led.IsRaspberryPi())
	if !use {
		return signal.Nop{}
	}
	sig, err := led.NewGPIOSignaler(infralogger.New("led"))
	if err != nil {
		log.Errorf("gpio lamps unavailable, continuing without: %v", err)
		return signal.Nop{}
	}
	return sig
}

// Run starts the gateway loops and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	start := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}
	start(s.dispatchEvents)
	start(s.monitor.Run)
	start(s.health.Run)
	if s.cfg.OBD.Enabled {
		start(s.obdMgr.Run)
	}
	if s.cfg.GPS.Enabled {
		start(s.runGPS)
	}
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := inframetrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	// First connection attempt. Failure is not fatal: telemetry buffers and
	// the monitor keeps retrying.
	if err := s.transport.Connect(ctx); err != nil && ctx.Err() == nil {
		s.log.Warnf("bus unreachable, telemetry will be buffered: %v", err)
	}

	<-ctx.Done()
	// A receiver read blocks until the port closes; release it so the GPS
	// loop can exit.
	if src := s.gpsSource(); src != nil {
		_ = src.Close()
	}
	wg.Wait()
	return nil
}

// dispatchEvents is the single consumer of the transport event channel. All
// connectivity bookkeeping and inbound routing happens here, never in
// transport callbacks.
func (s *Service) dispatchEvents(ctx context.Context) {
	events := s.transport.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handleEvent(ev)
		}
	}
}

func (s *Service) handleEvent(ev bus.Event) {
	switch e := ev.(type) {
	case bus.Connected:
		s.state.SetConnected(true)
		s.state.ResetRetries()
		s.log.Infof("bus connected")
		// Flush on its own goroutine so a long drain cannot stall inbound
		// routing; the single-flight guard deduplicates triggers.
		go s.gw.Flush()
	case bus.Disconnected:
		s.state.SetConnected(false)
		if e.Err != nil {
			s.log.Warnf("bus disconnected: %v", e.Err)
		} else {
			s.log.Infof("bus disconnected")
		}
	case bus.MessageReceived:
		if !s.table.Route(e.Topic, e.Payload) {
			s.fallback.Dispatch(e.Topic, e.Payload)
		}
	case bus.PublishAck:
		if !e.OK {
			s.log.Debugf("publish %s not acknowledged", e.ID)
		}
	}
}

// runGPS acquires a position source and feeds the publisher loop. A missing
// receiver is retried on the error delay; the loop ends with the context.
func (s *Service) runGPS(ctx context.Context) {
	glog := infralogger.New("gps")
	delay := time.Duration(s.cfg.GPS.ErrorDelayS) * time.Second
	for {
		src, err := s.newGPSSource(glog)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			glog.Warnf("no GPS receiver available, retrying in %s: %v", delay, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		s.setGPSSource(src)
		rep := coregps.NewReporter(src, s.gw, s.topics, s.store, s.sink, s.flags,
			time.Duration(s.cfg.GPS.IntervalS)*time.Second, delay, glog)
		rep.Run(ctx)
		s.setGPSSource(nil)
		_ = src.Close()
		return
	}
}

func (s *Service) newGPSSource(glog logger.Logger) (coregps.Source, error) {
	if s.cfg.GPS.Simulate {
		return infragps.NewSimSource(s.cfg.GPS.SimLatitude, s.cfg.GPS.SimLongitude), nil
	}
	return infragps.NewSerialSource(s.cfg.GPS.Port, s.cfg.GPS.Baud, s.flags, glog)
}

func (s *Service) setGPSSource(src coregps.Source) {
	s.mu.Lock()
	s.gpsSrc = src
	s.mu.Unlock()
}

func (s *Service) gpsSource() coregps.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gpsSrc
}

// Close releases the collaborators: telemetry sources first, then the bus
// connection, then the store. Call after Run has returned.
func (s *Service) Close() error {
	if src := s.gpsSource(); src != nil {
		_ = src.Close()
	}
	if err := s.obdMgr.Close(); err != nil {
		s.log.Errorf("obd close: %v", err)
	}
	s.transport.Disconnect()
	return s.store.Close()
}
