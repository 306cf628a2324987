package skiff

import (
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/skiffdb/skiff/conf"
	"github.com/skiffdb/skiff/errors"
	"github.com/skiffdb/skiff/failinject"
	"github.com/skiffdb/skiff/kv"
	"github.com/skiffdb/skiff/metrics"
	"github.com/skiffdb/skiff/metrics/prometheus"
	"github.com/skiffdb/skiff/sess"
)

// Engine owns the KV store that results spill into and hands out sessions.
// Results built in a persistent engine spill to disk once they outgrow the
// configured row budget; a non persistent engine keeps results unbounded in
// memory unless a result sets its own budget, in which case it spills to an
// in-memory store.
type Engine struct {
	lock            sync.RWMutex
	conf            conf.Config
	kvStore         kv.KV
	metricsFactory  metrics.Factory
	failureInjector failinject.Injector
	storeSeq        uint64
	sessionSeq      uint64
	sessionsCreated metrics.Counter
	storesCreated   metrics.Counter
	rowsSpilled     metrics.Counter
	started         bool
}

func NewEngine(config conf.Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := config.Log.Configure(); err != nil {
		return nil, err
	}
	var metricsFactory metrics.Factory
	if config.EnableMetrics {
		metricsFactory = prometheus.NewFactory(config.MetricsHTTPListenAddr)
	} else {
		metricsFactory = &metrics.NoopFactory{}
	}
	var injector failinject.Injector
	if config.FailureInjectorEnabled {
		injector = failinject.NewInjector()
	} else {
		injector = failinject.NewDummyInjector()
	}
	return &Engine{
		conf:            config,
		metricsFactory:  metricsFactory,
		failureInjector: injector,
	}, nil
}

func (e *Engine) Start() error {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.started {
		return nil
	}
	if err := e.metricsFactory.Start(); err != nil {
		return err
	}
	if err := e.createCounters(); err != nil {
		return err
	}
	if err := e.failureInjector.Start(); err != nil {
		return err
	}
	if e.conf.Persistent {
		pebbleDir := filepath.Join(e.conf.DataDir, "pebble")
		pebbleKV, err := kv.NewPebbleKV(pebbleDir)
		if err != nil {
			return err
		}
		log.Debugf("Opened pebble at %s", pebbleDir)
		e.kvStore = pebbleKV
	} else {
		e.kvStore = kv.NewMemoryKV()
	}
	e.started = true
	log.Infof("Skiff engine started with data dir %s", e.conf.DataDir)
	return nil
}

func (e *Engine) Stop() error {
	e.lock.Lock()
	defer e.lock.Unlock()
	if !e.started {
		return nil
	}
	if err := e.failureInjector.Stop(); err != nil {
		return err
	}
	if err := e.kvStore.Close(); err != nil {
		return err
	}
	e.kvStore = nil
	if err := e.metricsFactory.Stop(); err != nil {
		return err
	}
	e.started = false
	return nil
}

// CreateSession creates a session. The caller must close it when finished
// with it so any stores its results left behind are released.
func (e *Engine) CreateSession() (*sess.Session, error) {
	e.lock.RLock()
	defer e.lock.RUnlock()
	if !e.started {
		return nil, errors.NewPreconditionViolationError("engine is not started")
	}
	sessionID := fmt.Sprintf("session-%d", atomic.AddUint64(&e.sessionSeq, 1))
	e.sessionsCreated.Inc()
	return sess.NewSession(sessionID, e.kvStore, e.maxMemoryRows(), &e.storeSeq, e.storesCreated,
		e.rowsSpilled, e.failureInjector), nil
}

func (e *Engine) IsStarted() bool {
	e.lock.RLock()
	defer e.lock.RUnlock()
	return e.started
}

func (e *Engine) GetConf() conf.Config {
	return e.conf
}

func (e *Engine) GetKV() kv.KV {
	e.lock.RLock()
	defer e.lock.RUnlock()
	return e.kvStore
}

func (e *Engine) GetFailureInjector() failinject.Injector {
	return e.failureInjector
}

// Results only get a bounded memory budget on a persistent engine that can
// take writes. Anywhere else there is nowhere to spill so the budget is
// effectively unlimited.
func (e *Engine) maxMemoryRows() int {
	if e.conf.Persistent && !e.conf.ReadOnly {
		return e.conf.MaxMemoryRows
	}
	return math.MaxInt32
}

// Counters survive an engine restart, the registry keeps them across
// factory stop/start.
func (e *Engine) createCounters() error {
	if e.sessionsCreated != nil {
		return nil
	}
	var err error
	if e.sessionsCreated, err = e.metricsFactory.CreateCounter("skiff_sessions_created_total",
		"counter for number of sessions created"); err != nil {
		return err
	}
	if e.storesCreated, err = e.metricsFactory.CreateCounter("skiff_row_stores_created_total",
		"counter for number of temp row stores created"); err != nil {
		return err
	}
	if e.rowsSpilled, err = e.metricsFactory.CreateCounter("skiff_rows_spilled_total",
		"counter for number of result rows spilled to temp row stores"); err != nil {
		return err
	}
	return nil
}
