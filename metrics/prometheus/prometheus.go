package prometheus

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/skiffdb/skiff/errors"
	"github.com/skiffdb/skiff/metrics"
)

// Factory registers counters on its own registry rather than the process-wide
// default one, so several engines can live in the same process (as they do in
// tests) without colliding on metric names.
type Factory struct {
	listenAddr string
	lock       sync.Mutex
	registry   *prometheus.Registry
	httpServer *http.Server
	started    bool
}

// NewFactory creates a prometheus backed metrics factory. If listenAddr is
// not empty an HTTP exporter is started on it.
func NewFactory(listenAddr string) metrics.Factory {
	return &Factory{
		listenAddr: listenAddr,
		registry:   prometheus.NewRegistry(),
	}
}

func (f *Factory) CreateCounter(name string, description string) (metrics.Counter, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if !f.started {
		return nil, errors.New("not started")
	}
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: description,
	})
	if err := f.registry.Register(counter); err != nil {
		return nil, errors.WithStack(err)
	}
	return &Counter{pCounter: counter}, nil
}

func (f *Factory) Start() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.started {
		return nil
	}
	f.started = true
	if f.listenAddr == "" {
		return nil
	}
	f.httpServer = &http.Server{Addr: f.listenAddr, Handler: promhttp.HandlerFor(f.registry, promhttp.HandlerOpts{})}
	go func(srv *http.Server) {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("prometheus http export server failed to listen %v", err)
		} else {
			log.Debugf("Started prometheus http server on address %s", f.listenAddr)
		}
	}(f.httpServer)
	return nil
}

func (f *Factory) Stop() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if !f.started {
		return nil
	}
	f.started = false
	if f.httpServer != nil {
		err := f.httpServer.Close()
		f.httpServer = nil
		return err
	}
	return nil
}

type Counter struct {
	pCounter prometheus.Counter
}

func (c *Counter) Inc() {
	c.pCounter.Inc()
}

func (c *Counter) Add(v float64) {
	c.pCounter.Add(v)
}
