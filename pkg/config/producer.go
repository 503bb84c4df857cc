package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/AutoMQ/rocketmq-client/pkg/route"
	"github.com/AutoMQ/rocketmq-client/pkg/util/typeutil"
)

const (
	_defaultFaultEnable           = true
	_defaultFaultInitialIsolation = time.Second
	_defaultFaultMaxIsolation     = time.Minute
	_defaultFaultMultiplier       = 2.0

	_defaultProducerMaxAttempts          = 3
	_defaultProducerRouteRefreshInterval = 30 * time.Second

	_defaultWorkerCapacity = 64
)

// Fault configures how long failing brokers are kept out of queue selection.
type Fault struct {
	Enable           bool
	InitialIsolation typeutil.Duration
	MaxIsolation     typeutil.Duration
	Multiplier       float64
}

// Adjust fills defaults for the fields left empty.
func (f *Fault) Adjust() {
	if f.InitialIsolation.Duration == 0 {
		f.InitialIsolation = typeutil.NewDuration(_defaultFaultInitialIsolation)
	}
	if f.MaxIsolation.Duration == 0 {
		f.MaxIsolation = typeutil.NewDuration(_defaultFaultMaxIsolation)
	}
	if f.Multiplier == 0 {
		f.Multiplier = _defaultFaultMultiplier
	}
}

func (f *Fault) Validate() error {
	if f.InitialIsolation.Duration < 0 {
		return errors.Errorf("invalid initial isolation `%s`", f.InitialIsolation)
	}
	if f.MaxIsolation.Duration < f.InitialIsolation.Duration {
		return errors.Errorf("max isolation `%s` is less than initial isolation `%s`", f.MaxIsolation, f.InitialIsolation)
	}
	if f.Multiplier < 1 {
		return errors.Errorf("invalid multiplier `%v`", f.Multiplier)
	}
	return nil
}

// Tracker returns a fault tracker, or nil if fault isolation is disabled.
func (f *Fault) Tracker() *route.FaultTracker {
	if !f.Enable {
		return nil
	}
	return route.NewFaultTracker(route.FaultPolicy{
		InitialIsolation: f.InitialIsolation.Duration,
		MaxIsolation:     f.MaxIsolation.Duration,
		Multiplier:       f.Multiplier,
	})
}

func faultConfigure(v *viper.Viper, fs *pflag.FlagSet) {
	fs.Bool("fault-enable", _defaultFaultEnable, "skip brokers that failed recently when selecting queues")
	fs.Duration("fault-initial-isolation", _defaultFaultInitialIsolation, "isolation of a broker after its first failure")
	fs.Duration("fault-max-isolation", _defaultFaultMaxIsolation, "maximum isolation of a broker")
	fs.Float64("fault-multiplier", _defaultFaultMultiplier, "growth of the isolation on each consecutive failure")
	_ = v.BindPFlag("fault.enable", fs.Lookup("fault-enable"))
	_ = v.BindPFlag("fault.initialIsolation", fs.Lookup("fault-initial-isolation"))
	_ = v.BindPFlag("fault.maxIsolation", fs.Lookup("fault-max-isolation"))
	_ = v.BindPFlag("fault.multiplier", fs.Lookup("fault-multiplier"))
}

// Producer is the configuration of the publish path.
type Producer struct {
	// MaxAttempts is the number of tries of one send, the first included.
	MaxAttempts int
	// RouteRefreshInterval is the period of route refreshes of known topics.
	RouteRefreshInterval typeutil.Duration
}

// Adjust fills defaults for the fields left empty.
func (p *Producer) Adjust() {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = _defaultProducerMaxAttempts
	}
	if p.RouteRefreshInterval.Duration == 0 {
		p.RouteRefreshInterval = typeutil.NewDuration(_defaultProducerRouteRefreshInterval)
	}
}

func (p *Producer) Validate() error {
	if p.MaxAttempts < 1 {
		return errors.Errorf("invalid max attempts `%d`", p.MaxAttempts)
	}
	if p.RouteRefreshInterval.Duration < 0 {
		return errors.Errorf("invalid route refresh interval `%s`", p.RouteRefreshInterval)
	}
	return nil
}

func producerConfigure(v *viper.Viper, fs *pflag.FlagSet) {
	fs.Int("producer-max-attempts", _defaultProducerMaxAttempts, "number of tries of one send, the first included")
	fs.Duration("producer-route-refresh-interval", _defaultProducerRouteRefreshInterval, "period of route refreshes of known topics")
	_ = v.BindPFlag("producer.maxAttempts", fs.Lookup("producer-max-attempts"))
	_ = v.BindPFlag("producer.routeRefreshInterval", fs.Lookup("producer-route-refresh-interval"))
}

// Worker sizes the pool running calls.
type Worker struct {
	Capacity int32
}

// Adjust fills defaults for the fields left empty.
func (w *Worker) Adjust() {
	if w.Capacity == 0 {
		w.Capacity = _defaultWorkerCapacity
	}
}

func (w *Worker) Validate() error {
	if w.Capacity < 0 {
		return errors.Errorf("invalid worker capacity `%d`", w.Capacity)
	}
	return nil
}

func workerConfigure(v *viper.Viper, fs *pflag.FlagSet) {
	fs.Int32("worker-capacity", _defaultWorkerCapacity, "maximum number of calls running at the same time")
	_ = v.BindPFlag("worker.capacity", fs.Lookup("worker-capacity"))
}
