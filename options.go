package odm

import (
	"time"

	"github.com/sirupsen/logrus"
)

type Options struct {
	convertFunc func(value interface{}) interface{}
	logger      logrus.FieldLogger
	clock       func() time.Time
	metrics     *Metrics
}

// The default options.
var DefaultOptions = Options{}

// WithConvertFunc creates a new option object with a given convert function.
//
// The convert function is applied by GenerateUpdates to every value it looks at.
// This can be used to support additional types by converting it into one of the supported types.
func (options Options) WithConvertFunc(convertFunc func(value interface{}) interface{}) Options {
	options.convertFunc = convertFunc
	return options
}

// WithLogger sets the logger used by documents and collections.
func (options Options) WithLogger(logger logrus.FieldLogger) Options {
	options.logger = logger
	return options
}

// WithClock sets the clock used to resolve server timestamps when applying updates.
func (options Options) WithClock(clock func() time.Time) Options {
	options.clock = clock
	return options
}

// WithMetrics sets the collectors updated by documents. DefaultMetrics is used otherwise.
func (options Options) WithMetrics(metrics *Metrics) Options {
	options.metrics = metrics
	return options
}

func (options Options) log() logrus.FieldLogger {
	if options.logger == nil {
		return logrus.StandardLogger()
	}
	return options.logger
}

func (options Options) now() time.Time {
	if options.clock == nil {
		return time.Now().UTC()
	}
	return options.clock()
}

func (options Options) collectors() *Metrics {
	if options.metrics == nil {
		return DefaultMetrics
	}
	return options.metrics
}
