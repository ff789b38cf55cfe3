package logging

import (
	"context"
	"sync"
)

type contextKey string

const loggerCacheKey contextKey = "logger"

// loggerCache memoizes per-module loggers created by a factory.
type loggerCache struct {
	createLoggerForModule LoggerFactory

	mu      sync.Mutex
	loggers map[string]Logger
}

func (s *loggerCache) getLogger(module string) Logger {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.loggers[module]; ok {
		return l
	}

	l := s.createLoggerForModule(module)
	s.loggers[module] = l

	return l
}

// WithLogger returns a derived context with associated logger.
func WithLogger(ctx context.Context, l LoggerFactory) context.Context {
	if l == nil {
		l = getNullLogger
	}

	return context.WithValue(ctx, loggerCacheKey, &loggerCache{
		createLoggerForModule: l,
		loggers:               map[string]Logger{},
	})
}
