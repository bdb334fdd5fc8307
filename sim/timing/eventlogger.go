package timing

import (
	"reflect"

	"github.com/sarchlab/wardsim/sim/hooking"
	"github.com/sirupsen/logrus"
)

// EventLogger is a hook that logs every event before it is handled.
type EventLogger struct {
	logger *logrus.Logger
}

// NewEventLogger returns an EventLogger writing to the given logger at debug
// level.
func NewEventLogger(logger *logrus.Logger) *EventLogger {
	h := new(EventLogger)

	h.logger = logger

	return h
}

type named interface {
	Name() string
}

// Func writes the event information into the logger
func (h *EventLogger) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	fields := logrus.Fields{
		"time":  evt.Time(),
		"event": reflect.TypeOf(evt).String(),
	}

	if n, ok := evt.Handler().(named); ok {
		fields["handler"] = n.Name()
	}

	h.logger.WithFields(fields).Debug("event")
}
