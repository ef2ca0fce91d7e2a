package actionlog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"time"
)

// ToolFunc is the loosely-typed operation shape dispatched by tool
// registries: named arguments in, one result out.
type ToolFunc func(ctx context.Context, args map[string]any) (any, error)

// Instrumenter wraps operations so every invocation emits exactly one record
// describing its inputs, outcome and duration, without changing the
// operation's contract. The appender is passed in explicitly; there is no
// process-wide instance.
type Instrumenter struct {
	appender   *Appender
	serverType string
}

// NewInstrumenter creates an instrumenter emitting to a, tagging every
// record with serverType.
func NewInstrumenter(a *Appender, serverType string) *Instrumenter {
	return &Instrumenter{appender: a, serverType: serverType}
}

// begin captures the wall-clock timestamp and input snapshot for a record.
func (inst *Instrumenter) begin(tool string, args any) *Record {
	return &Record{
		TS:         time.Now().UTC().Format(time.RFC3339Nano),
		ServerType: inst.serverType,
		Tool:       tool,
		Args:       Truncate(args, ArgLimit),
	}
}

// finish fills the outcome fields of rec from (start, result, err). Duration
// comes from the monotonic clock carried by start, so wall-clock changes
// cannot produce negative or skewed values. Only an error that is itself a
// context error counts as cancellation; an operation's own failure stays an
// ordinary error even if its context expired concurrently.
func finish(rec *Record, start time.Time, result any, err error) {
	rec.DurationMS = time.Since(start).Milliseconds()

	switch {
	case err == nil:
		rec.Status = StatusOK
		res := Truncate(result, ArgLimit)
		rec.Result = &res
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		rec.Status = StatusCancelled
		msg := err.Error()
		rec.Error = &msg
	default:
		rec.Status = StatusError
		msg := err.Error()
		tb := Truncate(string(debug.Stack()), TraceLimit)
		rec.Error = &msg
		rec.Traceback = &tb
	}
}

// finishPanic marks rec as failed with the panic value and current stack.
func finishPanic(rec *Record, start time.Time, v any) {
	rec.DurationMS = time.Since(start).Milliseconds()
	rec.Status = StatusError
	msg := fmt.Sprintf("panic: %v", v)
	tb := Truncate(string(debug.Stack()), TraceLimit)
	rec.Error = &msg
	rec.Traceback = &tb
}

// emit hands the record to the appender. An emission failure is only a
// diagnostic; it can never replace or mask the wrapped operation's outcome.
func (inst *Instrumenter) emit(rec *Record) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("actionlog: failed to append action record for %s: %v", rec.Tool, r)
		}
	}()
	inst.appender.Append(*rec)
	if inst.appender != nil {
		inst.appender.metrics.invocation(rec.Tool, rec.Status)
	}
}

// Wrap instruments a blocking operation. The returned function has the
// identical signature; the result and error pass through unchanged.
func Wrap[In, Out any](inst *Instrumenter, tool string, fn func(In) (Out, error)) func(In) (Out, error) {
	return func(in In) (out Out, err error) {
		start := time.Now()
		rec := inst.begin(tool, in)
		defer func() {
			if r := recover(); r != nil {
				finishPanic(rec, start, r)
				inst.emit(rec)
				panic(r)
			}
		}()

		out, err = fn(in)
		finish(rec, start, out, err)
		inst.emit(rec)
		return out, err
	}
}

// WrapContext instruments an operation that may suspend on its context.
// The context itself is never part of the recorded args, and cancellation
// before an outcome is reached is recorded as its own status rather than an
// ordinary error. The record is emitted on every exit path, including panic.
func WrapContext[In, Out any](inst *Instrumenter, tool string, fn func(context.Context, In) (Out, error)) func(context.Context, In) (Out, error) {
	return func(ctx context.Context, in In) (out Out, err error) {
		start := time.Now()
		rec := inst.begin(tool, in)
		defer func() {
			if r := recover(); r != nil {
				finishPanic(rec, start, r)
				inst.emit(rec)
				panic(r)
			}
		}()

		out, err = fn(ctx, in)
		finish(rec, start, out, err)
		inst.emit(rec)
		return out, err
	}
}

// Tool instruments a map-args operation for registry dispatch. A "ctx" entry
// in the args map is conventionally a request context and is excluded from
// the recorded snapshot.
func (inst *Instrumenter) Tool(tool string, fn ToolFunc) ToolFunc {
	return func(ctx context.Context, args map[string]any) (result any, err error) {
		start := time.Now()
		rec := inst.begin(tool, loggableArgs(args))
		defer func() {
			if r := recover(); r != nil {
				finishPanic(rec, start, r)
				inst.emit(rec)
				panic(r)
			}
		}()

		result, err = fn(ctx, args)
		finish(rec, start, result, err)
		inst.emit(rec)
		return result, err
	}
}

// loggableArgs drops the conventional context entry from the snapshot. Such
// values may carry session state that is sensitive or unserializable.
func loggableArgs(args map[string]any) map[string]any {
	if _, ok := args["ctx"]; !ok {
		return args
	}
	safe := make(map[string]any, len(args)-1)
	for k, v := range args {
		if k != "ctx" {
			safe[k] = v
		}
	}
	return safe
}
