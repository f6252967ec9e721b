package filter

import (
	"fmt"
	"sync"
	"time"

	"github.com/imgajeed76/invgrid/internal/record"
)

// DefaultDebounce is the idle window between the last input event and the
// filter evaluation it triggers.
const DefaultDebounce = 500 * time.Millisecond

// Engine holds the filter definitions and their current values. It never
// owns or mutates records; callers pass the data to evaluate.
//
// Value changes reach OnChange either immediately (Set, Toggle, Clear) or
// after the debounce window (Input). Debounced notifications fire on a timer
// goroutine and are handed to Dispatch, which should move them onto the
// caller's event loop; with a nil Dispatch they run on the timer goroutine.
type Engine struct {
	defs     []Definition
	index    map[string]int
	values   Values
	debounce *Debouncer

	OnChange func(values Values)
	Dispatch func(fn func())
}

// NewEngine returns an engine with every filter at its default value.
// A non-positive delay uses DefaultDebounce.
func NewEngine(defs []Definition, delay time.Duration) *Engine {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	e := &Engine{
		defs:     append([]Definition(nil), defs...),
		index:    make(map[string]int, len(defs)),
		debounce: NewDebouncer(delay),
	}
	for i, d := range e.defs {
		e.index[d.ID] = i
	}
	e.values = e.Defaults()
	return e
}

// Definitions returns the filter definitions in declaration order.
func (e *Engine) Definitions() []Definition {
	return e.defs
}

// Definition looks up a filter by id.
func (e *Engine) Definition(id string) (Definition, bool) {
	i, ok := e.index[id]
	if !ok {
		return Definition{}, false
	}
	return e.defs[i], true
}

// Defaults returns a fresh value set with every filter at its default.
func (e *Engine) Defaults() Values {
	vs := make(Values, len(e.defs))
	for _, d := range e.defs {
		vs[d.ID] = d.DefaultValue()
	}
	return vs
}

// Values returns a copy of the current values.
func (e *Engine) Values() Values {
	return e.values.Clone()
}

// Value returns the current value of one filter.
func (e *Engine) Value(id string) Value {
	return e.values[id]
}

// Active reports whether any filter currently narrows the data. A radio
// group at its default choice does not count.
func (e *Engine) Active() bool {
	for _, d := range e.defs {
		v := e.values[d.ID]
		if v == nil || v.IsEmpty() {
			continue
		}
		if c, ok := v.(Choice); ok && Value(c) == d.DefaultValue() {
			continue
		}
		return true
	}
	return false
}

func (e *Engine) assign(id string, v Value) error {
	def, ok := e.Definition(id)
	if !ok {
		return fmt.Errorf("unknown filter %q", id)
	}
	if !def.Accepts(v) {
		return fmt.Errorf("filter %q (%s) cannot hold a %T value", id, def.Type, v)
	}
	e.values[id] = v
	return nil
}

// Set changes a value and notifies immediately. Use it for discrete events
// such as picking an option or a radio choice.
func (e *Engine) Set(id string, v Value) error {
	if err := e.assign(id, v); err != nil {
		return err
	}
	e.debounce.Cancel()
	e.notify()
	return nil
}

// Input changes a value and notifies once input has been idle for the
// debounce window. Use it for keystrokes.
func (e *Engine) Input(id string, v Value) error {
	if err := e.assign(id, v); err != nil {
		return err
	}
	e.debounce.Trigger(func() {
		if e.Dispatch != nil {
			e.Dispatch(e.notify)
			return
		}
		e.notify()
	})
	return nil
}

// Toggle flips one option of a multi-select filter and notifies immediately.
func (e *Engine) Toggle(id, option string) error {
	cur, _ := e.values[id].(Multi)
	return e.Set(id, cur.Toggle(option))
}

// Clear resets every filter to its default and notifies immediately.
func (e *Engine) Clear() {
	e.values = e.Defaults()
	e.debounce.Cancel()
	e.notify()
}

// Pending reports whether a debounced notification is waiting.
func (e *Engine) Pending() bool {
	return e.debounce.Pending()
}

// Apply filters data by the current values.
func (e *Engine) Apply(data []record.Record) []record.Record {
	return ApplyAll(data, e.defs, e.values)
}

// Options returns the choices of filter id derived from data.
func (e *Engine) Options(id string, data []record.Record) []string {
	def, ok := e.Definition(id)
	if !ok {
		return nil
	}
	return OptionsFor(def, data)
}

func (e *Engine) notify() {
	if e.OnChange != nil {
		e.OnChange(e.values.Clone())
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Debouncer
// ═══════════════════════════════════════════════════════════════════════════

// Debouncer coalesces a burst of triggers into one call after an idle window.
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewDebouncer returns a debouncer with the given idle window.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Delay returns the idle window.
func (d *Debouncer) Delay() time.Duration { return d.delay }

// Trigger schedules fn after the idle window, replacing any pending call.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// Cancel drops a pending call. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	return true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
