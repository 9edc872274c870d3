package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
)

// LogLevel controls engine log verbosity, set via SW_ENGINE_LOG_LEVEL.
type LogLevel int

const (
	LevelNone LogLevel = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

func (l LogLevel) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	default:
		return "none"
	}
}

func parseLogLevel(raw string) LogLevel {
	value := strings.TrimSpace(strings.ToLower(raw))
	switch value {
	case "", "none", "off", "0":
		return LevelNone
	case "error", "err", "1":
		return LevelError
	case "warn", "warning", "2":
		return LevelWarn
	case "info", "3":
		return LevelInfo
	case "debug", "4":
		return LevelDebug
	case "trace", "5":
		return LevelTrace
	default:
		return LevelWarn
	}
}

// EngineError wraps walk errors with phase context.
type EngineError struct {
	Phase string // "browse", "read_attributes"
	Cause error
	Time  time.Time
}

func (e EngineError) Error() string {
	return fmt.Sprintf("search %s failed: %v", e.Phase, e.Cause)
}

func (e EngineError) Unwrap() error {
	return e.Cause
}

// Config tunes an Engine. Zero values take defaults.
type Config struct {
	ResultCap     int // stop after this many matches (default: 50)
	ProgressEvery int // emit ProgressMsg every N dequeues (default: 10)
	MessageBuffer int // buffer for engine -> foreground messages (default: 64)
}

func (c Config) withDefaults() Config {
	if c.ResultCap <= 0 {
		c.ResultCap = 50
	}
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = 10
	}
	if c.MessageBuffer <= 0 {
		c.MessageBuffer = 64
	}
	return c
}

// Engine runs one search session in a single goroutine. Messages flow over
// a buffered channel with drop-oldest backpressure for non-terminal
// messages; the terminal message is always delivered. After the terminal
// message the Done channel closes and the engine is spent; a new search is
// a new Engine.
type Engine struct {
	dir     addrspace.Directory
	session Session
	cfg     Config

	ctx    context.Context
	cancel context.CancelFunc
	msgCh  chan Msg
	done   chan struct{}

	startOnce sync.Once

	mu       sync.Mutex
	lastErr  *EngineError
	logLevel LogLevel
}

// NewEngine prepares a session over dir. Start it with Start.
func NewEngine(dir addrspace.Directory, session Session, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		dir:      dir,
		session:  session,
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		msgCh:    make(chan Msg, cfg.MessageBuffer),
		done:     make(chan struct{}),
		logLevel: parseLogLevel(os.Getenv("SW_ENGINE_LOG_LEVEL")),
	}
}

// Start launches the walk goroutine. Idempotent.
func (e *Engine) Start() {
	e.startOnce.Do(func() {
		go e.run()
	})
}

// Cancel asks the walk to stop. The walk observes it within at most one
// browse call and then emits CancelledMsg as its terminal message. Safe to
// call repeatedly and after completion.
func (e *Engine) Cancel() {
	e.cancel()
}

// Messages returns the engine's message channel. Drain it without
// blocking; after the terminal message it stays open but silent.
func (e *Engine) Messages() <-chan Msg {
	return e.msgCh
}

// Done closes after the terminal message was emitted.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// LastError returns the most recent transient walk error, nil if none.
func (e *Engine) LastError() *EngineError {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

type workItem struct {
	ref   addrspace.NodeRef
	label string
}

func (e *Engine) run() {
	defer close(e.done)

	e.logEvent(LevelInfo, "search_start", map[string]any{
		"query":          e.session.Query,
		"include_values": e.session.IncludeValues,
		"start":          e.session.Start.Ref.String(),
		"continuations":  len(e.session.Continue),
	})

	m := newMatcher(e.session.Query)
	if m.empty() {
		e.complete(ReasonExhausted, nil, 0)
		return
	}

	visited := make(map[addrspace.NodeRef]struct{})
	results := make([]Result, 0, 16)
	var queue []workItem

	if !e.session.Start.Ref.IsZero() {
		visited[e.session.Start.Ref] = struct{}{}
		if e.session.Start.Class.CanExpand() {
			queue = append(queue, workItem{e.session.Start.Ref, e.session.Start.Label()})
		}
	}
	pending := e.session.Continue
	dequeues := 0

	for {
		select {
		case <-e.ctx.Done():
			e.cancelled(results)
			return
		default:
		}

		// Current subtree exhausted: enter the next continuation sibling.
		// Unlike the start node, siblings are match candidates themselves.
		for len(queue) == 0 {
			if len(pending) == 0 {
				e.complete(ReasonExhausted, results, len(visited))
				return
			}
			sib := pending[0]
			pending = pending[1:]
			if _, seen := visited[sib.Ref]; seen {
				continue
			}
			visited[sib.Ref] = struct{}{}
			if e.testNode(m, sib, &results) && len(results) >= e.cfg.ResultCap {
				e.complete(ReasonCapReached, results, len(visited))
				return
			}
			if sib.HasChildren && sib.Class.CanExpand() {
				queue = append(queue, workItem{sib.Ref, sib.Label()})
			}
		}

		item := queue[0]
		queue = queue[1:]
		dequeues++
		if dequeues%e.cfg.ProgressEvery == 0 {
			e.emit(ProgressMsg{Visited: len(visited), Queued: len(queue), Current: item.label})
		}

		if !e.dir.IsConnected() {
			e.logEvent(LevelWarn, "search_disconnected", map[string]any{
				"visited": len(visited),
				"results": len(results),
			})
			e.complete(ReasonDisconnected, results, len(visited))
			return
		}

		kids, err := e.dir.Browse(e.ctx, item.ref)
		if err != nil {
			if errors.Is(err, addrspace.ErrNotConnected) {
				e.complete(ReasonDisconnected, results, len(visited))
				return
			}
			if e.ctx.Err() != nil {
				e.cancelled(results)
				return
			}
			e.noteError("browse", item.ref, err)
			continue
		}
		addrspace.SortDescriptors(kids)

		for _, d := range kids {
			if _, seen := visited[d.Ref]; seen {
				continue
			}
			visited[d.Ref] = struct{}{}
			if e.testNode(m, d, &results) && len(results) >= e.cfg.ResultCap {
				e.logEvent(LevelInfo, "search_cap", map[string]any{"cap": e.cfg.ResultCap})
				e.complete(ReasonCapReached, results, len(visited))
				return
			}
			if d.HasChildren && d.Class.CanExpand() {
				queue = append(queue, workItem{d.Ref, d.Label()})
			}
		}
	}
}

// testNode match-tests one discovered node, appending and emitting on a
// hit. Value attributes are consulted only when the session asks for them
// and the names did not already match.
func (e *Engine) testNode(m matcher, d addrspace.Descriptor, results *[]Result) bool {
	matched := m.matchesDescriptor(d)
	if !matched && e.session.IncludeValues {
		attrs, err := e.dir.ReadAttributes(e.ctx, d.Ref)
		if err != nil {
			if e.ctx.Err() == nil && !errors.Is(err, addrspace.ErrNotConnected) {
				e.noteError("read_attributes", d.Ref, err)
			}
		} else {
			matched = m.matchesAttributes(attrs)
		}
	}
	if !matched {
		return false
	}
	r := Result{Ref: d.Ref, Name: d.Label(), Class: d.Class}
	*results = append(*results, r)
	e.emit(ResultMsg{Result: r, Ordinal: len(*results)})
	e.logEvent(LevelDebug, "search_hit", map[string]any{
		"ref":  r.Ref.String(),
		"name": r.Name,
	})
	return true
}

func (e *Engine) complete(reason CompleteReason, results []Result, visited int) {
	e.logEvent(LevelInfo, "search_complete", map[string]any{
		"reason":  reason.String(),
		"results": len(results),
		"visited": visited,
	})
	e.emitFinal(CompleteMsg{Results: results, Reason: reason, Visited: visited})
}

func (e *Engine) cancelled(results []Result) {
	e.logEvent(LevelInfo, "search_cancelled", map[string]any{
		"results": len(results),
	})
	e.emitFinal(CancelledMsg{})
}

func (e *Engine) noteError(phase string, ref addrspace.NodeRef, err error) {
	we := &EngineError{Phase: phase, Cause: err, Time: time.Now()}
	e.mu.Lock()
	e.lastErr = we
	e.mu.Unlock()
	e.logEvent(LevelWarn, "search_"+phase+"_failed", map[string]any{
		"ref":   ref.String(),
		"error": err.Error(),
	})
}

// emit sends a non-terminal message. When the channel is full an older
// message is dropped so the newest wins; a cancelled context abandons the
// send entirely.
func (e *Engine) emit(msg Msg) {
	for {
		select {
		case e.msgCh <- msg:
			return
		case <-e.ctx.Done():
			return
		default:
		}
		select {
		case <-e.msgCh:
		default:
		}
	}
}

// emitFinal sends the terminal message. It keeps freeing buffer slots until
// the send lands, so the terminal message is never lost, even after
// cancellation.
func (e *Engine) emitFinal(msg Msg) {
	for {
		select {
		case e.msgCh <- msg:
			return
		default:
		}
		select {
		case <-e.msgCh:
		default:
		}
	}
}

func (e *Engine) logEvent(level LogLevel, event string, fields map[string]any) {
	if e == nil || level == LevelNone {
		return
	}
	if e.logLevel == LevelNone || level > e.logLevel {
		return
	}

	payload := map[string]any{
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level.String(),
		"component": "search_engine",
		"event":     event,
	}
	for k, v := range fields {
		payload[k] = v
	}
	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("search engine: failed to marshal log event %s: %v", event, err)
		return
	}
	log.Printf("%s", b)
}
