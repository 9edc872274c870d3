package ui

import (
	"fmt"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
	"github.com/vanderheijden86/spacewalk/pkg/metrics"
	"github.com/vanderheijden86/spacewalk/pkg/search"
)

// drainBudget caps how many engine messages one tick may consume so a
// chatty engine cannot starve input handling.
const drainBudget = 64

// SearchCoordinator mediates between the event loop and one background
// search session. It drains the engine channel without blocking, keeps the
// tallies the searchbar renders, and owns cancellation. All methods run on
// the event loop; the engine goroutine only ever touches the channel.
type SearchCoordinator struct {
	engine *search.Engine
	query  string

	visited int
	queued  int
	current string

	results   []search.Result
	reason    search.CompleteReason
	done      bool
	cancelled bool

	revealed  bool // first-hit navigation already dispatched
	revealIdx int  // results cursor for next/prev navigation

	stopTimer func() // records the session into the search_run metric
}

// drainSummary tells the model what one tick's drain produced.
type drainSummary struct {
	firstHit *search.Result // session's first match, nil otherwise
	terminal bool           // Complete or Cancelled arrived this tick
}

// Start launches a new session, cancelling any prior one. The prior
// engine's goroutine unwinds on its own; its terminal send never blocks.
func (c *SearchCoordinator) Start(dir addrspace.Directory, session search.Session, cfg search.Config) {
	if c.engine != nil {
		c.engine.Cancel()
	}
	c.engine = search.NewEngine(dir, session, cfg)
	c.query = session.Query
	c.visited = 0
	c.queued = 0
	c.current = ""
	c.results = nil
	c.reason = 0
	c.done = false
	c.cancelled = false
	c.revealed = false
	c.revealIdx = 0
	c.stopTimer = metrics.Timer(metrics.SearchRun)
	c.engine.Start()
}

// Cancel asks the running engine to stop. The terminal message still
// arrives on a later drain.
func (c *SearchCoordinator) Cancel() {
	if c.engine != nil && !c.done {
		c.engine.Cancel()
	}
}

// Searching reports whether a session is running (terminal not yet seen).
func (c *SearchCoordinator) Searching() bool {
	return c.engine != nil && !c.done
}

// Query returns the active (or last) session's query.
func (c *SearchCoordinator) Query() string { return c.query }

// Results returns the matches collected so far, in arrival order.
func (c *SearchCoordinator) Results() []search.Result { return c.results }

// Visited and Queued mirror the engine's last progress report.
func (c *SearchCoordinator) Visited() int { return c.visited }

func (c *SearchCoordinator) Queued() int { return c.queued }

// Current is the label of the node the engine reported visiting last.
func (c *SearchCoordinator) Current() string { return c.current }

// Drain consumes up to drainBudget pending engine messages without
// blocking and folds them into the coordinator state.
func (c *SearchCoordinator) Drain() drainSummary {
	var sum drainSummary
	if c.engine == nil || c.done {
		return sum
	}
	for i := 0; i < drainBudget; i++ {
		select {
		case msg := <-c.engine.Messages():
			c.apply(msg, &sum)
			if c.done {
				return sum
			}
		default:
			return sum
		}
	}
	return sum
}

func (c *SearchCoordinator) apply(msg search.Msg, sum *drainSummary) {
	switch m := msg.(type) {
	case search.ProgressMsg:
		c.visited = m.Visited
		c.queued = m.Queued
		c.current = m.Current

	case search.ResultMsg:
		c.results = append(c.results, m.Result)
		if !c.revealed {
			c.revealed = true
			hit := m.Result
			sum.firstHit = &hit
		}

	case search.CompleteMsg:
		// The engine's final tally supersedes the incremental one; under
		// first-hit cancellation they are usually identical.
		if len(m.Results) >= len(c.results) {
			c.results = m.Results
		}
		c.visited = m.Visited
		c.reason = m.Reason
		c.done = true
		sum.terminal = true

	case search.CancelledMsg:
		c.cancelled = true
		c.done = true
		sum.terminal = true
	}

	if c.done && c.stopTimer != nil {
		c.stopTimer()
		c.stopTimer = nil
	}
}

// NextResult advances the results cursor and returns the match to reveal.
func (c *SearchCoordinator) NextResult() (search.Result, bool) {
	if len(c.results) == 0 {
		return search.Result{}, false
	}
	c.revealIdx = (c.revealIdx + 1) % len(c.results)
	return c.results[c.revealIdx], true
}

// PrevResult steps the results cursor backwards.
func (c *SearchCoordinator) PrevResult() (search.Result, bool) {
	if len(c.results) == 0 {
		return search.Result{}, false
	}
	c.revealIdx = (c.revealIdx - 1 + len(c.results)) % len(c.results)
	return c.results[c.revealIdx], true
}

// StatusLine summarizes a finished session for the footer.
func (c *SearchCoordinator) StatusLine() string {
	if c.engine == nil {
		return ""
	}
	if !c.done {
		return fmt.Sprintf("searching %q… visited %d, queued %d", c.query, c.visited, c.queued)
	}
	if c.cancelled && len(c.results) == 0 {
		return fmt.Sprintf("search %q cancelled", c.query)
	}
	n := len(c.results)
	noun := "matches"
	if n == 1 {
		noun = "match"
	}
	if c.cancelled {
		return fmt.Sprintf("search %q: %d %s (stopped at first hit)", c.query, n, noun)
	}
	return fmt.Sprintf("search %q: %d %s (%s)", c.query, n, noun, c.reason)
}
