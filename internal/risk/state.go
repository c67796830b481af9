package risk

import (
	"sync"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// State is the per-strategy mutable risk state: daily PnL, open
// positions and today's trade count. Mutated only by Gate commits and
// the resolver. All access goes through the mutex — evaluate+commit for
// the same State never races past the concurrency cap.
type State struct {
	mu sync.Mutex

	loc *time.Location // daily reset boundary, configured explicitly
	day time.Time      // start of the current trading day

	dailyPnL   float64
	tradeCount int
	open       map[string]domain.Position // position ID → open position

	lastTrade map[string]time.Time // market ID → last trade (cooldown)
	entries   map[string]int       // market ID → entries today
}

// NewState creates an empty State that resets at midnight of loc.
func NewState(loc *time.Location, now time.Time) *State {
	return &State{
		loc:       loc,
		day:       dayStart(now, loc),
		open:      make(map[string]domain.Position),
		lastTrade: make(map[string]time.Time),
		entries:   make(map[string]int),
	}
}

// Snapshot is an immutable view of the State for pure gate evaluation.
type Snapshot struct {
	DailyPnL        float64
	OpenPositions   []domain.Position
	TradeCountToday int
	LastTrade       map[string]time.Time
	Entries         map[string]int
}

// Rehydrate loads open positions persisted before a restart.
func (s *State) Rehydrate(positions []domain.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range positions {
		if p.Status == domain.PositionOpen {
			s.open[p.ID] = p
		}
	}
}

// AddDailyPnL accumulates realized PnL attributed to today.
func (s *State) AddDailyPnL(now time.Time, pnl float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetIfNewDay(now)
	s.dailyPnL += pnl
}

// ClosePosition removes a position from the open set and applies its
// realized PnL. Returns false if the position was not open.
func (s *State) ClosePosition(now time.Time, positionID string, pnl float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.open[positionID]; !ok {
		return false
	}
	delete(s.open, positionID)
	s.resetIfNewDay(now)
	s.dailyPnL += pnl
	return true
}

// OpenByMarket returns the open positions for a market.
func (s *State) OpenByMarket(marketID string) []domain.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Position
	for _, p := range s.open {
		if p.MarketID == marketID {
			out = append(out, p)
		}
	}
	return out
}

// OpenMarkets returns the distinct market IDs with open positions.
func (s *State) OpenMarkets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool, len(s.open))
	var out []string
	for _, p := range s.open {
		if !seen[p.MarketID] {
			seen[p.MarketID] = true
			out = append(out, p.MarketID)
		}
	}
	return out
}

// DailyPnL returns today's realized PnL.
func (s *State) DailyPnL(now time.Time) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetIfNewDay(now)
	return s.dailyPnL
}

// RemainingDailyBudget is how much the sizer may still risk today:
// the loss limit shrunk by today's losses. Profits do not expand it.
func (s *State) RemainingDailyBudget(now time.Time, dailyLossLimitUSD float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetIfNewDay(now)
	remaining := dailyLossLimitUSD
	if s.dailyPnL < 0 {
		remaining += s.dailyPnL
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

// snapshotLocked builds a Snapshot. Caller holds the mutex.
func (s *State) snapshotLocked() Snapshot {
	snap := Snapshot{
		DailyPnL:        s.dailyPnL,
		TradeCountToday: s.tradeCount,
		LastTrade:       make(map[string]time.Time, len(s.lastTrade)),
		Entries:         make(map[string]int, len(s.entries)),
	}
	for _, p := range s.open {
		snap.OpenPositions = append(snap.OpenPositions, p)
	}
	for k, v := range s.lastTrade {
		snap.LastTrade[k] = v
	}
	for k, v := range s.entries {
		snap.Entries[k] = v
	}
	return snap
}

// Snapshot returns a consistent view of the state.
func (s *State) Snapshot(now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetIfNewDay(now)
	return s.snapshotLocked()
}

// commitLocked reserves a new open position. Caller holds the mutex.
func (s *State) commitLocked(p domain.Position, now time.Time) {
	s.open[p.ID] = p
	s.tradeCount++
	s.lastTrade[p.MarketID] = now
	s.entries[p.MarketID]++
}

// Release drops a reservation whose execution failed. The cooldown and
// entry count stay — the attempt happened.
func (s *State) Release(positionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.open, positionID)
}

// Confirm updates a reserved position with the actual fill.
func (s *State) Confirm(positionID string, entryPrice, sizeUSD float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.open[positionID]; ok {
		p.EntryPrice = entryPrice
		p.SizeUSD = sizeUSD
		s.open[positionID] = p
	}
}

// resetIfNewDay zeroes the daily counters when the configured boundary
// passes. Caller holds the mutex.
func (s *State) resetIfNewDay(now time.Time) {
	start := dayStart(now, s.loc)
	if start.After(s.day) {
		s.day = start
		s.dailyPnL = 0
		s.tradeCount = 0
		s.entries = make(map[string]int)
	}
}

func dayStart(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
