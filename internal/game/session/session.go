package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"sudooom.memmatch/internal/game/deck"
	"sudooom.memmatch/internal/game/event"
	"sudooom.memmatch/internal/game/pairing"
	"sudooom.memmatch/internal/game/tile"
	"sudooom.memmatch/internal/task"
	apperrors "sudooom.memmatch/pkg/errors"
)

const scoreTimeout = 5 * time.Second

// Scores persisted high scores, keyed by player
type Scores interface {
	Get(ctx context.Context, player string) (int, error)
	SaveIfHigher(ctx context.Context, player string, score int) (bool, error)
}

// State session lifecycle
type State int8

const (
	Idle State = iota
	InProgress
	Over
)

// String returns the wire name of the state
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InProgress:
		return "in_progress"
	case Over:
		return "over"
	default:
		return "unknown"
	}
}

// Options collaborators of a session. Deck, Scores and Bus are optional.
type Options struct {
	ID     string
	Player string
	Timer  task.Timer
	Pools  *Pools
	Deck   deck.Builder
	Scores Scores
	Bus    *event.Bus
}

// Snapshot point-in-time view of a session
type Snapshot struct {
	ID        string     `json:"id"`
	Player    string     `json:"player"`
	State     string     `json:"state"`
	Round     int        `json:"round"`
	Rows      int        `json:"rows"`
	Cols      int        `json:"cols"`
	Remaining int        `json:"remaining"`
	HUD       event.HUD  `json:"hud"`
	Tiles     []TileView `json:"tiles"`
}

// Session one player's game: board, pairing core, tallies and lifecycle
type Session struct {
	id       string
	player   string
	cfg      Config
	timer    task.Timer
	pools    *Pools
	deck     deck.Builder
	scores   Scores
	bus      *event.Bus
	queue    *pairing.Queue
	resolver *pairing.Resolver

	mu        sync.Mutex // guards everything below
	state     State
	round     int
	board     *Board
	highScore int
	closed    bool
	rng       *rand.Rand

	lastActive atomic.Int64
	logger     *slog.Logger
}

// New creates an idle session
func New(cfg Config, opts Options) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Timer == nil || opts.Pools == nil {
		return nil, apperrors.ErrInvalidParams.Wrap(errors.New("session needs a timer and tile pools"))
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Deck == nil {
		opts.Deck = deck.NewGenerator(cfg.Seed, cfg.SymbolCount)
	}
	if opts.Bus == nil {
		opts.Bus = event.NewBus()
	}
	if cfg.PoolKey == "" {
		cfg.PoolKey = DefaultPoolKey
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	s := &Session{
		id:     opts.ID,
		player: opts.Player,
		cfg:    cfg,
		timer:  opts.Timer,
		pools:  opts.Pools,
		deck:   opts.Deck,
		scores: opts.Scores,
		bus:    opts.Bus,
		queue:  pairing.NewQueue(),
		rng:    rand.New(rand.NewPCG(seed, ^seed)),
		logger: slog.Default().With("component", "Session", "sessionId", opts.ID),
	}
	s.resolver = pairing.NewResolver(opts.Timer, s.queue, pairing.Rules{
		CompareDelay:    cfg.CompareDelay,
		FlipBackDelay:   cfg.FlipBackDelay,
		MatchScore:      cfg.MatchScore,
		MismatchPenalty: cfg.MismatchPenalty,
	}, hooks{s})
	s.touch()

	return s, nil
}

// StartNewGame resets tallies, cancels outstanding comparisons and lays out a fresh deck.
// An odd tile count is rejected before anything changes.
func (s *Session) StartNewGame(ctx context.Context, rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return apperrors.ErrInvalidBoard.Wrap(fmt.Errorf("rows=%d cols=%d", rows, cols))
	}
	n := rows * cols
	if n%2 != 0 {
		s.logger.Warn("Odd tile count rejected", "rows", rows, "cols", cols)
		return apperrors.ErrOddTileCount.Wrap(fmt.Errorf("rows=%d cols=%d", rows, cols))
	}

	symbols, err := s.deck.BuildDeck(n / 2)
	if err != nil {
		s.logger.Warn("Deck rejected", "rows", rows, "cols", cols, "error", err)
		if errors.Is(err, deck.ErrNotEnoughSymbols) {
			return apperrors.ErrNotEnoughSymbols.Wrap(err)
		}
		return apperrors.ErrInvalidBoard.Wrap(err)
	}

	high, loaded := s.loadHighScore(ctx)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return apperrors.ErrSessionClosed
	}

	s.round++
	round := s.round
	s.resolver.Reset(uint64(round))
	if s.board != nil {
		s.board.Clear()
		s.board = nil
	}
	s.state = Idle
	if loaded {
		s.highScore = high
	}

	board, err := GridBuilder{Pools: s.pools, Key: s.cfg.PoolKey}.Build(rows, cols, symbols, tile.Binding{
		Timer:          s.timer,
		FlipDuration:   s.cfg.FlipDuration,
		RetireDuration: s.cfg.RetireDuration,
		Listener:       hooks{s},
	})
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("Board construction aborted", "rows", rows, "cols", cols, "error", err)
		return err
	}

	s.board = board
	s.state = InProgress
	hud := s.hudLocked(pairing.Tallies{})
	s.mu.Unlock()
	s.touch()

	s.logger.Info("New game started", "round", round, "rows", rows, "cols", cols)
	s.publish(event.Event{Kind: event.KindHUDChanged, Round: round, HUD: hud})
	return nil
}

// RestartWithRandomLayout starts a game with random dimensions inside r. An odd product is fixed
// by dropping a column, else a row, else growing a column, else growing a row.
func (s *Session) RestartWithRandomLayout(ctx context.Context, r LayoutRange) error {
	if r.MinRows <= 0 || r.MinCols <= 0 || r.MinRows > r.MaxRows || r.MinCols > r.MaxCols {
		return apperrors.ErrInvalidRange.Wrap(fmt.Errorf("rows %d..%d cols %d..%d", r.MinRows, r.MaxRows, r.MinCols, r.MaxCols))
	}

	s.mu.Lock()
	rows := r.MinRows + s.rng.IntN(r.MaxRows-r.MinRows+1)
	cols := r.MinCols + s.rng.IntN(r.MaxCols-r.MinCols+1)
	s.mu.Unlock()

	rows, cols, ok := evenLayout(rows, cols, r)
	if !ok {
		return apperrors.ErrInvalidRange.Wrap(fmt.Errorf("rows %d..%d cols %d..%d", r.MinRows, r.MaxRows, r.MinCols, r.MaxCols))
	}
	return s.StartNewGame(ctx, rows, cols)
}

func evenLayout(rows, cols int, r LayoutRange) (int, int, bool) {
	if rows*cols%2 == 0 {
		return rows, cols, true
	}
	switch {
	case cols > r.MinCols:
		cols--
	case rows > r.MinRows:
		rows--
	case cols < r.MaxCols:
		cols++
	case rows < r.MaxRows:
		rows++
	default:
		return rows, cols, false
	}
	return rows, cols, true
}

// Flip requests a flip of the tile at position. Illegal flips report false without error.
func (s *Session) Flip(position int) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, apperrors.ErrSessionClosed
	}
	if s.board == nil {
		s.mu.Unlock()
		return false, apperrors.ErrNoGameInProgress
	}
	if position < 0 || position >= s.board.rows*s.board.cols {
		s.mu.Unlock()
		return false, apperrors.ErrTileNotFound.Wrap(fmt.Errorf("position %d", position))
	}
	h, ok := s.board.At(position)
	inProgress := s.state == InProgress
	s.mu.Unlock()
	s.touch()

	if !ok || !inProgress {
		return false, nil
	}
	return h.RequestFlip(), nil
}

// EndGame moves an in-progress game to Over, persists a beaten high score and emits GameOver.
// Runs automatically when the last tile retires.
func (s *Session) EndGame(ctx context.Context) bool {
	return s.endRound(ctx, s.Round())
}

func (s *Session) endRound(ctx context.Context, round int) bool {
	s.mu.Lock()
	if s.state != InProgress || s.round != round {
		s.mu.Unlock()
		return false
	}
	s.state = Over
	previous := s.highScore
	s.mu.Unlock()

	t := s.resolver.Tallies()
	newHigh := t.Score > previous
	high := previous
	if newHigh {
		high = t.Score
		s.saveHighScore(ctx, t.Score)

		s.mu.Lock()
		if s.round == round && s.highScore < t.Score {
			s.highScore = t.Score
		}
		s.mu.Unlock()
	}

	s.logger.Info("Game over",
		"round", round,
		"score", t.Score,
		"moves", t.Moves,
		"matches", t.Matches,
		"highScore", high,
		"newHighScore", newHigh)

	s.publish(event.Event{
		Kind:  event.KindGameOver,
		Round: round,
		HUD: event.HUD{
			Score:     t.Score,
			Moves:     t.Moves,
			Matches:   t.Matches,
			HighScore: high,
		},
		NewHighScore: newHigh,
	})
	return true
}

func (s *Session) loadHighScore(ctx context.Context) (int, bool) {
	if s.scores == nil {
		return 0, false
	}
	ctx, cancel := context.WithTimeout(ctx, scoreTimeout)
	defer cancel()

	high, err := s.scores.Get(ctx, s.player)
	if err != nil {
		s.logger.Warn("Failed to load high score", "player", s.player, "error", err)
		return 0, false
	}
	return high, true
}

func (s *Session) saveHighScore(ctx context.Context, score int) {
	if s.scores == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, scoreTimeout)
	defer cancel()

	if _, err := s.scores.SaveIfHigher(ctx, s.player, score); err != nil {
		s.logger.Error("Failed to save high score", "player", s.player, "score", score, "error", err)
	}
}

// Close cancels pending work and returns the board to the pools
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.resolver.Reset(uint64(s.round))
	if s.board != nil {
		s.board.Clear()
		s.board = nil
	}
	s.state = Idle
	s.mu.Unlock()

	s.bus.Close()
	s.logger.Info("Session closed")
}

// Subscribe registers an observer for this session's notifications
func (s *Session) Subscribe(h event.Handler, kinds ...event.Kind) *event.Subscription {
	return s.bus.Subscribe(h, kinds...)
}

// Snapshot returns the player's view of the session
func (s *Session) Snapshot() Snapshot {
	t := s.resolver.Tallies()

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:     s.id,
		Player: s.player,
		State:  s.state.String(),
		Round:  s.round,
		HUD:    s.hudLocked(t),
	}
	if s.board != nil {
		snap.Rows = s.board.rows
		snap.Cols = s.board.cols
		snap.Remaining = s.board.remaining
		snap.Tiles = s.board.Views()
	}
	return snap
}

// ID session id
func (s *Session) ID() string { return s.id }

// Player high score key
func (s *Session) Player() string { return s.player }

// Config session rules
func (s *Session) Config() Config { return s.cfg }

// State lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Round number of games started
func (s *Session) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.round
}

// Tallies current score, moves and matches
func (s *Session) Tallies() pairing.Tallies {
	return s.resolver.Tallies()
}

// HighScore best score known for the player
func (s *Session) HighScore() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.highScore
}

// Remaining tiles still in play, 0 without a board
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.board == nil {
		return 0
	}
	return s.board.remaining
}

// PendingComparisons scheduled, unresolved comparison units
func (s *Session) PendingComparisons() int {
	return s.resolver.Pending()
}

// QueueLength face-up tiles waiting for a partner
func (s *Session) QueueLength() int {
	return s.queue.Len()
}

// LastActive time of the last player command
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

func (s *Session) hudLocked(t pairing.Tallies) event.HUD {
	return event.HUD{
		Score:     t.Score,
		Moves:     t.Moves,
		Matches:   t.Matches,
		HighScore: s.highScore,
	}
}

func (s *Session) publish(e event.Event) {
	e.SessionID = s.id
	e.At = time.Now()
	s.bus.Publish(e)
}

func ref(info tile.Info) event.TileRef {
	return event.TileRef{ID: info.ID, Position: info.Position, SymbolID: info.SymbolID}
}

// hooks receives tile and resolver callbacks on behalf of a session
type hooks struct {
	s *Session
}

func (h hooks) TileFlipped(th tile.Handle) {
	s := h.s

	s.mu.Lock()
	info, ok := th.Info()
	round := s.round
	s.mu.Unlock()
	if !ok {
		return
	}

	s.publish(event.Event{Kind: event.KindFlipped, Round: round, Tiles: []event.TileRef{ref(info)}})
	s.resolver.OnFlipped(th)
}

func (h hooks) TileRetired(th tile.Handle) {
	s := h.s

	s.mu.Lock()
	info, ok := th.Info()
	if !ok || s.board == nil || !s.board.Retire(th) {
		s.mu.Unlock()
		return
	}
	round := s.round
	remaining := s.board.remaining
	s.mu.Unlock()

	s.logger.Debug("Tile retired", "tileId", info.ID, "position", info.Position, "remaining", remaining)
	s.publish(event.Event{Kind: event.KindRetired, Round: round, Tiles: []event.TileRef{ref(info)}})

	if remaining == 0 {
		s.endRound(context.Background(), round)
	}
}

func (h hooks) Matched(epoch uint64, a, b tile.Info) {
	h.s.publish(event.Event{Kind: event.KindMatched, Round: int(epoch), Tiles: []event.TileRef{ref(a), ref(b)}})
}

func (h hooks) Mismatched(epoch uint64, a, b tile.Info) {
	h.s.publish(event.Event{Kind: event.KindMismatched, Round: int(epoch), Tiles: []event.TileRef{ref(a), ref(b)}})
}

func (h hooks) HUDChanged(epoch uint64, t pairing.Tallies) {
	s := h.s

	s.mu.Lock()
	hud := s.hudLocked(t)
	s.mu.Unlock()

	s.publish(event.Event{Kind: event.KindHUDChanged, Round: int(epoch), HUD: hud})
}
