package fortune

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	core "github.com/park285/Cheese-Fortune-bot/internal/fortune"
)

var (
	ErrRoomNotAllowed = errors.New("fortune room not allowed")
	ErrInvalidSlot    = errors.New("invalid fortune slot")
	ErrServiceClosed  = errors.New("fortune service closed")
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 50
	persistTimeout      = 5 * time.Second
	renderTimeout       = 5 * time.Second
	playerLabelLimit    = 24
)

// Sink delivers controller output that is not a direct command reply.
type Sink interface {
	Notify(ctx context.Context, room string, n core.Notification) error
	Results(ctx context.Context, room string, state *SpreadState) error
}

type SessionMeta struct {
	SessionID string
	Room      string
	Sender    string
}

type sessionIdentity struct {
	SessionID  string
	RoomHash   string
	PlayerHash string
}

type Config struct {
	Assignment    core.Assignment
	DefaultLocale core.Locale
	RevealDelay   time.Duration
	ResultsDelay  time.Duration
	SessionTTL    time.Duration
	HistoryLimit  int
	AllowedRooms  []string
	// IdleEvict drops in-memory controllers untouched for this long; zero disables it.
	IdleEvict time.Duration
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Catalog   core.Catalog
	Store     SessionStore
	Repo      Repository
	Renderer  SpreadRenderer
	Localizer core.Localizer
	Scheduler core.Scheduler
	Sink      Sink
	RNG       core.RNG
}

// SpreadState is the service view of a session handed to presenters.
type SpreadState struct {
	ReadingUUID    string
	PlayerHash     string
	RoomHash       string
	PlayerName     string
	Phase          core.Phase
	Locale         core.Locale
	Slots          []core.Slot
	Revealed       int
	EverStarted    bool
	// Restarted is set by Start when a game had been active before.
	Restarted      bool
	ResultsVisible bool
	Result         *core.FortuneResult
	StartedAt      time.Time
	UpdatedAt      time.Time
	Image          []byte
}

type RevealResult struct {
	Outcome core.RevealOutcome
	Slot    *core.Slot
	State   *SpreadState
}

type Service struct {
	deps         Deps
	cfg          Config
	allowedRooms map[string]struct{}
	logger       *zap.Logger
	now          func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
}

type session struct {
	key      string
	room     string
	identity sessionIdentity
	ctrl     *core.Controller

	// cmdMu serializes chat commands for one player
	cmdMu sync.Mutex
	// persistMu orders snapshot saves so an older snapshot never lands last
	persistMu sync.Mutex

	mu          sync.Mutex
	playerName  string
	readingUUID string
	startedAt   time.Time
	lastSeen    time.Time
}

func NewService(deps Deps, cfg Config, logger *zap.Logger) (*Service, error) {
	if err := deps.Catalog.Validate(); err != nil {
		return nil, fmt.Errorf("fortune catalog validation failed: %w", err)
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("fortune session store is required")
	}
	if deps.Repo == nil {
		return nil, fmt.Errorf("fortune repository is required")
	}
	if deps.Renderer == nil {
		return nil, fmt.Errorf("spread renderer is required")
	}
	if deps.Localizer == nil {
		return nil, fmt.Errorf("localizer is required")
	}
	if deps.Sink == nil {
		return nil, fmt.Errorf("fortune sink is required")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("session TTL must be greater than 0")
	}
	if cfg.Assignment == "" {
		cfg.Assignment = core.AssignFixed
	}
	if _, err := core.ParseAssignment(string(cfg.Assignment)); err != nil {
		return nil, err
	}
	if cfg.DefaultLocale != core.LocaleEN && cfg.DefaultLocale != core.LocaleZH {
		cfg.DefaultLocale = core.LocaleEN
	}
	if cfg.HistoryLimit <= 0 || cfg.HistoryLimit > maxHistoryLimit {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	allowedRooms := make(map[string]struct{})
	for _, room := range cfg.AllowedRooms {
		normalized := strings.ToLower(strings.TrimSpace(room))
		if normalized == "" {
			continue
		}
		allowedRooms[normalized] = struct{}{}
	}

	return &Service{
		deps:         deps,
		cfg:          cfg,
		allowedRooms: allowedRooms,
		logger:       logger,
		now:          time.Now,
		sessions:     make(map[string]*session),
	}, nil
}

// Start begins a new game, discarding any previous spread for the player.
func (s *Service) Start(ctx context.Context, meta SessionMeta) (*SpreadState, error) {
	sess, err := s.acquire(ctx, meta)
	if err != nil {
		return nil, err
	}
	defer sess.cmdMu.Unlock()

	restarted := sess.ctrl.Snapshot().EverStarted
	sess.ctrl.StartGame()
	state := s.stateOf(ctx, sess, true)
	state.Restarted = restarted
	s.logger.Info("fortune_start",
		zap.String("reading", state.ReadingUUID),
		zap.Bool("restarted", restarted),
	)
	return state, nil
}

// Reveal flips the zero-based slot index.
func (s *Service) Reveal(ctx context.Context, meta SessionMeta, index int) (*RevealResult, error) {
	sess, err := s.acquire(ctx, meta)
	if err != nil {
		return nil, err
	}
	defer sess.cmdMu.Unlock()

	outcome, err := sess.ctrl.RevealSlot(index)
	if err != nil {
		return &RevealResult{Outcome: outcome}, fmt.Errorf("%w: %v", ErrInvalidSlot, err)
	}

	s.logger.Debug("fortune_reveal",
		zap.Int("slot", index),
		zap.String("outcome", outcome.String()),
	)
	result := &RevealResult{Outcome: outcome}
	result.State = s.stateOf(ctx, sess, outcome == core.RevealAccepted)
	if outcome != core.RevealNotStarted {
		slot := result.State.Slots[index]
		result.Slot = &slot
	}
	return result, nil
}

func (s *Service) Status(ctx context.Context, meta SessionMeta) (*SpreadState, error) {
	sess, err := s.acquire(ctx, meta)
	if err != nil {
		return nil, err
	}
	defer sess.cmdMu.Unlock()
	return s.stateOf(ctx, sess, sess.ctrl.Phase() != core.PhaseIdle), nil
}

// Results returns the state with Result set when all five draws are well formed.
func (s *Service) Results(ctx context.Context, meta SessionMeta) (*SpreadState, error) {
	sess, err := s.acquire(ctx, meta)
	if err != nil {
		return nil, err
	}
	defer sess.cmdMu.Unlock()

	state := s.stateOf(ctx, sess, false)
	if state.Result != nil {
		s.attachImage(ctx, state, true)
	}
	return state, nil
}

func (s *Service) Dismiss(ctx context.Context, meta SessionMeta) (*SpreadState, error) {
	sess, err := s.acquire(ctx, meta)
	if err != nil {
		return nil, err
	}
	defer sess.cmdMu.Unlock()

	sess.ctrl.DismissResults()
	return s.stateOf(ctx, sess, false), nil
}

func (s *Service) ToggleLanguage(ctx context.Context, meta SessionMeta) (core.Locale, error) {
	sess, err := s.acquire(ctx, meta)
	if err != nil {
		return "", err
	}
	defer sess.cmdMu.Unlock()
	return sess.ctrl.ToggleLanguage(), nil
}

// SetLanguage switches to loc if it is not already active.
func (s *Service) SetLanguage(ctx context.Context, meta SessionMeta, loc core.Locale) (core.Locale, error) {
	sess, err := s.acquire(ctx, meta)
	if err != nil {
		return "", err
	}
	defer sess.cmdMu.Unlock()

	if cur := sess.ctrl.Locale(); cur == loc {
		return cur, nil
	}
	return sess.ctrl.ToggleLanguage(), nil
}

func (s *Service) Locale(ctx context.Context, meta SessionMeta) (core.Locale, error) {
	sess, err := s.acquire(ctx, meta)
	if err != nil {
		return "", err
	}
	defer sess.cmdMu.Unlock()
	return sess.ctrl.Locale(), nil
}

func (s *Service) Settings(ctx context.Context, meta SessionMeta) error {
	sess, err := s.acquire(ctx, meta)
	if err != nil {
		return err
	}
	defer sess.cmdMu.Unlock()
	sess.ctrl.ShowSettings()
	return nil
}

func (s *Service) Credits(ctx context.Context, meta SessionMeta) error {
	sess, err := s.acquire(ctx, meta)
	if err != nil {
		return err
	}
	defer sess.cmdMu.Unlock()
	sess.ctrl.ShowCredits()
	return nil
}

// History lists the player's completed readings, newest first.
func (s *Service) History(ctx context.Context, meta SessionMeta, limit int) ([]*Reading, error) {
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxHistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	identity := deriveIdentity(meta)
	return s.deps.Repo.RecentReadings(ctx, identity.PlayerHash, limit)
}

// EvictIdle closes controllers idle since before now-IdleEvict. Sessions
// waiting on results are kept so the pending transition still fires.
func (s *Service) EvictIdle(now time.Time) int {
	if s.cfg.IdleEvict <= 0 {
		return 0
	}
	cutoff := now.Add(-s.cfg.IdleEvict)

	s.mu.Lock()
	var victims []*session
	for key, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()
		if !idle || sess.ctrl.Phase() == core.PhaseAllRevealed {
			continue
		}
		delete(s.sessions, key)
		victims = append(victims, sess)
	}
	s.mu.Unlock()

	for _, sess := range victims {
		sess.ctrl.Close()
	}
	if len(victims) > 0 {
		s.logger.Debug("fortune sessions evicted", zap.Int("count", len(victims)))
	}
	return len(victims)
}

// Run evicts idle sessions every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if s.cfg.IdleEvict <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			s.EvictIdle(t)
		}
	}
}

// Close cancels every pending controller task. Persisted state survives.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.ctrl.Close()
	}
}

// acquire returns the live session for meta with cmdMu held.
func (s *Service) acquire(ctx context.Context, meta SessionMeta) (*session, error) {
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}
	sess, err := s.session(ctx, meta)
	if err != nil {
		return nil, err
	}
	sess.cmdMu.Lock()
	sess.mu.Lock()
	sess.lastSeen = s.now()
	if name := normalizePlayerLabel(meta.Sender); name != "" {
		sess.playerName = name
	}
	sess.mu.Unlock()
	return sess, nil
}

func (s *Service) session(ctx context.Context, meta SessionMeta) (*session, error) {
	identity := deriveIdentity(meta)
	key := s.sessionKey(identity.SessionID)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrServiceClosed
	}
	if sess, ok := s.sessions[key]; ok {
		s.mu.Unlock()
		return sess, nil
	}
	s.mu.Unlock()

	rec, err := s.deps.Store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load fortune session: %w", err)
	}

	sess := &session{
		key:      key,
		room:     strings.TrimSpace(meta.Room),
		identity: identity,
		lastSeen: s.now(),
	}
	ctrl, err := s.newController(sess)
	if err != nil {
		return nil, err
	}
	sess.ctrl = ctrl

	if rec != nil {
		if err := ctrl.Restore(rec.State); err != nil {
			// 복구 불가능한 레코드는 버리고 새 세션으로 시작
			s.logger.Warn("fortune session restore failed",
				zap.String("session", key),
				zap.Error(err),
			)
			if derr := s.deps.Store.Delete(ctx, key); derr != nil {
				s.logger.Warn("fortune session discard failed", zap.String("session", key), zap.Error(derr))
			}
		} else {
			sess.readingUUID = rec.ReadingUUID
			sess.startedAt = rec.StartedAt
			sess.playerName = rec.PlayerName
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[key]; ok {
		ctrl.Close()
		return existing, nil
	}
	s.sessions[key] = sess
	return sess, nil
}

func (s *Service) newController(sess *session) (*core.Controller, error) {
	opts := []core.Option{
		core.WithAssignment(s.cfg.Assignment),
		core.WithLocale(s.cfg.DefaultLocale),
		core.WithLocalizer(s.deps.Localizer),
		core.WithDelays(s.cfg.RevealDelay, s.cfg.ResultsDelay),
		core.WithNotifier(core.NotifierFunc(func(n core.Notification) { s.notify(sess, n) })),
		core.WithObserver(func(kind core.EventKind, snap core.Snapshot) { s.observe(sess, kind, snap) }),
	}
	if s.deps.Scheduler != nil {
		opts = append(opts, core.WithScheduler(s.deps.Scheduler))
	}
	if s.deps.RNG != nil {
		opts = append(opts, core.WithRNG(s.deps.RNG))
	}
	return core.NewController(s.deps.Catalog, opts...)
}

func (s *Service) notify(sess *session, n core.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.deps.Sink.Notify(ctx, sess.room, n); err != nil {
		s.logger.Warn("fortune notification failed",
			zap.String("kind", string(n.Kind)),
			zap.String("room", sess.room),
			zap.Error(err),
		)
	}
}

func (s *Service) observe(sess *session, kind core.EventKind, _ core.Snapshot) {
	if kind == core.EventStarted {
		sess.mu.Lock()
		sess.readingUUID = uuid.NewString()
		sess.startedAt = s.now()
		sess.mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	s.persist(ctx, sess)

	if kind == core.EventResultsShown {
		s.completeReading(ctx, sess)
	}
}

// persist saves the controller's current snapshot. The snapshot is taken
// under persistMu, so the last write always carries the newest state.
func (s *Service) persist(ctx context.Context, sess *session) {
	sess.persistMu.Lock()
	defer sess.persistMu.Unlock()

	snap := sess.ctrl.Snapshot()
	sess.mu.Lock()
	rec := &SessionRecord{
		ReadingUUID: sess.readingUUID,
		Room:        sess.room,
		PlayerHash:  sess.identity.PlayerHash,
		RoomHash:    sess.identity.RoomHash,
		PlayerName:  sess.playerName,
		StartedAt:   sess.startedAt,
		UpdatedAt:   s.now(),
		State:       snap,
	}
	sess.mu.Unlock()

	if err := s.deps.Store.Save(ctx, sess.key, rec, s.cfg.SessionTTL); err != nil {
		s.logger.Warn("fortune session persist failed",
			zap.String("session", sess.key),
			zap.Error(err),
		)
	}
}

func (s *Service) completeReading(ctx context.Context, sess *session) {
	state := s.stateOf(ctx, sess, false)
	if state.Result == nil {
		return
	}
	s.logger.Info("fortune_results_shown",
		zap.String("reading", state.ReadingUUID),
		zap.Int("total", state.Result.TotalScore),
		zap.String("dominant", state.Result.DominantElement),
	)
	if _, err := s.deps.Repo.InsertReading(ctx, s.readingFrom(state)); err != nil {
		if errors.Is(err, ErrDuplicateReading) {
			s.logger.Debug("fortune reading already recorded", zap.String("reading", state.ReadingUUID))
		} else {
			s.logger.Warn("fortune reading insert failed",
				zap.String("reading", state.ReadingUUID),
				zap.Error(err),
			)
		}
	}

	rctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()
	s.attachImage(rctx, state, true)
	if err := s.deps.Sink.Results(ctx, sess.room, state); err != nil {
		s.logger.Warn("fortune results delivery failed",
			zap.String("room", sess.room),
			zap.Error(err),
		)
	}
}

func (s *Service) readingFrom(state *SpreadState) *Reading {
	draws := make([]ReadingDraw, 0, len(state.Result.Draws))
	for i, d := range state.Result.Draws {
		draws = append(draws, ReadingDraw{
			Slot:     i,
			SymbolID: d.Symbol.ID,
			Symbol:   d.Symbol.Name.EN,
			Number:   d.Number,
			Element:  d.Symbol.Element,
		})
	}
	return &Reading{
		ReadingUUID:     state.ReadingUUID,
		PlayerHash:      state.PlayerHash,
		RoomHash:        state.RoomHash,
		PlayerName:      state.PlayerName,
		Locale:          string(state.Locale),
		Assignment:      string(s.cfg.Assignment),
		Draws:           draws,
		TotalScore:      state.Result.TotalScore,
		DominantElement: state.Result.DominantElement,
		StartedAt:       state.StartedAt,
		CompletedAt:     s.now(),
	}
}

func (s *Service) stateOf(ctx context.Context, sess *session, withImage bool) *SpreadState {
	snap := sess.ctrl.Snapshot()
	slots, err := s.deps.Catalog.SlotsOf(snap)
	if err != nil {
		slots = make([]core.Slot, core.SlotCount)
		for i := range slots {
			slots[i] = core.Slot{Index: i}
		}
	}

	sess.mu.Lock()
	state := &SpreadState{
		ReadingUUID:    sess.readingUUID,
		PlayerHash:     sess.identity.PlayerHash,
		RoomHash:       sess.identity.RoomHash,
		PlayerName:     sess.playerName,
		Phase:          snap.Phase(),
		Locale:         snap.Locale,
		Slots:          slots,
		Revealed:       snap.RevealedCount(),
		EverStarted:    snap.EverStarted,
		ResultsVisible: snap.ResultsVisible,
		StartedAt:      sess.startedAt,
		UpdatedAt:      s.now(),
	}
	sess.mu.Unlock()

	if res, ok := core.ComputeResults(slots); ok {
		state.Result = &res
	}
	if withImage {
		s.attachImage(ctx, state, state.ResultsVisible)
	}
	return state
}

func (s *Service) attachImage(ctx context.Context, state *SpreadState, withResult bool) {
	img, err := s.deps.Renderer.RenderPNG(ctx, spreadView(state, withResult))
	if err != nil {
		s.logger.Warn("fortune spread render failed", zap.Error(err))
		return
	}
	state.Image = img
}

func spreadView(state *SpreadState, withResult bool) SpreadView {
	cards := make([]CardView, len(state.Slots))
	for i, sl := range state.Slots {
		cards[i] = CardView{Index: i, Revealed: sl.Revealed}
		if !sl.Revealed || sl.Drawn == nil {
			continue
		}
		d := sl.Drawn
		cards[i].Icon = d.Symbol.Icon
		cards[i].Name = d.Symbol.Name.EN
		cards[i].Number = d.Number
		cards[i].Element = d.Symbol.Element
		if cards[i].Name == "" {
			cards[i].Name = "?"
		}
	}
	header := fmt.Sprintf("FORTUNE SPREAD  %d/%d", state.Revealed, core.SlotCount)
	view := SpreadView{Header: header, Cards: cards}
	if withResult {
		view.Result = state.Result
	}
	return view
}

func (s *Service) ensureRoomAllowed(meta SessionMeta) error {
	if len(s.allowedRooms) == 0 {
		return nil
	}

	room := strings.ToLower(strings.TrimSpace(meta.Room))
	if room == "" {
		room = "unknown-room"
	}
	if _, ok := s.allowedRooms[room]; ok {
		return nil
	}

	s.logger.Info("fortune room access denied",
		zap.String("room", room),
		zap.String("sender", strings.TrimSpace(meta.Sender)),
	)
	return ErrRoomNotAllowed
}

func (s *Service) sessionKey(sessionID string) string {
	return hashString(sessionID)
}

func deriveIdentity(meta SessionMeta) sessionIdentity {
	sessionID := strings.ToLower(strings.TrimSpace(meta.SessionID))
	room := strings.ToLower(strings.TrimSpace(meta.Room))
	sender := strings.ToLower(strings.TrimSpace(meta.Sender))

	return sessionIdentity{
		SessionID:  sessionID,
		RoomHash:   hashString(room),
		PlayerHash: hashString(room + ":" + sender),
	}
}

func hashString(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func normalizePlayerLabel(raw string) string {
	label := strings.Join(strings.Fields(raw), " ")
	runes := []rune(label)
	if len(runes) > playerLabelLimit {
		return string(runes[:playerLabelLimit-1]) + "…"
	}
	return label
}
