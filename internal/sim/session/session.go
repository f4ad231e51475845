package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"driftline.space/internal/persistence/snapshot"
	"driftline.space/internal/sim/activation"
	"driftline.space/internal/sim/world"
)

var ErrStopped = errors.New("session stopped")

// DayEntry is written once per simulated day.
type DayEntry struct {
	Date         int64    `json:"date"`
	ActiveSector string   `json:"active_sector,omitempty"`
	Departures   []string `json:"departures,omitempty"`
	Arrivals     []string `json:"arrivals,omitempty"`
	Travels      int      `json:"travels"`
	Fleets       int      `json:"fleets"`
}

type DayLogger interface {
	WriteDay(entry DayEntry) error
}

// Index is the queryable read model fed by the session.
type Index interface {
	WriteDay(entry DayEntry) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1) error
}

// Publisher receives copies of the active sector summary. Publish must not
// block.
type Publisher interface {
	Publish(sum activation.Summary)
}

type Config struct {
	World      *world.World
	Controller *activation.Controller
	Logger     zerolog.Logger

	// SnapshotDir disables periodic snapshots when empty.
	SnapshotDir string
	// SnapshotEveryDays overrides the tuning value when > 0.
	SnapshotEveryDays int

	DayLog    DayLogger
	Index     Index
	Publisher Publisher
}

// TravelInfo is a copy of a travel record, safe to return across goroutines.
type TravelInfo struct {
	ID            string `json:"id"`
	FleetID       string `json:"fleet_id"`
	OriginID      string `json:"origin_id"`
	DestinationID string `json:"destination_id"`
	DepartureDate int64  `json:"departure_date"`
	Duration      int64  `json:"duration"`
}

type travelReq struct {
	fleetID string
	destID  string
	resp    chan travelResp
}

type travelResp struct {
	info TravelInfo
	err  error
}

// Session drives one world: active-sector ticks, day advances, travel
// requests, snapshots. Only the goroutine running Run (or calling Step
// directly) may touch the world.
type Session struct {
	cfg Config
	w   *world.World
	ctl *activation.Controller
	log zerolog.Logger

	tick    uint64
	dayTick int

	departures []string

	travel   chan travelReq
	stop     chan struct{}
	stopOnce sync.Once
}

func New(cfg Config) (*Session, error) {
	if cfg.World == nil {
		return nil, errors.New("session: nil world")
	}
	if cfg.Controller == nil {
		return nil, errors.New("session: nil controller")
	}
	if cfg.SnapshotEveryDays <= 0 {
		cfg.SnapshotEveryDays = max(1, cfg.World.Tuning().SnapshotEveryDays)
	}
	return &Session{
		cfg:    cfg,
		w:      cfg.World,
		ctl:    cfg.Controller,
		log:    cfg.Logger.With().Str("component", "session").Logger(),
		travel: make(chan travelReq, 64),
		stop:   make(chan struct{}),
	}, nil
}

func (s *Session) World() *world.World { return s.w }

// Tick is the number of steps taken since the session started.
func (s *Session) Tick() uint64 { return s.tick }

// Resume activates the sector holding the player ship.
func (s *Session) Resume() error {
	_ = s.ctl.Save()
	if err := s.sync(nil); err != nil {
		return err
	}
	s.publish()
	return nil
}

func (s *Session) Run(ctx context.Context) error {
	if err := s.Resume(); err != nil {
		return err
	}
	interval := time.Second / time.Duration(s.w.Tuning().TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()
		case <-s.stop:
			s.shutdown()
			return nil
		case req := <-s.travel:
			info, err := s.StartTravel(req.fleetID, req.destID)
			req.resp <- travelResp{info: info, err: err}
		case <-ticker.C:
			s.Step()
		}
	}
}

func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Step advances the active sector by one tick and the calendar by one day
// every DayTicks steps.
func (s *Session) Step() {
	tu := s.w.Tuning()
	s.tick++
	s.ctl.Tick(1 / float64(tu.TickRateHz))
	if s.tick%uint64(tu.TickRateHz) == 0 {
		s.publish()
	}
	s.dayTick++
	if s.dayTick >= tu.DayTicks {
		s.dayTick = 0
		s.AdvanceDay()
	}
}

// AdvanceDay saves the active sector, simulates one day of travel and
// reloads the active sector when fleets landed in it.
func (s *Session) AdvanceDay() {
	_ = s.ctl.Save()
	arrived := s.w.SimulateDay()

	entry := DayEntry{
		Date:       s.w.Date(),
		Departures: s.departures,
		Travels:    len(s.w.Travels()),
		Fleets:     len(s.w.Fleets()),
	}
	s.departures = nil
	touched := map[string]bool{}
	for _, f := range arrived {
		touched[f.SectorID] = true
		entry.Arrivals = append(entry.Arrivals, f.ID)
	}
	if err := s.sync(touched); err != nil {
		s.log.Error().Err(err).Int64("date", entry.Date).Msg("activate player sector")
	}
	if sec, err := s.ctl.Active(); err == nil {
		entry.ActiveSector = sec.Parent().ID
	}

	if s.cfg.DayLog != nil {
		if err := s.cfg.DayLog.WriteDay(entry); err != nil {
			s.log.Warn().Err(err).Int64("date", entry.Date).Msg("day log")
		}
	}
	if s.cfg.Index != nil {
		_ = s.cfg.Index.WriteDay(entry)
	}
	if s.cfg.SnapshotDir != "" && entry.Date%int64(s.cfg.SnapshotEveryDays) == 0 {
		if _, err := s.Snapshot(); err != nil {
			s.log.Error().Err(err).Int64("date", entry.Date).Msg("snapshot")
		}
	}
	s.log.Info().Int64("date", entry.Date).Int("arrivals", len(entry.Arrivals)).Str("sector", entry.ActiveSector).Msg("day")
	s.publish()
}

// StartTravel sends a fleet to destID and refreshes the active sector the
// fleet left.
func (s *Session) StartTravel(fleetID, destID string) (TravelInfo, error) {
	f := s.w.Fleet(fleetID)
	if f == nil {
		return TravelInfo{}, fmt.Errorf("travel %q: %w", fleetID, world.ErrUnknownFleet)
	}
	_ = s.ctl.Save()
	origin := f.SectorID
	t, err := s.w.StartTravel(f, destID)
	if err != nil {
		return TravelInfo{}, err
	}
	s.departures = append(s.departures, f.ID)
	if err := s.sync(map[string]bool{origin: true}); err != nil {
		s.log.Error().Err(err).Str("fleet", f.ID).Msg("activate player sector")
	}
	return TravelInfo{
		ID:            t.ID,
		FleetID:       t.FleetID,
		OriginID:      t.OriginID,
		DestinationID: t.DestinationID,
		DepartureDate: t.DepartureDate,
		Duration:      t.Duration,
	}, nil
}

// RequestTravel hands a travel order to the Run loop and waits for its
// outcome. Safe to call from any goroutine.
func (s *Session) RequestTravel(ctx context.Context, fleetID, destID string) (TravelInfo, error) {
	select {
	case <-s.stop:
		return TravelInfo{}, ErrStopped
	default:
	}
	req := travelReq{fleetID: fleetID, destID: destID, resp: make(chan travelResp, 1)}
	select {
	case s.travel <- req:
	case <-ctx.Done():
		return TravelInfo{}, ctx.Err()
	case <-s.stop:
		return TravelInfo{}, ErrStopped
	}
	select {
	case r := <-req.resp:
		return r.info, r.err
	case <-ctx.Done():
		return TravelInfo{}, ctx.Err()
	case <-s.stop:
		return TravelInfo{}, ErrStopped
	}
}

// Snapshot saves the active sector and writes the world to SnapshotDir.
func (s *Session) Snapshot() (string, error) {
	if s.cfg.SnapshotDir == "" {
		return "", errors.New("snapshot: no directory configured")
	}
	_ = s.ctl.Save()
	snap := s.w.ExportSnapshot()
	path := filepath.Join(s.cfg.SnapshotDir, snapshot.FileName(snap.Header.Date))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if s.cfg.Index != nil {
		_ = s.cfg.Index.RecordSnapshot(path, snap)
	}
	s.log.Info().Str("path", path).Int64("date", snap.Header.Date).Msg("snapshot written")
	return path, nil
}

// sync makes the sector holding the player ship the active one. Callers
// save the active sector before mutating the world, so a reload never
// loses state. touched lists sectors whose population changed.
func (s *Session) sync(touched map[string]bool) error {
	active, err := s.ctl.Active()
	target := ""
	if ps := s.w.PlayerShip(); ps != nil {
		target = ps.SectorID
	} else if err == nil {
		target = active.Parent().ID
	}
	if target == "" {
		return nil
	}
	if err == nil && active.Parent().ID == target && !touched[target] && s.w.Sector(target) != nil {
		return nil
	}
	_, err = s.ctl.Reload(target)
	return err
}

func (s *Session) shutdown() {
	if s.cfg.SnapshotDir != "" {
		if _, err := s.Snapshot(); err != nil {
			s.log.Error().Err(err).Msg("final snapshot")
		}
		return
	}
	_ = s.ctl.Save()
}

func (s *Session) publish() {
	if s.cfg.Publisher == nil {
		return
	}
	if sec, err := s.ctl.Active(); err == nil {
		s.cfg.Publisher.Publish(sec.Summary())
		return
	}
	s.cfg.Publisher.Publish(activation.Summary{Date: s.w.Date(), State: activation.StateInactive.String()})
}
