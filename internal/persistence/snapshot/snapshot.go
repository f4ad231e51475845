package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Date    int64  `json:"date"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed int64 `json:"seed"`

	CatalogDigest string `json:"catalog_digest,omitempty"`

	Player PlayerV1 `json:"player"`

	Companies   []CompanyV1    `json:"companies"`
	Sectors     []SectorV1     `json:"sectors"`
	Spacecraft  []SpacecraftV1 `json:"spacecraft"`
	Fleets      []FleetV1      `json:"fleets"`
	Travels     []TravelV1     `json:"travels,omitempty"`
	Whitelists  []WhitelistV1  `json:"whitelists,omitempty"`
	TradeRoutes []TradeRouteV1 `json:"trade_routes,omitempty"`

	Counters CountersV1 `json:"counters"`
}

type PlayerV1 struct {
	CompanyID string `json:"company_id"`
	ShipID    string `json:"ship_id,omitempty"`
	FleetID   string `json:"fleet_id,omitempty"`
}

type CountersV1 struct {
	NextFleet  uint64 `json:"next_fleet"`
	NextTravel uint64 `json:"next_travel"`
	NextShip   uint64 `json:"next_ship"`
}

type CompanyV1 struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Player      bool     `json:"player,omitempty"`
	Hostiles    []string `json:"hostiles,omitempty"`
	WhitelistID string   `json:"whitelist_id,omitempty"`
	Visited     []string `json:"visited,omitempty"`
}

type SphereV1 struct {
	Center [3]float64 `json:"center"`
	Radius float64    `json:"radius"`
}

type AsteroidV1 struct {
	ID       string     `json:"id"`
	Location [3]float64 `json:"location"`
	Rotation [3]float64 `json:"rotation"`
	Scale    float64    `json:"scale"`
}

type MeteoriteV1 struct {
	ID       string     `json:"id"`
	Location [3]float64 `json:"location"`
	Velocity [3]float64 `json:"velocity"`
	Radius   float64    `json:"radius"`
	TargetID string     `json:"target_id,omitempty"`
	Damage   float64    `json:"damage,omitempty"`
	Exploded bool       `json:"exploded,omitempty"`
}

type BombV1 struct {
	ID           string     `json:"id"`
	ParentShipID string     `json:"parent_ship_id"`
	WeaponSlot   string     `json:"weapon_slot"`
	Location     [3]float64 `json:"location"`
	Velocity     [3]float64 `json:"velocity"`
	Armed        bool       `json:"armed,omitempty"`
}

type SectorV1 struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	LimitRadius float64       `json:"limit_radius"`
	LocalTime   float64       `json:"local_time"`
	Exclusions  []SphereV1    `json:"exclusions,omitempty"`
	Asteroids   []AsteroidV1  `json:"asteroids,omitempty"`
	Meteorites  []MeteoriteV1 `json:"meteorites,omitempty"`
	Bombs       []BombV1      `json:"bombs,omitempty"`
}

type CargoSlotV1 struct {
	Resource string `json:"resource,omitempty"`
	Quantity int    `json:"quantity,omitempty"`
}

type SpacecraftV1 struct {
	ID        string     `json:"id"`
	DescID    string     `json:"desc_id"`
	CompanyID string     `json:"company_id"`
	SectorID  string     `json:"sector_id"`
	Location  [3]float64 `json:"location"`
	Velocity  [3]float64 `json:"velocity"`
	Rotation  [3]float64 `json:"rotation"`
	SpawnMode string     `json:"spawn_mode"`

	Damage    float64 `json:"damage,omitempty"`
	AmmoSpent float64 `json:"ammo_spent,omitempty"`

	Trading     bool `json:"trading,omitempty"`
	Intercepted bool `json:"intercepted,omitempty"`
	Stranded    bool `json:"stranded,omitempty"`
	Reserve     bool `json:"reserve,omitempty"`

	DockedTo       string   `json:"docked_to,omitempty"`
	ParentID       string   `json:"parent_id,omitempty"`
	ChildIDs       []string `json:"child_ids,omitempty"`
	InternalDocked bool     `json:"internal_docked,omitempty"`

	CargoSlotCapacity int           `json:"cargo_slot_capacity"`
	Cargo             []CargoSlotV1 `json:"cargo,omitempty"`
}

type FleetV1 struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	CompanyID    string   `json:"company_id"`
	SectorID     string   `json:"sector_id,omitempty"`
	TravelID     string   `json:"travel_id,omitempty"`
	ShipIDs      []string `json:"ship_ids"`
	WhitelistID  string   `json:"whitelist_id,omitempty"`
	TradeRouteID string   `json:"trade_route_id,omitempty"`
	AutoCreated  bool     `json:"auto_created,omitempty"`
}

type TravelV1 struct {
	ID             string `json:"id"`
	FleetID        string `json:"fleet_id"`
	OriginID       string `json:"origin_id"`
	DestinationID  string `json:"destination_id"`
	TravelSectorID string `json:"travel_sector_id"`
	DepartureDate  int64  `json:"departure_date"`
	Duration       int64  `json:"duration"`
}

type WhitelistRuleV1 struct {
	CompanyID string   `json:"company_id"`
	TradeTo   []string `json:"trade_to,omitempty"`
	TradeFrom []string `json:"trade_from,omitempty"`
}

type WhitelistV1 struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	CompanyID string            `json:"company_id"`
	Rules     []WhitelistRuleV1 `json:"rules,omitempty"`
}

type TradeRouteV1 struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	CompanyID string   `json:"company_id"`
	FleetIDs  []string `json:"fleet_ids,omitempty"`
}

// FileName is the on-disk name for a snapshot taken at date.
func FileName(date int64) string {
	return fmt.Sprintf("%d.snap.zst", date)
}

// WriteSnapshot writes a JSON header line followed by the gob-encoded body,
// all zstd compressed.
func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := writeTo(f, snap); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeTo(f *os.File, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The gob body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader decodes only the leading JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

// Latest returns the snapshot in dir with the highest date, or "" if none.
func Latest(dir string) string {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	type cand struct {
		date int64
		name string
	}
	var cands []cand
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		d, err := strconv.ParseInt(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		cands = append(cands, cand{date: d, name: name})
	}
	if len(cands) == 0 {
		return ""
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].date < cands[j].date })
	return filepath.Join(dir, cands[len(cands)-1].name)
}
