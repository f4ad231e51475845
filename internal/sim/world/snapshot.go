package world

import (
	"fmt"
	"sort"

	"driftline.space/internal/persistence/snapshot"
	"driftline.space/internal/sim/mathx"
)

func vec(v mathx.Vec3) [3]float64   { return [3]float64{v.X, v.Y, v.Z} }
func unvec(a [3]float64) mathx.Vec3 { return mathx.Vec3{X: a[0], Y: a[1], Z: a[2]} }

func setOf(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

// ExportSnapshot copies the whole world into a snapshot value. Records are
// ordered by id so equal worlds produce equal snapshots.
func (w *World) ExportSnapshot() snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: snapshot.Version, WorldID: w.cfg.ID, Date: w.date},
		Seed:   w.cfg.Seed,
		Player: snapshot.PlayerV1{
			CompanyID: w.player.CompanyID,
			ShipID:    w.player.ShipID,
			FleetID:   w.player.FleetID,
		},
		CatalogDigest: w.catalogs.Spacecraft.Digest,
		Counters: snapshot.CountersV1{
			NextFleet:  w.nextFleet,
			NextTravel: w.nextTravel,
			NextShip:   w.nextShip,
		},
	}

	for _, c := range w.Companies() {
		snap.Companies = append(snap.Companies, snapshot.CompanyV1{
			ID:          c.ID,
			Name:        c.Name,
			Player:      c.Player,
			Hostiles:    c.Hostiles(),
			WhitelistID: c.WhitelistID,
			Visited:     c.VisitedSectors(),
		})
	}

	sectorIDs := make([]string, 0, len(w.sectors))
	for id := range w.sectors {
		sectorIDs = append(sectorIDs, id)
	}
	sort.Strings(sectorIDs)
	for _, id := range sectorIDs {
		s := w.sectors[id]
		sv := snapshot.SectorV1{
			ID:          s.ID,
			Name:        s.Name,
			LimitRadius: s.LimitRadius,
			LocalTime:   s.LocalTime,
		}
		for _, e := range s.Exclusions {
			sv.Exclusions = append(sv.Exclusions, snapshot.SphereV1{Center: vec(e.Center), Radius: e.Radius})
		}
		for _, a := range s.Asteroids {
			sv.Asteroids = append(sv.Asteroids, snapshot.AsteroidV1{ID: a.ID, Location: vec(a.Location), Rotation: vec(a.Rotation), Scale: a.Scale})
		}
		for _, m := range s.Meteorites {
			sv.Meteorites = append(sv.Meteorites, snapshot.MeteoriteV1{
				ID: m.ID, Location: vec(m.Location), Velocity: vec(m.Velocity), Radius: m.Radius,
				TargetID: m.TargetID, Damage: m.Damage, Exploded: m.Exploded,
			})
		}
		for _, b := range s.Bombs {
			sv.Bombs = append(sv.Bombs, snapshot.BombV1{
				ID: b.ID, ParentShipID: b.ParentShipID, WeaponSlot: b.WeaponSlot,
				Location: vec(b.Location), Velocity: vec(b.Velocity), Armed: b.Armed,
			})
		}
		snap.Sectors = append(snap.Sectors, sv)

		// Spacecraft follow sector arrival order, which Load depends on.
		for _, sc := range s.Spacecraft() {
			scv := snapshot.SpacecraftV1{
				ID:                sc.ID,
				DescID:            sc.DescID,
				CompanyID:         sc.CompanyID,
				SectorID:          sc.SectorID,
				Location:          vec(sc.Location),
				Velocity:          vec(sc.Velocity),
				Rotation:          vec(sc.Rotation),
				SpawnMode:         sc.SpawnMode.String(),
				Damage:            sc.Damage,
				AmmoSpent:         sc.AmmoSpent,
				Trading:           sc.Trading,
				Intercepted:       sc.Intercepted,
				Stranded:          sc.Stranded,
				Reserve:           sc.Reserve,
				DockedTo:          sc.DockedTo,
				ParentID:          sc.ParentID,
				ChildIDs:          append([]string(nil), sc.ChildIDs...),
				InternalDocked:    sc.InternalDocked,
				CargoSlotCapacity: sc.Cargo.SlotCapacity,
			}
			for _, slot := range sc.Cargo.Slots {
				scv.Cargo = append(scv.Cargo, snapshot.CargoSlotV1{Resource: slot.Resource, Quantity: slot.Quantity})
			}
			snap.Spacecraft = append(snap.Spacecraft, scv)
		}
	}

	for _, f := range w.Fleets() {
		snap.Fleets = append(snap.Fleets, snapshot.FleetV1{
			ID:           f.ID,
			Name:         f.Name,
			CompanyID:    f.CompanyID,
			SectorID:     f.SectorID,
			TravelID:     f.TravelID,
			ShipIDs:      f.ShipIDs(),
			WhitelistID:  f.WhitelistID,
			TradeRouteID: f.TradeRouteID,
			AutoCreated:  f.AutoCreated,
		})
	}
	for _, t := range w.Travels() {
		snap.Travels = append(snap.Travels, snapshot.TravelV1{
			ID:             t.ID,
			FleetID:        t.FleetID,
			OriginID:       t.OriginID,
			DestinationID:  t.DestinationID,
			TravelSectorID: t.TravelSectorID,
			DepartureDate:  t.DepartureDate,
			Duration:       t.Duration,
		})
	}

	wlIDs := make([]string, 0, len(w.whitelists))
	for id := range w.whitelists {
		wlIDs = append(wlIDs, id)
	}
	sort.Strings(wlIDs)
	for _, id := range wlIDs {
		wl := w.whitelists[id]
		wv := snapshot.WhitelistV1{ID: wl.ID, Name: wl.Name, CompanyID: wl.CompanyID}
		companies := make([]string, 0, len(wl.Rules))
		for cid := range wl.Rules {
			companies = append(companies, cid)
		}
		sort.Strings(companies)
		for _, cid := range companies {
			r := wl.Rules[cid]
			wv.Rules = append(wv.Rules, snapshot.WhitelistRuleV1{
				CompanyID: cid,
				TradeTo:   sortedKeys(r.TradeTo),
				TradeFrom: sortedKeys(r.TradeFrom),
			})
		}
		snap.Whitelists = append(snap.Whitelists, wv)
	}

	routeIDs := make([]string, 0, len(w.routes))
	for id := range w.routes {
		routeIDs = append(routeIDs, id)
	}
	sort.Strings(routeIDs)
	for _, id := range routeIDs {
		r := w.routes[id]
		snap.TradeRoutes = append(snap.TradeRoutes, snapshot.TradeRouteV1{
			ID: r.ID, Name: r.Name, CompanyID: r.CompanyID, FleetIDs: append([]string(nil), r.FleetIDs...),
		})
	}
	return snap
}

// ImportSnapshot replaces the world content with snap. The world must be fresh.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if len(w.spacecraft) != 0 || len(w.companies) != 0 {
		return fmt.Errorf("import snapshot: world not empty")
	}
	if snap.Header.Version != snapshot.Version {
		return fmt.Errorf("import snapshot: unsupported version %d", snap.Header.Version)
	}
	w.date = snap.Header.Date

	for _, cv := range snap.Companies {
		c, err := w.AddCompany(cv.ID, cv.Name, cv.Player)
		if err != nil {
			return fmt.Errorf("import snapshot: %w", err)
		}
		c.WhitelistID = cv.WhitelistID
		c.hostiles = setOf(cv.Hostiles)
		c.visited = setOf(cv.Visited)
	}

	for _, sv := range snap.Sectors {
		s := &Sector{
			ID:          sv.ID,
			Name:        sv.Name,
			LimitRadius: sv.LimitRadius,
			LocalTime:   sv.LocalTime,
		}
		for _, e := range sv.Exclusions {
			s.Exclusions = append(s.Exclusions, Sphere{Center: unvec(e.Center), Radius: e.Radius})
		}
		for _, a := range sv.Asteroids {
			s.Asteroids = append(s.Asteroids, AsteroidRecord{ID: a.ID, Location: unvec(a.Location), Rotation: unvec(a.Rotation), Scale: a.Scale})
		}
		for _, m := range sv.Meteorites {
			s.Meteorites = append(s.Meteorites, MeteoriteRecord{
				ID: m.ID, Location: unvec(m.Location), Velocity: unvec(m.Velocity), Radius: m.Radius,
				TargetID: m.TargetID, Damage: m.Damage, Exploded: m.Exploded,
			})
		}
		for _, b := range sv.Bombs {
			s.Bombs = append(s.Bombs, BombRecord{
				ID: b.ID, ParentShipID: b.ParentShipID, WeaponSlot: b.WeaponSlot,
				Location: unvec(b.Location), Velocity: unvec(b.Velocity), Armed: b.Armed,
			})
		}
		if err := w.AddSector(s); err != nil {
			return fmt.Errorf("import snapshot: %w", err)
		}
	}
	for _, tv := range snap.Travels {
		if s := w.sectors[tv.TravelSectorID]; s != nil {
			s.Travel = true
		}
	}

	for _, scv := range snap.Spacecraft {
		def, ok := w.catalogs.SpacecraftDef(scv.DescID)
		if !ok {
			return fmt.Errorf("import snapshot: spacecraft %s: unknown class %q", scv.ID, scv.DescID)
		}
		c := w.companies[scv.CompanyID]
		s := w.sectors[scv.SectorID]
		if c == nil || s == nil {
			return fmt.Errorf("import snapshot: spacecraft %s: dangling company or sector", scv.ID)
		}
		mode, err := ParseSpawnMode(scv.SpawnMode)
		if err != nil {
			return fmt.Errorf("import snapshot: spacecraft %s: %w", scv.ID, err)
		}
		sc := &Spacecraft{
			ID:             scv.ID,
			DescID:         def.ID,
			Desc:           def,
			CompanyID:      c.ID,
			SectorID:       s.ID,
			Location:       unvec(scv.Location),
			Velocity:       unvec(scv.Velocity),
			Rotation:       unvec(scv.Rotation),
			SpawnMode:      mode,
			Damage:         scv.Damage,
			AmmoSpent:      scv.AmmoSpent,
			Trading:        scv.Trading,
			Intercepted:    scv.Intercepted,
			Stranded:       scv.Stranded,
			Reserve:        scv.Reserve,
			DockedTo:       scv.DockedTo,
			ParentID:       scv.ParentID,
			ChildIDs:       append([]string(nil), scv.ChildIDs...),
			InternalDocked: scv.InternalDocked,
			Cargo:          CargoBay{SlotCapacity: scv.CargoSlotCapacity},
			w:              w,
		}
		for _, slot := range scv.Cargo {
			sc.Cargo.Slots = append(sc.Cargo.Slots, CargoSlot{Resource: slot.Resource, Quantity: slot.Quantity})
		}
		w.spacecraft[sc.ID] = sc
		c.shipIDs = append(c.shipIDs, sc.ID)
		s.addSpacecraft(sc)
	}

	for _, wv := range snap.Whitelists {
		wl := &Whitelist{ID: wv.ID, Name: wv.Name, CompanyID: wv.CompanyID}
		for _, r := range wv.Rules {
			wl.SetRule(r.CompanyID, r.TradeTo, r.TradeFrom)
		}
		if err := w.AddWhitelist(wl); err != nil {
			return fmt.Errorf("import snapshot: %w", err)
		}
	}
	for _, rv := range snap.TradeRoutes {
		r := &TradeRoute{ID: rv.ID, Name: rv.Name, CompanyID: rv.CompanyID, FleetIDs: append([]string(nil), rv.FleetIDs...)}
		if err := w.AddTradeRoute(r); err != nil {
			return fmt.Errorf("import snapshot: %w", err)
		}
	}

	// Fleets are rebuilt directly: AddShip would refuse traveling fleets.
	for _, fv := range snap.Fleets {
		c := w.companies[fv.CompanyID]
		if c == nil {
			return fmt.Errorf("import snapshot: fleet %s: %w %q", fv.ID, ErrUnknownCompany, fv.CompanyID)
		}
		f := &Fleet{
			ID:           fv.ID,
			Name:         fv.Name,
			CompanyID:    c.ID,
			SectorID:     fv.SectorID,
			TravelID:     fv.TravelID,
			WhitelistID:  fv.WhitelistID,
			TradeRouteID: fv.TradeRouteID,
			AutoCreated:  fv.AutoCreated,
			w:            w,
		}
		for _, id := range fv.ShipIDs {
			sc := w.spacecraft[id]
			if sc == nil {
				w.log.Warn().Str("fleet", f.ID).Str("ship", id).Msg("snapshot fleet references unknown ship")
				continue
			}
			f.shipIDs = append(f.shipIDs, id)
			sc.FleetID = f.ID
			if !sc.IsDrone() {
				f.shipCount++
			}
		}
		f.recomputeSlowest()
		w.fleets[f.ID] = f
		c.fleetIDs = append(c.fleetIDs, f.ID)
	}

	for _, tv := range snap.Travels {
		t := &Travel{
			ID:             tv.ID,
			FleetID:        tv.FleetID,
			OriginID:       tv.OriginID,
			DestinationID:  tv.DestinationID,
			TravelSectorID: tv.TravelSectorID,
			DepartureDate:  tv.DepartureDate,
			Duration:       tv.Duration,
			w:              w,
		}
		w.travels[t.ID] = t
	}
	for _, f := range w.fleets {
		if s := f.CurrentSector(); s != nil {
			s.addFleet(f)
		}
	}

	w.player = Player{CompanyID: snap.Player.CompanyID, ShipID: snap.Player.ShipID, FleetID: snap.Player.FleetID}
	w.nextFleet = snap.Counters.NextFleet
	w.nextTravel = snap.Counters.NextTravel
	w.nextShip = snap.Counters.NextShip
	return nil
}
