package world

import "fmt"

// WhitelistRule restricts trade with one counterpart company. Resources absent
// from a set are forbidden in that direction.
type WhitelistRule struct {
	TradeTo   map[string]bool
	TradeFrom map[string]bool
}

type Whitelist struct {
	ID        string
	Name      string
	CompanyID string

	// Rules is keyed by counterpart company id.
	Rules map[string]WhitelistRule
}

func (wl *Whitelist) CanTradeTo(companyID, resource string) bool {
	r, ok := wl.Rules[companyID]
	if !ok {
		return true
	}
	return r.TradeTo[resource]
}

func (wl *Whitelist) CanTradeFrom(companyID, resource string) bool {
	r, ok := wl.Rules[companyID]
	if !ok {
		return true
	}
	return r.TradeFrom[resource]
}

// SetRule replaces the rule for a counterpart company.
func (wl *Whitelist) SetRule(companyID string, tradeTo, tradeFrom []string) {
	if wl.Rules == nil {
		wl.Rules = map[string]WhitelistRule{}
	}
	r := WhitelistRule{TradeTo: map[string]bool{}, TradeFrom: map[string]bool{}}
	for _, res := range tradeTo {
		r.TradeTo[res] = true
	}
	for _, res := range tradeFrom {
		r.TradeFrom[res] = true
	}
	wl.Rules[companyID] = r
}

func (w *World) AddWhitelist(wl *Whitelist) error {
	if wl == nil || wl.ID == "" {
		return fmt.Errorf("whitelist: empty id")
	}
	if w.companies[wl.CompanyID] == nil {
		return fmt.Errorf("whitelist %s: %w %q", wl.ID, ErrUnknownCompany, wl.CompanyID)
	}
	if _, dup := w.whitelists[wl.ID]; dup {
		return fmt.Errorf("whitelist %s: %w", wl.ID, ErrDuplicateID)
	}
	if wl.Rules == nil {
		wl.Rules = map[string]WhitelistRule{}
	}
	w.whitelists[wl.ID] = wl
	return nil
}

// TradeRoute is the minimal record of a route operated by fleets.
type TradeRoute struct {
	ID        string
	Name      string
	CompanyID string
	FleetIDs  []string
}

func (r *TradeRoute) RemoveFleet(id string) { r.FleetIDs = removeID(r.FleetIDs, id) }

func (w *World) AddTradeRoute(r *TradeRoute) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("trade route: empty id")
	}
	if _, dup := w.routes[r.ID]; dup {
		return fmt.Errorf("trade route %s: %w", r.ID, ErrDuplicateID)
	}
	w.routes[r.ID] = r
	return nil
}

// AssignTradeRoute moves a fleet onto a route, leaving its previous one.
func (w *World) AssignTradeRoute(f *Fleet, routeID string) error {
	r := w.routes[routeID]
	if r == nil {
		return fmt.Errorf("trade route %q not found", routeID)
	}
	if f.TradeRouteID != "" {
		if prev := w.routes[f.TradeRouteID]; prev != nil {
			prev.RemoveFleet(f.ID)
		}
	}
	if indexOf(r.FleetIDs, f.ID) < 0 {
		r.FleetIDs = append(r.FleetIDs, f.ID)
	}
	f.TradeRouteID = r.ID
	return nil
}

// activeWhitelist is the fleet selection, falling back to the company selection.
func (f *Fleet) activeWhitelist() *Whitelist {
	if f.WhitelistID != "" {
		if wl := f.w.whitelists[f.WhitelistID]; wl != nil {
			return wl
		}
	}
	if c := f.Company(); c != nil && c.WhitelistID != "" {
		return f.w.whitelists[c.WhitelistID]
	}
	return nil
}

// CanTradeWhiteListTo reports whether this fleet may sell resource to other.
func (f *Fleet) CanTradeWhiteListTo(other *Spacecraft, resource string) bool {
	wl := f.activeWhitelist()
	if wl == nil || other == nil {
		return true
	}
	return wl.CanTradeTo(other.CompanyID, resource)
}

// CanTradeWhiteListFrom reports whether this fleet may buy resource from other.
func (f *Fleet) CanTradeWhiteListFrom(other *Spacecraft, resource string) bool {
	wl := f.activeWhitelist()
	if wl == nil || other == nil {
		return true
	}
	return wl.CanTradeFrom(other.CompanyID, resource)
}

func (f *Fleet) SelectWhitelist(id string) {
	if id != "" && f.w.whitelists[id] == nil {
		f.w.log.Warn().Str("fleet", f.ID).Str("whitelist", id).Msg("unknown whitelist")
		return
	}
	f.WhitelistID = id
}
