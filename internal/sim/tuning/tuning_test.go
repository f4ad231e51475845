package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ConfigTuning(t *testing.T) {
	tu, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("load tuning: %v", err)
	}
	if tu.Fleet.MaxShips != 20 {
		t.Fatalf("fleet.max_ships: got %d want 20", tu.Fleet.MaxShips)
	}
	if tu.Placement.GrowthLimit != 1000 {
		t.Fatalf("placement.growth_limit: got %d want 1000", tu.Placement.GrowthLimit)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("fleet:\n  max_ships: 12\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tu, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tu.Fleet.MaxShips != 12 {
		t.Fatalf("override lost: %d", tu.Fleet.MaxShips)
	}
	def := Defaults()
	if tu.Fleet.InterceptProbability != def.Fleet.InterceptProbability || tu.Spawn.ExitLimitRatio != def.Spawn.ExitLimitRatio {
		t.Fatalf("defaults lost: %+v", tu)
	}
}

func TestValidate_RejectsBadProbability(t *testing.T) {
	tu := Defaults()
	tu.Destroy.DroneProbability = 1.5
	if err := tu.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
	tu = Defaults()
	tu.Spawn.ExitLimitRatio = 0
	if err := tu.Validate(); err == nil {
		t.Fatalf("expected exit ratio error")
	}
}
