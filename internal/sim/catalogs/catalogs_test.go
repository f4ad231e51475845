package catalogs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_ConfigCatalogs(t *testing.T) {
	cats, err := Load("../../../configs/catalogs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	hornet, ok := cats.SpacecraftDef("drone-hornet")
	if !ok || !hornet.Drone || hornet.IsLarge() {
		t.Fatalf("unexpected drone def: %+v ok=%v", hornet, ok)
	}
	invader, ok := cats.SpacecraftDef("ship-invader")
	if !ok || !invader.IsMilitary() || !invader.HasWeaponSlot("bomb_1") {
		t.Fatalf("unexpected invader def: %+v", invader)
	}
	if invader.HasWeaponSlot("gun_9") {
		t.Fatalf("unexpected slot gun_9")
	}
	if got := cats.ResourceIDs(); len(got) != 5 || got[0] != "food" {
		t.Fatalf("resource ids: %v", got)
	}
	if cats.Spacecraft.Digest == "" || cats.Resources.Digest == "" || cats.Technologies.Digest == "" {
		t.Fatalf("expected digests")
	}
	techs := cats.TechnologiesUnlocking("ship-ghoul")
	if len(techs) != 1 || techs[0].ID != "light-military" {
		t.Fatalf("unlocking techs: %+v", techs)
	}
}

func TestLoad_SchemaRejectsBadSize(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("spacecraft.json", `[{"id":"x","name":"X","size":"M","radius":1}]`)
	write("resources.json", `[]`)
	write("technologies.json", `[]`)

	_, err := Load(dir)
	if err == nil {
		t.Fatalf("expected schema error")
	}
	if !strings.Contains(err.Error(), "spacecraft.json") {
		t.Fatalf("error should name the file: %v", err)
	}
}

func TestNew_CrossReferences(t *testing.T) {
	tests := []struct {
		name  string
		sc    []SpacecraftDef
		res   []ResourceDef
		techs []TechnologyDef
	}{
		{
			name: "unknown cycle resource",
			sc:   []SpacecraftDef{{ID: "a", Size: SizeS, CycleCost: CycleCostDef{Inputs: []ResourceAmount{{Resource: "nope", Quantity: 1}}}}},
		},
		{
			name:  "unknown unlock",
			techs: []TechnologyDef{{ID: "t", Unlocks: []string{"ghost"}}},
		},
		{
			name: "large drone",
			sc:   []SpacecraftDef{{ID: "d", Size: SizeL, Drone: true}},
		},
		{
			name: "inverted price bounds",
			res:  []ResourceDef{{ID: "r", MinPrice: 10, MaxPrice: 1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.sc, tt.res, tt.techs); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
