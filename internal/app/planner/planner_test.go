package planner

import (
	"path/filepath"
	"testing"

	"github.com/John-Robertt/simtagger/internal/domain"
)

const accepted = "MSFS 2020/2024"

type fakeIndex map[domain.Key]string

func (f fakeIndex) Lookup(icao domain.ICAO, version string) (domain.FeedRecord, bool) {
	tag, ok := f[domain.Key{ICAO: icao, Version: version}]
	if !ok {
		return domain.FeedRecord{}, false
	}
	return domain.FeedRecord{ICAO: icao, Version: version, Tag: tag}, true
}

func roots() Roots {
	sep := string(filepath.Separator)
	return Roots{
		AddonsRoot: filepath.Join(sep, "addons"),
		DestRoot:   filepath.Join(sep, "dest"),
	}
}

func unit(rel string, simType string, has bool) domain.AddonUnit {
	r := roots()
	return domain.AddonUnit{
		FolderPath:     filepath.Join(r.AddonsRoot, rel),
		RelPath:        rel,
		ICAO:           "VTBU",
		Version:        "1.2.0",
		CurrentSimType: simType,
		HasSimType:     has,
	}
}

func TestResolve_UpdateAndMove(t *testing.T) {
	ix := fakeIndex{{ICAO: "VTBU", Version: "1.2.0"}: accepted}
	rel := filepath.Join("Asia", "Thailand", "vtbu-rayong")

	d := Resolve(unit(rel, "MSFS 2020", true), ix, accepted, roots())
	if d.Kind != domain.DecisionUpdateAndMove {
		t.Fatalf("期望 UPDATE_AND_MOVE，实际 %s", d.Kind)
	}
	if want := filepath.Join(roots().DestRoot, rel); d.Dest != want {
		t.Fatalf("目标路径必须保留中间目录：期望 %q，实际 %q", want, d.Dest)
	}
	if d.Tag != accepted || !d.Matched {
		t.Fatalf("命中信息不正确：%+v", d)
	}
}

func TestResolve_MoveOnlyWhenTagAlreadySet(t *testing.T) {
	ix := fakeIndex{{ICAO: "VTBU", Version: "1.2.0"}: accepted}
	d := Resolve(unit("vtbu", accepted, true), ix, accepted, roots())
	if d.Kind != domain.DecisionMoveOnly {
		t.Fatalf("期望 MOVE_ONLY，实际 %s", d.Kind)
	}
}

func TestResolve_UpdateOnlyForOtherTag(t *testing.T) {
	ix := fakeIndex{{ICAO: "VTBU", Version: "1.2.0"}: "MSFS 2024 only"}

	d := Resolve(unit("vtbu", "", false), ix, accepted, roots())
	if d.Kind != domain.DecisionUpdateOnly || d.Dest != "" {
		t.Fatalf("期望 UPDATE_ONLY 且无目标，实际 %+v", d)
	}
}

func TestResolve_NoneWhenTagMatchesAndNotAccepted(t *testing.T) {
	ix := fakeIndex{{ICAO: "VTBU", Version: "1.2.0"}: "MSFS 2024 only"}

	d := Resolve(unit("vtbu", "MSFS 2024 only", true), ix, accepted, roots())
	if d.Kind != domain.DecisionNone || d.Reason != domain.ReasonNoop || !d.Matched {
		t.Fatalf("期望 NONE/noop，实际 %+v", d)
	}
}

func TestResolve_Unmatched(t *testing.T) {
	ix := fakeIndex{{ICAO: "VTBU", Version: "1.2.0"}: accepted}

	cases := []struct {
		name   string
		mutate func(*domain.AddonUnit)
		reason string
	}{
		{"bad_json", func(u *domain.AddonUnit) { u.ParseErr = "x"; u.ICAO = ""; u.Version = "" }, domain.ReasonBadJSON},
		{"no_version", func(u *domain.AddonUnit) { u.Version = "" }, domain.ReasonNoVersion},
		{"no_icao", func(u *domain.AddonUnit) { u.ICAO = "" }, domain.ReasonNoICAO},
		{"no_match", func(u *domain.AddonUnit) { u.Version = "1.3.0" }, domain.ReasonNoMatch},
	}
	for _, c := range cases {
		u := unit("vtbu", "", false)
		c.mutate(&u)
		d := Resolve(u, ix, accepted, roots())
		if d.Kind != domain.DecisionNone || d.Reason != c.reason || d.Matched {
			t.Fatalf("%s：期望 NONE/%s，实际 %+v", c.name, c.reason, d)
		}
	}
}

func TestDestination_FallbackToBaseName(t *testing.T) {
	r := roots()
	u := domain.AddonUnit{FolderPath: filepath.Join(string(filepath.Separator), "elsewhere", "kjfk")}
	if got, want := Destination(u, r), filepath.Join(r.DestRoot, "kjfk"); got != want {
		t.Fatalf("期望 %q，实际 %q", want, got)
	}
}
