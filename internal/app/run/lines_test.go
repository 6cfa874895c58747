package run

import (
	"testing"

	"github.com/John-Robertt/simtagger/internal/domain"
)

func TestMoveLine(t *testing.T) {
	cases := []struct {
		m    domain.MoveResult
		want string
	}{
		{domain.MoveResult{Outcome: domain.OutcomeWouldCopy, Src: "/a", Dst: "/b", TreeBytes: 1536, FreeBytes: 1 << 30, MarginBytes: 262144000},
			"WILL_MOVE /a -> /b (copy+delete, size 1.5 KiB, free 1.0 GiB, margin 250 MiB)"},
		{domain.MoveResult{Outcome: domain.OutcomeWouldSkipNoSpace, Src: "/a", Dst: "/b", RequiredBytes: 2048, FreeBytes: 1024},
			"WILL_NO_SPACE /a -> /b (required 2.0 KiB > free 1.0 KiB)"},
		{domain.MoveResult{Outcome: domain.OutcomeSkippedNoSpace, Src: "/a", Dst: "/b", RequiredBytes: 2048, FreeBytes: 1024},
			"NO_SPACE /a -> /b (required 2.0 KiB > free 1.0 KiB)"},
		{domain.MoveResult{Outcome: domain.OutcomeWouldSkipExists, Dst: "/b"}, "WILL_SKIP_EXIST /b"},
		{domain.MoveResult{Outcome: domain.OutcomeSkippedExists, Dst: "/b"}, "SKIP_EXIST /b"},
		{domain.MoveResult{Outcome: domain.OutcomeRenamed, Src: "/a", Dst: "/b"}, "MOVE (rename) /a -> /b"},
		{domain.MoveResult{Outcome: domain.OutcomeCopied, Src: "/a", Dst: "/b"}, "MOVE (copy+delete) /a -> /b"},
		{domain.MoveResult{Outcome: domain.OutcomeFailed, Src: "/a", Dst: "/b", Error: "boom"}, "MOVE_FAILED /a -> /b: boom"},
	}
	for _, c := range cases {
		if got := MoveLine(c.m); got != c.want {
			t.Fatalf("%s：\n got=%q\nwant=%q", c.m.Outcome, got, c.want)
		}
	}
}

func TestLines_UpdateFromMissingSimType(t *testing.T) {
	res := domain.ItemResult{
		Status:       domain.StatusProcessed,
		Manifest:     "/a/manifest.json",
		Update:       domain.UpdateDone,
		SimTypeAfter: "MSFS 2024 only",
	}
	got := Lines(res, false)
	if len(got) != 1 || got[0] != "UPDATE /a/manifest.json (simType <missing> -> MSFS 2024 only)" {
		t.Fatalf("UPDATE 行不正确：%q", got)
	}
}

func TestLines_Unmatched(t *testing.T) {
	cases := []struct {
		res  domain.ItemResult
		want string
	}{
		{domain.ItemResult{Status: domain.StatusBadJSON, Manifest: "/a/manifest.json", ErrorMsg: "unexpected EOF"}, "BAD_JSON /a/manifest.json: unexpected EOF"},
		{domain.ItemResult{Status: domain.StatusNoVersion, Folder: "/a"}, "NO_VERSION /a"},
		{domain.ItemResult{Status: domain.StatusNoICAO, Folder: "/a"}, "NO_ICAO /a"},
	}
	for _, c := range cases {
		if got := Lines(c.res, true); len(got) != 1 || got[0] != c.want {
			t.Fatalf("期望 %q，实际 %q", c.want, got)
		}
	}
}
