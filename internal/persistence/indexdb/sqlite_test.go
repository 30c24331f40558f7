package indexdb

import (
	"context"
	"path/filepath"
	"testing"

	"mapsmith.ai/internal/geom"
	"mapsmith.ai/internal/sim/authoring"
	"mapsmith.ai/internal/sim/mapdef"
	"mapsmith.ai/internal/sim/scheduler"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqStep}

	_ = s.WriteStep(scheduler.StepLogEntry{Tick: 2})
	s.SessionStarted("OP1", authoring.StartRequest{Kind: "REGION", Name: "a"}, 2)
	s.SessionEnded("OP1", scheduler.EndDone, 3)
	s.RecordStructure(mapdef.Structure{ID: "x"})

	st := s.Stats()
	if st.DropStepTotal != 1 {
		t.Fatalf("DropStepTotal=%d want=1", st.DropStepTotal)
	}
	if st.DropSessionTotal != 2 {
		t.Fatalf("DropSessionTotal=%d want=2", st.DropSessionTotal)
	}
	if st.DropStructureTotal != 1 {
		t.Fatalf("DropStructureTotal=%d want=1", st.DropStructureTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_PersistsAndQueries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.sqlite")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.UpsertConfig("tuning", map[string]int{"tick_rate_hz": 20}); err != nil {
		t.Fatalf("upsert config: %v", err)
	}
	s.SessionStarted("OP1", authoring.StartRequest{Kind: authoring.StartRegion, Name: "arena"}, 5)
	s.SessionStarted("OP2", authoring.StartRequest{Kind: authoring.StartStructure, Name: "red"}, 6)
	s.RecordStructure(mapdef.Structure{
		ID: "a", Name: "arena", Kind: mapdef.KindRegion, Owner: "OP1", CreatedTick: 9,
		Regions: []mapdef.NamedBox{{Name: "arena", Box: geom.Box{Min: geom.V(0, 0, 0), Max: geom.V(2, 2, 2)}}},
	})
	s.RecordStructure(mapdef.Structure{
		ID: "b", Name: "copy", Kind: mapdef.KindCopy, Owner: "OP2", CreatedTick: 12,
		Transform: &mapdef.Transform{TemplateID: "a", Basis: geom.Identity},
	})
	s.SessionEnded("OP1", scheduler.EndDone, 9)
	_ = s.WriteStep(scheduler.StepLogEntry{Tick: 12, Digest: "abc"})
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	all, err := s.ListStructures(ctx, StructureFilter{})
	if err != nil || len(all) != 2 || all[0].ID != "a" || all[1].ID != "b" {
		t.Fatalf("structures=%+v err=%v", all, err)
	}
	if b, _ := all[0].Region("arena"); b.Volume() != 8 {
		t.Fatalf("arena round trip=%v", b)
	}
	copies, err := s.ListStructures(ctx, StructureFilter{Kind: mapdef.KindCopy})
	if err != nil || len(copies) != 1 || copies[0].Transform == nil || copies[0].Transform.TemplateID != "a" {
		t.Fatalf("copies=%+v err=%v", copies, err)
	}
	mine, err := s.ListStructures(ctx, StructureFilter{Owner: "OP1"})
	if err != nil || len(mine) != 1 {
		t.Fatalf("owner filter=%+v err=%v", mine, err)
	}

	sessions, err := s.ListSessions(ctx, 10)
	if err != nil || len(sessions) != 2 {
		t.Fatalf("sessions=%+v err=%v", sessions, err)
	}
	if sessions[0].Operator != "OP2" || !sessions[0].Active {
		t.Fatalf("newest session=%+v", sessions[0])
	}
	if sessions[1].Active || sessions[1].EndReason != scheduler.EndDone || sessions[1].EndTick != 9 {
		t.Fatalf("ended session=%+v", sessions[1])
	}

	tick, digest, ok, err := s.LastStep(ctx)
	if err != nil || !ok || tick != 12 || digest != "abc" {
		t.Fatalf("last step=%d %q ok=%v err=%v", tick, digest, ok, err)
	}
}
