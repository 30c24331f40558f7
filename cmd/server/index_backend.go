package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mapsmith.ai/internal/persistence/indexdb"
	"mapsmith.ai/internal/sim/mapdef"
	"mapsmith.ai/internal/sim/scheduler"
)

type runtimeIndex interface {
	scheduler.StepLogger
	scheduler.SessionObserver
	Close() error
	UpsertConfig(name string, v any) error
	RecordStructure(st mapdef.Structure)
	ListStructures(ctx context.Context, f indexdb.StructureFilter) ([]mapdef.Structure, error)
	ListSessions(ctx context.Context, limit int) ([]indexdb.SessionRecord, error)
	LastStep(ctx context.Context) (tick uint64, digest string, ok bool, err error)
	Stats() indexdb.Stats
}

func openRuntimeIndex(mapDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("MS_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		idx, err := indexdb.OpenSQLite(filepath.Join(mapDir, "index", "mapsmith.sqlite"))
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported MS_INDEX_BACKEND: %s", backend)
	}
}
