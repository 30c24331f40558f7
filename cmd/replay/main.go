package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"mapsmith.ai/internal/sim/tuning"
)

func main() {
	var (
		mapDir     = flag.String("map_dir", "", "map data dir containing steps/ and records/ (e.g. ./data/maps/default)")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml used by the recorded server")
		toTick     = flag.Uint64("to_tick", 0, "stop after this tick of the last run (inclusive, optional)")
		noRecords  = flag.Bool("skip_records", false, "do not compare replayed structures with the record log")
	)
	flag.Parse()

	if *mapDir == "" {
		fmt.Fprintln(os.Stderr, "missing -map_dir")
		os.Exit(2)
	}

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}

	res, err := replay(Options{
		StepsDir:   filepath.Join(*mapDir, "steps"),
		RecordsDir: filepath.Join(*mapDir, "records"),
		Tuning:     tune,
		ToTick:     *toTick,
		Records:    !*noRecords,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: runs=%d steps=%d structures=%d records_checked=%v\n", res.Runs, res.Steps, res.Structures, res.RecordsChecked)
}
