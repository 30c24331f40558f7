package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mapsmith.ai/internal/persistence/indexdb"
	persistlog "mapsmith.ai/internal/persistence/log"
	"mapsmith.ai/internal/sim/mapdef"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "records":
			recordsCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			httpGetCmd("state", "/admin/v1/state", os.Args[2:])
			return
		case "structures":
			httpGetCmd("structures", "/admin/v1/structures", os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(filepath.Join(*dataDir, "maps"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if e.IsDir() {
			fmt.Println(e.Name())
		}
	}
}

func recordsCmd(args []string) {
	fs := flag.NewFlagSet("records", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	mapName := fs.String("map", "", "map name (required)")
	kind := fs.String("kind", "", "kind filter (optional)")
	aabb := fs.String("aabb", "", "anchor filter: x1,y1,z1:x2,y2,z2 (optional, cells inclusive)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*mapName) == "" {
		fmt.Fprintln(os.Stderr, "missing -map")
		os.Exit(2)
	}
	f := recordFilter{Kind: strings.ToUpper(strings.TrimSpace(*kind))}
	if strings.TrimSpace(*aabb) != "" {
		box, err := parseAABB(*aabb)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -aabb:", err)
			os.Exit(2)
		}
		f.Box = &box
	}

	dir := filepath.Join(*dataDir, "maps", *mapName, "records")
	n := 0
	err := persistlog.ReadRecords(dir, func(st mapdef.Structure) error {
		if f.match(st) {
			printJSON(st)
			n++
		}
		return nil
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "read records:", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%d structures\n", n)
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	mapName := fs.String("map", "", "map name (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	kind := fs.String("kind", "", "kind filter (structures)")
	owner := fs.String("owner", "", "owner filter (structures)")
	_ = fs.Parse(args)

	q := "structures"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*mapName) == "" {
			fmt.Fprintln(os.Stderr, "missing -map or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "maps", *mapName, "index", "mapsmith.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch q {
	case "structures":
		out, err := idx.ListStructures(ctx, indexdb.StructureFilter{
			Kind:  strings.ToUpper(strings.TrimSpace(*kind)),
			Owner: strings.TrimSpace(*owner),
			Limit: *limit,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, st := range out {
			printJSON(st)
		}
	case "sessions":
		out, err := idx.ListSessions(ctx, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, s := range out {
			printJSON(s)
		}
	case "last_step":
		tick, digest, ok, err := idx.LastStep(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "no steps indexed")
			os.Exit(2)
		}
		printJSON(map[string]any{"tick": tick, "digest": digest})
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(want structures, sessions or last_step)")
		os.Exit(2)
	}
}

func httpGetCmd(name, path string, args []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	ref := fs.String("ref", "", "structure id or name (structures only)")
	_ = fs.Parse(args)

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + path
	if *ref != "" {
		u += "?ref=" + url.QueryEscape(*ref)
	}
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(strings.TrimSpace(string(b)))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

func printJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode:", err)
		return
	}
	fmt.Println(string(b))
}
