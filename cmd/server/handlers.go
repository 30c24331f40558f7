package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"
	"strings"

	"mapsmith.ai/internal/persistence/indexdb"
	"mapsmith.ai/internal/sim/mapdef"
	"mapsmith.ai/internal/sim/scheduler"
	"mapsmith.ai/internal/transport/ws"
)

type httpRuntime struct {
	MapName     string
	Sched       *scheduler.Scheduler
	Hub         *ws.Hub
	Def         *mapdef.Definition
	Index       runtimeIndex
	WS          http.Handler
	EnableAdmin bool
	EnablePprof bool
}

func newMux(rt httpRuntime) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", rt.metricsHandler)

	if rt.EnableAdmin {
		// Local-only admin endpoints (read-only, do not affect the step digest).
		mux.HandleFunc("/admin/v1/state", loopbackOnly(rt.stateHandler))
		mux.HandleFunc("/admin/v1/structures", loopbackOnly(rt.structuresHandler))
		mux.HandleFunc("/admin/v1/index/structures", loopbackOnly(rt.indexStructuresHandler))
		mux.HandleFunc("/admin/v1/index/sessions", loopbackOnly(rt.indexSessionsHandler))
	}
	if rt.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	if rt.WS != nil {
		mux.Handle("/v1/ws", rt.WS)
	}
	return mux
}

func (rt httpRuntime) metricsHandler(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

	m := rt.Sched.Metrics()

	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP mapsmith_tick Current scheduler tick.\n")
	fmt.Fprintf(rw, "# TYPE mapsmith_tick gauge\n")
	fmt.Fprintf(rw, "mapsmith_tick{map=%q} %d\n", rt.MapName, m.Tick)

	fmt.Fprintf(rw, "# HELP mapsmith_sessions Active authoring sessions.\n")
	fmt.Fprintf(rw, "# TYPE mapsmith_sessions gauge\n")
	fmt.Fprintf(rw, "mapsmith_sessions{map=%q} %d\n", rt.MapName, m.Sessions)

	fmt.Fprintf(rw, "# HELP mapsmith_structures Structures in the map definition.\n")
	fmt.Fprintf(rw, "# TYPE mapsmith_structures gauge\n")
	fmt.Fprintf(rw, "mapsmith_structures{map=%q} %d\n", rt.MapName, rt.Def.Len())

	fmt.Fprintf(rw, "# HELP mapsmith_step_ms Last step duration in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE mapsmith_step_ms gauge\n")
	fmt.Fprintf(rw, "mapsmith_step_ms{map=%q} %.3f\n", rt.MapName, m.StepMS)

	fmt.Fprintf(rw, "# HELP mapsmith_queue_depth Channel backlog depth.\n")
	fmt.Fprintf(rw, "# TYPE mapsmith_queue_depth gauge\n")
	fmt.Fprintf(rw, "mapsmith_queue_depth{map=%q,queue=%q} %d\n", rt.MapName, "inbox", m.Inbox)

	if rt.Hub != nil {
		fmt.Fprintf(rw, "# HELP mapsmith_clients Connected operators.\n")
		fmt.Fprintf(rw, "# TYPE mapsmith_clients gauge\n")
		fmt.Fprintf(rw, "mapsmith_clients{map=%q} %d\n", rt.MapName, rt.Hub.Count())

		fmt.Fprintf(rw, "# HELP mapsmith_ws_dropped_total Outbound messages dropped on full client queues.\n")
		fmt.Fprintf(rw, "# TYPE mapsmith_ws_dropped_total counter\n")
		fmt.Fprintf(rw, "mapsmith_ws_dropped_total{map=%q} %d\n", rt.MapName, rt.Hub.Dropped())
	}

	if rt.Index != nil {
		s := rt.Index.Stats()
		fmt.Fprintf(rw, "# HELP mapsmith_index_queue_depth Index writer queue depth.\n")
		fmt.Fprintf(rw, "# TYPE mapsmith_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "mapsmith_index_queue_depth{map=%q} %d\n", rt.MapName, s.QueueDepth)

		fmt.Fprintf(rw, "# HELP mapsmith_index_dropped_total Index writes dropped because the queue was full.\n")
		fmt.Fprintf(rw, "# TYPE mapsmith_index_dropped_total counter\n")
		fmt.Fprintf(rw, "mapsmith_index_dropped_total{map=%q,kind=%q} %d\n", rt.MapName, "step", s.DropStepTotal)
		fmt.Fprintf(rw, "mapsmith_index_dropped_total{map=%q,kind=%q} %d\n", rt.MapName, "session", s.DropSessionTotal)
		fmt.Fprintf(rw, "mapsmith_index_dropped_total{map=%q,kind=%q} %d\n", rt.MapName, "structure", s.DropStructureTotal)
	}
}

func (rt httpRuntime) stateHandler(rw http.ResponseWriter, r *http.Request) {
	resp := struct {
		MapName    string            `json:"map_name"`
		Metrics    scheduler.Metrics `json:"metrics"`
		Structures int               `json:"structures"`
		Digest     string            `json:"digest"`
	}{
		MapName:    rt.MapName,
		Metrics:    rt.Sched.Metrics(),
		Structures: rt.Def.Len(),
		Digest:     rt.Def.Digest(),
	}
	writeJSONResponse(rw, http.StatusOK, resp)
}

func (rt httpRuntime) structuresHandler(rw http.ResponseWriter, r *http.Request) {
	if id := strings.TrimSpace(r.URL.Query().Get("ref")); id != "" {
		st, ok := rt.Def.Lookup(id)
		if !ok {
			http.Error(rw, "not found", http.StatusNotFound)
			return
		}
		writeJSONResponse(rw, http.StatusOK, st)
		return
	}
	writeJSONResponse(rw, http.StatusOK, map[string]any{"structures": rt.Def.Structures()})
}

func (rt httpRuntime) indexStructuresHandler(rw http.ResponseWriter, r *http.Request) {
	if rt.Index == nil {
		http.Error(rw, "index disabled", http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	out, err := rt.Index.ListStructures(r.Context(), indexdb.StructureFilter{
		Kind:  strings.ToUpper(strings.TrimSpace(q.Get("kind"))),
		Owner: strings.TrimSpace(q.Get("owner")),
		Limit: queryInt(q.Get("limit"), 100),
	})
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSONResponse(rw, http.StatusOK, map[string]any{"structures": out})
}

func (rt httpRuntime) indexSessionsHandler(rw http.ResponseWriter, r *http.Request) {
	if rt.Index == nil {
		http.Error(rw, "index disabled", http.StatusServiceUnavailable)
		return
	}
	out, err := rt.Index.ListSessions(r.Context(), queryInt(r.URL.Query().Get("limit"), 100))
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSONResponse(rw, http.StatusOK, map[string]any{"sessions": out})
}

func loopbackOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func writeJSONResponse(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func queryInt(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
