// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kraklabs/keel/internal/contract"
	"github.com/kraklabs/keel/internal/errors"
	"github.com/kraklabs/keel/pkg/graph"
	"github.com/kraklabs/keel/pkg/keel"
)

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	root := fs.String("root", ".", "Project root")
	engine := fs.String("engine", "rocksdb", "Storage engine: rocksdb, sqlite, or mem")
	stdio := fs.Bool("stdio", false, "Serve JSON-RPC requests over stdin/stdout")
	httpAddr := fs.String("http", "", "HTTP listen address (empty to disable)")
	watch := fs.Bool("watch", false, "Recompile automatically as files change (HTTP mode only)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: keel serve [options]

Runs keel as a long-lived server instead of a one-shot command, for
agents that want to keep one project's graph open across many operations.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  keel serve --stdio
  keel serve --http :8088 --watch
`)
	}
	_ = fs.Parse(args)

	if !*stdio && *httpAddr == "" {
		fmt.Fprintln(os.Stderr, "serve requires --stdio or --http <addr>")
		os.Exit(1)
	}

	eng, err := keel.Open(*root, *engine, nil)
	if err != nil {
		errors.FatalError(notInitializedError(err), false)
	}
	defer func() { _ = eng.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if *httpAddr != "" {
		srv := newHTTPServer(eng, *httpAddr)
		go func() {
			if *watch {
				watchAndRecompile(ctx, eng)
			}
		}()
		go func() {
			<-ctx.Done()
			_ = srv.Close()
		}()
		slog.Info("keel.serve.http.start", "addr", *httpAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errors.FatalError(errors.NewNetworkError(
				"HTTP server failed",
				err.Error(),
				"Check that the address is free and retry",
				err,
			), false)
		}
		return
	}

	serveStdio(ctx, eng)
}

func newHTTPServer(eng *keel.Engine, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := eng.Stats(r.Context())
		if err != nil {
			writeHTTPError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(stats)
	})
	mux.HandleFunc("/discover", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		nodes, err := eng.Discover(r.Context(), q.Get("q"), graph.Kind(q.Get("kind")))
		if err != nil {
			writeHTTPError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(nodes)
	})
	mux.HandleFunc("/compile", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Files []string `json:"files"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		result, err := eng.Compile(r.Context(), req.Files, nil)
		if err != nil {
			writeHTTPError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(result)
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHTTPError(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// watchAndRecompile recompiles a file the moment fsnotify reports it
// written, so an HTTP --watch session stays current between explicit
// /compile calls without the caller having to poll.
func watchAndRecompile(ctx context.Context, eng *keel.Engine) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("keel.serve.watch.unavailable", "error", err)
		return
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(eng.Root); err != nil {
		slog.Warn("keel.serve.watch.add_failed", "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !strings.HasSuffix(ev.Name, ".go") && !strings.HasSuffix(ev.Name, ".py") &&
				!strings.HasSuffix(ev.Name, ".ts") && !strings.HasSuffix(ev.Name, ".js") &&
				!strings.HasSuffix(ev.Name, ".rs") {
				continue
			}
			if _, err := eng.Compile(ctx, []string{ev.Name}, nil); err != nil {
				slog.Warn("keel.serve.watch.compile_failed", "file", ev.Name, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("keel.serve.watch.error", "error", err)
		}
	}
}

// rpcRequest and rpcResponse are a minimal line-delimited JSON-RPC 2.0
// framing: one request per line on stdin, one response per line on stdout.
type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type rpcResponse struct {
	ID     json.RawMessage `json:"id"`
	Result any             `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// serveStdio reads one JSON-RPC request per line from stdin and writes one
// response per line to stdout, until stdin closes or ctx is canceled.
// Methods: map, compile, discover, where, explain, stats.
func serveStdio(ctx context.Context, eng *keel.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), contract.SoftLimitBytes())
	enc := json.NewEncoder(os.Stdout)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		var req rpcRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			_ = enc.Encode(rpcResponse{Error: &rpcError{Code: -32700, Message: "parse error: " + err.Error()}})
			continue
		}

		result, rpcErr := dispatchRPC(ctx, eng, req)
		resp := rpcResponse{ID: req.ID}
		if rpcErr != nil {
			resp.Error = rpcErr
		} else {
			resp.Result = result
		}
		_ = enc.Encode(resp)
	}
}

func dispatchRPC(ctx context.Context, eng *keel.Engine, req rpcRequest) (any, *rpcError) {
	switch req.Method {
	case "map":
		result, err := eng.Map(ctx)
		if err != nil {
			return nil, &rpcError{Code: -32000, Message: err.Error()}
		}
		return result, nil

	case "compile":
		var params struct {
			Files    []string `json:"files"`
			Suppress []string `json:"suppress"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, &rpcError{Code: -32602, Message: "invalid params: " + err.Error()}
		}
		result, err := eng.Compile(ctx, params.Files, params.Suppress)
		if err != nil {
			return nil, &rpcError{Code: -32000, Message: err.Error()}
		}
		return result, nil

	case "discover":
		var params struct {
			Query string `json:"query"`
			Kind  string `json:"kind"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, &rpcError{Code: -32602, Message: "invalid params: " + err.Error()}
		}
		nodes, err := eng.Discover(ctx, params.Query, graph.Kind(params.Kind))
		if err != nil {
			return nil, &rpcError{Code: -32000, Message: err.Error()}
		}
		return nodes, nil

	case "where":
		var params struct {
			Hash string `json:"hash"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, &rpcError{Code: -32602, Message: "invalid params: " + err.Error()}
		}
		node, err := eng.Where(ctx, params.Hash)
		if err != nil {
			return nil, &rpcError{Code: -32001, Message: err.Error()}
		}
		return node, nil

	case "explain":
		var params struct {
			Code string `json:"code"`
			Hash string `json:"hash"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, &rpcError{Code: -32602, Message: "invalid params: " + err.Error()}
		}
		chain, err := eng.Explain(ctx, params.Code, params.Hash)
		if err != nil {
			return nil, &rpcError{Code: -32001, Message: err.Error()}
		}
		return chain, nil

	case "stats":
		stats, err := eng.Stats(ctx)
		if err != nil {
			return nil, &rpcError{Code: -32000, Message: err.Error()}
		}
		return stats, nil

	default:
		return nil, &rpcError{Code: -32601, Message: "unknown method: " + req.Method}
	}
}
