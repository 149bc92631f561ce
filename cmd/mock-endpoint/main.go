// Package main implements a mock submitter endpoint for local and CI runs of
// benchgate. It accepts the plain-text payload POST that benchgate sends and
// answers with JSON fixture files, so a sweep can be exercised without a real
// submitter service.
//
// Usage:
//
//	mock-endpoint --fixtures ./fixtures --port 8089 --token secret
//
// Fixture files are JSON named by key (e.g. "test_001.json" has key
// "test_001"). A request is served the fixture whose key occurs in the
// payload; the longest matching key wins. "default.json", when present,
// answers requests no other key matches.
//
// Sequential fixtures: numbered files ("test_001.1.json", "test_001.2.json")
// are returned on the 1st, 2nd ... call for that key, after which the base
// file, or the last numbered file, repeats.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
)

// defaultKey names the fallback fixture.
const defaultKey = "default"

// maxPayloadSize bounds the request body read from a client.
const maxPayloadSize = 10 * 1024 * 1024

// capturedRequest stores an incoming payload for test verification.
type capturedRequest struct {
	Key       string `json:"key"`
	Payload   string `json:"payload"`
	CallIndex int    `json:"call_index"` // 1-indexed per-key call number
	Timestamp int64  `json:"timestamp"`
}

type server struct {
	fixtures map[string][]string // key → ordered fixture contents
	keys     []string            // fixture keys, longest first
	token    string
	delay    time.Duration
	logger   *slog.Logger
	calls    atomic.Int64

	keyCalls   map[string]*atomic.Int64
	keyCallsMu sync.Mutex

	requests   []capturedRequest
	requestsMu sync.Mutex
}

func newServer(fixtures map[string][]string, token string, delay time.Duration, logger *slog.Logger) *server {
	keys := make([]string, 0, len(fixtures))
	for k := range fixtures {
		if k != defaultKey {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return &server{
		fixtures: fixtures,
		keys:     keys,
		token:    token,
		delay:    delay,
		logger:   logger,
		keyCalls: make(map[string]*atomic.Int64),
	}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/requests", s.handleRequests)
	mux.HandleFunc("/", s.handlePayload)
	return mux
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		fixtureDir string
		port       int
		token      string
		delay      time.Duration
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "mock-endpoint",
		Short:         "Serve fixture responses in place of a submitter endpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(logLevel)

			if fixtureDir == "" {
				fixtureDir = os.Getenv("MOCK_ENDPOINT_FIXTURES")
			}
			if fixtureDir == "" {
				fixtureDir = "/fixtures"
			}
			if token == "" {
				token = os.Getenv("MOCK_ENDPOINT_TOKEN")
			}

			fixtures, err := loadFixtures(fixtureDir)
			if err != nil {
				return fmt.Errorf("load fixtures from %s: %w", fixtureDir, err)
			}
			logger.Info("Loaded fixtures", "dir", fixtureDir, "keys", len(fixtures))

			s := newServer(fixtures, token, delay, logger)
			addr := fmt.Sprintf(":%d", port)
			logger.Info("Mock endpoint listening", "addr", addr)
			srv := &http.Server{
				Addr:              addr,
				Handler:           s.routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fixtureDir, "fixtures", "", "Directory containing fixture response files")
	cmd.Flags().IntVar(&port, "port", 8089, "Port to listen on")
	cmd.Flags().StringVar(&token, "token", "", "Require this bearer token (empty disables the check)")
	cmd.Flags().DurationVar(&delay, "delay", 0, "Delay every response, e.g. to exercise client timeouts")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	return cmd
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handlePayload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadSize))
	if err != nil {
		http.Error(w, fmt.Sprintf("read request body: %v", err), http.StatusBadRequest)
		return
	}
	payload := string(data)
	callNum := s.calls.Add(1)

	key, ok := s.match(payload)
	if !ok {
		s.logger.Warn("No fixture matches payload", "call", callNum, "bytes", len(payload))
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no matching fixture"})
		return
	}

	seq := s.fixtures[key]
	callIndex := int(s.counter(key).Add(1) - 1)
	s.capture(key, payload, callIndex+1)

	content := seq[len(seq)-1]
	if callIndex < len(seq) {
		content = seq[callIndex]
	}

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-r.Context().Done():
			return
		}
	}

	s.logger.Debug("Serving fixture", "call", callNum, "key", key, "call_index", callIndex+1, "sequence", len(seq))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, content)
}

// match returns the longest fixture key contained in the payload, falling
// back to the default fixture.
func (s *server) match(payload string) (string, bool) {
	for _, k := range s.keys {
		if strings.Contains(payload, k) {
			return k, true
		}
	}
	if _, ok := s.fixtures[defaultKey]; ok {
		return defaultKey, true
	}
	return "", false
}

func (s *server) counter(key string) *atomic.Int64 {
	s.keyCallsMu.Lock()
	defer s.keyCallsMu.Unlock()
	if c, ok := s.keyCalls[key]; ok {
		return c
	}
	c := &atomic.Int64{}
	s.keyCalls[key] = c
	return c
}

func (s *server) capture(key, payload string, callIndex int) {
	s.requestsMu.Lock()
	defer s.requestsMu.Unlock()
	s.requests = append(s.requests, capturedRequest{
		Key:       key,
		Payload:   payload,
		CallIndex: callIndex,
		Timestamp: time.Now().UnixMilli(),
	})
}

// handleStats returns total_calls and a per-key calls_by_key breakdown.
func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.keyCallsMu.Lock()
	byKey := make(map[string]int64, len(s.keyCalls))
	for k, c := range s.keyCalls {
		byKey[k] = c.Load()
	}
	s.keyCallsMu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"total_calls":  s.calls.Load(),
		"calls_by_key": byKey,
	})
}

// handleRequests returns captured payloads. The optional "key" query
// parameter filters by fixture key.
func (s *server) handleRequests(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("key")

	s.requestsMu.Lock()
	out := make([]capturedRequest, 0, len(s.requests))
	for _, req := range s.requests {
		if filter == "" || req.Key == filter {
			out = append(out, req)
		}
	}
	s.requestsMu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"requests": out})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// numberedFileRe matches files like "test_001.1.json".
var numberedFileRe = regexp.MustCompile(`^(.+)\.(\d+)\.json$`)

// loadFixtures reads JSON files from dir into key → content sequences.
// Numbered files come first in numeric order, then the base file.
func loadFixtures(dir string) (map[string][]string, error) {
	base := make(map[string]string)
	numbered := make(map[string]map[int]string)

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if !json.Valid(data) {
			return fmt.Errorf("invalid JSON in %s", path)
		}

		if m := numberedFileRe.FindStringSubmatch(d.Name()); m != nil {
			idx, _ := strconv.Atoi(m[2])
			if numbered[m[1]] == nil {
				numbered[m[1]] = make(map[int]string)
			}
			numbered[m[1]][idx] = string(data)
			return nil
		}
		base[strings.TrimSuffix(d.Name(), ".json")] = string(data)
		return nil
	})
	if err != nil {
		return nil, err
	}

	fixtures := make(map[string][]string)
	for key, files := range numbered {
		indices := make([]int, 0, len(files))
		for idx := range files {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			fixtures[key] = append(fixtures[key], files[idx])
		}
	}
	for key, content := range base {
		fixtures[key] = append(fixtures[key], content)
	}

	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no fixture files found in %s", dir)
	}
	return fixtures, nil
}
