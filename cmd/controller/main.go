package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/meshguard/epigenetic-policy-engine/internal/config"
	"github.com/meshguard/epigenetic-policy-engine/internal/coordinator"
	"github.com/meshguard/epigenetic-policy-engine/internal/metrics"
	"github.com/meshguard/epigenetic-policy-engine/internal/store"
)

// #region main
func main() {
	configPath := envOr("EPE_CONFIG", "config.yaml")

	doc, err := config.Load(configPath)
	if err != nil {
		log.Printf("[COORD] no config at %s, using defaults: %v", configPath, err)
		doc = config.Default()
	}

	db, err := store.Open(doc.DatabasePath)
	if err != nil {
		log.Fatalf("failed to open policy store: %v", err)
	}
	defer db.Close()

	m := metrics.New()

	c := coordinator.New(doc.ToCoordinatorConfig())
	c.UseMetrics(m)
	if err := c.UseDecisionLog(db.DB()); err != nil {
		log.Fatalf("failed to init decision log: %v", err)
	}

	if q, err := db.LoadQTable(); err == nil && q.Rows() > 0 {
		log.Printf("[COORD] loaded %d Q-table entries from %s", q.Rows(), doc.DatabasePath)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/detect", handleDetect(c))
	mux.HandleFunc("/snapshot/", handleSnapshot(c))
	mux.HandleFunc("/store/", handleStore(c))

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	go func() {
		log.Printf("metrics listening on %s", doc.MetricsAddr)
		if err := http.ListenAndServe(doc.MetricsAddr, metricsMux); err != nil {
			log.Fatalf("metrics server error: %v", err)
		}
	}()

	log.Printf("Epigenetic Policy Engine controller ready, listening on %s", doc.ListenAddr)
	if err := http.ListenAndServe(doc.ListenAddr, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// #endregion main

// #region detect-handler

// detectFeatures mirrors §6's request body: anomaly/entropy/frequency
// nest under "features", with depth optional and derived from the
// path when absent.
type detectFeatures struct {
	Anomaly   float64 `json:"anomaly"`
	Entropy   float64 `json:"entropy"`
	Frequency float64 `json:"frequency"`
	Depth     *int    `json:"depth,omitempty"`
}

type detectRequest struct {
	ServiceID string         `json:"service_id"`
	Path      string         `json:"path"`
	Payload   string         `json:"payload"`
	Features  detectFeatures `json:"features"`
}

func handleDetect(c *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		var req detectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}

		ev := coordinator.Event{
			ServiceID: req.ServiceID,
			Path:      req.Path,
			Payload:   req.Payload,
			Features: coordinator.Features{
				Anomaly:       req.Features.Anomaly,
				Entropy:       req.Features.Entropy,
				Frequency:     req.Features.Frequency,
				DepthOverride: req.Features.Depth,
			},
			Now: time.Now().UTC(),
		}

		decision, err := c.OnDetect(ev)
		if err != nil {
			log.Printf("[COORD] detect error for %s %s: %v", req.ServiceID, req.Path, err)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(decision)
	}
}

// #endregion detect-handler

// #region sidecar-handlers

// handleSnapshot serves the data-plane lookup ABI (§6) for a service:
// a u64 version header followed by a length-prefixed list of UTF-8
// dotted paths, the exact bytes a WASM sidecar loads into its O(1)
// string set at enforcement time.
func handleSnapshot(c *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serviceID := strings.TrimPrefix(r.URL.Path, "/snapshot/")
		if serviceID == "" {
			http.Error(w, "service id required", http.StatusBadRequest)
			return
		}
		snap, err := c.Snapshot(serviceID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		data, err := snap.EncodeABI()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(data)
	}
}

// handleStore serves (GET) and restores (POST) a service's store in
// the EPE1 binary format (§6), for operator-driven backup and
// reload-from-snapshot across restarts.
func handleStore(c *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serviceID := strings.TrimPrefix(r.URL.Path, "/store/")
		if serviceID == "" {
			http.Error(w, "service id required", http.StatusBadRequest)
			return
		}
		switch r.Method {
		case http.MethodGet:
			data, err := c.Export(serviceID)
			if err != nil {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write(data)
		case http.MethodPost:
			data, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
				return
			}
			if err := c.Reload(serviceID, data); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "GET or POST only", http.StatusMethodNotAllowed)
		}
	}
}

// #endregion sidecar-handlers

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
