package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/meshguard/epigenetic-policy-engine/internal/logging"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the engine's SQLite database")
	service := flag.String("service", "", "filter to one service_id")
	last := flag.Int("last", 20, "show N most recent decisions")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/epe.db [--service id] [--last N] [--json]")
		os.Exit(2)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := logging.EnsureSchema(db); err != nil {
		fmt.Fprintf(os.Stderr, "schema: %v\n", err)
		os.Exit(1)
	}

	rows, err := listDecisions(db, *service, *last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no decisions found")
		return
	}

	if *jsonOut {
		if err := printJSON(rows); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	printTable(rows)
}

// #endregion main

// #region query

type decisionRow struct {
	EventID         string `json:"event_id"`
	ServiceID       string `json:"service_id"`
	Path            string `json:"path"`
	TriggerType     string `json:"trigger_type"`
	Decision        string `json:"decision"`
	Reason          string `json:"reason"`
	SnapshotVersion uint64 `json:"snapshot_version"`
	CreatedAt       string `json:"created_at"`
}

func listDecisions(db *sql.DB, service string, last int) ([]decisionRow, error) {
	query := `SELECT event_id, service_id, path, trigger_type, decision,
	                  COALESCE(reason, ''), snapshot_version, created_at
	           FROM decision_log`
	args := []interface{}{}
	if service != "" {
		query += ` WHERE service_id = ?`
		args = append(args, service)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, last)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []decisionRow
	for rows.Next() {
		var r decisionRow
		if err := rows.Scan(&r.EventID, &r.ServiceID, &r.Path, &r.TriggerType, &r.Decision, &r.Reason, &r.SnapshotVersion, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan decision row: %w", err)
		}
		out = append(out, r)
	}
	// query orders newest first; reverse for chronological display
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

// #endregion query

// #region output

func printTable(rows []decisionRow) {
	fmt.Printf("%-8s  %-16s  %-28s  %-9s  %-8s  %4s  %s\n",
		"EventID", "Service", "Path", "Trigger", "Decision", "Snap", "Time")
	fmt.Printf("%-8s  %-16s  %-28s  %-9s  %-8s  %4s  %s\n",
		"--------", "----------------", "----------------------------", "---------", "--------", "----", "--------------------")
	for _, r := range rows {
		fmt.Printf("%-8s  %-16s  %-28s  %-9s  %-8s  %4d  %s\n",
			truncate(r.EventID, 8), r.ServiceID, truncate(r.Path, 28), r.TriggerType, r.Decision, r.SnapshotVersion, r.CreatedAt)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// #endregion output
