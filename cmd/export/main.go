package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/meshguard/epigenetic-policy-engine/internal/logging"
	"github.com/meshguard/epigenetic-policy-engine/internal/replay"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the engine's SQLite database")
	service := flag.String("service", "", "filter to one service_id")
	last := flag.Int("last", 100, "number of most recent decision_log rows to export")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: export --db path/to/epe.db --out path/to/fixture.json [--service id] [--last N]")
		os.Exit(2)
	}

	if err := run(*dbPath, *service, *last, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(dbPath, service string, last int, outPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if err := logging.EnsureSchema(db); err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	query := `SELECT service_id, path, features_json FROM (
		SELECT service_id, path, features_json, id FROM decision_log`
	args := []interface{}{}
	if service != "" {
		query += ` WHERE service_id = ?`
		args = append(args, service)
	}
	query += ` ORDER BY id DESC LIMIT ?) sub ORDER BY id ASC`
	args = append(args, last)

	rows, err := db.Query(query, args...)
	if err != nil {
		return fmt.Errorf("query decision log: %w", err)
	}
	defer rows.Close()

	var interactions []replay.FixtureInteraction
	for rows.Next() {
		var serviceID, path string
		var featuresJSON sql.NullString
		if err := rows.Scan(&serviceID, &path, &featuresJSON); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		if !featuresJSON.Valid || featuresJSON.String == "" {
			continue
		}
		var rec logging.DetectRecord
		if err := json.Unmarshal([]byte(featuresJSON.String), &rec); err != nil {
			continue
		}
		interactions = append(interactions, replay.FixtureInteraction{
			TurnID:    fmt.Sprintf("turn-%d", len(interactions)+1),
			ServiceID: serviceID,
			Path:      path,
			Anomaly:   rec.Anomaly,
			Entropy:   rec.Entropy,
			Frequency: rec.Frequency,
			// malicious is unknown from production history alone; the
			// operator is expected to hand-label this field before
			// using the fixture to drive the convergence-report CLI.
			Malicious: false,
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rows: %w", err)
	}

	if len(interactions) == 0 {
		return fmt.Errorf("no decision_log rows with recorded features found")
	}

	fixture := replay.Fixture{
		Description:  fmt.Sprintf("Exported from %s: %d decision_log rows", dbPath, len(interactions)),
		Interactions: interactions,
	}

	return writeFixture(fixture, outPath)
}

// #endregion extract

// #region output

func writeFixture(fixture replay.Fixture, outPath string) error {
	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	fmt.Printf("Wrote fixture to %s (%d bytes, %d interactions)\n", outPath, len(data), len(fixture.Interactions))
	return nil
}

// #endregion output
