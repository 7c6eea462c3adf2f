package ingest

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
)

// ProcessDirectory replays every *.json payload file under dir in name order.
// Used to seed or backfill from exported webhook dumps; idempotency makes a
// rerun over the same directory harmless.
func (in *Ingestor) ProcessDirectory(ctx context.Context, dir string) (Summary, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return Summary{}, err
	}
	sort.Strings(paths)

	var total Summary
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Printf("ingest: read %s: %v", path, err)
			total.Errored++
			continue
		}

		var payload WebhookPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			log.Printf("ingest: parse %s: %v", path, err)
			total.Errored++
			continue
		}

		sum, err := in.ProcessPayload(ctx, payload)
		if err != nil {
			log.Printf("ingest: process %s: %v", path, err)
			total.Errored++
			continue
		}
		total.UsersUpserted += sum.UsersUpserted
		total.MessagesCreated += sum.MessagesCreated
		total.StatusesApplied += sum.StatusesApplied
		total.Skipped += sum.Skipped
		total.Errored += sum.Errored
	}

	log.Printf("ingest: directory %s done: files=%d messages=%d statuses=%d skipped=%d errored=%d",
		dir, len(paths), total.MessagesCreated, total.StatusesApplied, total.Skipped, total.Errored)
	return total, nil
}
