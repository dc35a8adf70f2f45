package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sakif/briefme/internal/apperror"
	"github.com/sakif/briefme/internal/model"
	sqliteRepo "github.com/sakif/briefme/internal/repository/sqlite"
)

// openDB refuses to create a database that does not exist yet; a typo in
// --db would otherwise print an empty export.
func openDB(path string) (*sqliteRepo.DB, error) {
	if path != ":memory:" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("briefmectl: opening %s: %w", path, err)
		}
	}
	return sqliteRepo.New(path)
}

func runExport(ctx context.Context, dbPath, userID string, out io.Writer) error {
	db, err := openDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return exportCollection(ctx, db, userID, out)
}

func runResponses(ctx context.Context, dbPath, briefingID string, out io.Writer) error {
	db, err := openDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return writeResponses(ctx, db, briefingID, out)
}

func exportCollection(ctx context.Context, db *sqliteRepo.DB, userID string, out io.Writer) error {
	briefings, err := db.LoadCollection(ctx, userID)
	if err != nil {
		return fmt.Errorf("briefmectl: loading collection for %s: %w", userID, err)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(briefings)
}

// writeResponses prints one CSV row per response: submission time, submitter
// and one column per field of the briefing's current schema.
func writeResponses(ctx context.Context, db *sqliteRepo.DB, briefingID string, out io.Writer) error {
	owner, err := db.OwnerOf(ctx, briefingID)
	if err != nil {
		return fmt.Errorf("briefmectl: %w", err)
	}
	briefings, err := db.LoadCollection(ctx, owner)
	if err != nil {
		return fmt.Errorf("briefmectl: loading collection for %s: %w", owner, err)
	}

	var b *model.Briefing
	for i := range briefings {
		if briefings[i].ID == briefingID {
			b = &briefings[i]
			break
		}
	}
	if b == nil {
		return fmt.Errorf("briefmectl: %w", apperror.NotFound("briefing", briefingID))
	}

	w := csv.NewWriter(out)
	header := []string{"submittedAt", "submittedBy"}
	for _, f := range b.Fields {
		header = append(header, f.Label)
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range b.Responses {
		row := []string{r.SubmittedAt.UTC().Format(time.RFC3339), r.SubmittedBy}
		for _, f := range b.Fields {
			row = append(row, r.Answers[f.ID])
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
