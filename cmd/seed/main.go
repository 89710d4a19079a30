package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"docforge/internal/schema"
	"docforge/internal/store"
)

// seedFile is one schema-and-questions pack. YAML and JSON files share
// the same shape.
type seedFile struct {
	Department store.Department       `json:"department"`
	Schemas    []*schema.Schema       `json:"schemas"`
	Questions  []store.QuestionRecord `json:"questions"`
}

func main() {
	var (
		dbPath  = flag.String("db", "docforge.db", "path to the sqlite database")
		seedDir = flag.String("dir", "seed", "directory of YAML/JSON seed packs")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := store.NewSQLiteStore(*dbPath)
	if err != nil {
		log.Error("open database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	var schemas, inserted, updated int

	err = filepath.WalkDir(*seedDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			return nil
		}

		pack, err := loadSeedFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		for _, sc := range pack.Schemas {
			if sc.Department == "" {
				sc.Department = pack.Department.Name
			}
			assignOrder(sc)
			if err := db.PutSchema(ctx, sc); err != nil {
				return fmt.Errorf("%s: put schema %q: %w", path, sc.DocumentName, err)
			}
			schemas++
		}

		records := pack.Questions
		for i := range records {
			if records[i].Department.Name == "" {
				records[i].Department = pack.Department
			}
			if records[i].AnswerKind == "" {
				records[i].AnswerKind = schema.AnswerText
			}
		}
		if len(records) > 0 {
			ins, upd, err := db.UpsertQuestions(ctx, records)
			if err != nil {
				return fmt.Errorf("%s: upsert questions: %w", path, err)
			}
			inserted += ins
			updated += upd
		}

		log.Info("loaded pack", "file", path, "schemas", len(pack.Schemas), "questions", len(records))
		return nil
	})
	if err != nil {
		log.Error("seeding failed", "error", err)
		os.Exit(1)
	}

	log.Info("done", "schemas", schemas, "questions_inserted", inserted, "questions_updated", updated)
}

// loadSeedFile reads a pack in YAML or JSON. YAML is decoded through
// an intermediate map so both formats share the json-tagged structs.
func loadSeedFile(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		var pack seedFile
		if err := json.Unmarshal(data, &pack); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		return &pack, nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	bridged, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("bridge yaml: %w", err)
	}
	var pack seedFile
	if err := json.Unmarshal(bridged, &pack); err != nil {
		return nil, fmt.Errorf("decode pack: %w", err)
	}
	return &pack, nil
}

// assignOrder fills in 1-based section and subsection order for packs
// that omit it.
func assignOrder(sc *schema.Schema) {
	for i := range sc.Sections {
		if sc.Sections[i].Order == 0 {
			sc.Sections[i].Order = i + 1
		}
		for j := range sc.Sections[i].Subsections {
			if sc.Sections[i].Subsections[j].Order == 0 {
				sc.Sections[i].Subsections[j].Order = j + 1
			}
		}
	}
}
