package store

import (
	"sort"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsAreWellFormed(t *testing.T) {
	files, err := migrationFiles()
	if err != nil {
		t.Fatalf("migrationFiles failed: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no embedded migrations found")
	}

	if !sort.StringsAreSorted(files) {
		t.Errorf("migrations must apply in lexical order: %v", files)
	}

	seen := map[string]bool{}
	for _, name := range files {
		if !strings.HasSuffix(name, ".sql") {
			t.Errorf("migration %s does not end in .sql", name)
		}
		if seen[name] {
			t.Errorf("duplicate migration name %s", name)
		}
		seen[name] = true

		contents, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			t.Errorf("read %s: %v", name, err)
			continue
		}
		if strings.TrimSpace(string(contents)) == "" {
			t.Errorf("migration %s is empty", name)
		}
	}
}
