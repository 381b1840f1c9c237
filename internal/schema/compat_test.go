package schema

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/connectkit/paneflow/pane"
)

// TestArchivedSubmissionsStillValidate pins the additive contract: submit
// schemas never gain required fields, so submissions recorded from earlier
// releases under testdata/compat must validate forever. Never edit an
// archived payload; add new ones.
func TestArchivedSubmissionsStillValidate(t *testing.T) {
	r := newRegistryTest(t)

	paths, err := filepath.Glob(filepath.Join("testdata", "compat", "*.json"))
	if err != nil {
		t.Fatalf("glob compat payloads: %v", err)
	}
	if len(paths) == 0 {
		t.Fatal("no archived payloads found under testdata/compat")
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}

		var record struct {
			Pane       pane.Name      `json:"pane"`
			Submission map[string]any `json:"submission"`
		}
		if err := json.Unmarshal(data, &record); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
		if !record.Pane.Valid() {
			t.Fatalf("archived payload %s names invalid pane %q", path, record.Pane)
		}

		if err := r.Validate(record.Pane, record.Submission); err != nil {
			t.Fatalf("archived submission %s no longer validates: %v", path, err)
		}
	}
}
