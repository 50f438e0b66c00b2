package diff

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestUnified(t *testing.T) {
	d := Diff("package.json", []byte("{\n  \"a\": 1\n}\n"), []byte("{\n  \"a\": 1,\n  \"b\": 2\n}\n"))
	if !d.Changed {
		t.Fatal("Changed should be true")
	}

	text := d.Unified()
	for _, want := range []string{"--- a/package.json", "+++ b/package.json", "-  \"a\": 1\n", "+  \"a\": 1,\n", "+  \"b\": 2\n"} {
		if !strings.Contains(text, want) {
			t.Errorf("Unified() missing %q in:\n%s", want, text)
		}
	}

	added, removed := d.Stats()
	if added != 2 || removed != 1 {
		t.Errorf("Stats() = +%d -%d, want +2 -1", added, removed)
	}
	if got := d.Summary(); got != "package.json (+2 -1)" {
		t.Errorf("Summary() = %q", got)
	}
}

func TestUnifiedCreated(t *testing.T) {
	d := Diff("src/queue.module.ts", nil, []byte("export class QueueModule {}\n"))
	d.Created = true

	text := d.Unified()
	if !strings.Contains(text, "--- /dev/null") {
		t.Errorf("Unified() should diff against /dev/null:\n%s", text)
	}
	if got := d.Summary(); got != "src/queue.module.ts (new, +1)" {
		t.Errorf("Summary() = %q", got)
	}
}

func TestNoChanges(t *testing.T) {
	color.NoColor = true
	d := Diff("a", []byte("x\n"), []byte("x\n"))
	if d.Unified() != "" {
		t.Error("Unified() should be empty without changes")
	}
	if d.String() != "No changes needed" {
		t.Errorf("String() = %q", d.String())
	}
}
