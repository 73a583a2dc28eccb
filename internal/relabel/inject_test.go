package relabel

import (
	"strings"
	"testing"
	"time"
)

var testNow = time.Unix(1756400000, 0)

func apply(t *testing.T, fixed map[string]string, raw string) string {
	t.Helper()
	out, err := NewInjector(fixed).Apply(raw, testNow)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	return out
}

func TestApply_NoLabels_InjectsAndTimestamps(t *testing.T) {
	out := apply(t, map[string]string{"tenant": "acme"}, `cpu_usage 42`)

	want := `cpu_usage{tenant="acme"} 42 1756400000`
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestApply_ExistingLabels_Merged(t *testing.T) {
	out := apply(t, map[string]string{"tenant": "acme"}, `cpu_usage{core="0"} 42`)

	want := `cpu_usage{core="0",tenant="acme"} 42 1756400000`
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestApply_CollidingKey_InjectedValueWins(t *testing.T) {
	out := apply(t, map[string]string{"instance": "ha:8123"},
		`up{instance="localhost:9090",job="node"} 1`)

	if strings.Contains(out, "localhost:9090") {
		t.Errorf("scraped value survived collision: %q", out)
	}
	if !strings.Contains(out, `instance="ha:8123"`) {
		t.Errorf("injected value missing: %q", out)
	}
	if !strings.Contains(out, `job="node"`) {
		t.Errorf("non-colliding label lost: %q", out)
	}
}

func TestApply_LabelCount(t *testing.T) {
	fixed := map[string]string{"tenant": "acme", "environment": "prod", "host": "ha"}
	out := apply(t, fixed, `mem_free{zone="dma",node="0"} 1024`)

	// 2 scraped + 3 injected, none colliding.
	if got := strings.Count(out, "="); got != 5 {
		t.Errorf("label count = %d, want 5 in %q", got, out)
	}
}

func TestApply_CommentsAndBlanks_Verbatim(t *testing.T) {
	raw := strings.Join([]string{
		`# HELP cpu_usage CPU usage`,
		`# TYPE cpu_usage counter`,
		``,
		`cpu_usage 42`,
		`# trailing comment`,
	}, "\n")

	out := apply(t, map[string]string{"tenant": "acme"}, raw)
	lines := strings.Split(out, "\n")

	if lines[0] != `# HELP cpu_usage CPU usage` {
		t.Errorf("HELP line changed: %q", lines[0])
	}
	if lines[1] != `# TYPE cpu_usage counter` {
		t.Errorf("TYPE line changed: %q", lines[1])
	}
	if lines[2] != `` {
		t.Errorf("blank line changed: %q", lines[2])
	}
	if lines[4] != `# trailing comment` {
		t.Errorf("trailing comment moved or changed: %q", lines[4])
	}
}

func TestApply_ExistingTimestamp_Preserved(t *testing.T) {
	out := apply(t, map[string]string{"tenant": "acme"}, `cpu_usage 42 1700000000`)

	want := `cpu_usage{tenant="acme"} 42 1700000000`
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestApply_ShortTrailingDigits_NotATimestamp(t *testing.T) {
	// 1234567 is the sample value, not a timestamp — only a run of ten
	// or more digits suppresses the synthetic timestamp.
	out := apply(t, map[string]string{"tenant": "acme"}, `requests_total 1234567`)

	want := `requests_total{tenant="acme"} 1234567 1756400000`
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestApply_Idempotent(t *testing.T) {
	fixed := map[string]string{"tenant": "acme", "job": "homeassistant"}
	raw := strings.Join([]string{
		`# HELP a first`,
		`a{x="1"} 1`,
		`b 2 1700000000`,
		`c{tenant="other"} 3.5`,
	}, "\n")

	once := apply(t, fixed, raw)
	twice := apply(t, fixed, once)
	if once != twice {
		t.Errorf("second application changed output:\n once: %q\ntwice: %q", once, twice)
	}
}

func TestApply_DeterministicOrder(t *testing.T) {
	fixed := map[string]string{
		"tenant": "acme", "environment": "prod", "host": "ha",
		"job": "homeassistant", "instance": "ha:8123",
	}
	first := apply(t, fixed, `up{zz="1",aa="2"} 1`)
	for i := 0; i < 20; i++ {
		if got := apply(t, fixed, `up{zz="1",aa="2"} 1`); got != first {
			t.Fatalf("iteration %d produced different serialization:\n%q\n%q", i, got, first)
		}
	}
	if !strings.Contains(first, `{aa="2",environment="prod",host="ha",instance="ha:8123",job="homeassistant",tenant="acme",zz="1"}`) {
		t.Errorf("labels not in sorted key order: %q", first)
	}
}

func TestApply_EscapedLabelValues_Survive(t *testing.T) {
	raw := `errors_total{msg="bad \"input\"",path="C:\\tmp"} 7`
	out := apply(t, map[string]string{"tenant": "acme"}, raw)

	if !strings.Contains(out, `msg="bad \"input\""`) {
		t.Errorf("escaped quotes mangled: %q", out)
	}
	if !strings.Contains(out, `path="C:\\tmp"`) {
		t.Errorf("escaped backslash mangled: %q", out)
	}
}

func TestApply_FixedValueEscaped(t *testing.T) {
	out := apply(t, map[string]string{"note": `say "hi"`}, `up 1`)

	if !strings.Contains(out, `note="say \"hi\""`) {
		t.Errorf("injected value not escaped: %q", out)
	}
}

func TestApply_Malformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"unterminated block", `up{job="x" 1`},
		{"unterminated quote", `up{job="x} 1`},
		{"unquoted value", `up{job=x} 1`},
		{"missing value", `up`},
	}
	in := NewInjector(map[string]string{"tenant": "acme"})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := in.Apply(tc.raw, testNow); err == nil {
				t.Errorf("Apply(%q) succeeded, want error", tc.raw)
			}
		})
	}
}

func TestApply_ErrorNamesLine(t *testing.T) {
	raw := "ok 1\nup{job=\"x\" 1\n"
	_, err := NewInjector(map[string]string{"t": "v"}).Apply(raw, testNow)
	if err == nil {
		t.Fatal("want error for malformed second line")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error does not name the line: %v", err)
	}
}

func TestCorpusStats(t *testing.T) {
	out := apply(t, map[string]string{"tenant": "acme"}, strings.Join([]string{
		`# HELP cpu_usage CPU usage`,
		`# TYPE cpu_usage gauge`,
		`cpu_usage{core="0"} 42`,
		`cpu_usage{core="1"} 17`,
		`mem_free 1024`,
		``,
	}, "\n"))

	st, err := CorpusStats(strings.NewReader(out))
	if err != nil {
		t.Fatalf("CorpusStats() error = %v — enriched corpus no longer parses", err)
	}
	if st.Families != 2 {
		t.Errorf("Families = %d, want 2", st.Families)
	}
	if st.Samples != 3 {
		t.Errorf("Samples = %d, want 3", st.Samples)
	}
}
