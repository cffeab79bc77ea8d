package parser_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/0x6d61/agentscan/internal/parser"
	"github.com/0x6d61/agentscan/pkg/schema"
)

// garbageInputs はどのパーサーにも panic させてはならない入力。
var garbageInputs = map[string]string{
	"empty":          "",
	"whitespace":     " \n\t\r\n",
	"non-utf8":       "\xff\xfe\xfd\x00\x80garbage",
	"truncated xml":  `<?xml version="1.0"?><nmaprun><host><ports><port portid="`,
	"truncated json": `{"results":[{"url":"http://x/`,
	"json scalar":    `42`,
	"wrong shape":    `{"results":"not-an-array","_source":7}`,
	"array of junk":  `[1, "two", null, {"_source": {"layers": []}}]`,
	"nested angle":   strings.Repeat("<a>", 1000),
}

func TestParse_NeverPanicsOnGarbage(t *testing.T) {
	for _, name := range parser.Names() {
		p, ok := parser.Lookup(name, "custom")
		if !ok {
			t.Fatalf("Lookup(%q) failed", name)
		}
		for label, raw := range garbageInputs {
			t.Run(name+"/"+label, func(t *testing.T) {
				res := p.Parse(raw, name, nil)
				assertWellFormed(t, res)
			})
		}
	}
}

func TestParse_JSONShapeAlwaysHasBothKeys(t *testing.T) {
	p := parser.NewNmap()
	res := p.Parse("", "nmap", nil)

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if string(m["findings"]) != "[]" {
		t.Errorf("findings = %s, want []", m["findings"])
	}
	if _, ok := m["statistics"]; !ok {
		t.Error("statistics key missing")
	}
}

func TestEngine_RecoversFromPanic(t *testing.T) {
	e := parser.NewEngine(parser.Format{
		Tool: "boom",
		Decode: func(raw, cmd string) (*parser.Scan, error) {
			panic("decoder exploded")
		},
	})

	res := e.Parse("anything", "boom", nil)

	assertWellFormed(t, res)
	if len(res.Findings) != 0 {
		t.Errorf("findings = %d, want 0", len(res.Findings))
	}
	if res.Statistics["degraded"] != 1 {
		t.Errorf("degraded = %v, want 1", res.Statistics["degraded"])
	}
}

func TestEngine_FallbackMarksDegradedAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Output: &buf, Level: hclog.Warn})

	e := parser.NewEngine(parser.Format{
		Tool: "demo",
		Decode: func(raw, cmd string) (*parser.Scan, error) {
			return nil, errFake
		},
		Fallback: func(raw, cmd string) *parser.Scan {
			return &parser.Scan{Items: []parser.Item{{Key: "a", Title: "A"}}}
		},
	}, parser.WithLogger(logger))

	res := e.Parse("raw text", "demo", nil)

	if len(res.Findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(res.Findings))
	}
	if res.Statistics["degraded"] != 1 {
		t.Errorf("degraded = %v, want 1", res.Statistics["degraded"])
	}
	if !strings.Contains(buf.String(), "using text fallback") {
		t.Errorf("degradation not logged: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "demo") {
		t.Errorf("logger should be named after the tool: %q", buf.String())
	}
}

func TestEngine_TextOnlyToolIsNotDegraded(t *testing.T) {
	e := parser.NewEngine(parser.Format{
		Tool: "plain",
		Fallback: func(raw, cmd string) *parser.Scan {
			return &parser.Scan{}
		},
	})
	res := e.Parse("x", "plain", nil)
	if res.Statistics["degraded"] != 0 {
		t.Errorf("degraded = %v, want 0", res.Statistics["degraded"])
	}
}

func TestEngine_DeduplicatesByKey(t *testing.T) {
	e := parser.NewEngine(parser.Format{
		Tool: "dup",
		Decode: func(raw, cmd string) (*parser.Scan, error) {
			return &parser.Scan{Items: []parser.Item{
				{Key: "same", Title: "first"},
				{Key: "same", Title: "second"},
				{Title: "nokey", Target: "t"},
				{Title: "nokey", Target: "t"},
			}}, nil
		},
	})

	res := e.Parse("", "dup", nil)

	if len(res.Findings) != 2 {
		t.Fatalf("findings = %d, want 2", len(res.Findings))
	}
	if res.Findings[0].Title != "first" {
		t.Errorf("first occurrence should win, got %q", res.Findings[0].Title)
	}
	if res.Statistics["total_findings"] != 2 {
		t.Errorf("total_findings = %v, want 2", res.Statistics["total_findings"])
	}
}

func TestEngine_AgentIDAndTimestamp(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("JST", 9*3600))
	e := parser.NewEngine(parser.Format{
		Tool: "t",
		Decode: func(raw, cmd string) (*parser.Scan, error) {
			return &parser.Scan{Items: []parser.Item{{Key: "1"}, {Key: "2"}}}, nil
		},
	}, parser.WithClock(func() time.Time { return fixed }))

	agent := "agent-7"
	res := e.Parse("", "t", &agent)
	agent = "mutated"

	for _, f := range res.Findings {
		if f.AgentID == nil || *f.AgentID != "agent-7" {
			t.Errorf("AgentID = %v, want agent-7", f.AgentID)
		}
		if !f.Timestamp.Equal(fixed) || f.Timestamp.Location() != time.UTC {
			t.Errorf("Timestamp = %v, want %v in UTC", f.Timestamp, fixed)
		}
	}

	res = e.Parse("", "t", nil)
	if res.Findings[0].AgentID != nil {
		t.Error("AgentID should be nil when not supplied")
	}
}

func TestEngine_IDsStableAcrossParses(t *testing.T) {
	p := parser.NewNmap()
	a := p.Parse(testNmapXML, "nmap -oX -", nil)
	b := p.Parse(testNmapXML, "nmap -oX -", nil)

	if len(a.Findings) == 0 || len(a.Findings) != len(b.Findings) {
		t.Fatalf("findings: %d vs %d", len(a.Findings), len(b.Findings))
	}
	seen := map[string]bool{}
	for i := range a.Findings {
		if a.Findings[i].ID != b.Findings[i].ID {
			t.Errorf("finding %d ID changed between parses", i)
		}
		if seen[a.Findings[i].ID] {
			t.Errorf("duplicate ID %s within one parse", a.Findings[i].ID)
		}
		seen[a.Findings[i].ID] = true
	}
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"nmap", "ffuf", "tshark", "nikto", "generic"} {
		if _, ok := parser.Lookup(name, name); !ok {
			t.Errorf("Lookup(%q) not found", name)
		}
	}
	if _, ok := parser.Lookup("masscan", "masscan"); ok {
		t.Error("unknown parser should not be found")
	}
}

// assertWellFormed は ParseResult が正規形を満たすことを確認する。
func assertWellFormed(t *testing.T, res schema.ParseResult) {
	t.Helper()
	if res.Findings == nil {
		t.Error("findings is nil")
	}
	if res.Statistics == nil {
		t.Fatal("statistics is nil")
	}
	sev, ok := res.Statistics["severity"].(map[string]int)
	if !ok {
		t.Fatalf("severity stats missing or wrong type: %T", res.Statistics["severity"])
	}
	sum := 0
	for _, s := range schema.Severities {
		n, ok := sev[string(s)]
		if !ok {
			t.Errorf("severity key %q missing", s)
		}
		sum += n
	}
	if sum != len(res.Findings) {
		t.Errorf("severity counts sum = %d, want %d", sum, len(res.Findings))
	}
	for _, f := range res.Findings {
		if !f.Severity.Valid() {
			t.Errorf("invalid severity %q", f.Severity)
		}
		if f.ID == "" {
			t.Error("finding without ID")
		}
	}
}

type fakeError string

func (e fakeError) Error() string { return string(e) }

const errFake = fakeError("bad format")
