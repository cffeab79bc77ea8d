package parser_test

import (
	"testing"

	"github.com/0x6d61/agentscan/internal/parser"
	"github.com/0x6d61/agentscan/pkg/schema"
)

const testNiktoJSON = `{"host":"10.0.0.5","ip":"10.0.0.5","port":"80","banner":"Apache/2.4.49","vulnerabilities":[
{"id":"999957","method":"GET","url":"/","msg":"The anti-clickjacking X-Frame-Options header is not present."},
{"id":"000001","method":"GET","url":"/cgi-bin/test.cgi","msg":"Site appears vulnerable to the 'shellshock' vulnerability (CVE-2014-6271)."}
]}`

func TestNikto_JSON(t *testing.T) {
	res := parser.NewNikto().Parse(testNiktoJSON, "nikto -h 10.0.0.5 -Format json", nil)
	assertWellFormed(t, res)

	if res.Statistics["hosts"] != 1 || res.Statistics["items"] != 2 {
		t.Errorf("stats = hosts %v items %v, want 1/2", res.Statistics["hosts"], res.Statistics["items"])
	}
	if len(res.Findings) != 2 {
		t.Fatalf("findings = %d, want 2", len(res.Findings))
	}

	xfo := res.Findings[0]
	if xfo.Title != "The anti-clickjacking X-Frame-Options header is not present" {
		t.Errorf("title = %q", xfo.Title)
	}
	if xfo.Target != "10.0.0.5:80/" {
		t.Errorf("target = %q", xfo.Target)
	}
	if xfo.Severity != schema.SeverityMedium {
		t.Errorf("x-frame-options severity = %q, want medium", xfo.Severity)
	}
	if res.Findings[1].Severity != schema.SeverityCritical {
		t.Errorf("shellshock severity = %q, want critical", res.Findings[1].Severity)
	}
}

func TestNikto_ArrayWithNumericPort(t *testing.T) {
	raw := `[{"host":"a.example","port":443,"vulnerabilities":[{"id":1,"url":"/admin/","msg":"/admin/: Admin login page found."}]}]`
	res := parser.NewNikto().Parse(raw, "", nil)

	if res.Statistics["degraded"] != 0 {
		t.Fatalf("degraded = %v, want 0", res.Statistics["degraded"])
	}
	if len(res.Findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(res.Findings))
	}
	f := res.Findings[0]
	if f.Target != "a.example:443/admin/" {
		t.Errorf("target = %q", f.Target)
	}
	if f.Title != "Admin login page found" {
		t.Errorf("title = %q", f.Title)
	}
	if f.Severity != schema.SeverityHigh {
		t.Errorf("severity = %q, want high", f.Severity)
	}
}

func TestNikto_TextFallback(t *testing.T) {
	raw := `- Nikto v2.5.0
---------------------------------------------------------------------------
+ Target IP:          10.0.0.5
+ Target Hostname:    10.0.0.5
+ Target Port:        80
+ Start Time:         2024-01-01 10:00:00 (GMT0)
---------------------------------------------------------------------------
+ Server: Apache/2.4.49 (Unix)
+ /: The X-Content-Type-Options header is not set.
+ Apache/2.4.49 appears to be outdated (current is at least Apache/2.4.54).
+ End Time:           2024-01-01 10:05:00 (GMT0) (300 seconds)
---------------------------------------------------------------------------
+ 1 host(s) tested`

	res := parser.NewNikto().Parse(raw, "nikto -h 10.0.0.5 -p 80", nil)
	assertWellFormed(t, res)

	if res.Statistics["degraded"] != 1 {
		t.Errorf("degraded = %v, want 1", res.Statistics["degraded"])
	}
	if res.Statistics["hosts"] != 1 || res.Statistics["items"] != 3 {
		t.Errorf("stats = hosts %v items %v, want 1/3", res.Statistics["hosts"], res.Statistics["items"])
	}
	if len(res.Findings) != 3 {
		t.Fatalf("findings = %d, want 3", len(res.Findings))
	}
	want := []schema.Severity{schema.SeverityLow, schema.SeverityLow, schema.SeverityMedium}
	for i, w := range want {
		if res.Findings[i].Severity != w {
			t.Errorf("finding %d (%q) severity = %q, want %q", i, res.Findings[i].Title, res.Findings[i].Severity, w)
		}
		if res.Findings[i].Target != "10.0.0.5:80" {
			t.Errorf("finding %d target = %q", i, res.Findings[i].Target)
		}
	}
}
