package tools_test

import (
	"errors"
	"testing"

	"github.com/0x6d61/agentscan/internal/tools"
)

func isConfigError(err error) bool {
	var ce *tools.ConfigurationError
	return errors.As(err, &ce) && errors.Is(err, tools.ErrConfiguration)
}

func TestMatchVariant(t *testing.T) {
	tmpl := tcpConnectTemplate(t)

	cases := []struct {
		name string
		args []string
		want bool
	}{
		{"exact", []string{"-sT", "-p", "80,443", "10.0.0.5"}, true},
		{"cidr", []string{"-sT", "-p", "1-1024", "10.0.0.0/24"}, true},
		{"literal differs", []string{"-sS", "-p", "80", "10.0.0.5"}, false},
		{"too short", []string{"-sT", "-p", "80"}, false},
		{"extra arg", []string{"-sT", "-p", "80", "10.0.0.5", "-A"}, false},
		{"bad ports", []string{"-sT", "-p", "eighty", "10.0.0.5"}, false},
		{"injected option", []string{"-sT", "-p", "80", "--script=evil"}, false},
		{"empty", nil, false},
	}
	for _, c := range cases {
		if got := tools.MatchVariant(tmpl, c.args); got != c.want {
			t.Errorf("%s: MatchVariant(%v) = %v, want %v", c.name, c.args, got, c.want)
		}
	}
}

func TestMatchVariant_Embedded(t *testing.T) {
	tmpl := durationTemplate(t)

	if !tools.MatchVariant(tmpl, []string{"-i", "eth0", "-a", "duration:60"}) {
		t.Error("duration:60 should match")
	}
	// 接頭辞が違う・値が空・値が不正
	for _, bad := range []string{"filesize:60", "duration:", "duration:abc", "60"} {
		if tools.MatchVariant(tmpl, []string{"-i", "eth0", "-a", bad}) {
			t.Errorf("%q should not match", bad)
		}
	}
}

func TestCompileTemplate_Invalid(t *testing.T) {
	target := tools.ArgumentDef{Name: "target", Required: true}
	cases := []struct {
		name string
		def  tools.VariantDef
	}{
		{"no id", tools.VariantDef{Args: []string{"{target}"}, Arguments: []tools.ArgumentDef{target}}},
		{"empty args", tools.VariantDef{ID: "v", Arguments: []tools.ArgumentDef{target}}},
		{"undefined placeholder", tools.VariantDef{ID: "v", Args: []string{"{host}"}, Arguments: []tools.ArgumentDef{target}}},
		{"unused argument", tools.VariantDef{ID: "v", Args: []string{"-sL"}, Arguments: []tools.ArgumentDef{target}}},
		{"duplicate argument", tools.VariantDef{ID: "v", Args: []string{"{target}"}, Arguments: []tools.ArgumentDef{target, target}}},
		{"unbalanced brace", tools.VariantDef{ID: "v", Args: []string{"{target"}, Arguments: []tools.ArgumentDef{target}}},
		{"two placeholders", tools.VariantDef{ID: "v", Args: []string{"{target}:{target}"}, Arguments: []tools.ArgumentDef{target}}},
		{"empty token", tools.VariantDef{ID: "v", Args: []string{"", "{target}"}, Arguments: []tools.ArgumentDef{target}}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := tools.CompileTemplate("nmap", c.def)
			if !isConfigError(err) {
				t.Errorf("expected *ConfigurationError, got %v", err)
			}
		})
	}
}

func TestTemplate_ID(t *testing.T) {
	if id := tcpConnectTemplate(t).ID(); id != "tcp_connect_scan" {
		t.Errorf("ID: got %q", id)
	}
}
