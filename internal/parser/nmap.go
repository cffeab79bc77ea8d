package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/0x6d61/agentscan/pkg/schema"
)

// nmapLexicon はネットワークサービス語彙による分類ルール。
var nmapLexicon = NewLexicon(
	Rule{schema.SeverityCritical, Pattern(cvePattern)},
	Rule{schema.SeverityCritical, Words("vulnerable", "backdoor", "exploit", "exploitable")},
	Rule{schema.SeverityCritical, Substrings("remote code execution", "anonymous ftp login allowed")},

	Rule{schema.SeverityHigh, Words(
		"telnet", "ftp", "tftp", "microsoft-ds", "netbios-ssn", "ms-wbt-server", "rdp", "vnc",
		"redis", "mongodb", "mysql", "ms-sql-s", "postgresql", "oracle-tns", "rpcbind", "nfs",
		"rsh", "rlogin", "rexec", "x11", "memcached", "elasticsearch", "docker",
	)},
	Rule{schema.SeverityHigh, Substrings("windows xp", "windows 2000", "windows server 2003")},

	Rule{schema.SeverityMedium, Words(
		"ssh", "smtp", "pop3", "imap", "snmp", "ldap", "domain", "kerberos-sec", "http",
		"http-proxy", "msrpc", "sip",
	)},

	Rule{schema.SeverityLow, Words("https", "ssl", "open")},
)

// --- nmap XML パーサー ---

// nmapRun は nmap -oX の出力構造
type nmapRun struct {
	XMLName  xml.Name     `xml:"nmaprun"`
	Hosts    []nmapHost   `xml:"host"`
	RunStats nmapRunStats `xml:"runstats"`
}

type nmapRunStats struct {
	Finished struct {
		Elapsed string `xml:"elapsed,attr"`
	} `xml:"finished"`
	Hosts struct {
		Up    int `xml:"up,attr"`
		Down  int `xml:"down,attr"`
		Total int `xml:"total,attr"`
	} `xml:"hosts"`
}

type nmapHost struct {
	Status      nmapState      `xml:"status"`
	Addresses   []nmapAddress  `xml:"address"`
	Hostnames   []nmapHostname `xml:"hostnames>hostname"`
	Ports       []nmapPort     `xml:"ports>port"`
	OSMatches   []nmapOSMatch  `xml:"os>osmatch"`
	HostScripts []nmapScript   `xml:"hostscript>script"`
}

type nmapAddress struct {
	Addr     string `xml:"addr,attr"`
	AddrType string `xml:"addrtype,attr"`
}

type nmapHostname struct {
	Name string `xml:"name,attr"`
}

type nmapPort struct {
	Protocol string       `xml:"protocol,attr"`
	PortID   int          `xml:"portid,attr"`
	State    nmapState    `xml:"state"`
	Service  nmapService  `xml:"service"`
	Scripts  []nmapScript `xml:"script"`
}

type nmapState struct {
	State string `xml:"state,attr"`
}

type nmapService struct {
	Name      string `xml:"name,attr"`
	Product   string `xml:"product,attr"`
	Version   string `xml:"version,attr"`
	ExtraInfo string `xml:"extrainfo,attr"`
}

type nmapOSMatch struct {
	Name     string `xml:"name,attr"`
	Accuracy string `xml:"accuracy,attr"`
}

type nmapScript struct {
	ID     string `xml:"id,attr"`
	Output string `xml:"output,attr"`
}

// NewNmap は nmap 用のパーサーを返す。一次フォーマットは XML。
func NewNmap(opts ...Option) *Engine {
	return NewEngine(Format{
		Tool:     "nmap",
		Lexicon:  nmapLexicon,
		Decode:   decodeNmapXML,
		Fallback: parseNmapText,
		Zero:     nmapZeroStats,
		Aggregate: func(stats schema.Statistics, items []Item) {
			stats["services"] = countAttr(items, "service")
		},
	}, opts...)
}

func nmapZeroStats() schema.Statistics {
	return schema.Statistics{
		"total_hosts":           0,
		"up_hosts":              0,
		"down_hosts":            0,
		"total_ports":           0,
		"open_ports":            0,
		"scan_duration_seconds": 0.0,
	}
}

// decodeNmapXML は nmap XML 出力をパースする。
func decodeNmapXML(raw, _ string) (*Scan, error) {
	// XML 部分を抽出（前後にゴミがある場合）
	start := strings.Index(raw, "<nmaprun")
	if start < 0 {
		return nil, errors.New("nmap XML: <nmaprun> not found")
	}
	end := strings.LastIndex(raw, "</nmaprun>")
	if end < start {
		return nil, errors.New("nmap XML: </nmaprun> not found")
	}

	var run nmapRun
	if err := xml.Unmarshal([]byte(raw[start:end+len("</nmaprun>")]), &run); err != nil {
		return nil, fmt.Errorf("nmap XML parse: %w", err)
	}

	scan := &Scan{Stats: schema.Statistics{}}
	totalPorts, openPorts, up, down := 0, 0, 0, 0
	for _, host := range run.Hosts {
		switch host.Status.State {
		case "up":
			up++
		case "down":
			down++
		}
		ip := hostAddress(host.Addresses)
		name := ""
		if len(host.Hostnames) > 0 {
			name = host.Hostnames[0].Name
		}

		for _, port := range host.Ports {
			totalPorts++
			if port.State.State != "open" {
				continue
			}
			openPorts++
			scan.Items = append(scan.Items, nmapPortItem(ip, name, port))
		}

		if len(host.OSMatches) > 0 {
			osm := host.OSMatches[0]
			osName := osm.Name
			if osName == "" {
				osName = "Unknown OS"
			}
			scan.Items = append(scan.Items, Item{
				Key:         "os|" + ip,
				Title:       "Operating System Detection",
				Description: fmt.Sprintf("Detected OS: %s (Accuracy: %s%%)", osName, orDefault(osm.Accuracy, "0")),
				Target:      ip,
			})
		}

		for _, sc := range host.HostScripts {
			scan.Items = append(scan.Items, Item{
				Key:         "hostscript|" + ip + "|" + sc.ID,
				Title:       "Host Script " + sc.ID,
				Description: compactSpace(sc.Output),
				Target:      ip,
			})
		}
	}

	// runstats があればそれを優先（nmap が数えたホスト数）
	hs := run.RunStats.Hosts
	if hs.Total > 0 || hs.Up > 0 || hs.Down > 0 {
		up, down = hs.Up, hs.Down
		scan.Stats["total_hosts"] = hs.Total
	} else {
		scan.Stats["total_hosts"] = len(run.Hosts)
	}
	scan.Stats["up_hosts"] = up
	scan.Stats["down_hosts"] = down
	scan.Stats["total_ports"] = totalPorts
	scan.Stats["open_ports"] = openPorts
	if secs, err := strconv.ParseFloat(run.RunStats.Finished.Elapsed, 64); err == nil && secs >= 0 {
		scan.Stats["scan_duration_seconds"] = secs
	}
	return scan, nil
}

// nmapPortItem は open ポート 1 件を Item に変換する。
func nmapPortItem(ip, hostname string, port nmapPort) Item {
	proto := orDefault(port.Protocol, "unknown")
	parts := []string{fmt.Sprintf("Open %s port %d", proto, port.PortID)}
	if port.Service.Name != "" {
		parts = append(parts, "Service: "+port.Service.Name)
	}
	if port.Service.Product != "" {
		parts = append(parts, "Product: "+port.Service.Product)
	}
	if port.Service.Version != "" {
		parts = append(parts, "Version: "+port.Service.Version)
	}
	if port.Service.ExtraInfo != "" {
		parts = append(parts, "Info: "+port.Service.ExtraInfo)
	}
	for _, sc := range port.Scripts {
		parts = append(parts, fmt.Sprintf("Script %s: %s", sc.ID, compactSpace(sc.Output)))
	}

	target := fmt.Sprintf("%s:%d", ip, port.PortID)
	if hostname != "" {
		target = fmt.Sprintf("%s (%s):%d", hostname, ip, port.PortID)
	}

	return Item{
		Key:         fmt.Sprintf("port|%s|%s|%d", ip, proto, port.PortID),
		Title:       fmt.Sprintf("Open Port %d/%s", port.PortID, proto),
		Description: strings.Join(parts, " - "),
		Target:      target,
		Attrs:       map[string]string{"service": port.Service.Name, "protocol": proto},
	}
}

// hostAddress は IPv4 を優先してホストのアドレスを返す。
func hostAddress(addrs []nmapAddress) string {
	for _, a := range addrs {
		if a.AddrType == "ipv4" {
			return a.Addr
		}
	}
	for _, a := range addrs {
		if a.AddrType != "mac" && a.Addr != "" {
			return a.Addr
		}
	}
	return "unknown"
}

// --- nmap テキストパーサー ---

var (
	// "22/tcp   open   ssh   OpenSSH 8.2p1..."
	nmapPortLineRe   = regexp.MustCompile(`^(\d+)/(tcp|udp|sctp)\s+(\S+)\s+(\S+)\s*(.*)$`)
	nmapReportLineRe = regexp.MustCompile(`^Nmap scan report for (.+)$`)
	nmapDoneRe       = regexp.MustCompile(`scanned in ([\d.]+) seconds`)
	nmapVersionRe    = regexp.MustCompile(`Nmap version (\d+\.\d+)`)
)

// parseNmapText は nmap 通常出力から open ポートとホストを抽出する。
// XML パーサーのフォールバックとして使用。
func parseNmapText(raw, _ string) *Scan {
	scan := &Scan{Stats: schema.Statistics{}}
	lines := splitLines(raw)

	host := ""
	hosts, up, totalPorts, openPorts := 0, 0, 0, 0
	lastPort := -1 // 直前の open ポート Item（NSE 出力 "|" 行の付け先）

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if m := nmapReportLineRe.FindStringSubmatch(trimmed); m != nil {
			hosts++
			host = strings.TrimSpace(m[1])
			lastPort = -1
			scan.Items = append(scan.Items, Item{
				Key:         "host|" + host,
				Title:       "Host Discovery",
				Description: "Nmap discovered host",
				Target:      host,
			})
			continue
		}
		if strings.HasPrefix(trimmed, "Host is up") {
			up++
			continue
		}
		if m := nmapPortLineRe.FindStringSubmatch(trimmed); m != nil {
			totalPorts++
			lastPort = -1
			if m[3] != "open" {
				continue
			}
			openPorts++
			port, proto, service := m[1], m[2], m[4]
			desc := fmt.Sprintf("Open %s port %s - Service: %s", proto, port, service)
			if banner := strings.TrimSpace(m[5]); banner != "" {
				desc += " - Version: " + banner
			}
			target := "Port " + port
			if host != "" {
				target = host + ":" + port
			}
			scan.Items = append(scan.Items, Item{
				Key:         fmt.Sprintf("port|%s|%s|%s", host, proto, port),
				Title:       fmt.Sprintf("Open Port %s/%s", port, proto),
				Description: desc,
				Target:      target,
				Attrs:       map[string]string{"service": service, "protocol": proto},
			})
			lastPort = len(scan.Items) - 1
			continue
		}
		// NSE スクリプト出力（"| vulners:" など）は直前のポートに付ける
		if strings.HasPrefix(trimmed, "|") && lastPort >= 0 {
			scan.Items[lastPort].Description += " " + strings.TrimSpace(strings.TrimLeft(trimmed, "|_ "))
			continue
		}
		if m := nmapDoneRe.FindStringSubmatch(trimmed); m != nil {
			if secs, err := strconv.ParseFloat(m[1], 64); err == nil {
				scan.Stats["scan_duration_seconds"] = secs
			}
		}
	}

	// CVE 識別子は大文字に正規化して参照として併記する
	for i := range scan.Items {
		cves := entityValues(ExtractEntities([]string{scan.Items[i].Description}), EntityCVE)
		if len(cves) > 0 && !strings.Contains(scan.Items[i].Description, "References:") {
			scan.Items[i].Description += " - References: " + strings.Join(cves, ", ")
		}
	}

	down := hosts - up
	if down < 0 {
		down = 0
	}
	scan.Stats["total_hosts"] = hosts
	scan.Stats["up_hosts"] = up
	scan.Stats["down_hosts"] = down
	scan.Stats["total_ports"] = totalPorts
	scan.Stats["open_ports"] = openPorts
	return scan
}

// ParseNmapVersion は `nmap --version` の出力からバージョンを返す。
func ParseNmapVersion(raw string) string {
	if m := nmapVersionRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return "unknown"
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// compactSpace は改行・連続空白を 1 つの空白に畳む。
func compactSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
