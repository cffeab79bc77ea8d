package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/0x6d61/agentscan/pkg/schema"
)

// tsharkLexicon はプロトコル・フィールド語彙による分類ルール。
var tsharkLexicon = NewLexicon(
	Rule{schema.SeverityCritical, Substrings(
		"ftp pass", "authorization: basic", "password=", "passwd=", "pwd=",
	)},

	Rule{schema.SeverityHigh, Words("telnet", "tftp", "smb", "smb2", "rdp", "netbios", "ftp")},

	Rule{schema.SeverityMedium, Words(
		"http", "mysql", "mssql", "postgresql", "pop3", "imap", "smtp", "ldap",
	)},
	Rule{schema.SeverityMedium, Substrings("destination unreachable")},

	Rule{schema.SeverityLow, Words("dns", "tcp", "udp", "icmp", "arp", "https", "ssh")},
)

// servicePorts は宛先ポートからのサービス名推定表。
var servicePorts = map[int]string{
	21:   "FTP",
	22:   "SSH",
	23:   "Telnet",
	25:   "SMTP",
	53:   "DNS",
	69:   "TFTP",
	80:   "HTTP",
	110:  "POP3",
	139:  "NetBIOS",
	143:  "IMAP",
	389:  "LDAP",
	443:  "HTTPS",
	445:  "SMB",
	1433: "MSSQL",
	3306: "MySQL",
	3389: "RDP",
	5432: "PostgreSQL",
}

var icmpTypes = map[string]string{
	"0":  "Echo Reply",
	"3":  "Destination Unreachable",
	"5":  "Redirect",
	"8":  "Echo Request (Ping)",
	"11": "Time Exceeded",
}

// --- tshark JSON パーサー ---

// tsharkPacket は tshark -T json の 1 パケット
type tsharkPacket struct {
	Source struct {
		Layers map[string]json.RawMessage `json:"layers"`
	} `json:"_source"`
}

// tsharkLayers はレイヤー名 → フィールドの読み取りビュー。
type tsharkLayers map[string]json.RawMessage

// NewTshark は tshark 用のパーサーを返す。一次フォーマットは JSON。
func NewTshark(opts ...Option) *Engine {
	return NewEngine(Format{
		Tool:     "tshark",
		Lexicon:  tsharkLexicon,
		Decode:   decodeTsharkJSON,
		Fallback: parseTsharkText,
		Zero: func() schema.Statistics {
			return schema.Statistics{
				"packets_analyzed": 0,
				"protocols_seen":   map[string]int{},
			}
		},
		Aggregate: func(stats schema.Statistics, items []Item) {
			stats["protocols_seen"] = countAttr(items, "protocol")
		},
	}, opts...)
}

// decodeTsharkJSON は tshark JSON 出力（パケット配列）をパースする。
func decodeTsharkJSON(raw, _ string) (*Scan, error) {
	start := strings.Index(raw, "[")
	if start < 0 {
		return nil, errors.New("tshark JSON: no packet array found")
	}

	var packets []tsharkPacket
	if err := json.NewDecoder(strings.NewReader(raw[start:])).Decode(&packets); err != nil {
		return nil, fmt.Errorf("tshark JSON parse: %w", err)
	}

	scan := &Scan{Stats: schema.Statistics{"packets_analyzed": len(packets)}}
	for i, p := range packets {
		layers := tsharkLayers(p.Source.Layers)
		if layers == nil {
			continue
		}
		frame := layers.field("frame", "frame.number")
		if frame == "" {
			frame = strconv.Itoa(i + 1)
		}
		when := layers.field("frame", "frame.time_epoch")
		if when == "" {
			when = layers.field("frame", "frame.time_relative")
		}
		// 壊れたパケットは読み飛ばす
		if it, ok := tsharkPacketItem(layers); ok {
			it.Key = packetKey(frame, when, it)
			scan.Items = append(scan.Items, it)
		}
	}
	return scan, nil
}

// packetKey はパケットの内容から重複除去と ID 導出のキーを作る。
// フレーム番号と時刻は同一内容の繰り返しを区別するためだけに使う。
func packetKey(frame, when string, it Item) string {
	return strings.Join([]string{"pkt", frame, when, it.Title, it.Target, it.Description}, "|")
}

// tsharkPacketItem は上位プロトコルから順に 1 パケットを Item に変換する。
func tsharkPacketItem(l tsharkLayers) (Item, bool) {
	src, dst := l.field("ip", "ip.src"), l.field("ip", "ip.dst")
	if src == "" {
		src, dst = l.field("ipv6", "ipv6.src"), l.field("ipv6", "ipv6.dst")
	}
	flow := src + " → " + dst

	switch {
	case l.has("http"):
		method, uri := l.field("http", "http.request.method"), l.field("http", "http.request.uri")
		host := l.field("http", "http.host")
		if method != "" && uri != "" {
			desc := fmt.Sprintf("%s request to %s%s", method, host, uri)
			if auth := l.field("http", "http.authorization"); auth != "" {
				desc += " - Authorization: " + auth
			}
			return tsharkItem("HTTP", "HTTP "+method+" Request", desc, host+uri), true
		}
		if code := l.field("http", "http.response.code"); code != "" {
			return tsharkItem("HTTP", "HTTP "+code+" Response", "HTTP response code "+code, flow), true
		}
	case l.has("ftp"):
		cmd := l.field("ftp", "ftp.request.command")
		arg := l.field("ftp", "ftp.request.arg")
		if cmd != "" {
			return tsharkItem("FTP", "FTP "+cmd+" Command", strings.TrimSpace("FTP "+cmd+" "+arg), flow), true
		}
		if code := l.field("ftp", "ftp.response.code"); code != "" {
			return tsharkItem("FTP", "FTP "+code+" Response", "FTP response code "+code, flow), true
		}
		return tsharkItem("FTP", "FTP Traffic", "FTP control channel traffic", flow), true
	case l.has("telnet"):
		return tsharkItem("TELNET", "Telnet Session", "Cleartext telnet traffic from "+src+" to "+dst, flow), true
	case l.has("dns"):
		name, typ := l.field("dns", "dns.qry.name"), l.field("dns", "dns.qry.type")
		if name != "" {
			return tsharkItem("DNS", "DNS Query", fmt.Sprintf("DNS %s query for %s", orDefault(typ, "unknown"), name), name), true
		}
		return tsharkItem("DNS", "DNS Response", "DNS response packet", "DNS Server"), true
	case l.has("arp"):
		asrc, adst := l.field("arp", "arp.src.proto_ipv4"), l.field("arp", "arp.dst.proto_ipv4")
		if asrc == "" || adst == "" {
			return Item{}, false
		}
		kind := "Reply"
		if l.field("arp", "arp.opcode") == "1" {
			kind = "Request"
		}
		return tsharkItem("ARP", "ARP "+kind, fmt.Sprintf("ARP %s between %s and %s", strings.ToLower(kind), asrc, adst), asrc+" → "+adst), true
	case l.has("icmp"):
		if src == "" || dst == "" {
			return Item{}, false
		}
		t := l.field("icmp", "icmp.type")
		name, ok := icmpTypes[t]
		if !ok {
			name = "Type " + t
		}
		return tsharkItem("ICMP", "ICMP "+name, fmt.Sprintf("ICMP %s from %s to %s", name, src, dst), flow), true
	case l.has("tcp"), l.has("udp"):
		proto := "tcp"
		if !l.has("tcp") {
			proto = "udp"
		}
		sport, dport := l.field(proto, proto+".srcport"), l.field(proto, proto+".dstport")
		if src == "" || dst == "" || sport == "" || dport == "" {
			return Item{}, false
		}
		upper := strings.ToUpper(proto)
		verb := "connection"
		if proto == "udp" {
			verb = "communication"
		}
		return tsharkItem(upper,
			fmt.Sprintf("%s Traffic to %s", upper, serviceName(dport)),
			fmt.Sprintf("%s %s from %s:%s to %s:%s", upper, verb, src, sport, dst, dport),
			fmt.Sprintf("%s:%s → %s:%s", src, sport, dst, dport)), true
	}

	protocols := orDefault(l.field("frame", "frame.protocols"), "unknown")
	size := orDefault(l.field("frame", "frame.len"), "0")
	if src != "" && dst != "" {
		return tsharkItem("OTHER", "Network Traffic",
			fmt.Sprintf("Network traffic (%s) - Size: %s bytes", protocols, size), flow), true
	}
	return tsharkItem("OTHER", "Network Traffic",
		fmt.Sprintf("Network packet (%s) - Size: %s bytes", protocols, size), "Unknown hosts"), true
}

func tsharkItem(proto, title, desc, target string) Item {
	return Item{Title: title, Description: desc, Target: target, Attrs: map[string]string{"protocol": proto}}
}

func serviceName(port string) string {
	if n, err := strconv.Atoi(port); err == nil {
		if s, ok := servicePorts[n]; ok {
			return s
		}
	}
	return "Port " + port
}

func (l tsharkLayers) has(layer string) bool {
	_, ok := l[layer]
	return ok
}

// field はレイヤー内のフィールド値を返す。
// DNS の "Queries" のような入れ子オブジェクトも深さ優先で探す。
func (l tsharkLayers) field(layer, key string) string {
	raw, ok := l[layer]
	if !ok {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return findField(v, key)
}

func findField(v any, key string) string {
	switch t := v.(type) {
	case map[string]any:
		if val, ok := t[key]; ok {
			if s := scalarString(val); s != "" {
				return s
			}
		}
		for _, k := range slices.Sorted(maps.Keys(t)) {
			if s := findField(t[k], key); s != "" {
				return s
			}
		}
	case []any:
		// 同一レイヤーが複数ある場合（トンネル等）は最初のもの
		for _, child := range t {
			if s := findField(child, key); s != "" {
				return s
			}
		}
	}
	return ""
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		if len(t) > 0 {
			return scalarString(t[0])
		}
	}
	return ""
}

// --- tshark テキストパーサー ---

// "    1 0.000000 192.168.1.10 → 192.168.1.1 DNS 74 Standard query 0x1234 A example.com"
var tsharkSummaryLineRe = regexp.MustCompile(`^(\d+)\s+(\d+(?:\.\d+)?)\s+(\S+)\s+(?:→|->)\s+(\S+)\s+(\S+)\s+(\d+)\s*(.*)$`)

// parseTsharkText は tshark の 1 行サマリー出力からパケットを抽出する。
// JSON パーサーのフォールバックとして使用。
func parseTsharkText(raw, _ string) *Scan {
	scan := &Scan{Stats: schema.Statistics{}}
	packets := 0
	for _, line := range splitLines(raw) {
		m := tsharkSummaryLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		packets++
		frame, src, dst, proto, size, info := m[1], m[3], m[4], strings.ToUpper(m[5]), m[6], strings.TrimSpace(m[7])
		desc := fmt.Sprintf("%s packet from %s to %s - Size: %s bytes", proto, src, dst, size)
		if info != "" {
			desc += " - " + info
		}
		it := Item{
			Title:       proto + " Traffic",
			Description: desc,
			Target:      src + " → " + dst,
			Attrs:       map[string]string{"protocol": proto},
		}
		it.Key = packetKey(frame, m[2], it)
		scan.Items = append(scan.Items, it)
	}
	scan.Stats["packets_analyzed"] = packets
	return scan
}
