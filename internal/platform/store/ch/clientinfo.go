package ch

import (
	"os"
	"strings"

	"murmur/internal/core/version"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// BuildClientInfo tags every ClickHouse query with the binary build, its role and host
// so system.query_log can be filtered per deployment
func BuildClientInfo(role, tag string) clickhouse.ClientInfo {
	host, _ := os.Hostname()
	bi := version.Info()

	return clickhouse.ClientInfo{Products: []struct{ Name, Version string }{
		{Name: bi.Service, Version: safe(bi.Version)},
		{Name: "commit", Version: safe(short(bi.Commit))},
		{Name: "role", Version: safe(role)},
		{Name: "tag", Version: safe(tag)},
		{Name: "go", Version: safe(bi.Go)},
		{Name: "host", Version: safe(host)},
	}}
}

func short(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func safe(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "-"
	}
	return s
}
