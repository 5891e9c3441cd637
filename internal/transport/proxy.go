package transport

import (
	"hash/fnv"
	"strings"
)

// SelectProxy returns one URL from pool by hashing key, so the same key always
// maps to the same proxy. Blank entries are ignored; an empty pool yields "".
func SelectProxy(pool []string, key string) string {
	var valid []string
	for _, p := range pool {
		if p = strings.TrimSpace(p); p != "" {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		return ""
	}
	if key == "" {
		key = "0"
	}
	return valid[hashIndex(key, len(valid))]
}

func hashIndex(key string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}

// ResolveProxies decides the proxies for the session pool. Proxies named in
// the crawl input win, then PROXY_URL; otherwise one proxy of the shared pool
// is picked by hostname so replicas spread across egress addresses.
func ResolveProxies(inputProxies []string, proxyURL string, pool []string, hostname string) []string {
	if len(inputProxies) > 0 {
		return inputProxies
	}
	if proxyURL = strings.TrimSpace(proxyURL); proxyURL != "" {
		return []string{proxyURL}
	}
	if p := SelectProxy(pool, hostname); p != "" {
		return []string{p}
	}
	return nil
}
