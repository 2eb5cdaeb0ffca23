package http2

// staticTable is the HPACK static table, fixed by RFC 7541 Appendix A.
// Entries are 1-indexed on the wire; staticTable[0] is a sentinel so
// staticTable[i] matches the RFC's index i directly.
//
// https://tools.ietf.org/html/rfc7541#appendix-A
var staticTable = [62]HeaderField{
	{},
	{key: []byte(":authority")},
	{key: []byte(":method"), value: []byte("GET")},
	{key: []byte(":method"), value: []byte("POST")},
	{key: []byte(":path"), value: []byte("/")},
	{key: []byte(":path"), value: []byte("/index.html")},
	{key: []byte(":scheme"), value: []byte("http")},
	{key: []byte(":scheme"), value: []byte("https")},
	{key: []byte(":status"), value: []byte("200")},
	{key: []byte(":status"), value: []byte("204")},
	{key: []byte(":status"), value: []byte("206")},
	{key: []byte(":status"), value: []byte("304")},
	{key: []byte(":status"), value: []byte("400")},
	{key: []byte(":status"), value: []byte("404")},
	{key: []byte(":status"), value: []byte("500")},
	{key: []byte("accept-charset")},
	{key: []byte("accept-encoding"), value: []byte("gzip, deflate")},
	{key: []byte("accept-language")},
	{key: []byte("accept-ranges")},
	{key: []byte("accept")},
	{key: []byte("access-control-allow-origin")},
	{key: []byte("age")},
	{key: []byte("allow")},
	{key: []byte("authorization")},
	{key: []byte("cache-control")},
	{key: []byte("content-disposition")},
	{key: []byte("content-encoding")},
	{key: []byte("content-language")},
	{key: []byte("content-length")},
	{key: []byte("content-location")},
	{key: []byte("content-range")},
	{key: []byte("content-type")},
	{key: []byte("cookie")},
	{key: []byte("date")},
	{key: []byte("etag")},
	{key: []byte("expect")},
	{key: []byte("expires")},
	{key: []byte("from")},
	{key: []byte("host")},
	{key: []byte("if-match")},
	{key: []byte("if-modified-since")},
	{key: []byte("if-none-match")},
	{key: []byte("if-range")},
	{key: []byte("if-unmodified-since")},
	{key: []byte("last-modified")},
	{key: []byte("link")},
	{key: []byte("location")},
	{key: []byte("max-forwards")},
	{key: []byte("proxy-authenticate")},
	{key: []byte("proxy-authorization")},
	{key: []byte("range")},
	{key: []byte("referer")},
	{key: []byte("refresh")},
	{key: []byte("retry-after")},
	{key: []byte("server")},
	{key: []byte("set-cookie")},
	{key: []byte("strict-transport-security")},
	{key: []byte("transfer-encoding")},
	{key: []byte("user-agent")},
	{key: []byte("vary")},
	{key: []byte("via")},
	{key: []byte("www-authenticate")},
}

// staticTableLen is the number of real (non-sentinel) entries.
const staticTableLen = len(staticTable) - 1

// sensitiveHeaders never get inserted into the dynamic table as a
// plain literal-with-indexing representation, per RFC 7541 §7.1.3's
// guidance for credentials.
var sensitiveHeaders = map[string]bool{
	"authorization": true,
}

// isSensibleValue reports whether value, for the given header key,
// should be encoded as "literal never indexed" rather than a plain
// literal. A short cookie value is treated as sensitive because full
// session cookies are typically longer.
func isSensibleValue(key, value string) bool {
	if sensitiveHeaders[key] {
		return true
	}
	if key == "cookie" && len(value) < 20 {
		return true
	}
	return false
}

// neverIndexValueHeaders carry values that rarely recur verbatim
// across requests on the same connection (timestamps, byte counts,
// single-use tokens), so the encoder never spends dynamic-table
// budget on them: they're sent as literal without indexing instead of
// literal with incremental indexing, per RFC 7541 §7.1.3's per-header
// guidance.
var neverIndexValueHeaders = map[string]bool{
	":path":             true,
	"age":               true,
	"content-length":    true,
	"etag":              true,
	"if-modified-since": true,
	"if-none-match":     true,
	"location":          true,
	"set-cookie":        true,
}

// shouldIndex reports whether key/value should be considered for
// dynamic-table insertion at all (false implies literal without
// indexing, assuming it isn't already sensitive).
func shouldIndex(key string) bool {
	return !neverIndexValueHeaders[key]
}

// staticFind returns the 1-based static table index of an exact
// key+value match, or 0 if not found.
func staticFind(key, value string) int {
	for i := 1; i <= staticTableLen; i++ {
		hf := &staticTable[i]
		if string(hf.key) == key && string(hf.value) == value {
			return i
		}
	}
	return 0
}

// staticFindKey returns the 1-based static table index of the first
// entry whose key matches, or 0 if not found. Used when no full
// key+value match exists, to at least save re-sending the key bytes.
func staticFindKey(key string) int {
	for i := 1; i <= staticTableLen; i++ {
		if string(staticTable[i].key) == key {
			return i
		}
	}
	return 0
}
