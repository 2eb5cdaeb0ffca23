package http2

// ClientPreface is the fixed 24-octet sequence every HTTP/2 connection
// begins with, sent by the client before the first SETTINGS frame.
//
// https://tools.ietf.org/html/rfc7540#section-3.5
const ClientPreface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

const prefaceLen = len(ClientPreface)

// matchPreface reports whether buf, a prefix of the bytes read so far,
// is consistent with ClientPreface. complete is true once enough bytes
// have arrived to make the determination final.
func matchPreface(buf []byte) (ok, complete bool) {
	n := len(buf)
	if n > prefaceLen {
		n = prefaceLen
	}
	if string(buf[:n]) != ClientPreface[:n] {
		return false, true
	}
	return true, len(buf) >= prefaceLen
}
