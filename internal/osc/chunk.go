package osc

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/livebridge/livebridge/internal/dawerr"
)

// ChunkEnvelope is the bridge's unit of large-response transport. A JSON
// payload too big for one datagram arrives as Total envelopes, each
// carrying a URL-safe base64 piece of the original bytes.
type ChunkEnvelope struct {
	Index int    `json:"_c"`
	Total int    `json:"_t"`
	Data  string `json:"_d"`
}

// isChunk reports whether a decoded response is a chunk envelope.
func isChunk(m map[string]any) bool {
	_, hasIndex := m["_c"]
	_, hasTotal := m["_t"]
	return hasIndex && hasTotal
}

// envelopeFrom converts an already-decoded response map into an envelope.
func envelopeFrom(m map[string]any) (ChunkEnvelope, error) {
	idx, okI := asInt(m["_c"])
	total, okT := asInt(m["_t"])
	data, okD := m["_d"].(string)
	if !okI || !okT || !okD || total <= 0 || idx < 0 || idx >= total {
		return ChunkEnvelope{}, dawerr.New(dawerr.KindProtocol,
			"malformed chunk envelope (index=%v total=%v)", m["_c"], m["_t"])
	}
	return ChunkEnvelope{Index: idx, Total: total, Data: data}, nil
}

// SplitChunks cuts payload into envelopes of at most pieceSize raw bytes
// each. Splitting then reassembling is the identity on payload.
func SplitChunks(payload []byte, pieceSize int) []ChunkEnvelope {
	if pieceSize <= 0 {
		pieceSize = 1024
	}
	total := (len(payload) + pieceSize - 1) / pieceSize
	if total == 0 {
		total = 1
	}
	envs := make([]ChunkEnvelope, 0, total)
	for i := 0; i < total; i++ {
		start := i * pieceSize
		end := min(start+pieceSize, len(payload))
		envs = append(envs, ChunkEnvelope{
			Index: i,
			Total: total,
			Data:  encodeURLSafe(payload[start:end]),
		})
	}
	return envs
}

// reassembler collects the chunks of one response. It is owned by the
// in-flight call and discarded with it.
type reassembler struct {
	total  int
	pieces map[int]string
}

func newReassembler(first ChunkEnvelope) *reassembler {
	r := &reassembler{total: first.Total, pieces: map[int]string{}}
	r.pieces[first.Index] = first.Data
	return r
}

// add records one chunk and reports whether it was a duplicate.
func (r *reassembler) add(env ChunkEnvelope) (duplicate bool) {
	if _, ok := r.pieces[env.Index]; ok {
		return true
	}
	r.pieces[env.Index] = env.Data
	return false
}

func (r *reassembler) complete() bool { return len(r.pieces) >= r.total }

// missing enumerates indices not yet received, in order.
func (r *reassembler) missing() []int {
	var out []int
	for i := 0; i < r.total; i++ {
		if _, ok := r.pieces[i]; !ok {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

// assemble decodes each piece independently and concatenates in index
// order.
func (r *reassembler) assemble() ([]byte, error) {
	if !r.complete() {
		return nil, dawerr.New(dawerr.KindProtocol,
			"chunk reassembly incomplete: received %d of %d, missing %v",
			len(r.pieces), r.total, r.missing()).
			WithDetails(map[string]any{
				"received": len(r.pieces),
				"expected": r.total,
				"missing":  r.missing(),
			})
	}
	var out []byte
	for i := 0; i < r.total; i++ {
		piece, err := decodeLoose(r.pieces[i])
		if err != nil {
			return nil, dawerr.Wrap(dawerr.KindProtocol, err, "decoding chunk %d", i)
		}
		out = append(out, piece...)
	}
	return out, nil
}

// encodeURLSafe is URL-safe base64 without padding. The bridge device's
// OSC symbol handling mangles +, /, and =, so this is the only alphabet
// on the wire.
func encodeURLSafe(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// decodeLoose accepts URL-safe base64 with or without padding, falling
// back to the standard alphabet for older bridge builds.
func decodeLoose(s string) ([]byte, error) {
	padded := s
	if n := len(s) % 4; n != 0 {
		padded = s + "===="[:4-n]
	}
	if out, err := base64.URLEncoding.DecodeString(padded); err == nil {
		return out, nil
	}
	if out, err := base64.StdEncoding.DecodeString(padded); err == nil {
		return out, nil
	}
	return nil, fmt.Errorf("not base64: %q", truncate(s, 32))
}

// decodeResponsePayload turns the string carried by one datagram into a
// decoded JSON object: base64(JSON) in the common path, raw JSON as a
// fallback.
func decodeResponsePayload(s string) (map[string]any, error) {
	if raw, err := decodeLoose(s); err == nil {
		var m map[string]any
		if json.Unmarshal(raw, &m) == nil {
			return m, nil
		}
	}
	var m map[string]any
	if json.Unmarshal([]byte(s), &m) == nil {
		return m, nil
	}
	return nil, dawerr.New(dawerr.KindProtocol, "undecodable bridge payload %q", truncate(s, 48))
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	default:
		return 0, false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
