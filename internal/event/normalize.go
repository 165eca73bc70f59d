package event

import "strings"

// actorTypes maps the compact actor type codes used by the remote API to
// their human-readable names. Unknown codes pass through unchanged.
var actorTypes = map[string]string{
	"T":  "team",
	"U":  "user",
	"I":  "instance",
	"D":  "device",
	"DT": "device type",
}

// Normalize flattens a raw event into a sink-ready record: id, timestamp,
// and every details key merged in, with the reserved "actor" key replaced
// by its decoded mapping. Pure and deterministic; the input is not mutated.
func Normalize(raw *Raw) Record {
	rec := make(Record, len(raw.Details)+2)
	rec["id"] = raw.ID
	rec["timestamp"] = raw.Timestamp
	for k, v := range raw.Details {
		if k == "actor" {
			if s, ok := v.(string); ok {
				rec["actor"] = DecodeActor(s)
				continue
			}
		}
		rec[k] = v
	}
	return rec
}

// DecodeActor parses the compact space-delimited actor encoding, e.g.
// "U=alice T=eng", into a map keyed by actor type name. Codes match
// case-insensitively; a duplicate code within one string wins last.
func DecodeActor(s string) map[string]string {
	out := make(map[string]string)
	for _, tok := range strings.Fields(s) {
		code, value, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		name, known := actorTypes[strings.ToUpper(code)]
		if !known {
			name = code
		}
		out[name] = value
	}
	return out
}
