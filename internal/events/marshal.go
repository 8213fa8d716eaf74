package events

import "encoding/json"

// marshalTagged flattens payload's JSON fields into a single object and
// adds an "event" key set to typ, mirroring the tagged-union wire shape of
// the original WsEvent enum in a plain Go struct.
func marshalTagged(typ string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage)
	}

	tag, err := json.Marshal(typ)
	if err != nil {
		return nil, err
	}
	fields["event"] = tag

	return json.Marshal(fields)
}
