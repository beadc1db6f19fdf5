package alerts

import (
	"bytes"
	"encoding/json"
	"mime"
	"net/url"
	"strconv"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"
)

const (
	MediaTypeMergePatch = "application/merge-patch+json"
	MediaTypeJSONPatch  = "application/json-patch+json"
	MediaTypeForm       = "application/x-www-form-urlencoded"
)

// Patch is a decoded partial update. The zero value leaves an alert as is.
type Patch struct {
	apply func(doc []byte) ([]byte, error)
}

// DecodePatch parses body according to contentType. JSON Patch (RFC 6902)
// is used for application/json-patch+json, form fields for
// application/x-www-form-urlencoded; any other JSON type, or none, is taken
// as a merge patch (RFC 7386) such as {"name":"Renamed"}. An empty body
// changes nothing.
func DecodePatch(contentType string, body []byte) (Patch, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return Patch{}, nil
	}
	mediaType := ""
	if strings.TrimSpace(contentType) != "" {
		parsed, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return Patch{}, invalidField("body", "unsupported content type")
		}
		mediaType = parsed
	}

	switch mediaType {
	case MediaTypeJSONPatch:
		ops, err := jsonpatch.DecodePatch(body)
		if err != nil {
			return Patch{}, invalidField("body", "invalid json patch: "+err.Error())
		}
		return Patch{apply: ops.Apply}, nil
	case MediaTypeForm:
		doc, err := formMergeDoc(string(bytes.TrimSpace(body)))
		if err != nil {
			return Patch{}, err
		}
		return mergePatch(doc), nil
	case "", "application/json", MediaTypeMergePatch:
		trimmed := bytes.TrimSpace(body)
		if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
			return Patch{}, invalidField("body", "merge patch must be a json object")
		}
		return mergePatch(trimmed), nil
	default:
		return Patch{}, invalidField("body", "unsupported content type "+mediaType)
	}
}

func mergePatch(doc []byte) Patch {
	return Patch{apply: func(target []byte) ([]byte, error) {
		return jsonpatch.MergePatch(target, doc)
	}}
}

// formMergeDoc turns name=..&frequency=..&active=.. into a merge document.
// Each field may appear once.
func formMergeDoc(raw string) ([]byte, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, invalidField("body", "invalid form body")
	}
	doc := make(map[string]any, len(values))
	for key, vs := range values {
		if len(vs) != 1 {
			return nil, invalidField(key, "must be given once")
		}
		v := vs[0]
		switch key {
		case "name":
			doc[key] = v
		case "frequency":
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, invalidField(key, "must be a number")
			}
			doc[key] = f
		case "active":
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, invalidField(key, "must be a boolean")
			}
			doc[key] = b
		default:
			return nil, invalidField(key, "unknown field")
		}
	}
	return json.Marshal(doc)
}

// Apply returns a with the patch applied. The id may be repeated but not
// changed; unknown fields and invalid values are rejected.
func (p Patch) Apply(a Alert) (Alert, error) {
	if p.apply == nil {
		return a, nil
	}
	doc, err := json.Marshal(a)
	if err != nil {
		return Alert{}, err
	}
	patched, err := p.apply(doc)
	if err != nil {
		return Alert{}, invalidField("body", "patch could not be applied: "+err.Error())
	}

	var probe struct {
		ID *int64 `json:"id"`
	}
	if err := json.Unmarshal(patched, &probe); err != nil {
		return Alert{}, invalidField("id", "must be an integer")
	}
	if probe.ID != nil && *probe.ID != a.ID {
		return Alert{}, invalidField("id", "is immutable")
	}

	var out Alert
	dec := json.NewDecoder(bytes.NewReader(patched))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return Alert{}, invalidField("body", "invalid alert fields: "+err.Error())
	}
	out.ID = a.ID
	if err := check(out); err != nil {
		return Alert{}, err
	}
	return out, nil
}
