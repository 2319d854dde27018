package columns

import (
	"github.com/tidwall/gjson"
)

// DefaultFields is the column order of the CSV output.
var DefaultFields = []string{
	"id", "body", "retweetCount", "generator", "gnip", "object", "actor",
	"twitter_entities", "verb", "link", "provider", "postedTime", "objectType",
}

// Extractor pulls a fixed list of top-level fields out of a JSON record.
type Extractor struct {
	fields []string
}

// NewExtractor creates an extractor for fields, or DefaultFields if none.
func NewExtractor(fields ...string) *Extractor {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	return &Extractor{fields: append([]string(nil), fields...)}
}

// Fields returns the column names.
func (e *Extractor) Fields() []string {
	return e.fields
}

// Extract returns one value per field. ok is false when rec is not a JSON
// object with an id, such as a system message on the stream.
//
// A field missing at the top level is looked up under "gnip", where
// "language" is stored as {"value": ...}. Strings are returned unquoted,
// nested values as compact JSON, and missing or null fields as "".
func (e *Extractor) Extract(rec []byte) (values []string, ok bool) {
	if !gjson.ValidBytes(rec) {
		return nil, false
	}
	doc := gjson.ParseBytes(rec)
	if !doc.IsObject() || !doc.Get("id").Exists() {
		return nil, false
	}

	values = make([]string, len(e.fields))
	gnip := doc.Get("gnip")
	for i, f := range e.fields {
		res := doc.Get(gjson.Escape(f))
		if !res.Exists() && gnip.IsObject() {
			if f == "language" {
				res = gnip.Get("language.value")
			} else {
				res = gnip.Get(gjson.Escape(f))
			}
		}
		values[i] = render(res)
	}
	return values, true
}

func render(res gjson.Result) string {
	switch res.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return res.String()
	default:
		return res.Raw
	}
}
