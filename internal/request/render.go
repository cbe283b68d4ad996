package request

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatOptions renders fetch options for debug output. The JSON-string body
// and the body's embedded GraphQL query are unpacked so the interesting parts
// read as structure instead of one escaped line; the potentially large body
// and query are omitted from the top-level summary and printed separately.
// Pure formatting, no side effects.
func FormatOptions(opts Options) string {
	var b strings.Builder

	summary := make(map[string]any, len(opts))
	for k, v := range opts {
		if k == "body" {
			continue
		}
		summary[k] = v
	}
	fmt.Fprintf(&b, "options_minus_body=%s\n", indentJSON(summary))

	body, ok := opts["body"].(string)
	if !ok {
		return b.String()
	}
	var bodyObj map[string]any
	if err := json.Unmarshal([]byte(body), &bodyObj); err != nil {
		fmt.Fprintf(&b, "body=%s\n", body)
		return b.String()
	}

	query, _ := bodyObj["query"].(string)
	delete(bodyObj, "query")
	fmt.Fprintf(&b, "body_minus_query=%s\n", indentJSON(bodyObj))
	fmt.Fprintf(&b, "query=%s", query)
	return b.String()
}

func indentJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
