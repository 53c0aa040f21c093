package extraction

import (
	"encoding/json"
	"strings"

	"github.com/Salamony4all/Estem8-V1/internal/engine"
)

const (
	TypeTable   = "table"
	TypeText    = "text"
	TypeUnknown = "unknown"
)

// Payload is the type-specific part of a layout element.
type Payload interface {
	payload()
}

// TablePayload carries a recognized table.
type TablePayload struct {
	HTML      string            `json:"html"`
	Cells     []json.RawMessage `json:"cells"`
	Structure string            `json:"structure"`
}

// TextPayload carries recognized text.
type TextPayload struct {
	Text string `json:"text"`
}

// EmptyPayload is used for every other region kind.
type EmptyPayload struct{}

func (TablePayload) payload() {}
func (TextPayload) payload()  {}
func (EmptyPayload) payload() {}

// LayoutElement is one normalized region of the document.
type LayoutElement struct {
	Type string    `json:"type"`
	BBox []float64 `json:"bbox"`
	Res  Payload   `json:"res"`
}

// Response is the body returned for a successful extraction.
type Response struct {
	Result        []LayoutElement `json:"result"`
	Status        string          `json:"status"`
	TotalElements int             `json:"total_elements"`
	TotalTables   int             `json:"total_tables"`
}

// Normalize reshapes raw engine output into the stable response schema.
// Order is preserved; nothing is filtered, merged or sorted.
func Normalize(raw []engine.RawElement) Response {
	result := make([]LayoutElement, 0, len(raw))
	tables := 0

	for _, r := range raw {
		el := LayoutElement{
			Type: r.Type,
			BBox: normalizeBBox(r.BBox),
		}
		if el.Type == "" {
			el.Type = TypeUnknown
		}

		switch el.Type {
		case TypeTable:
			el.Res = tablePayload(r.Res)
			tables++
		case TypeText:
			el.Res = TextPayload{Text: textOf(r.Res)}
		default:
			el.Res = EmptyPayload{}
		}

		result = append(result, el)
	}

	return Response{
		Result:        result,
		Status:        "success",
		TotalElements: len(result),
		TotalTables:   tables,
	}
}

// normalizeBBox flattens any nesting of numbers into a single list.
// Anything that is not numeric yields an empty box.
func normalizeBBox(raw json.RawMessage) []float64 {
	out := []float64{}
	if len(raw) == 0 {
		return out
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return out
	}

	var walk func(interface{}) bool
	walk = func(n interface{}) bool {
		switch t := n.(type) {
		case float64:
			out = append(out, t)
			return true
		case []interface{}:
			for _, item := range t {
				if !walk(item) {
					return false
				}
			}
			return true
		default:
			return false
		}
	}

	if _, isList := v.([]interface{}); !isList || !walk(v) {
		return []float64{}
	}
	return out
}

func tablePayload(raw json.RawMessage) TablePayload {
	p := TablePayload{Cells: []json.RawMessage{}}

	var fields map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &fields) != nil {
		return p
	}

	if v, ok := fields["html"]; ok {
		_ = json.Unmarshal(v, &p.HTML)
	}
	if v, ok := fields["cells"]; ok {
		var cells []json.RawMessage
		if json.Unmarshal(v, &cells) == nil && cells != nil {
			p.Cells = cells
		}
	}
	if v, ok := fields["structure"]; ok {
		p.Structure = joinStrings(v, "")
	}

	return p
}

// textOf accepts a plain string, a list of strings or {"text": ...}
// records, or a single {"text": ...} object.
func textOf(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}

	var obj struct {
		Text *string `json:"text"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Text != nil {
		return *obj.Text
	}

	return joinStrings(raw, "\n")
}

// joinStrings joins a JSON string or a list of strings / {"text"} records.
func joinStrings(raw json.RawMessage, sep string) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}

	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return ""
	}

	parts := make([]string, 0, len(items))
	for _, item := range items {
		var str string
		if json.Unmarshal(item, &str) == nil {
			parts = append(parts, str)
			continue
		}
		var rec struct {
			Text string `json:"text"`
		}
		if json.Unmarshal(item, &rec) == nil && rec.Text != "" {
			parts = append(parts, rec.Text)
		}
	}
	return strings.Join(parts, sep)
}
