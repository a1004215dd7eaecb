package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// NormalizeActionResult shapes a handler return value into the protocol's
// action result envelope. When the action derived an output schema the value
// is wrapped under its single "result" field and also reported as structured
// content; otherwise strings pass through unchanged and anything else is
// JSON-encoded as text.
func NormalizeActionResult(a *Action, value any) (map[string]any, error) {
	var text string
	result := make(map[string]any)

	if a.outputSchema != nil {
		wrapped := map[string]any{"result": value}
		data, err := json.Marshal(wrapped)
		if err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
		text = string(data)
		result["structuredContent"] = wrapped
	} else if s, ok := value.(string); ok {
		text = s
	} else {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
		text = string(data)
	}

	result["content"] = []map[string]any{
		{"type": "text", "text": text},
	}
	return result, nil
}

// ErrorResult builds the error-flagged result envelope used to report
// handler-level failures inside a successful protocol response.
func ErrorResult(msg string) map[string]any {
	return map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": msg},
		},
		"isError": true,
	}
}

// NormalizeResourceContent shapes a resource handler return value into a
// single contents entry.
//
//   - *ResourceContent and maps that already carry a text or data field pass
//     through, merged with URI/MIME defaults
//   - string becomes text/plain text content
//   - []byte becomes base64 data with an application/octet-stream MIME type
//   - other maps must include one of "text", "data", or "bytes" (raw binary,
//     converted to base64 data)
//
// Anything else is a programming error in the handler and is reported as such.
func NormalizeResourceContent(value any, uri, defaultMime, defaultDescription string) (map[string]any, error) {
	base := map[string]any{"uri": uri}

	setDescription := func(m map[string]any) {
		if _, ok := m["description"]; !ok && defaultDescription != "" {
			m["description"] = defaultDescription
		}
	}

	switch v := value.(type) {
	case *ResourceContent:
		m := base
		if v.URI != "" {
			m["uri"] = v.URI
		}
		m["mimeType"] = v.MimeType
		if v.MimeType == "" {
			m["mimeType"] = defaultMime
		}
		if v.Text != "" {
			m["text"] = v.Text
		}
		if v.Data != "" {
			m["data"] = v.Data
		}
		if v.Description != "" {
			m["description"] = v.Description
		}
		setDescription(m)
		return m, nil

	case string:
		base["mimeType"] = "text/plain"
		base["text"] = v
		setDescription(base)
		return base, nil

	case []byte:
		base["mimeType"] = "application/octet-stream"
		base["data"] = base64.StdEncoding.EncodeToString(v)
		setDescription(base)
		return base, nil

	case map[string]any:
		m := base
		var rawBytes []byte
		for key, val := range v {
			if key == "bytes" {
				rawBytes, _ = val.([]byte)
				continue
			}
			m[key] = val
		}
		if _, ok := m["mimeType"]; !ok {
			m["mimeType"] = defaultMime
		}
		_, hasText := m["text"]
		_, hasData := m["data"]
		if !hasText && !hasData {
			if rawBytes == nil {
				return nil, fmt.Errorf("resource value must include 'text', 'data', or 'bytes'")
			}
			m["data"] = base64.StdEncoding.EncodeToString(rawBytes)
		}
		setDescription(m)
		return m, nil

	default:
		return nil, fmt.Errorf("unsupported resource return type %T: use string, []byte, map, or *ResourceContent", value)
	}
}

// NormalizePrompt shapes a prompt handler return value into the prompt
// payload. A plain string is treated as a template body; maps are merged
// with name/description defaults and get a format inferred from their
// content; *PromptResult passes through.
func NormalizePrompt(value any, name, defaultDescription string) (map[string]any, error) {
	base := map[string]any{"name": name}
	if defaultDescription != "" {
		base["description"] = defaultDescription
	}

	switch v := value.(type) {
	case *PromptResult:
		m := base
		if v.Name != "" {
			m["name"] = v.Name
		}
		if v.Description != "" {
			m["description"] = v.Description
		}
		switch {
		case v.Template != "":
			m["format"] = formatOrDefault(v.Format, "go-template")
			m["template"] = v.Template
		default:
			m["format"] = formatOrDefault(v.Format, "messages")
			m["messages"] = v.Messages
		}
		return m, nil

	case string:
		base["format"] = "go-template"
		base["template"] = v
		return base, nil

	case map[string]any:
		m := base
		for key, val := range v {
			m[key] = val
		}
		if _, ok := m["format"]; !ok {
			if _, hasTemplate := m["template"]; hasTemplate {
				m["format"] = "go-template"
			} else {
				m["format"] = "messages"
			}
		}
		return m, nil

	default:
		return nil, fmt.Errorf("unsupported prompt return type %T: use string, map, or *PromptResult", value)
	}
}

func formatOrDefault(format, fallback string) string {
	if format != "" {
		return format
	}
	return fallback
}
