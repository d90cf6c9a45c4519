package openai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSONObject unmarshals raw into v. When raw is not valid JSON, the
// substring from the first '{' to the last '}' is tried instead, which recovers
// replies where the model wrapped the object in prose or code fences.
func DecodeJSONObject(raw string, v any) error {
	err := json.Unmarshal([]byte(raw), v)
	if err == nil {
		return nil
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in reply: %w", err)
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), v); err != nil {
		return fmt.Errorf("failed to decode JSON object: %w", err)
	}
	return nil
}
