package observability

import (
    "encoding/json"
    "strings"
)

// sensitiveKeys covers both generic HTTP-auth field names and the
// provider-specific ones this runtime's wire bodies actually carry:
// encrypted_content is the opaque reasoning blob the OpenAI Responses API
// returns when store=false, and logging it verbatim on a retry would
// persist encrypted chain-of-thought state that was only meant to
// round-trip back to the provider on the next turn.
var sensitiveKeys = []string{
    "api_key", "apikey", "apiKey", "x-api-key", "authorization", "auth", "token", "access_token", "refresh_token",
    "password", "secret", "bearer", "encrypted_content",
}

// RedactJSON takes a JSON payload — typically a provider's raw HTTP
// response body captured for a retry or error log line — and redacts
// sensitive values based on common key names before it reaches a log sink.
func RedactJSON(raw json.RawMessage) json.RawMessage {
    if len(raw) == 0 {
        return raw
    }
    var v any
    if err := json.Unmarshal(raw, &v); err != nil {
        return raw
    }
    redacted := redactValue(v)
    b, err := json.Marshal(redacted)
    if err != nil {
        return raw
    }
    return b
}

func redactValue(v any) any {
    switch val := v.(type) {
    case map[string]any:
        for k, vv := range val {
            if isSensitiveKey(k) {
                val[k] = "[REDACTED]"
            } else {
                val[k] = redactValue(vv)
            }
        }
        return val
    case []any:
        for i := range val {
            val[i] = redactValue(val[i])
        }
        return val
    default:
        return v
    }
}

func isSensitiveKey(k string) bool {
    low := strings.ToLower(k)
    for _, s := range sensitiveKeys {
        if low == s {
            return true
        }
        // contains common header forms
        if strings.Contains(low, s) {
            return true
        }
    }
    return false
}

