// Package behavior holds the declarative rule sets that prescribe how a managed
// connector talks to an external API. Behaviors are loaded once at connector
// construction and never mutated afterwards.
package behavior

import (
	"fmt"
	"strings"
)

// KV is one templated header or parameter entry. Value is a template rendered
// against the current rendering context.
type KV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Pagination controls the list-fetch loop. BreakEarly and AddIf are expressions
// evaluated against the rendering context before each request.
type Pagination struct {
	BreakEarly string `json:"break_early"`
	AddIf      string `json:"add_if"`
	Headers    []KV   `json:"headers"`
	Params     []KV   `json:"params"`
}

// Rule is the request-shaping part shared by every behavior: where to call and
// what templated headers/params to send.
type Rule struct {
	URL        string `json:"url"`
	HTTPMethod string `json:"http_method"`
	Headers    []KV   `json:"headers"`
	Params     []KV   `json:"params"`
}

// Empty reports whether the rule describes no API interaction at all.
func (r Rule) Empty() bool {
	return strings.TrimSpace(r.URL) == "" && strings.TrimSpace(r.HTTPMethod) == ""
}

// Behavior describes a list or detail interaction. Result is an expression
// selecting the record sequence (list) or left empty (detail).
type Behavior struct {
	Rule
	Pagination *Pagination `json:"pagination,omitempty"`
	Result     string      `json:"result,omitempty"`
}

// SessionResult declares how to derive authorization headers/params from the
// session-authorization response.
type SessionResult struct {
	Headers []KV `json:"headers"`
	Params  []KV `json:"params"`
}

// SessionBehavior describes the dynamic session-authorization interaction.
type SessionBehavior struct {
	Rule
	Result SessionResult `json:"result"`
}

// SoftwareBehavior describes the optional software-inventory enrichment.
// When URL and HTTPMethod are both present the software source is a dedicated
// API call, otherwise the already-fetched detail response is reused.
type SoftwareBehavior struct {
	Rule
	Enabled bool   `json:"enabled"`
	Result  string `json:"result"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// HasCallSpec reports whether the software source is an explicit API call.
func (b *SoftwareBehavior) HasCallSpec() bool {
	return b != nil && strings.TrimSpace(b.URL) != "" && strings.TrimSpace(b.HTTPMethod) != ""
}

// SaaSBehavior describes the optional SaaS-linkage enrichment block.
type SaaSBehavior struct {
	Enabled        bool   `json:"enabled"`
	SyncKey        string `json:"sync_key"`
	SelectedSaaSID string `json:"selected_saas_id"`
	Name           string `json:"name"`
}

// ConfigError is a fatal configuration problem detected at connector
// construction. It is never retried.
type ConfigError struct {
	ConnectorID string
	Message     string
}

func (e *ConfigError) Error() string {
	if strings.TrimSpace(e.ConnectorID) == "" {
		return e.Message
	}
	return fmt.Sprintf("managed connector #%s: %s", e.ConnectorID, e.Message)
}

// NewConfigError builds a ConfigError naming the connector.
func NewConfigError(connectorID, format string, args ...any) *ConfigError {
	return &ConfigError{ConnectorID: connectorID, Message: fmt.Sprintf(format, args...)}
}
