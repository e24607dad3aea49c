// Package analytics turns raw firewall log documents into canonical records and
// derives findings, breakdowns and summary metrics from a single batch.
package analytics

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// RawEvent is the _source document of a single search hit. Its shape depends on
// the device vendor and firmware that produced the log line.
type RawEvent map[string]interface{}

// Canonical attribute names. They double as JSON keys on Record.
const (
	FieldTimestamp = "timestamp"
	FieldSrcIP     = "src_ip"
	FieldDstIP     = "dst_ip"
	FieldSrcPort   = "src_port"
	FieldDstPort   = "dst_port"
	FieldUser      = "user"
	FieldAction    = "action"
	FieldEventType = "event_type"
	FieldMsg       = "msg"
	FieldSeverity  = "severity"
	FieldPolicyID  = "policy_id"
)

// Record is the canonical, fixed-schema view of a firewall event. Every
// attribute is optional; nil means no source field carried a value.
type Record struct {
	Timestamp *string `json:"timestamp"`
	SrcIP     *string `json:"src_ip"`
	DstIP     *string `json:"dst_ip"`
	SrcPort   *string `json:"src_port"`
	DstPort   *string `json:"dst_port"`
	User      *string `json:"user"`
	Action    *string `json:"action"`
	EventType *string `json:"event_type"`
	Msg       *string `json:"msg"`
	Severity  *string `json:"severity"`
	PolicyID  *string `json:"policy_id"`
}

// slot returns the address of the attribute backing a canonical field name.
func (r *Record) slot(field string) **string {
	switch field {
	case FieldTimestamp:
		return &r.Timestamp
	case FieldSrcIP:
		return &r.SrcIP
	case FieldDstIP:
		return &r.DstIP
	case FieldSrcPort:
		return &r.SrcPort
	case FieldDstPort:
		return &r.DstPort
	case FieldUser:
		return &r.User
	case FieldAction:
		return &r.Action
	case FieldEventType:
		return &r.EventType
	case FieldMsg:
		return &r.Msg
	case FieldSeverity:
		return &r.Severity
	case FieldPolicyID:
		return &r.PolicyID
	default:
		return nil
	}
}

// Get returns the value of a canonical attribute and whether it is set.
func (r Record) Get(field string) (string, bool) {
	p := r.slot(field)
	if p == nil || *p == nil {
		return "", false
	}
	return **p, true
}

// is reports whether a nullable attribute equals want. Null never matches.
func is(v *string, want string) bool {
	return v != nil && *v == want
}

func strPtr(s string) *string {
	return &s
}

// stringify renders a decoded JSON scalar the way it appeared in the source
// document: numbers without a trailing ".0", nested values as compact JSON.
func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
