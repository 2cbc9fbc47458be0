package api

import (
	"encoding/json"
	"fmt"
	"time"
)

// Task is one external task acquired from the remote engine.
//
// A Task is produced by a fetch-and-lock call, dispatched to exactly one
// Handler, and discarded afterwards; it is never retained across acquisition
// cycles. The lock is held until LockExpiration unless the handler completes,
// fails, or extends it through the TaskService.
type Task struct {
	// ID is the engine-assigned identifier of the task. It is opaque to the
	// client and used verbatim in task-service calls.
	ID string `json:"id"`

	// TopicName is the topic the task was published under. Dispatch matches
	// it against the handler index of the cycle that fetched the task.
	TopicName string `json:"topicName"`

	// WorkerID echoes the worker identity that locked the task.
	WorkerID string `json:"workerId"`

	ProcessInstanceID    string `json:"processInstanceId"`
	ProcessDefinitionID  string `json:"processDefinitionId"`
	ProcessDefinitionKey string `json:"processDefinitionKey"`
	ActivityID           string `json:"activityId"`
	ActivityInstanceID   string `json:"activityInstanceId"`
	ExecutionID          string `json:"executionId"`
	BusinessKey          string `json:"businessKey"`
	TenantID             string `json:"tenantId"`

	// Retries is nil until the first failure report sets it.
	Retries  *int  `json:"retries"`
	Priority int64 `json:"priority"`

	// LockExpiration is when the engine releases the lock if the task has
	// not been completed, failed, or extended by then.
	LockExpiration time.Time `json:"lockExpirationTime"`

	// Variables holds the typed variable payload fetched with the task.
	Variables Variables `json:"variables"`
}

// Variable is one typed process variable as the engine represents it.
type Variable struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// Variables maps variable names to typed values.
type Variables map[string]Variable

// String returns the named variable as a string.
// The second result is false if the variable is absent or not a string.
func (v Variables) String(name string) (string, bool) {
	s, ok := v[name].Value.(string)
	return s, ok
}

// Int returns the named variable as an int. JSON numbers decode as float64,
// so both float64 and int values are accepted.
func (v Variables) Int(name string) (int, bool) {
	switch n := v[name].Value.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// Float returns the named variable as a float64.
func (v Variables) Float(name string) (float64, bool) {
	switch n := v[name].Value.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// Bool returns the named variable as a bool.
func (v Variables) Bool(name string) (bool, bool) {
	b, ok := v[name].Value.(bool)
	return b, ok
}

// Unmarshal decodes a Json-typed variable into out.
func (v Variables) Unmarshal(name string, out any) error {
	raw, ok := v[name]
	if !ok {
		return fmt.Errorf("variable %q not present", name)
	}
	s, ok := raw.Value.(string)
	if !ok {
		return fmt.Errorf("variable %q is %q, not a Json value", name, raw.Type)
	}
	return json.Unmarshal([]byte(s), out)
}

// SetString sets a String-typed variable, allocating the map if needed.
func (v *Variables) SetString(name, value string) {
	v.set(name, Variable{Type: "String", Value: value})
}

// SetInt sets an Integer-typed variable.
func (v *Variables) SetInt(name string, value int) {
	v.set(name, Variable{Type: "Integer", Value: value})
}

// SetFloat sets a Double-typed variable.
func (v *Variables) SetFloat(name string, value float64) {
	v.set(name, Variable{Type: "Double", Value: value})
}

// SetBool sets a Boolean-typed variable.
func (v *Variables) SetBool(name string, value bool) {
	v.set(name, Variable{Type: "Boolean", Value: value})
}

// SetJSON marshals value and stores it as a Json-typed variable.
func (v *Variables) SetJSON(name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal variable %q: %w", name, err)
	}
	v.set(name, Variable{Type: "Json", Value: string(raw)})
	return nil
}

func (v *Variables) set(name string, value Variable) {
	if *v == nil {
		*v = make(Variables)
	}
	(*v)[name] = value
}
