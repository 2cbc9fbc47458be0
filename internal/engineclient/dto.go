package engineclient

import (
	"fmt"
	"strings"
	"time"

	"github.com/petrijr/exttask/pkg/api"
)

// Wire representations of the engine's external-task REST resources.
// These stay internal; the public surface speaks pkg/api types only.

type fetchAndLockRequest struct {
	WorkerID             string         `json:"workerId"`
	MaxTasks             int            `json:"maxTasks"`
	UsePriority          bool           `json:"usePriority,omitempty"`
	AsyncResponseTimeout *int64         `json:"asyncResponseTimeout,omitempty"`
	Topics               []topicRequest `json:"topics"`
}

type topicRequest struct {
	TopicName    string   `json:"topicName"`
	LockDuration int64    `json:"lockDuration"`
	Variables    []string `json:"variables,omitempty"`
}

type taskResponse struct {
	ID                   string        `json:"id"`
	TopicName            string        `json:"topicName"`
	WorkerID             string        `json:"workerId"`
	ProcessInstanceID    string        `json:"processInstanceId"`
	ProcessDefinitionID  string        `json:"processDefinitionId"`
	ProcessDefinitionKey string        `json:"processDefinitionKey"`
	ActivityID           string        `json:"activityId"`
	ActivityInstanceID   string        `json:"activityInstanceId"`
	ExecutionID          string        `json:"executionId"`
	BusinessKey          string        `json:"businessKey"`
	TenantID             string        `json:"tenantId"`
	Retries              *int          `json:"retries"`
	Priority             int64         `json:"priority"`
	LockExpirationTime   engineTime    `json:"lockExpirationTime"`
	Variables            api.Variables `json:"variables"`
}

func (t *taskResponse) toTask() *api.Task {
	return &api.Task{
		ID:                   t.ID,
		TopicName:            t.TopicName,
		WorkerID:             t.WorkerID,
		ProcessInstanceID:    t.ProcessInstanceID,
		ProcessDefinitionID:  t.ProcessDefinitionID,
		ProcessDefinitionKey: t.ProcessDefinitionKey,
		ActivityID:           t.ActivityID,
		ActivityInstanceID:   t.ActivityInstanceID,
		ExecutionID:          t.ExecutionID,
		BusinessKey:          t.BusinessKey,
		TenantID:             t.TenantID,
		Retries:              t.Retries,
		Priority:             t.Priority,
		LockExpiration:       time.Time(t.LockExpirationTime),
		Variables:            t.Variables,
	}
}

type completeRequest struct {
	WorkerID  string        `json:"workerId"`
	Variables api.Variables `json:"variables,omitempty"`
}

type failureRequest struct {
	WorkerID     string `json:"workerId"`
	ErrorMessage string `json:"errorMessage"`
	ErrorDetails string `json:"errorDetails,omitempty"`
	Retries      int    `json:"retries"`
	RetryTimeout int64  `json:"retryTimeout"`
}

type bpmnErrorRequest struct {
	WorkerID     string        `json:"workerId"`
	ErrorCode    string        `json:"errorCode"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
	Variables    api.Variables `json:"variables,omitempty"`
}

type extendLockRequest struct {
	WorkerID    string `json:"workerId"`
	NewDuration int64  `json:"newDuration"`
}

// engineTime decodes the engine's date format, which is close to RFC 3339
// but writes the zone offset without a colon.
type engineTime time.Time

const engineTimeLayout = "2006-01-02T15:04:05.000-0700"

func (t *engineTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*t = engineTime(time.Time{})
		return nil
	}
	for _, layout := range []string{engineTimeLayout, time.RFC3339Nano} {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			*t = engineTime(parsed)
			return nil
		}
	}
	return fmt.Errorf("cannot parse engine timestamp %q", s)
}

func (t engineTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).Format(engineTimeLayout) + `"`), nil
}
