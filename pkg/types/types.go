package types

import (
	"time"
)

// ResourceKind identifies one class of managed cloud resource
type ResourceKind string

const (
	KindRegistry         ResourceKind = "registry"
	KindSecret           ResourceKind = "secret"
	KindServiceIdentity  ResourceKind = "service-identity"
	KindDeployedService  ResourceKind = "deployed-service"
	KindScheduledTrigger ResourceKind = "scheduled-trigger"
)

// Presence is the result of probing a resource by name
type Presence string

const (
	Present Presence = "present"
	Absent  Presence = "absent"
)

// ResourceDescriptor describes the desired state of one managed resource.
// Name is the idempotency key: re-applying an unchanged descriptor must be
// a no-op against remote state.
type ResourceDescriptor struct {
	Kind   ResourceKind
	Name   string
	Config map[string]string
}

// ResourceHandle is returned by the provider after create/update.
// URI is only populated for resources that expose an endpoint.
type ResourceHandle struct {
	Kind ResourceKind
	Name string
	URI  string
}

// SecretEntry is a named credential value. Writes append a new version;
// history is never mutated in place.
type SecretEntry struct {
	Name             string
	Value            []byte
	AccessorIdentity string
}

// TriggerSpec binds a cron schedule to an HTTP-invocable target.
// Audience must equal TargetURI unless AudienceOverride is set; the signed
// token the scheduler mints is scoped to this audience.
type TriggerSpec struct {
	Name             string
	Schedule         string
	Timezone         string
	TargetService    string
	TargetURI        string
	InvokerIdentity  string
	AudienceOverride string
}

// Audience returns the effective token audience for the trigger
func (t TriggerSpec) Audience() string {
	if t.AudienceOverride != "" {
		return t.AudienceOverride
	}
	return t.TargetURI
}

// CompetencyScope selects which chamber's agenda a session covers
type CompetencyScope string

const (
	ScopePlenary       CompetencyScope = "pleno"
	ScopeFirstChamber  CompetencyScope = "1c"
	ScopeSecondChamber CompetencyScope = "2c"
)

// SessionFormat distinguishes in-person from remote sessions
type SessionFormat string

const (
	FormatInPerson SessionFormat = "presencial"
	FormatRemote   SessionFormat = "nao-presencial"
)

// RetryPolicy bounds how many times a session run is attempted and how
// long the runner pauses between attempts
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// SessionMeta carries the document header metadata forwarded to the
// pipeline (session number, type, opening/closing dates, time slot)
type SessionMeta struct {
	Number      string
	Type        string
	OpeningDate string
	ClosingDate string
	Time        string
}

// EmailSpec describes the delivery leg of a session run. Credentials are
// referenced by secret name, never embedded.
type EmailSpec struct {
	Send       bool
	Account    string
	Recipients []string
	CC         []string
	BCC        []string
	Subject    string
	Body       string
	Verbose    bool
	ForceSync  bool
}

// Session is one unit of scheduled pipeline work: a date range, the
// document to produce, and who receives it
type Session struct {
	ID             string
	DateFrom       string
	DateTo         string
	Scope          CompetencyScope
	Format         SessionFormat
	Meta           SessionMeta
	OutputDocName  string
	HeaderTemplate string
	Email          EmailSpec
	Retry          RetryPolicy
	DownloadDir    string
	OutputDir      string
	Headless       bool
}

// RunStatus is the terminal state of a reconcile run or session run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// ReconcileRun records one full pass of the resource reconciler
type ReconcileRun struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Resources  int        `json:"resources"`
	Status     RunStatus  `json:"status"`
	Error      string     `json:"error,omitempty"`
}

// SessionRun records one session invocation including its retry history
type SessionRun struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"session_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Attempts   int        `json:"attempts"`
	OutputPath string     `json:"output_path,omitempty"`
	Status     RunStatus  `json:"status"`
	Error      string     `json:"error,omitempty"`
}
