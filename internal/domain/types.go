// Package domain defines the core entities of the benchmark harness: runs,
// run-items, metrics, and artifacts, independent of how they are stored or
// how vendor calls are made.
package domain

import "time"

// RunMode selects whether a run measures a single capability in isolation or
// a full TTS-to-STT pipeline.
type RunMode string

const (
	ModeIsolated RunMode = "isolated"
	ModeChained  RunMode = "chained"
)

// ServiceType selects which capability an isolated run exercises.
type ServiceType string

const (
	ServiceTTS ServiceType = "tts"
	ServiceSTT ServiceType = "stt"
)

// Status is the lifecycle state shared by Run and RunItem. Transitions are
// monotone: Pending -> Running -> {Completed | Failed | Partial}. Partial is
// only valid for a Run (an aggregate of mixed item outcomes); a RunItem never
// reaches Partial.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusPartial   Status = "partial"
)

// ArtifactKind distinguishes the two blob kinds a RunItem may own.
type ArtifactKind string

const (
	ArtifactAudio      ArtifactKind = "audio"
	ArtifactTranscript ArtifactKind = "transcript"
)

// Run is a single user-initiated execution, owning one or more RunItems.
type Run struct {
	ID          string
	CreatedAt   time.Time
	Mode        RunMode
	Vendors     []string
	Config      RunConfig
	Status      Status
	StartedAt   *time.Time
	FinishedAt  *time.Time
}

// RunConfig is the configuration snapshot captured at CreateRun time. It is
// frozen for the lifetime of the run so that later reads always reflect what
// was actually executed.
type RunConfig struct {
	Service         ServiceType // required when Mode == ModeIsolated
	ChainTTSVendor  string      // required when Mode == ModeChained
	ChainSTTVendor  string      // required when Mode == ModeChained
	Models          map[string]string
	VoiceID         string
	Language        string
}

// RunItem is a single (input, vendor-assignment) attempt belonging to a Run.
type RunItem struct {
	ID             string
	RunID          string
	InputText      string
	VendorLabel    string // single vendor id (isolated) or "tts→stt" (chained)
	Status         Status
	FailureReason  string
	MetricsSummary string // pipe-separated name:value, UI convenience only
	AudioLocator   string
	TranscriptLoc  string
	Sidecar        Sidecar
	CreatedAt      time.Time
	FinishedAt     *time.Time
}

// Sidecar is the free-form label bag attached to a RunItem: everything that
// is not a closed-vocabulary Metric but is still useful context.
type Sidecar struct {
	ServiceType        ServiceType `json:"service_type,omitempty"`
	TTSVendor          string      `json:"tts_vendor,omitempty"`
	STTVendor          string      `json:"stt_vendor,omitempty"`
	Model              string      `json:"model,omitempty"`
	VoiceID            string      `json:"voice_id,omitempty"`
	Language           string      `json:"language,omitempty"`
	DurationEstimated  bool        `json:"duration_estimated,omitempty"`
	AnomalyFlag        bool        `json:"anomaly_flag,omitempty"`
}

// MetricName is the closed vocabulary of measurements spec.md §4.3 defines.
type MetricName string

const (
	MetricTTSLatency     MetricName = "tts_latency"
	MetricTTSTTFB        MetricName = "tts_ttfb"
	MetricSTTLatency     MetricName = "stt_latency"
	MetricE2ELatency     MetricName = "e2e_latency"
	MetricAudioDuration  MetricName = "audio_duration"
	MetricTTSRTF         MetricName = "tts_rtf"
	MetricSTTRTF         MetricName = "stt_rtf"
	MetricWER            MetricName = "wer"
	MetricAccuracy       MetricName = "accuracy"
	MetricConfidence     MetricName = "confidence"
)

// Unit is the physical unit a Metric's Value is expressed in.
type Unit string

const (
	UnitSeconds    Unit = "s"
	UnitRatio      Unit = "ratio"
	UnitPercent    Unit = "percent"
	UnitMultiplier Unit = "x"
)

// Metric is a single named measurement attached to a RunItem. No duplicate
// (RunItemID, Name) pair may exist.
type Metric struct {
	RunItemID string
	Name      MetricName
	Value     float64
	Unit      Unit
}

// Artifact is a binary or text blob tied to a RunItem's audio or transcript.
type Artifact struct {
	RunItemID   string
	Kind        ArtifactKind
	ContentType string
	Locator     string
	ByteLength  int64
}

// Script is an ordered, immutable list of reference input strings used by
// batch mode. The core treats Script and ScriptItem as read-only inputs
// supplied by an external collaborator at run-creation time.
type Script struct {
	ID    string
	Name  string
	Items []ScriptItem
}

// ScriptItem is one entry of a Script.
type ScriptItem struct {
	Index int
	Text  string
}

// MetricVocabularyFor returns the exact closed set of metric names a
// completed RunItem of the given service composition must carry — no extras,
// no omissions. streaming indicates whether the TTS leg of this item reported
// a TTFB (only meaningful when ttsPresent is true).
func MetricVocabularyFor(ttsPresent, sttPresent, streaming bool) []MetricName {
	var names []MetricName

	if ttsPresent {
		names = append(names, MetricTTSLatency)
		if streaming {
			names = append(names, MetricTTSTTFB)
		}
	}

	if sttPresent {
		names = append(names, MetricSTTLatency)
	}

	if ttsPresent && sttPresent {
		names = append(names, MetricE2ELatency)
	}

	names = append(names, MetricAudioDuration)

	if ttsPresent {
		names = append(names, MetricTTSRTF)
	}

	if sttPresent {
		names = append(names, MetricSTTRTF)
	}

	names = append(names, MetricWER, MetricAccuracy, MetricConfidence)

	return names
}
