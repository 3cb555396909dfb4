package controller

import (
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// View is an immutable snapshot of the controller state, suitable for
// rendering or serializing.
type View struct {
	Input     string                `json:"input"`
	Reference models.MediaReference `json:"reference"`
	Fetching  bool                  `json:"fetching"`
	Preview   *models.PreviewInfo   `json:"preview,omitempty"`

	Qualities []QualityChoice `json:"qualities,omitempty"`
	Quality   string          `json:"quality"`

	Start      string `json:"start"`
	StartCaret int    `json:"start_caret"`
	End        string `json:"end"`
	EndCaret   int    `json:"end_caret"`
	RangeError string `json:"range_error,omitempty"`

	OutputDir       string              `json:"output_dir"`
	State           models.SessionState `json:"state"`
	Busy            bool                `json:"busy"`
	Installing      bool                `json:"installing"`
	DependencyReady bool                `json:"dependency_ready"`
	CanDownload     bool                `json:"can_download"`
	BlockingReason  string              `json:"blocking_reason,omitempty"`

	Progress        *models.DownloadProgress `json:"progress,omitempty"`
	ProgressPercent int                      `json:"progress_percent"`
	Notification    *models.Notification     `json:"notification,omitempty"`
	LastOutput      string                   `json:"last_output,omitempty"`

	Credentials     models.Credentials `json:"credentials"`
	AwaitingCapture bool               `json:"awaiting_capture"`
}

// snapshot copies the loop-owned state into a View
func (c *Controller) snapshot() View {
	v := View{
		Input:           c.input,
		Reference:       c.ref,
		Fetching:        c.fetching,
		Quality:         c.quality,
		Start:           c.start.Text(),
		StartCaret:      c.start.Caret(),
		End:             c.end.Text(),
		EndCaret:        c.end.Caret(),
		OutputDir:       c.outputDir,
		State:           c.state(),
		Busy:            c.busy(),
		Installing:      c.installing,
		DependencyReady: c.dependencyReady,
		LastOutput:      c.lastOutput,
		Credentials:     c.credentials,
		AwaitingCapture: c.awaitingCapture,
	}

	if c.preview != nil {
		preview := *c.preview
		if c.preview.Duration != nil {
			d := *c.preview.Duration
			preview.Duration = &d
		}
		v.Preview = &preview
	}

	if c.ref.IsVideo() && c.preview != nil {
		seconds, known := c.rangeSeconds()
		v.Qualities = QualityChoices(c.qualities, seconds, known)
	}

	if err := c.rangeError(); err != nil {
		v.RangeError = err.Error()
	}
	if err := c.blockingReason(); err != nil {
		v.BlockingReason = err.Error()
	} else {
		v.CanDownload = true
	}

	if c.progress != nil {
		p := *c.progress
		v.Progress = &p
		v.ProgressPercent = p.Percent()
	}
	if c.notification != nil {
		n := *c.notification
		v.Notification = &n
	}
	return v
}

func (c *Controller) state() models.SessionState {
	switch {
	case c.installing:
		return models.SessionInstallingDependency
	case c.session != models.SessionIdle:
		return c.session
	case c.fetching:
		return models.SessionFetchingInfo
	default:
		return models.SessionIdle
	}
}
