package driver

import "time"

// Step is the per-file step a progress event refers to.
type Step string

const (
	StepParse   Step = "parse"
	StepRewrite Step = "rewrite"
	StepApply   Step = "apply"
)

// Status captures progress state within a step.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for a file, or for the whole run when File is empty.
type Event struct {
	File    string
	Step    Step
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. OnEvent may be called from several
// goroutines at once.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

func (o Options) emit(file string, step Step, status Status, err error) {
	if o.Progress == nil {
		return
	}
	o.Progress.OnEvent(Event{File: file, Step: step, Status: status, Err: err})
}

// emitOutcome marks every unit finished: done when it parsed, error otherwise.
func (o Options) emitOutcome(units []Unit) {
	for _, u := range units {
		if u.Err != nil {
			o.emit(u.File.Path, StepParse, StatusError, u.Err)
		} else {
			o.emit(u.File.Path, StepApply, StatusDone, nil)
		}
	}
}
