// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package playback

// Observer is notified of a [Driver]'s run lifecycle. Notifications are
// delivered one at a time in the order of the state changes they describe,
// after the change has been made and outside the driver's state lock, so an
// observer may read or even restart the driver. When Start or Reset races with
// a tick, the goroutine already delivering notifications delivers theirs too.
type Observer interface {
	// RunStarted is called when run begins playing.
	RunStarted(run *Run)
	// Frame is called for each tick of run that does not complete it.
	Frame(run *Run, view View)
	// RunCompleted is called once with the final view of run.
	RunCompleted(run *Run, view View)
	// RunCanceled is called when run is reset or replaced before completing.
	RunCanceled(run *Run)
}

// ObserverFuncs adapts plain functions to [Observer]. Nil fields are skipped.
type ObserverFuncs struct {
	RunStartedFunc   func(run *Run)
	FrameFunc        func(run *Run, view View)
	RunCompletedFunc func(run *Run, view View)
	RunCanceledFunc  func(run *Run)
}

var _ Observer = ObserverFuncs{}

func (o ObserverFuncs) RunStarted(run *Run) {
	if o.RunStartedFunc != nil {
		o.RunStartedFunc(run)
	}
}

func (o ObserverFuncs) Frame(run *Run, view View) {
	if o.FrameFunc != nil {
		o.FrameFunc(run, view)
	}
}

func (o ObserverFuncs) RunCompleted(run *Run, view View) {
	if o.RunCompletedFunc != nil {
		o.RunCompletedFunc(run, view)
	}
}

func (o ObserverFuncs) RunCanceled(run *Run) {
	if o.RunCanceledFunc != nil {
		o.RunCanceledFunc(run)
	}
}

// MultiObserver notifies each of its observers in order.
type MultiObserver []Observer

var _ Observer = MultiObserver(nil)

func (m MultiObserver) RunStarted(run *Run) {
	for _, o := range m {
		o.RunStarted(run)
	}
}

func (m MultiObserver) Frame(run *Run, view View) {
	for _, o := range m {
		o.Frame(run, view)
	}
}

func (m MultiObserver) RunCompleted(run *Run, view View) {
	for _, o := range m {
		o.RunCompleted(run, view)
	}
}

func (m MultiObserver) RunCanceled(run *Run) {
	for _, o := range m {
		o.RunCanceled(run)
	}
}
