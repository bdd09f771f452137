package generator

import (
	"github.com/takumakei/fbs-gen-go/flatc"
	"github.com/takumakei/fbs-gen-go/kotlinpost"
)

// Plan describes what a run would do.
type Plan struct {
	Files []string
	Steps []Step
}

// Step is one compiler invocation and the work that follows it.
type Step struct {
	Target  flatc.Target
	Out     string
	Command string
	After   []string
}

// Report describes what a run did.
type Report struct {
	Files     []string
	Compiled  []flatc.Target
	Kotlin    *kotlinpost.Result
	Alias     string
	Formatted []string

	// Failures holds the errors that were skipped because of KeepGoing.
	Failures []error
}
