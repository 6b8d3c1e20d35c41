package v1

// Mapping is a file that will be copied to Destination on the remote host.
type Mapping struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// Failure is a path or commit that could not be planned.
type Failure struct {
	Subject string `json:"subject"`
	Error   string `json:"error"`
}

// Plan is the result of resolving a set of commits.
type Plan struct {
	Root     string    `json:"root"`
	Ignored  []string  `json:"ignored"`
	Mapped   []Mapping `json:"mapped"`
	Unmapped []string  `json:"unmapped"`
	// Failures are mapped paths whose rule could not rewrite them.
	Failures []Failure `json:"failures,omitempty"`
	// Warnings are commits that contributed nothing.
	Warnings []Failure `json:"warnings,omitempty"`
}
