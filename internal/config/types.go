/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config defines the pipeline configuration file schema and loads
// and validates it, matching the field defaults and validation rules of the
// original configuration model.
package config

import "github.com/valeger/automl/internal/naming"

const (
	DefaultCPURequest           = 0.5
	DefaultMemoryRequestMB      = 500
	DefaultReplicas             = 2
	DefaultBackoffLimit         = 0
	DefaultRevisionHistoryLimit = 2
	DefaultTimeoutSeconds       = 30
	DefaultPollingSeconds       = 1
	DefaultWaitBeforeStartSecs  = 5
	DefaultMinReadySeconds      = 5
	DefaultServicePort          = 5000

	// ClientImage is the default step image when a step does not name one.
	ClientImage = "valeger/automl-client:latest"
)

// Service describes the optional exposure of a service step.
type Service struct {
	Port    int  `yaml:"port" validate:"omitempty,gt=0"`
	Ingress bool `yaml:"ingress"`
}

// Step is a sum type over the two kinds the spec names: a batch step runs to
// completion, a service step stays up and is optionally exposed. Exactly one
// of these two shapes is populated; which one is determined solely by whether
// Service is set (service) or absent (batch) in the parsed document. The
// command/args override rule applied to both kinds lives in the steps
// package's buildContainer.
type Step struct {
	StepName          string            `yaml:"step_name" validate:"required"`
	PathToExecutable  string            `yaml:"path_to_executable" validate:"required"`
	DependencyPath    string            `yaml:"dependency_path" validate:"required"`
	Image             string            `yaml:"image"`
	Command           []string          `yaml:"command"`
	Envs              map[string]string `yaml:"envs"`
	Secrets           []string          `yaml:"secrets"`
	CPURequest        float64           `yaml:"cpu_request" validate:"gt=0"`
	MemoryRequest     int               `yaml:"memory_request" validate:"gt=0"`
	Replicas          int               `yaml:"replicas" validate:"gt=0"`
	BackoffLimit      int               `yaml:"backoff_limit" validate:"gte=0"`
	RevisionHistoryLimit int            `yaml:"revision_history_limit" validate:"gte=0"`
	TimeoutSeconds    int               `yaml:"timeout" validate:"gt=0"`
	PollingSeconds    int               `yaml:"polling_time" validate:"gt=0"`
	WaitBeforeStartSeconds int          `yaml:"wait_before_start_time" validate:"gt=0"`
	MinReadySeconds   int               `yaml:"min_ready_seconds" validate:"gt=0"`
	Service           *Service          `yaml:"service"`
}

// IsService reports whether this step describes a long-running service
// rather than a batch job.
func (s *Step) IsService() bool { return s.Service != nil }

// ApplyDefaults fills every unset field with its spec default and
// normalizes the step name into a valid platform object name component.
func (s *Step) ApplyDefaults() {
	s.StepName = naming.FixResourceName(s.StepName)
	if s.Image == "" {
		s.Image = ClientImage
	}
	if s.CPURequest == 0 {
		s.CPURequest = DefaultCPURequest
	}
	if s.MemoryRequest == 0 {
		s.MemoryRequest = DefaultMemoryRequestMB
	}
	if s.Replicas == 0 {
		s.Replicas = DefaultReplicas
	}
	if s.RevisionHistoryLimit == 0 {
		s.RevisionHistoryLimit = DefaultRevisionHistoryLimit
	}
	if s.TimeoutSeconds == 0 {
		s.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if s.PollingSeconds == 0 {
		s.PollingSeconds = DefaultPollingSeconds
	}
	if s.WaitBeforeStartSeconds == 0 {
		s.WaitBeforeStartSeconds = DefaultWaitBeforeStartSecs
	}
	if s.MinReadySeconds == 0 {
		s.MinReadySeconds = DefaultMinReadySeconds
	}
	fixed := make([]string, len(s.Secrets))
	for i, secret := range s.Secrets {
		fixed[i] = naming.FixResourceName(secret)
	}
	s.Secrets = fixed
	if s.Service != nil && s.Service.Port == 0 {
		s.Service.Port = DefaultServicePort
	}
}

// Stage is a named, ordered set of steps. Steps within a stage run
// concurrently; stages run in the pipeline's declared order.
type Stage struct {
	Name  string
	Steps []Step
}

// Pipeline is the root configuration document.
type Pipeline struct {
	Version  string           `yaml:"version"`
	Name     string           `yaml:"name"`
	Schedule string           `yaml:"schedule"`
	Stages   map[string][]Step `yaml:"stages" validate:"required"`
}

// OrderedStages returns the pipeline's stages as a slice, preserving the
// iteration order recorded at parse time (map iteration order in the
// encoding is not guaranteed, so Load captures declaration order
// separately).
func (p *Pipeline) OrderedStages(order []string) []Stage {
	stages := make([]Stage, 0, len(order))
	for _, name := range order {
		stages = append(stages, Stage{Name: name, Steps: p.Stages[name]})
	}
	return stages
}
