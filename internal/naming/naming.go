// Package naming derives deterministic object names and the common label
// selector used to discover pipeline-owned objects on the platform. It holds
// no state: every function except BatchStepName (which appends a random
// suffix) is a pure transformation of its inputs.
package naming

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	// LabelApp marks every object this system owns.
	LabelApp = "app"
	// AppValue is the value of LabelApp on every owned object.
	AppValue = "automl"

	LabelPipeline = "pipeline"
	LabelStage    = "stage"
	LabelStep     = "step"
	LabelKind     = "kind"

	// KindRunner is the LabelKind value carried by driver objects.
	KindRunner = "runner"
)

var invalidNameChars = regexp.MustCompile(`[^a-z0-9.]+`)

// FixResourceName lowercases s, replaces any run of characters outside
// [a-z0-9.] with a single hyphen, and strips leading/trailing hyphens.
// It is idempotent: FixResourceName(FixResourceName(s)) == FixResourceName(s).
func FixResourceName(s string) string {
	lowered := strings.ToLower(strings.TrimSpace(s))
	fixed := invalidNameChars.ReplaceAllString(lowered, "-")
	return strings.Trim(fixed, "-")
}

// DeploymentName derives the stable name shared by a service step's
// deployment, service, and ingress.
func DeploymentName(pipeline, stage, step string) string {
	return fmt.Sprintf("%s-%s-%s", pipeline, stage, step)
}

// BatchStepName derives a batch step's object name, suffixed with a 6
// character tag taken from a fresh UUID so repeated stage runs never
// collide.
func BatchStepName(pipeline, stage, step string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s-%s-%s-%s", pipeline, stage, step, suffix)
}

// RepoSecretName derives the per-pipeline repo-URL secret name.
func RepoSecretName(pipeline string) string {
	return "repo-" + pipeline
}

// Labels composes the label set for an owned object. stage, step and kind
// are optional; pass "" to omit them.
func Labels(pipeline, stage, step, kind string) map[string]string {
	labels := map[string]string{
		LabelApp:      AppValue,
		LabelPipeline: pipeline,
	}
	if stage != "" {
		labels[LabelStage] = stage
	}
	if step != "" {
		labels[LabelStep] = step
	}
	if kind != "" {
		labels[LabelKind] = kind
	}
	return labels
}

// Selector builds a label-selector string from the subset of components that
// are non-empty. app=automl is always included.
func Selector(pipeline, stage, step, kind string) string {
	parts := []string{LabelApp + "=" + AppValue}
	if pipeline != "" {
		parts = append(parts, LabelPipeline+"="+pipeline)
	}
	if stage != "" {
		parts = append(parts, LabelStage+"="+stage)
	}
	if step != "" {
		parts = append(parts, LabelStep+"="+step)
	}
	if kind != "" {
		parts = append(parts, LabelKind+"="+kind)
	}
	return strings.Join(parts, ",")
}
