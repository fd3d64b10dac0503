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

// Package report renders the read-only views of cluster state the CLI's
// "get" commands expose: secrets, one-shot and scheduled pipelines, and the
// batch/service objects backing a pipeline's stages.
package report

import (
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/valeger/automl/internal/secrets"
)

// Secrets renders the namespace's automl-owned secrets as a table, or ""
// if there are none.
func Secrets(infos []secrets.Info) string {
	if len(infos) == 0 {
		return ""
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"name of secret", "namespace", "pipeline", "data keys"})
	for _, info := range infos {
		t.AppendRow(table.Row{info.Name, info.Namespace, info.Pipeline, strings.Join(info.Keys, "\n")})
	}
	return t.Render()
}

// Runner summarizes one driver object for tabular display.
type Runner struct {
	Pipeline string
	URL      string
	Schedule string // empty for a one-shot runner
}

// Workflows renders one-shot runners as a table, or "" if there are none.
func Workflows(namespace string, runners []Runner) string {
	if len(runners) == 0 {
		return ""
	}
	sort.Slice(runners, func(i, j int) bool { return runners[i].Pipeline < runners[j].Pipeline })

	t := table.NewWriter()
	t.AppendHeader(table.Row{"namespace", "pipeline", "url"})
	for _, r := range runners {
		t.AppendRow(table.Row{namespace, r.Pipeline, r.URL})
	}
	return t.Render()
}

// CronWorkflows renders scheduled runners as a table, or "" if there are
// none.
func CronWorkflows(namespace string, runners []Runner) string {
	if len(runners) == 0 {
		return ""
	}
	sort.Slice(runners, func(i, j int) bool { return runners[i].Pipeline < runners[j].Pipeline })

	t := table.NewWriter()
	t.AppendHeader(table.Row{"namespace", "pipeline", "url", "schedule"})
	for _, r := range runners {
		t.AppendRow(table.Row{namespace, r.Pipeline, r.URL, r.Schedule})
	}
	return t.Render()
}

// Resource summarizes one platform object (a Job or a Deployment) owned by
// a pipeline's stage.
type Resource struct {
	Namespace string
	Pipeline  string
	Kind      string // "Job" or "Deployment"
	Stage     string
	Step      string
	Info      map[string]string // e.g. {"active": "0", "succeeded": "1"}
}

// Resources renders a pipeline's owned objects as a table, or "" if there
// are none.
func Resources(resources []Resource) string {
	if len(resources) == 0 {
		return ""
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"namespace", "pipeline", "kind", "stage", "step", "key", "value"})
	for _, r := range resources {
		keys := make([]string, 0, len(r.Info))
		for k := range r.Info {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		values := make([]string, len(keys))
		for i, k := range keys {
			values[i] = r.Info[k]
		}

		t.AppendRow(table.Row{
			r.Namespace, r.Pipeline, r.Kind, r.Stage, r.Step,
			strings.Join(keys, "\n"), strings.Join(values, "\n"),
		})
	}
	return t.Render()
}
