package config

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/valeger/automl/internal/errs"
	"github.com/valeger/automl/internal/naming"
)

var (
	reModulePath     = regexp.MustCompile(`^.+\.(py|ipynb)$`)
	reDependencyPath = regexp.MustCompile(`^.+\.txt$`)
	reDockerImage    = regexp.MustCompile(`^([\w._-]+/)?([\w._-]+):?([\w._-]+)?$`)
)

var dockerHubTagURL = "https://hub.docker.com/v2/repositories/%s/tags/%s"

var httpClient = &http.Client{Timeout: 15 * time.Second}

// rawDocument mirrors the YAML shape, kept separate from Pipeline so stage
// declaration order can be captured before the map loses it.
type rawDocument struct {
	Version  string    `yaml:"version"`
	Name     string    `yaml:"name"`
	Schedule string    `yaml:"schedule"`
	Stages   yaml.Node `yaml:"stages"`
}

// Load parses, defaults, and validates a pipeline configuration document.
// It returns the parsed Pipeline along with the stage names in the order
// they were declared in the source document.
func Load(data []byte, checkImages bool) (*Pipeline, []string, error) {
	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, errs.Value("cannot parse pipeline configuration: %v", err)
	}

	stages := map[string][]Step{}
	order := make([]string, 0)
	if raw.Stages.Kind == yaml.MappingNode {
		for i := 0; i < len(raw.Stages.Content); i += 2 {
			keyNode := raw.Stages.Content[i]
			valNode := raw.Stages.Content[i+1]

			var steps []Step
			if err := valNode.Decode(&steps); err != nil {
				return nil, nil, errs.Value("cannot parse stage %q: %v", keyNode.Value, err)
			}

			name := naming.FixResourceName(keyNode.Value)
			stages[name] = steps
			order = append(order, name)
		}
	}

	pipeline := &Pipeline{
		Version:  raw.Version,
		Name:     naming.FixResourceName(raw.Name),
		Schedule: raw.Schedule,
		Stages:   stages,
	}

	if pipeline.Schedule != "" {
		if err := ValidateSchedule(pipeline.Schedule); err != nil {
			return nil, nil, err
		}
	}

	v := validator.New()
	for stageName, steps := range pipeline.Stages {
		for i := range steps {
			steps[i].ApplyDefaults()
			if err := validateStep(v, &steps[i], checkImages); err != nil {
				return nil, nil, fmt.Errorf("stage %q: %w", stageName, err)
			}
		}
		pipeline.Stages[stageName] = steps
	}

	return pipeline, order, nil
}

func validateStep(v *validator.Validate, step *Step, checkImage bool) error {
	if err := v.Struct(step); err != nil {
		return errs.Value("invalid step %q: %v", step.StepName, err)
	}

	if !reModulePath.MatchString(step.PathToExecutable) {
		return errs.OS("incorrect path in configuration file: %s. files must have py or ipynb extension",
			step.PathToExecutable)
	}
	if !reDependencyPath.MatchString(step.DependencyPath) {
		return errs.OS("incorrect path in configuration file: %s. only txt extension is supported",
			step.DependencyPath)
	}

	if checkImage {
		resolved, err := resolveImage(step.Image)
		if err != nil {
			return err
		}
		step.Image = resolved
	}

	return nil
}

// resolveImage validates an image reference against Docker Hub and
// normalizes it to "repo:tag" form, substituting the library/ namespace and
// latest tag when either is omitted.
func resolveImage(image string) (string, error) {
	match := reDockerImage.FindStringSubmatch(image)
	if match == nil {
		return "", errs.Value("invalid docker image reference: %s", image)
	}
	username, repo, tag := match[1], match[2], match[3]
	if username == "" {
		username = "library/"
	}
	if tag == "" {
		tag = "latest"
	}

	url := fmt.Sprintf(dockerHubTagURL, username+repo, tag)
	resp, err := httpClient.Head(url)
	if err != nil {
		return "", errs.HTTP(0, "cannot connect to docker repository: %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", errs.HTTP(resp.StatusCode, "cannot connect to docker repository: %s (code %d)", url, resp.StatusCode)
	}

	return fmt.Sprintf("%s%s:%s", username, repo, tag), nil
}

// Download fetches the raw pipeline configuration document from a git
// host's raw-file URL, classifying 404/401 as an auth hint per the original
// behavior.
func Download(url string) ([]byte, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return nil, errs.HTTP(0, "cannot fetch configuration file from %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnauthorized {
		return nil, errs.HTTP(resp.StatusCode,
			"cannot fetch configuration file from %s. make sure you provide a PAT token in case your repo is private", url)
	}
	if resp.StatusCode >= 400 {
		return nil, errs.HTTP(resp.StatusCode, "cannot fetch configuration file from %s. status code: %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.HTTP(0, "cannot read configuration file from %s: %v", url, err)
	}
	return body, nil
}
