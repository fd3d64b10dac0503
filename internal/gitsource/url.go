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

// Package gitsource parses a repository URL into the pieces every driver
// needs: an authenticated clone URL and a raw-file URL for the pipeline
// config, derived per host (github.com, gitlab.com, bitbucket.org).
package gitsource

import (
	"regexp"
	"strings"

	"github.com/valeger/automl/internal/errs"
)

const (
	protocol    = "https"
	rawGitHub   = "raw.githubusercontent.com"
	defaultFile = "config.yaml"
)

var allowedHosts = map[string]bool{
	"github.com":    true,
	"gitlab.com":    true,
	"bitbucket.org": true,
}

var urlPattern = regexp.MustCompile(`(?:@|//)([\w.-]+)/([\w._-]+)/([\w._-]+).*$`)

// URL is a parsed repository reference, mirroring the three-part structure
// of the GitURL class it is modeled on: host, username/org, and project.
type URL struct {
	raw     string
	Token   string
	ID      string // gitlab numeric project id, required for private gitlab raw access
	Branch  string
	File    string
	Host    string
	Owner   string
	Project string
}

// Option configures optional fields of Parse.
type Option func(*URL)

func WithToken(token string) Option { return func(u *URL) { u.Token = token } }
func WithID(id string) Option       { return func(u *URL) { u.ID = id } }
func WithBranch(branch string) Option {
	return func(u *URL) {
		if branch != "" {
			u.Branch = branch
		}
	}
}
func WithFile(file string) Option {
	return func(u *URL) {
		if file != "" {
			u.File = file
		}
	}
}

// Parse validates raw as an https repository URL on an allowed host and
// extracts its host/owner/project triple.
func Parse(raw string, opts ...Option) (*URL, error) {
	if !strings.HasPrefix(raw, "https://") {
		return nil, errs.Git(
			"error in git connection protocol: only https protocol is supported. url: %s. "+
				"if you're planning to deploy a private repo, use https and provide a PAT token",
			raw,
		)
	}

	u := &URL{raw: raw, Branch: "master", File: defaultFile}
	for _, opt := range opts {
		opt(u)
	}
	if u.Token != "" {
		u.Token = strings.ReplaceAll(u.Token, "/", "%2F")
	}

	match := urlPattern.FindStringSubmatch(raw)
	if match == nil {
		return nil, errs.Git("invalid git url: %s", raw)
	}
	u.Host, u.Owner, u.Project = match[1], match[2], match[3]
	u.Project = strings.TrimSuffix(u.Project, ".git")

	if !allowedHosts[u.Host] {
		return nil, errs.Git("automl supports only github, gitlab and bitbucket repositories")
	}

	return u, nil
}

// RepoURL is the clone URL, with the token embedded as basic-auth userinfo
// when present.
func (u *URL) RepoURL() string {
	if u.Token != "" {
		return protocol + "://" + u.Owner + ":" + u.Token + "@" + u.Host + "/" + u.Owner + "/" + u.Project
	}
	return protocol + "://" + u.Host + "/" + u.Owner + "/" + u.Project
}

// RawConfigURL derives the raw-file URL for the pipeline config, following
// each host's own raw-content convention.
func (u *URL) RawConfigURL() (string, error) {
	suffix := "raw/"
	host := u.Host
	if strings.Contains(u.Host, "github") {
		suffix = ""
		host = rawGitHub
	}

	if u.Token != "" {
		switch {
		case strings.Contains(u.Host, "github"):
			return protocol + "://" + u.Owner + ":" + u.Token + "@" + host + "/" +
				u.Owner + "/" + u.Project + "/" + suffix + u.Branch + "/" + u.File, nil

		case strings.Contains(u.Host, "gitlab"):
			if u.ID == "" {
				return "", errs.Git("please provide the correct id of the gitlab project")
			}
			return "https://gitlab.com/api/v4/projects/" + u.ID + "/repository/files/" +
				u.File + "/raw?ref=" + u.Branch + "&private_token=" + u.Token, nil

		case strings.Contains(u.Host, "bitbucket"):
			return "https://api.bitbucket.org/2.0/repositories/" + u.Owner + "/" + u.Project +
				"/src/" + u.Branch + "/" + u.File + "?access_token=" + u.Token, nil
		}
	}

	return protocol + "://" + host + "/" + u.Owner + "/" + u.Project + "/" + suffix + u.Branch + "/" + u.File, nil
}
