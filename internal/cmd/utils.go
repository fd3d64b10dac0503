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

package cmd

import (
	"context"
	"strings"

	"github.com/valeger/automl/internal/errs"
	"github.com/valeger/automl/internal/secrets"
)

// parseSecretArgs turns a list of "KEY=VALUE" arguments into a data map,
// splitting each at its first "=" (so values may themselves contain "=")
// and rejecting any argument with no "=" or with an empty key.
func parseSecretArgs(args []string) (map[string]string, error) {
	data := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, errs.Value("%q is not a KEY=VALUE pair", arg)
		}
		data[key] = value
	}
	return data, nil
}

// secretExists reports whether a secret with the given name already exists
// in namespace.
func secretExists(ctx context.Context, mgr *secrets.Manager, name, namespace string) (bool, error) {
	infos, err := mgr.List(ctx, namespace)
	if err != nil {
		return false, err
	}
	for _, info := range infos {
		if info.Name == name && info.Namespace == namespace {
			return true, nil
		}
	}
	return false, nil
}
