// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/kraklabs/keel/internal/errors"
)

// notInitializedError wraps keel.Open's error into a UserError with a
// consistent fix hint, since the most common cause is simply never having
// run 'keel init' in this directory.
func notInitializedError(err error) *errors.UserError {
	return errors.NewNotFoundError(
		"Project is not initialized",
		err.Error(),
		"Run 'keel init' in this directory first",
	)
}
