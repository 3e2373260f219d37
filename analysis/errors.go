// SPDX-License-Identifier: EPL-2.0

package analysis

import "errors"

var (
	ErrAnalysisCancelled = errors.New("analysis cancelled")
	ErrEmptyBuffer       = errors.New("empty sample buffer")
)
