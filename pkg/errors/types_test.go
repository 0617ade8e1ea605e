// Copyright 2026 The Attune Authors
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

package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "with field",
			err:  &ValidationError{Field: "workflow_id", Message: "must not be empty"},
			want: "validation failed on workflow_id: must not be empty",
		},
		{
			name: "without field",
			err:  &ValidationError{Message: "bad input"},
			want: "validation failed: bad input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestBusyError(t *testing.T) {
	err := &BusyError{WorkflowID: "security-audit", Generation: 3}
	assert.Equal(t, "workflow security-audit already running", err.Error())

	wrapped := Wrap(err, "submit")
	assert.True(t, IsBusy(wrapped))
	assert.False(t, IsBusy(fmt.Errorf("other")))

	var busy *BusyError
	require.True(t, As(wrapped, &busy))
	assert.Equal(t, uint64(3), busy.Generation)
}

func TestTimeoutError(t *testing.T) {
	cause := fmt.Errorf("context deadline exceeded")
	err := &TimeoutError{Operation: "workflow run", Duration: 2 * time.Minute, Cause: cause}

	assert.Equal(t, "workflow run operation timed out after 2m0s", err.Error())
	assert.True(t, IsTimeout(err))
	assert.True(t, Is(err, cause))
}

func TestConfigErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("yaml: line 3: mapping values are not allowed")
	err := &ConfigError{Key: "workflows", Reason: "invalid yaml", Cause: cause}

	assert.Contains(t, err.Error(), "config error at workflows")
	assert.True(t, Is(err, cause))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
}
