// Copyright 2026 Blink Labs Software
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

package node

import (
	"testing"

	"github.com/blinklabs-io/gobject/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestRedactedConfig(t *testing.T) {
	cfg := &config.Config{
		RpcHost: "127.0.0.1:9998",
		RpcUser: "user",
		RpcPass: "secret",
	}
	redacted := redactedConfig(cfg)
	assert.Equal(t, "REDACTED", redacted.RpcPass)
	assert.Equal(t, "user", redacted.RpcUser)
	// The original is untouched
	assert.Equal(t, "secret", cfg.RpcPass)
	assert.Empty(t, redactedConfig(&config.Config{}).RpcPass)
}
