// SPDX-License-Identifier: MPL-2.0

// Package pipeline sequences one stagecraft run: check the URL, clone,
// analyze the manifest, scaffold CI files and convert the Dockerfile.
package pipeline
