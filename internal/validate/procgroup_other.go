// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package validate

import "os/exec"

// killTreeOnCancel keeps the default cancellation, which kills cmd only.
// WaitDelay still bounds the wait for children holding its pipes.
func killTreeOnCancel(*exec.Cmd) {}
