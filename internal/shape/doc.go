// SPDX-License-Identifier: MPL-2.0

// Package shape answers whether a Dockerfile already has the multi-stage form and
// lists its stages.
package shape
