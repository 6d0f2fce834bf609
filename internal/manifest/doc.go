// SPDX-License-Identifier: MPL-2.0

// Package manifest reads a repository's ViaCBSfile and the Docker bake file it
// points at to find the Dockerfile to convert and the platform to build for.
package manifest
