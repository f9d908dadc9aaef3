// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// duration prober used by submission validation. Durations come from the
// FFprobe tool, which reads codec metadata without decoding the stream.
//
// Logic Flow:
// FFprobe operates on files, not byte slices, so the blob is first spooled
// to a temporary file. FFprobe can be particular about file extensions, so
// the temporary file keeps the blob's declared extension rather than a
// generated one.
//
//  1. Spool the blob to a temporary file carrying its declared extension.
//  2. Ask FFprobe for the container-level duration (format=duration).
//  3. If the container metadata is missing or unparsable, fall back to the
//     per-stream durations and take the first one that parses.
//  4. If both probes fail, the file is unreadable and validation must
//     reject it rather than assume a duration.
//
// Each probe runs under a bounded timeout so a corrupt file cannot stall a
// submission indefinitely.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sudan-mm/gcp-go-media-collector/internal/core/model"
)

// Constants used for the FFprobe command execution.
const (
	// FormatProbeArgs asks for the container-level duration as JSON.
	// -v error: suppress everything except real errors on stderr.
	FormatProbeArgs = "-v error -show_entries format=duration -of json"
	// StreamProbeArgs asks for the per-stream durations as JSON. Used when
	// the container metadata carries no duration.
	StreamProbeArgs = "-v error -show_entries stream=duration -of json"
	// ProbeTempPrefix names the spooled temporary files.
	ProbeTempPrefix = "duration-probe-"
	// DefaultProbeTimeout bounds a single FFprobe invocation.
	DefaultProbeTimeout = 10 * time.Second
	// CommandSeparator splits the argument strings above.
	CommandSeparator = " "
)

// DurationProber measures the playable duration of a media blob. Validation
// depends on this interface so tests can supply fixed durations without an
// FFprobe binary on the machine.
type DurationProber interface {
	Probe(ctx context.Context, blob model.Blob) (time.Duration, error)
}

// FFProbe is the production DurationProber. It shells out to the FFprobe
// executable configured for the deployment.
type FFProbe struct {
	commandPath string        // The path to the FFprobe executable (e.g., "/usr/bin/ffprobe").
	timeout     time.Duration // Upper bound for one FFprobe invocation.
}

// NewFFProbe is the constructor for creating a new FFProbe prober.
//
// Inputs:
//   - commandPath: The file system path to the FFprobe executable.
//
// Outputs:
//   - *FFProbe: A pointer to the newly instantiated prober.
func NewFFProbe(commandPath string) *FFProbe {
	return &FFProbe{commandPath: commandPath, timeout: DefaultProbeTimeout}
}

// formatProbeOutput matches FFprobe's JSON for a format=duration query.
type formatProbeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// streamProbeOutput matches FFprobe's JSON for a stream=duration query.
type streamProbeOutput struct {
	Streams []struct {
		Duration string `json:"duration"`
	} `json:"streams"`
}

// Probe returns the duration of the blob's content. It tries the container
// metadata first and falls back to stream metadata, returning
// model.ErrUnreadableMedia when neither yields a usable duration.
//
// Inputs:
//   - ctx: The Go context bounding the probe.
//   - blob: The media or audio content to measure.
//
// Outputs:
//   - time.Duration: The measured duration.
//   - error: An error when the content cannot be measured.
func (p *FFProbe) Probe(ctx context.Context, blob model.Blob) (time.Duration, error) {
	tempFile, err := os.CreateTemp("", ProbeTempPrefix+"*"+blob.Extension)
	if err != nil {
		return 0, fmt.Errorf("failed to create probe temp file: %w", err)
	}
	defer func(name string) {
		_ = os.Remove(name)
	}(tempFile.Name())

	if _, err := tempFile.Write(blob.Data); err != nil {
		_ = tempFile.Close()
		return 0, fmt.Errorf("failed to spool blob to %s: %w", tempFile.Name(), err)
	}
	if err := tempFile.Close(); err != nil {
		return 0, fmt.Errorf("failed to close probe temp file: %w", err)
	}

	duration, formatErr := p.probeFormat(ctx, tempFile.Name())
	if formatErr == nil {
		return duration, nil
	}

	duration, streamErr := p.probeStreams(ctx, tempFile.Name())
	if streamErr == nil {
		return duration, nil
	}

	return 0, fmt.Errorf("%w: format probe: %v, stream probe: %v", model.ErrUnreadableMedia, formatErr, streamErr)
}

// probeFormat runs the container-level duration query.
func (p *FFProbe) probeFormat(ctx context.Context, path string) (time.Duration, error) {
	out, err := p.run(ctx, FormatProbeArgs, path)
	if err != nil {
		return 0, err
	}
	var parsed formatProbeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return 0, fmt.Errorf("unparsable probe output: %w", err)
	}
	return parseSeconds(parsed.Format.Duration)
}

// probeStreams runs the per-stream duration query and takes the first stream
// that reports one.
func (p *FFProbe) probeStreams(ctx context.Context, path string) (time.Duration, error) {
	out, err := p.run(ctx, StreamProbeArgs, path)
	if err != nil {
		return 0, err
	}
	var parsed streamProbeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return 0, fmt.Errorf("unparsable probe output: %w", err)
	}
	for _, stream := range parsed.Streams {
		if duration, err := parseSeconds(stream.Duration); err == nil {
			return duration, nil
		}
	}
	return 0, fmt.Errorf("no stream reported a duration")
}

// run executes one FFprobe invocation under the prober's timeout and returns
// its stdout. Stderr rides along in the error for unreadable files.
func (p *FFProbe) run(ctx context.Context, argString string, path string) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := append(strings.Split(argString, CommandSeparator), path)
	cmd := exec.CommandContext(runCtx, p.commandPath, args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("ffprobe failed: %s: %w", strings.TrimSpace(string(exitErr.Stderr)), err)
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	return out, nil
}

// parseSeconds converts FFprobe's decimal-seconds string to a Duration.
func parseSeconds(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty duration")
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("unparsable duration %q: %w", value, err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("non-positive duration %q", value)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
