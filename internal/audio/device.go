// Package audio handles device discovery, selection, PCM capture, and the
// sample-rate plumbing between the capture spec and the recognizer format.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Device describes one Pulse input source surfaced to dicto.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Selection is the resolved capture source plus optional fallback warning context.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

func newPulseClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("dicto"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListDevices returns available Pulse input sources with default/availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}
	defaultID := defaultSource.ID()

	var sourceInfos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sourceInfos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(sourceInfos))
	for _, source := range sourceInfos {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          source.SourceName,
			Description: source.Device,
			State:       sourceStateString(source.State),
			Available:   sourceAvailable(source),
			Muted:       source.Mute,
			Default:     source.SourceName == defaultID,
		})
	}
	return devices, nil
}

// SelectDevice resolves audio.input/audio.fallback preferences against live devices.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, input, fallback)
}

// selectDeviceFromList applies selection policy to a pre-fetched device list.
func selectDeviceFromList(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio input devices found")
	}

	input = strings.TrimSpace(strings.ToLower(input))
	fallback = strings.TrimSpace(strings.ToLower(fallback))

	find := func(term string) *Device {
		for i := range devices {
			if deviceMatches(devices[i], term) {
				return &devices[i]
			}
		}
		return nil
	}
	findDefault := func() *Device {
		for i := range devices {
			if devices[i].Default {
				return &devices[i]
			}
		}
		return nil
	}

	var primary *Device
	if input == "" || input == "default" {
		primary = findDefault()
		if primary == nil {
			return Selection{}, errors.New("default audio source is unavailable")
		}
	} else {
		primary = find(input)
		if primary == nil {
			return Selection{}, fmt.Errorf("audio.input %q did not match any device", input)
		}
	}

	if primary.Available && !primary.Muted {
		return Selection{Device: *primary}, nil
	}

	primaryReason := "unavailable"
	if primary.Muted {
		primaryReason = "muted"
	}

	var candidate *Device
	if fallback != "" && fallback != "default" {
		candidate = find(fallback)
		if candidate == nil {
			return Selection{}, fmt.Errorf("primary input %q is %s and fallback %q not found", primary.ID, primaryReason, fallback)
		}
	} else {
		candidate = findDefault()
		if candidate == nil {
			return Selection{}, fmt.Errorf("primary input %q is %s and no usable fallback", primary.ID, primaryReason)
		}
	}

	if !candidate.Available {
		return Selection{}, fmt.Errorf("audio fallback device %q is not available", candidate.ID)
	}
	if candidate.Muted {
		return Selection{}, fmt.Errorf("audio fallback device %q is muted", candidate.ID)
	}

	return Selection{
		Device:   *candidate,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, primaryReason, candidate.ID),
		Fallback: primary.ID != candidate.ID,
	}, nil
}

// deviceMatches reports whether a search term matches a device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	id := strings.ToLower(device.ID)
	desc := strings.ToLower(device.Description)
	return strings.Contains(id, term) || strings.Contains(desc, term)
}

// DescribeDevice formats device metadata for logs and session results.
func DescribeDevice(device Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	if description == "" {
		return id
	}
	if id == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}

// sourceStateString maps Pulse source state constants to human-readable values.
func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable maps Pulse source port availability to a simple boolean.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	if len(source.Ports) == 0 {
		return true
	}
	for _, port := range source.Ports {
		if port.Name != source.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}
