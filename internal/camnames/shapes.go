// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package camnames

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// The candidate endpoints have no common schema. Some return a bare array
// of camera records, some wrap the array in an envelope object, and the
// records themselves spell their fields several ways. Normalization is an
// explicit match over the known shapes; anything that fits none of them is
// ErrUnrecognizedShape and the branch contributes nothing.

// ErrUnrecognizedShape is returned when a response parses as JSON but
// matches no known camera-list shape.
var ErrUnrecognizedShape = errors.New("unrecognized response shape")

// wrapperFields are the envelope keys checked, in order, when a response
// is an object rather than a bare array.
var wrapperFields = []string{"cameras", "data", "list", "results", "items"}

// NameRecord is the normalized camera-name tuple.
type NameRecord struct {
	ID       string
	Location string
	Roadway  string
}

// flexString unmarshals from either a JSON string or a JSON number. The
// upstream is inconsistent about whether camera ids are quoted.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	if string(data) == "null" {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// rawRecord holds every field spelling seen across the candidate
// endpoints. Normalization picks the first populated spelling.
type rawRecord struct {
	ID       flexString `json:"id"`
	CameraID flexString `json:"cameraId"`
	CamID    flexString `json:"camera_id"`

	Location    string `json:"location"`
	Description string `json:"description"`
	Name        string `json:"name"`

	Roadway     string `json:"roadway"`
	RoadwayName string `json:"roadwayName"`
	Road        string `json:"road"`
}

func (r rawRecord) normalize() (NameRecord, bool) {
	id := firstNonEmpty(string(r.ID), string(r.CameraID), string(r.CamID))
	if id == "" {
		return NameRecord{}, false
	}
	return NameRecord{
		ID:       id,
		Location: firstNonEmpty(r.Location, r.Description, r.Name),
		Roadway:  firstNonEmpty(r.Roadway, r.RoadwayName, r.Road),
	}, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// Normalize converts one endpoint's response body into normalized name
// records. Recognized shapes: a bare array of records, or an object
// wrapping such an array under one of the known envelope keys. Records
// without a usable id are skipped.
func Normalize(body []byte) ([]NameRecord, error) {
	arr, err := recordArray(body)
	if err != nil {
		return nil, err
	}

	records := make([]NameRecord, 0, len(arr))
	for _, raw := range arr {
		if rec, ok := raw.normalize(); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func recordArray(body []byte) ([]rawRecord, error) {
	first := firstStructuralByte(body)
	switch first {
	case '[':
		var arr []rawRecord
		if err := json.Unmarshal(body, &arr); err != nil {
			return nil, fmt.Errorf("%w: array decode: %v", ErrUnrecognizedShape, err)
		}
		return arr, nil

	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("%w: envelope decode: %v", ErrUnrecognizedShape, err)
		}
		for _, field := range wrapperFields {
			inner, ok := envelope[field]
			if !ok || firstStructuralByte(inner) != '[' {
				continue
			}
			var arr []rawRecord
			if err := json.Unmarshal(inner, &arr); err != nil {
				return nil, fmt.Errorf("%w: envelope field %q: %v", ErrUnrecognizedShape, field, err)
			}
			return arr, nil
		}
		return nil, fmt.Errorf("%w: no known envelope field", ErrUnrecognizedShape)

	default:
		return nil, fmt.Errorf("%w: starts with %q", ErrUnrecognizedShape, string(first))
	}
}

func firstStructuralByte(body []byte) byte {
	for _, b := range body {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return b
		}
	}
	return 0
}
