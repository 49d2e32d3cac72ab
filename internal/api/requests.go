// Monitor the Situation - Traffic Camera Proxy and Dashboard Backend
// Copyright 2026 John D. Lloyd (johndlloyd)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/johndlloyd/monitor-the-situation

package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance. It is safe for concurrent
// use and caches struct metadata, so one instance serves all requests.
var validate = validator.New(validator.WithRequiredStructEnabled())

// proxyRequest carries the validated query parameters for /api/proxy.
// The prefix allowlist check happens separately; this only enforces
// shape.
type proxyRequest struct {
	Path string `validate:"required,startswith=/,max=512"`
}

// snapshotRequest carries the validated query parameters for /snapshot.
// Exactly one of ID and URL must be set; the handler enforces the
// exclusivity because validator cannot express "exactly one" cleanly.
// The number tag restricts IDs to bare decimal digits.
type snapshotRequest struct {
	ID  string `validate:"omitempty,number,max=16"`
	URL string `validate:"omitempty,url,max=2048"`
}

// imageRequest carries the validated query parameters for /image.
type imageRequest struct {
	ID string `validate:"required,number,max=16"`
}

// validateRequest validates a request struct and flattens the first
// failure into a client-presentable message.
func validateRequest(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("parameter %s failed %s validation", strings.ToLower(fe.Field()), fe.Tag())
	}
	return err
}
