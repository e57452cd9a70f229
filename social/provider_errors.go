package social

import (
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ProviderError is what a SocialProvider returns when the remote side
// rejects a call. Flow folds it into the metadata of its own sentinels.
type ProviderError struct {
	Provider    string
	Operation   string
	Status      int
	Code        string
	Description string
	Err         error
	Raw         map[string]any
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}

	scope := strings.TrimSpace(e.Provider + " " + e.Operation)
	if scope == "" {
		scope = "provider"
	}

	switch {
	case e.Description != "":
		return fmt.Sprintf("%s failed: %s", scope, e.Description)
	case e.Code != "":
		return fmt.Sprintf("%s failed: %s", scope, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", scope, e.Err)
	}
	return scope + " failed"
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Metadata flattens the error. Named fields win over Raw keys.
func (e *ProviderError) Metadata() map[string]any {
	if e == nil {
		return nil
	}

	meta := make(map[string]any, len(e.Raw)+5)
	for k, v := range e.Raw {
		meta[k] = v
	}
	setIf(meta, "provider", e.Provider)
	setIf(meta, "operation", e.Operation)
	setIf(meta, "code", e.Code)
	setIf(meta, "description", e.Description)
	if e.Status != 0 {
		meta["status"] = e.Status
	}
	return meta
}

func setIf(meta map[string]any, key, value string) {
	if value != "" {
		meta[key] = value
	}
}

// wrapProviderError clones base with err as its source and the provider
// details as metadata.
func wrapProviderError(base *goerrors.Error, provider, operation string, err error) error {
	if base == nil {
		return err
	}

	meta := map[string]any{}
	setIf(meta, "provider", provider)
	setIf(meta, "operation", operation)

	var perr *ProviderError
	switch {
	case errors.As(err, &perr) && perr != nil:
		for k, v := range perr.Metadata() {
			meta[k] = v
		}
	case err != nil:
		meta["error"] = err.Error()
	}

	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	if err != nil {
		clone.Source = err
	}
	return clone.WithMetadata(meta)
}
