package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// Validate checks a descriptor before it enters the catalog.
func Validate(d Descriptor) error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id is required"))
	} else if !idPattern.MatchString(d.ID) {
		errs = append(errs, fmt.Errorf("id %q must be lowercase alphanumeric with . _ -", d.ID))
	}
	if d.DisplayName == "" {
		errs = append(errs, errors.New("display_name is required"))
	}
	if !d.Type.Known() {
		errs = append(errs, fmt.Errorf("unknown type %q (known: %s)", d.Type, strings.Join(typeNames(), ", ")))
	}

	switch d.Type {
	case TypeRemoteAPI, TypeHostedUI:
		if err := validURL(d.Config.BaseURL); err != nil {
			errs = append(errs, fmt.Errorf("base_url: %w", err))
		}
	case TypeProxy:
		if len(d.Config.Endpoints) == 0 {
			if err := validURL(d.Config.BaseURL); err != nil {
				errs = append(errs, fmt.Errorf("base_url: %w", err))
			}
		}
		for i, ep := range d.Config.Endpoints {
			if err := validURL(ep.BaseURL); err != nil {
				errs = append(errs, fmt.Errorf("endpoints[%d].base_url: %w", i, err))
			}
		}
	case TypeLocal:
		if d.Config.Path == "" {
			errs = append(errs, errors.New("local model requires config.path"))
		}
	}

	return errors.Join(errs...)
}

func validURL(raw string) error {
	if raw == "" {
		return errors.New("required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}

func typeNames() []string {
	known := []ProviderType{TypeRemoteAPI, TypeProxy, TypeLocal, TypeMock, TypeHostedUI}
	out := make([]string, len(known))
	for i, k := range known {
		out[i] = string(k)
	}
	return out
}
