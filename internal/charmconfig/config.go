// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package charmconfig turns the operator supplied charm config into a
// typed ServiceConfig.
package charmconfig

import (
	"sort"
	"strings"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/schema"
)

// ServiceType selects which half of the serial vault a unit runs.
type ServiceType string

const (
	Signing ServiceType = "signing"
	Admin   ServiceType = "admin"
)

// Config keys understood by the charm.
const (
	ServiceTypeKey           = "service_type"
	KeystoreSecretKey        = "keystore_secret"
	CSRFAuthKeyKey           = "csrf_auth_key"
	JWTSecretKey             = "jwt_secret"
	URLHostKey               = "url_host"
	URLSchemeKey             = "url_scheme"
	EnableUserAuthKey        = "enable_user_auth"
	SuperusersKey            = "superusers"
	EnvironmentVariablesKey  = "environment_variables"
	TaggedReleaseKey         = "tagged_release"
	NagiosContextKey         = "nagios_context"
	NagiosCheckHTTPParamsKey = "nagios_check_http_params"
)

// ServiceConfig is the charm config for one reconciliation pass.
type ServiceConfig struct {
	ServiceType    ServiceType
	KeystoreSecret string
	CSRFAuthKey    string
	JWTSecret      string
	URLHost        string
	URLScheme      string
	EnableUserAuth bool

	// Superusers is ordered as configured, without duplicates.
	Superusers []string

	// Environment is passed to the install script and the service.
	Environment map[string]string

	TaggedRelease string

	NagiosContext         string
	NagiosCheckHTTPParams string
}

var fields = schema.Fields{
	ServiceTypeKey:           schema.String(),
	KeystoreSecretKey:        schema.String(),
	CSRFAuthKeyKey:           schema.String(),
	JWTSecretKey:             schema.String(),
	URLHostKey:               schema.String(),
	URLSchemeKey:             schema.String(),
	EnableUserAuthKey:        schema.Bool(),
	SuperusersKey:            schema.String(),
	EnvironmentVariablesKey:  schema.String(),
	TaggedReleaseKey:         schema.String(),
	NagiosContextKey:         schema.String(),
	NagiosCheckHTTPParamsKey: schema.String(),
}

var defaults = schema.Defaults{
	ServiceTypeKey:           string(Signing),
	KeystoreSecretKey:        "",
	CSRFAuthKeyKey:           "",
	JWTSecretKey:             "",
	URLHostKey:               "",
	URLSchemeKey:             "https",
	EnableUserAuthKey:        false,
	SuperusersKey:            "",
	EnvironmentVariablesKey:  "",
	TaggedReleaseKey:         "",
	NagiosContextKey:         "juju",
	NagiosCheckHTTPParamsKey: "",
}

var checker = schema.FieldMap(fields, defaults)

// Parse coerces the raw config-get values into a ServiceConfig. Keys the
// charm does not know about are ignored, nil values take their default.
func Parse(attrs map[string]interface{}) (ServiceConfig, error) {
	known := make(map[string]interface{})
	for k, v := range attrs {
		if _, ok := fields[k]; ok && v != nil {
			known[k] = v
		}
	}
	coerced, err := checker.Coerce(known, nil)
	if err != nil {
		return ServiceConfig{}, errors.NewNotValid(err, "invalid charm config")
	}
	m := coerced.(map[string]interface{})

	env, err := ParseEnvironment(m[EnvironmentVariablesKey].(string))
	if err != nil {
		return ServiceConfig{}, errors.Trace(err)
	}
	return ServiceConfig{
		ServiceType:           ServiceType(m[ServiceTypeKey].(string)),
		KeystoreSecret:        m[KeystoreSecretKey].(string),
		CSRFAuthKey:           m[CSRFAuthKeyKey].(string),
		JWTSecret:             m[JWTSecretKey].(string),
		URLHost:               m[URLHostKey].(string),
		URLScheme:             m[URLSchemeKey].(string),
		EnableUserAuth:        m[EnableUserAuthKey].(bool),
		Superusers:            ParseSuperusers(m[SuperusersKey].(string)),
		Environment:           env,
		TaggedRelease:         strings.TrimSpace(m[TaggedReleaseKey].(string)),
		NagiosContext:         m[NagiosContextKey].(string),
		NagiosCheckHTTPParams: m[NagiosCheckHTTPParamsKey].(string),
	}, nil
}

// ParseSuperusers splits a comma separated list of user names.
func ParseSuperusers(value string) []string {
	var users []string
	seen := set.NewStrings()
	for _, u := range strings.Split(value, ",") {
		u = strings.TrimSpace(u)
		if u == "" || seen.Contains(u) {
			continue
		}
		seen.Add(u)
		users = append(users, u)
	}
	return users
}

// ParseEnvironment splits space separated KEY=VALUE pairs. Values may be
// wrapped in a matching pair of quotes, which are removed.
func ParseEnvironment(value string) (map[string]string, error) {
	env := make(map[string]string)
	for _, pair := range strings.Fields(value) {
		key, val, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, errors.NotValidf("environment variable %q", pair)
		}
		env[key] = Dequote(val)
	}
	return env, nil
}

// EnvironmentList returns env as sorted KEY=VALUE pairs.
func EnvironmentList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// Dequote removes a matching pair of single or double quotes surrounding
// s. If there is no matching pair, s is returned unchanged.
func Dequote(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if (first == '\'' || first == '"') && first == last {
		return s[1 : len(s)-1]
	}
	return s
}
