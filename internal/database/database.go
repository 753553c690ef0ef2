// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package database resolves the PostgreSQL credentials negotiated over
// the "database" relation.
package database

import (
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/mitchellh/mapstructure"
)

var logger = loggo.GetLogger("serialvault.database")

const (
	// Endpoint is the relation endpoint PostgreSQL is related on.
	Endpoint = "database"

	// Name is the database the charm asks PostgreSQL to create.
	Name = "serialvault"

	// NameKey is the relation key carrying the database name, both in
	// our request and in the provider's answer.
	NameKey = "database"

	stateKey = "state"
)

const (
	// ErrNoRelation means the unit has no database relation yet.
	ErrNoRelation = errors.ConstError("no database relation")

	// ErrNotReady means no related unit offers a usable database yet.
	ErrNotReady = errors.ConstError("database not ready")
)

// Credentials is the connection information of a ready database. It is
// never partially populated.
type Credentials struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DatabaseName string `mapstructure:"database"`
}

func (c Credentials) complete() bool {
	return c.Host != "" && c.Port != "" && c.User != "" && c.Password != "" && c.DatabaseName != ""
}

// RelationReader is the subset of hookenv.Context used for resolution.
type RelationReader interface {
	RelationIDs(endpoint string) ([]string, error)
	RelatedUnits(relationID string) ([]string, error)
	RelationGet(relationID, unit string) (map[string]interface{}, error)
}

// Resolve scans every unit on every database relation and returns the
// credentials of a unit that serves our database as master or
// standalone. When several units qualify the last one scanned wins.
func Resolve(reader RelationReader) (Credentials, error) {
	ids, err := reader.RelationIDs(Endpoint)
	if err != nil {
		return Credentials{}, errors.Trace(err)
	}
	if len(ids) == 0 {
		return Credentials{}, ErrNoRelation
	}

	var (
		found bool
		creds Credentials
	)
	for _, id := range ids {
		units, err := reader.RelatedUnits(id)
		if err != nil {
			return Credentials{}, errors.Trace(err)
		}
		for _, unit := range units {
			settings, err := reader.RelationGet(id, unit)
			if err != nil {
				return Credentials{}, errors.Trace(err)
			}
			c, ok := qualify(unit, settings)
			if !ok {
				continue
			}
			creds, found = c, true
		}
	}
	if !found {
		return Credentials{}, ErrNotReady
	}
	return creds, nil
}

func qualify(unit string, settings map[string]interface{}) (Credentials, bool) {
	if name, _ := settings[NameKey].(string); name != Name {
		logger.Tracef("%s does not serve database %q", unit, Name)
		return Credentials{}, false
	}
	switch state, _ := settings[stateKey].(string); state {
	case "master", "standalone":
	default:
		logger.Debugf("%s reports state %q", unit, state)
		return Credentials{}, false
	}

	var creds Credentials
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &creds,
	})
	if err != nil {
		return Credentials{}, false
	}
	if err := decoder.Decode(settings); err != nil {
		logger.Warningf("cannot decode database settings from %s: %v", unit, err)
		return Credentials{}, false
	}
	if !creds.complete() {
		logger.Debugf("%s has not published complete credentials", unit)
		return Credentials{}, false
	}
	return creds, true
}

// IsNotReady reports whether err means the database is not usable yet.
func IsNotReady(err error) bool {
	return errors.Is(err, ErrNotReady) || errors.Is(err, ErrNoRelation)
}
