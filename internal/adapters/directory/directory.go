// Package directory populates organizations, people and groups from a YAML export.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lmco/eurekastreams-sub009/internal/application"
	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/lmco/eurekastreams-sub009/internal/logging"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Executor interface {
	Execute(ctx context.Context, name string, principal domain.Principal, params json.RawMessage) (any, error)
}

type File struct {
	Organizations []Organization `yaml:"organizations"`
	People        []Person       `yaml:"people"`
	Groups        []Group        `yaml:"groups"`
}

type Organization struct {
	ShortName    string   `yaml:"shortName"    json:"shortName"`
	Name         string   `yaml:"name"         json:"name"`
	Overview     string   `yaml:"overview"     json:"overview,omitempty"`
	URL          string   `yaml:"url"          json:"url,omitempty"`
	Parent       string   `yaml:"parent"       json:"parentOrganizationShortName"`
	Coordinators []string `yaml:"coordinators" json:"coordinators,omitempty"`
}

type Person struct {
	AccountID    string `yaml:"accountId"    json:"accountId"`
	FirstName    string `yaml:"firstName"    json:"firstName"`
	MiddleName   string `yaml:"middleName"   json:"middleName,omitempty"`
	LastName     string `yaml:"lastName"     json:"lastName"`
	Email        string `yaml:"email"        json:"email"`
	Title        string `yaml:"title"        json:"title,omitempty"`
	Organization string `yaml:"organization" json:"organizationShortName"`
	Password     string `yaml:"password"     json:"password,omitempty"`
}

type Group struct {
	ShortName    string   `yaml:"shortName"    json:"shortName"`
	Name         string   `yaml:"name"         json:"name"`
	Description  string   `yaml:"description"  json:"description,omitempty"`
	Public       bool     `yaml:"public"       json:"publicGroup"`
	Parent       string   `yaml:"parent"       json:"parentOrganizationShortName"`
	Coordinators []string `yaml:"coordinators" json:"coordinators,omitempty"`
}

type Result struct {
	Created map[string]int `json:"created"`
	Skipped map[string]int `json:"skipped"`
	Failed  []string       `json:"failed,omitempty"`
}

func Parse(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("parse directory: %w", err)
	}
	return f, nil
}

type Importer struct {
	exec      Executor
	principal domain.Principal
	log       *logrus.Entry
}

func NewImporter(exec Executor, principal domain.Principal, log logrus.FieldLogger) *Importer {
	return &Importer{exec: exec, principal: principal, log: logging.Component(log, "directory")}
}

// Import creates every entry that does not exist yet. Organizations go first, parents before
// children, then people, then groups. Validation failures are collected and the import continues.
func (im *Importer) Import(ctx context.Context, f File) (Result, error) {
	res := Result{Created: map[string]int{}, Skipped: map[string]int{}}

	for _, org := range orderOrganizations(f.Organizations) {
		if err := im.ensure(ctx, &res, "organization", org.ShortName,
			application.ActionGetOrganization, map[string]any{"shortName": org.ShortName},
			application.ActionCreateOrganization, org); err != nil {
			return res, err
		}
	}
	for _, p := range f.People {
		if err := im.ensure(ctx, &res, "person", p.AccountID,
			application.ActionGetPerson, map[string]any{"accountId": p.AccountID},
			application.ActionCreatePerson, p); err != nil {
			return res, err
		}
	}
	for _, g := range f.Groups {
		if err := im.ensure(ctx, &res, "group", g.ShortName,
			application.ActionGetGroup, map[string]any{"shortName": g.ShortName},
			application.ActionCreateGroup, g); err != nil {
			return res, err
		}
	}

	im.log.WithFields(logrus.Fields{"created": res.Created, "skipped": res.Skipped, "failed": len(res.Failed)}).Info("directory imported")
	return res, nil
}

func (im *Importer) ensure(ctx context.Context, res *Result, kind, key, getAction string, getParams any, createAction string, createParams any) error {
	if strings.TrimSpace(key) == "" {
		res.Failed = append(res.Failed, kind+": missing key")
		return nil
	}
	_, err := im.run(ctx, getAction, getParams)
	if err == nil {
		res.Skipped[kind]++
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	if _, err := im.run(ctx, createAction, createParams); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) || errors.Is(err, domain.ErrNotFound) {
			res.Failed = append(res.Failed, fmt.Sprintf("%s %s: %v", kind, key, err))
			im.log.WithError(err).WithField(kind, key).Warn("entry skipped")
			return nil
		}
		return err
	}
	res.Created[kind]++
	return nil
}

func (im *Importer) run(ctx context.Context, action string, params any) (any, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return im.exec.Execute(ctx, action, im.principal, raw)
}

// orderOrganizations sorts parents ahead of their children. Entries whose parent never appears
// keep their file order after the resolved ones.
func orderOrganizations(orgs []Organization) []Organization {
	known := make(map[string]bool, len(orgs))
	for _, o := range orgs {
		known[o.ShortName] = true
	}
	placed := make(map[string]bool, len(orgs))
	out := make([]Organization, 0, len(orgs))
	remaining := orgs
	for len(remaining) > 0 {
		next := remaining[:0:0]
		for _, o := range remaining {
			if !known[o.Parent] || placed[o.Parent] || o.Parent == o.ShortName {
				out = append(out, o)
				placed[o.ShortName] = true
				continue
			}
			next = append(next, o)
		}
		if len(next) == len(remaining) {
			return append(out, next...)
		}
		remaining = next
	}
	return out
}
